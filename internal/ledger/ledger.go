// Package ledger는 추가만 가능한 거래 원장과 그 집계를 제공합니다
package ledger

import (
	"context"
	"fmt"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/shopspring/decimal"
)

// DefaultHistoryLimit는 거래 내역 조회의 기본 개수입니다
const DefaultHistoryLimit = 100

// Book은 원장 기록과 집계를 담당합니다
type Book struct{}

// NewBook은 새로운 Book을 생성합니다
func NewBook() *Book {
	return &Book{}
}

// Append는 원장 항목 하나를 기록합니다. 기록된 항목은 수정되거나 삭제되지 않습니다.
func (b *Book) Append(ctx context.Context, tx storage.Tx, e domain.LedgerEntry) error {
	if e.ID == "" || e.AssetSymbol == "" {
		return fmt.Errorf("원장 항목에 ID와 심볼이 필요합니다")
	}
	if !e.TradeType.Valid() {
		return fmt.Errorf("알 수 없는 거래 방향: %q", e.TradeType)
	}
	return tx.InsertEntry(ctx, e)
}

// PositionSummary는 자산별 보유 수량, 순액 절대값, 수수료 합계를 반환합니다.
// 수량 합계가 0이면 순액은 0으로 보고합니다.
func (b *Book) PositionSummary(ctx context.Context, tx storage.Tx, userID int64) ([]domain.PositionSummary, error) {
	sums, err := tx.SumsByAsset(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("포지션 요약 실패: %w", err)
	}

	out := make([]domain.PositionSummary, 0, len(sums))
	for _, s := range sums {
		net := s.NetValue.Abs()
		if s.Quantity.IsZero() {
			net = decimal.Zero
		}
		out = append(out, domain.PositionSummary{
			AssetSymbol: s.AssetSymbol,
			Quantity:    s.Quantity,
			NetValue:    net,
			Fee:         s.Fee,
		})
	}
	return out, nil
}

// PnLAggregates는 자산별 매수 투입액, 매도 회수액, 현재 수량을 반환합니다
func (b *Book) PnLAggregates(ctx context.Context, tx storage.Tx, userID int64) ([]domain.PnLAggregate, error) {
	sums, err := tx.SumsByAsset(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("손익 집계 실패: %w", err)
	}

	out := make([]domain.PnLAggregate, 0, len(sums))
	for _, s := range sums {
		out = append(out, domain.PnLAggregate{
			AssetSymbol: s.AssetSymbol,
			Invested:    s.BuyNetValue,
			Received:    s.SellNetValue.Neg(),
			Quantity:    s.Quantity,
		})
	}
	return out, nil
}

// Position은 한 자산의 현재 보유 수량을 반환합니다. 거래 기록이 없으면 found=false입니다.
func (b *Book) Position(ctx context.Context, tx storage.Tx, userID int64, pair string) (qty decimal.Decimal, found bool, err error) {
	sums, err := tx.SumsByAsset(ctx, userID)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("포지션 조회 실패: %w", err)
	}
	for _, s := range sums {
		if s.AssetSymbol == pair {
			return s.Quantity, true, nil
		}
	}
	return decimal.Zero, false, nil
}

// Transactions는 최신순 거래 내역을 반환합니다
func (b *Book) Transactions(ctx context.Context, tx storage.Tx, userID int64, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := tx.Entries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("거래 내역 조회 실패: %w", err)
	}
	return entries, nil
}
