// Package valuation은 원장 집계에 현재 가격을 더해 보유 현황과 손익을 계산합니다
package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/ledger"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PricePolicy는 현재 가격을 구할 수 없을 때의 처리 방식입니다
type PricePolicy string

const (
	// Degrade는 해당 자산만 가격 0, 평가손익 없음으로 보고합니다
	Degrade PricePolicy = "degrade"
	// Strict는 전체 조회를 ErrPriceUnavailable로 실패시킵니다
	Strict PricePolicy = "strict"
)

// ParsePricePolicy는 설정 문자열을 PricePolicy로 변환합니다
func ParsePricePolicy(s string) (PricePolicy, error) {
	switch p := PricePolicy(s); p {
	case Degrade, Strict:
		return p, nil
	default:
		return "", fmt.Errorf("%w: 알 수 없는 가격 정책 %q", domain.ErrInvalidRequest, s)
	}
}

// PriceSource는 평가에 사용할 현재 가격을 제공합니다
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Aggregator는 읽기 전용 트랜잭션에서 원장을 집계합니다
type Aggregator struct {
	db     storage.DB
	book   *ledger.Book
	prices PriceSource
	policy PricePolicy
	logger *zap.Logger
}

// Option은 Aggregator 생성 옵션입니다
type Option func(*Aggregator)

// WithPolicy는 가격 누락 정책을 설정합니다
func WithPolicy(p PricePolicy) Option {
	return func(a *Aggregator) {
		a.policy = p
	}
}

// WithLogger는 로거를 설정합니다
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// NewAggregator는 새로운 Aggregator를 생성합니다
func NewAggregator(db storage.DB, book *ledger.Book, prices PriceSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		db:     db,
		book:   book,
		prices: prices,
		policy: Degrade,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary는 자산별 보유 요약을 반환합니다
func (a *Aggregator) Summary(ctx context.Context, userID int64) ([]domain.PositionSummary, error) {
	var out []domain.PositionSummary
	err := a.db.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = a.book.PositionSummary(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Balance는 현금 잔고를 반환합니다. 계정이 없으면 0입니다.
func (a *Aggregator) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := a.db.View(ctx, func(tx storage.Tx) error {
		acct, _, err := tx.Balance(ctx, userID)
		balance = acct.Balance
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// PnL은 자산별 손익을 계산합니다. pnl = 회수액 - 투입액 (+ 보유 수량 x 현재 가격).
// 집계는 하나의 읽기 전용 트랜잭션에서 읽고, 가격 조회는 트랜잭션이 끝난 뒤에 합니다.
func (a *Aggregator) PnL(ctx context.Context, userID int64) ([]domain.PnLRecord, error) {
	var aggs []domain.PnLAggregate
	err := a.db.View(ctx, func(tx storage.Tx) error {
		var err error
		aggs, err = a.book.PnLAggregates(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	records := make([]domain.PnLRecord, 0, len(aggs))
	for _, agg := range aggs {
		rec := domain.PnLRecord{
			AssetSymbol:  agg.AssetSymbol,
			Invested:     agg.Invested,
			Received:     agg.Received,
			Quantity:     agg.Quantity,
			CurrentPrice: decimal.Zero,
			PnL:          agg.Received.Sub(agg.Invested),
		}

		if agg.Quantity.IsPositive() {
			price, err := a.prices.CurrentPrice(ctx, agg.AssetSymbol)
			switch {
			case err == nil:
				rec.CurrentPrice = price
				rec.PnL = rec.PnL.Add(price.Mul(agg.Quantity))
			case a.policy == Strict || !errors.Is(err, domain.ErrPriceUnavailable):
				return nil, domain.NewTradeError(agg.AssetSymbol, "손익 평가", err)
			default:
				a.logger.Warn("valuation price missing",
					zap.Int64("user_id", userID),
					zap.String("symbol", agg.AssetSymbol),
					zap.Error(err))
				rec.PriceMissing = true
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
