// Package trading은 매수와 매도를 하나의 저장소 트랜잭션으로 체결합니다
package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/ledger"
	"github.com/assist-by/portfolio/internal/notification"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/assist-by/portfolio/internal/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// sellNetPlaces는 매도 순액을 반올림할 소수 자릿수입니다
const sellNetPlaces = 3

// Engine은 거래 요청을 검증하고 잔고와 원장에 함께 반영합니다
type Engine struct {
	db       storage.DB
	prices   PriceResolver
	assets   AssetChecker
	wallet   *wallet.Account
	book     *ledger.Book
	notifier notification.Notifier
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// Option은 Engine 생성 옵션입니다
type Option func(*Engine)

// WithNotifier는 체결 알림을 보낼 Notifier를 설정합니다
func WithNotifier(n notification.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithLogger는 로거를 설정합니다
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock은 체결 시각 함수를 교체합니다
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine은 새로운 Engine을 생성합니다
func NewEngine(db storage.DB, prices PriceResolver, assets AssetChecker, w *wallet.Account, book *ledger.Book, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		prices:   prices,
		assets:   assets,
		wallet:   w,
		book:     book,
		notifier: notification.Nop{},
		config:   cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Executor = (*Engine)(nil)

// Execute는 매수 또는 매도 요청을 체결합니다.
// 가격은 트랜잭션 밖에서 먼저 결정하고, 잔고 변경과 원장 기록은 하나의 트랜잭션에서 처리합니다.
// 실패하면 잔고와 원장 모두 변하지 않습니다.
func (e *Engine) Execute(ctx context.Context, userID int64, req domain.TradeRequest) (domain.LedgerEntry, error) {
	if req == nil {
		return domain.LedgerEntry{}, fmt.Errorf("%w: 거래 요청이 비어 있습니다", domain.ErrInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return domain.LedgerEntry{}, err
	}

	base := req.Asset()
	pair := domain.PairSymbol(base)
	if err := e.checkAsset(ctx, base); err != nil {
		return domain.LedgerEntry{}, err
	}

	price, err := e.resolvePrice(ctx, pair)
	if err != nil {
		e.logger.Warn("trade price unavailable", zap.String("symbol", pair), zap.Error(err))
		return domain.LedgerEntry{}, err
	}

	var (
		entry   domain.LedgerEntry
		balance decimal.Decimal
	)
	err = e.db.WithTx(ctx, func(tx storage.Tx) error {
		// 같은 사용자의 거래는 잔고 행 잠금으로 직렬화됩니다
		if _, _, err := tx.LockBalance(ctx, userID); err != nil {
			return &ExecutionError{Phase: "잔고 잠금", Err: err}
		}

		var err error
		switch r := req.(type) {
		case domain.BuyRequest:
			entry, balance, err = e.buy(ctx, tx, userID, pair, price, r)
		case domain.SellRequest:
			entry, balance, err = e.sell(ctx, tx, userID, pair, price, r)
		default:
			err = fmt.Errorf("%w: 지원하지 않는 요청 %T", domain.ErrInvalidRequest, req)
		}
		if err != nil {
			return domain.NewTradeError(pair, string(req.Side()), err)
		}

		if err := e.book.Append(ctx, tx, entry); err != nil {
			return &ExecutionError{Phase: "원장 기록", Err: err}
		}
		return nil
	})
	if err != nil {
		e.logger.Info("trade rejected",
			zap.Int64("user_id", userID),
			zap.String("symbol", pair),
			zap.String("side", string(req.Side())),
			zap.Error(err),
		)
		return domain.LedgerEntry{}, err
	}

	e.logger.Info("trade executed",
		zap.Int64("user_id", userID),
		zap.String("id", entry.ID),
		zap.String("symbol", pair),
		zap.String("side", string(entry.TradeType)),
		zap.String("quantity", entry.Quantity.String()),
		zap.String("price", price.String()),
		zap.String("balance", balance.String()),
	)

	if err := e.notifier.SendTradeInfo(notification.NewTradeInfo(entry, balance)); err != nil {
		e.logger.Warn("trade notification failed", zap.Error(err))
	}
	return entry, nil
}

// buy는 금액만큼 잔고를 차감하고 수수료를 뺀 금액으로 수량을 계산합니다
func (e *Engine) buy(ctx context.Context, tx storage.Tx, userID int64, pair string, price decimal.Decimal, r domain.BuyRequest) (domain.LedgerEntry, decimal.Decimal, error) {
	amount := r.Amount
	if amount.LessThan(e.config.MinimumInvestment) {
		return domain.LedgerEntry{}, decimal.Zero, fmt.Errorf("%w: %s < %s", domain.ErrBelowMinimum, amount, e.config.MinimumInvestment)
	}

	fee := amount.Mul(e.config.FeeRate)
	net := amount.Sub(fee)
	qty := net.Div(price)

	balance, err := e.wallet.Adjust(ctx, tx, userID, amount.Neg())
	if err != nil {
		return domain.LedgerEntry{}, decimal.Zero, err
	}

	return e.newEntry(userID, pair, domain.Buy, qty, net, price, fee), balance, nil
}

// sell은 보유 수량 안에서 매도하고 수수료를 뺀 순액을 잔고에 더합니다
func (e *Engine) sell(ctx context.Context, tx storage.Tx, userID int64, pair string, price decimal.Decimal, r domain.SellRequest) (domain.LedgerEntry, decimal.Decimal, error) {
	held, found, err := e.book.Position(ctx, tx, userID, pair)
	if err != nil {
		return domain.LedgerEntry{}, decimal.Zero, err
	}
	if !found || !held.IsPositive() {
		return domain.LedgerEntry{}, decimal.Zero, domain.ErrNoPosition
	}

	qty := r.QuantityFor(held)
	if qty.GreaterThan(held) {
		return domain.LedgerEntry{}, decimal.Zero, fmt.Errorf("%w: 요청 %s, 보유 %s", domain.ErrInsufficientQuantity, qty, held)
	}
	if !qty.IsPositive() {
		return domain.LedgerEntry{}, decimal.Zero, fmt.Errorf("%w: 매도 수량이 0입니다", domain.ErrInvalidRequest)
	}

	amount := qty.Mul(price)
	fee := amount.Mul(e.config.FeeRate)
	net := amount.Sub(fee).RoundBank(sellNetPlaces)

	balance, err := e.wallet.Adjust(ctx, tx, userID, net)
	if err != nil {
		return domain.LedgerEntry{}, decimal.Zero, err
	}

	return e.newEntry(userID, pair, domain.Sell, qty.Neg(), net.Neg(), price, fee), balance, nil
}

func (e *Engine) newEntry(userID int64, pair string, side domain.TradeType, qty, net, price, fee decimal.Decimal) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		AssetSymbol: pair,
		TradeType:   side,
		Quantity:    qty,
		NetValue:    net,
		Price:       price,
		Fee:         fee,
		TradeAt:     e.now().UTC(),
	}
}

// checkAsset은 자산이 등록되어 있고 활성 상태인지 확인합니다
func (e *Engine) checkAsset(ctx context.Context, base string) error {
	asset, found, err := e.assets.Asset(ctx, base)
	if err != nil {
		return &ExecutionError{Phase: "자산 확인", Err: err}
	}
	if !found || !asset.Active {
		return fmt.Errorf("%w: 거래할 수 없는 자산 %s", domain.ErrInvalidRequest, base)
	}
	return nil
}

type priceResult struct {
	price decimal.Decimal
	err   error
}

// resolvePrice는 제한 시간 안에 체결 가격을 결정합니다.
// 어떤 실패든 ErrPriceUnavailable로 보고하며 재시도하지 않습니다.
func (e *Engine) resolvePrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.PriceTimeout)
	defer cancel()

	done := make(chan priceResult, 1)
	go func() {
		price, err := e.prices.CurrentPrice(ctx, pair)
		done <- priceResult{price: price, err: err}
	}()

	var res priceResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		if errors.Is(res.err, domain.ErrPriceUnavailable) {
			return decimal.Zero, res.err
		}
		return decimal.Zero, domain.NewTradeError(pair, "가격 조회", fmt.Errorf("%w: %v", domain.ErrPriceUnavailable, res.err))
	}
	if !res.price.IsPositive() {
		return decimal.Zero, domain.NewTradeError(pair, "가격 조회", domain.ErrPriceUnavailable)
	}
	return res.price, nil
}
