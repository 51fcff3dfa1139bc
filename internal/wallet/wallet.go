// Package wallet은 사용자별 현금 잔고를 관리합니다.
// 잔고 변경은 Adjust 하나로만 이루어지며 결과가 음수가 되는 변경은 거부됩니다.
package wallet

import (
	"context"
	"fmt"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Account는 잔고 조회와 변경을 담당합니다
type Account struct {
	initialBalance decimal.Decimal
	logger         *zap.Logger
}

// Option은 Account 생성 옵션입니다
type Option func(*Account)

// WithInitialBalance는 계정 개설 시 지급할 초기 잔고를 설정합니다
func WithInitialBalance(v decimal.Decimal) Option {
	return func(a *Account) {
		a.initialBalance = v
	}
}

// WithLogger는 로거를 설정합니다
func WithLogger(l *zap.Logger) Option {
	return func(a *Account) {
		a.logger = l
	}
}

// NewAccount는 새로운 Account를 생성합니다
func NewAccount(opts ...Option) *Account {
	a := &Account{
		initialBalance: decimal.Zero,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Balance는 현재 잔고를 반환합니다. 계정이 없으면 0이며 행을 만들지 않습니다.
func (a *Account) Balance(ctx context.Context, tx storage.Tx, userID int64) (decimal.Decimal, error) {
	acct, _, err := tx.Balance(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// Adjust는 잔고에 delta를 더합니다. 계정이 없으면 0으로 만든 뒤 적용합니다.
// 결과가 음수이면 ErrInsufficientFunds를 반환하고 잔고는 바뀌지 않습니다.
// 잔고 행은 tx가 끝날 때까지 잠겨 같은 사용자의 다른 변경과 직렬화됩니다.
func (a *Account) Adjust(ctx context.Context, tx storage.Tx, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	acct, _, err := tx.LockBalance(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	next := acct.Balance.Add(delta)
	if next.IsNegative() {
		return acct.Balance, fmt.Errorf("%w: 잔고 %s, 변경 %s", domain.ErrInsufficientFunds, acct.Balance, delta)
	}

	updated, err := tx.SetBalance(ctx, userID, next)
	if err != nil {
		return acct.Balance, err
	}
	return updated.Balance, nil
}

// Deposit은 자체 트랜잭션에서 잔고를 입금합니다. 금액은 0보다 커야 합니다.
func (a *Account) Deposit(ctx context.Context, db storage.DB, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: 입금액은 0보다 커야 합니다", domain.ErrInvalidRequest)
	}

	var balance decimal.Decimal
	err := db.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		balance, err = a.Adjust(ctx, tx, userID, amount)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	a.logger.Info("deposit applied",
		zap.Int64("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()),
	)
	return balance, nil
}

// Open은 계정을 개설합니다. 처음 만들어질 때만 초기 잔고를 지급하므로 여러 번 호출해도 안전합니다.
func (a *Account) Open(ctx context.Context, db storage.DB, userID int64) (domain.BalanceAccount, error) {
	var acct domain.BalanceAccount
	err := db.WithTx(ctx, func(tx storage.Tx) error {
		locked, created, err := tx.LockBalance(ctx, userID)
		if err != nil {
			return err
		}
		acct = locked
		if !created || !a.initialBalance.IsPositive() {
			return nil
		}
		acct, err = tx.SetBalance(ctx, userID, locked.Balance.Add(a.initialBalance))
		return err
	})
	if err != nil {
		return domain.BalanceAccount{}, fmt.Errorf("계정 개설 실패: %w", err)
	}
	return acct, nil
}
