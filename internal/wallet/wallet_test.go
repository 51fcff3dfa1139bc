package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/assist-by/portfolio/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func balanceOf(t *testing.T, db storage.DB, a *Account, userID int64) decimal.Decimal {
	t.Helper()
	var bal decimal.Decimal
	require.NoError(t, db.View(context.Background(), func(tx storage.Tx) error {
		var err error
		bal, err = a.Balance(context.Background(), tx, userID)
		return err
	}))
	return bal
}

func TestAccount_BalanceWithoutRow(t *testing.T) {
	db := memory.New()
	a := NewAccount()

	assert.True(t, balanceOf(t, db, a, 42).IsZero())

	require.NoError(t, db.View(context.Background(), func(tx storage.Tx) error {
		_, found, err := tx.Balance(context.Background(), 42)
		assert.False(t, found, "조회만으로 행이 생기면 안 됩니다")
		return err
	}))
}

func TestAccount_Adjust(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		delta   string
		want    string
		wantErr error
	}{
		{name: "입금", start: "0", delta: "100", want: "100"},
		{name: "전액 출금", start: "100", delta: "-100", want: "0"},
		{name: "잔고 초과 출금", start: "50", delta: "-50.00000001", want: "50", wantErr: domain.ErrInsufficientFunds},
		{name: "빈 계정에서 출금", start: "0", delta: "-1", want: "0", wantErr: domain.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := memory.New()
			a := NewAccount()

			if s := dec(tt.start); s.IsPositive() {
				_, err := a.Deposit(ctx, db, 1, s)
				require.NoError(t, err)
			}

			err := db.WithTx(ctx, func(tx storage.Tx) error {
				_, err := a.Adjust(ctx, tx, 1, dec(tt.delta))
				return err
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.True(t, balanceOf(t, db, a, 1).Equal(dec(tt.want)), "balance = %s", balanceOf(t, db, a, 1))
		})
	}
}

func TestAccount_Deposit(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	a := NewAccount()

	_, err := a.Deposit(ctx, db, 1, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = a.Deposit(ctx, db, 1, dec("-5"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	bal, err := a.Deposit(ctx, db, 1, dec("12.5"))
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("12.5")))
}

func TestAccount_OpenSeedsOnce(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	a := NewAccount(WithInitialBalance(dec("10")))

	acct, err := a.Open(ctx, db, 9)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("10")))

	_, err = a.Deposit(ctx, db, 9, dec("5"))
	require.NoError(t, err)

	acct, err = a.Open(ctx, db, 9)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("15")), "이미 있는 계정에는 초기 잔고를 다시 주지 않습니다")
}

func TestAccount_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	a := NewAccount()

	_, err := a.Deposit(ctx, db, 1, dec("100"))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.WithTx(ctx, func(tx storage.Tx) error {
				_, err := a.Adjust(ctx, tx, 1, dec("-10"))
				return err
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	assert.True(t, balanceOf(t, db, a, 1).IsZero())
}
