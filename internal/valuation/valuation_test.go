package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/ledger"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/assist-by/portfolio/internal/storage/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubPrices map[string]decimal.Decimal

func (p stubPrices) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := p[symbol]
	if !ok {
		return decimal.Zero, domain.NewTradeError(symbol, "가격 조회", domain.ErrPriceUnavailable)
	}
	return price, nil
}

type brokenPrices struct{}

func (brokenPrices) CurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("connection refused")
}

func record(symbol string, side domain.TradeType, qty, net string) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:          uuid.NewString(),
		UserID:      1,
		AssetSymbol: symbol,
		TradeType:   side,
		Quantity:    dec(qty),
		NetValue:    dec(net),
		Price:       dec("1"),
		Fee:         dec("0.01"),
		TradeAt:     time.Now(),
	}
}

func seeded(t *testing.T) (*memory.Store, *ledger.Book) {
	t.Helper()
	db := memory.New()
	book := ledger.NewBook()
	require.NoError(t, db.WithTx(context.Background(), func(tx storage.Tx) error {
		for _, e := range []domain.LedgerEntry{
			// BTC: 전량 매도로 청산
			record("BTCUSDT", domain.Buy, "1.9998", "99.99"),
			record("BTCUSDT", domain.Sell, "-1.9998", "-99.98"),
			// ETH: 일부 보유
			record("ETHUSDT", domain.Buy, "2", "40"),
			record("ETHUSDT", domain.Sell, "-1", "-25"),
		} {
			if err := book.Append(context.Background(), tx, e); err != nil {
				return err
			}
		}
		return nil
	}))
	return db, book
}

func bySymbol(records []domain.PnLRecord) map[string]domain.PnLRecord {
	out := make(map[string]domain.PnLRecord, len(records))
	for _, r := range records {
		out[r.AssetSymbol] = r
	}
	return out
}

func TestAggregator_PnL(t *testing.T) {
	db, book := seeded(t)
	agg := NewAggregator(db, book, stubPrices{"ETHUSDT": dec("30")})

	records, err := agg.PnL(context.Background(), 1)
	require.NoError(t, err)
	got := bySymbol(records)
	require.Len(t, got, 2)

	btc := got["BTCUSDT"]
	assert.True(t, btc.PnL.Equal(dec("-0.01")), btc.PnL.String())
	assert.True(t, btc.CurrentPrice.IsZero(), "청산된 포지션은 가격을 조회하지 않습니다")
	assert.False(t, btc.PriceMissing)

	eth := got["ETHUSDT"]
	assert.True(t, eth.Invested.Equal(dec("40")))
	assert.True(t, eth.Received.Equal(dec("25")))
	assert.True(t, eth.CurrentPrice.Equal(dec("30")))
	assert.True(t, eth.PnL.Equal(dec("15")), eth.PnL.String())
}

func TestAggregator_PnLMissingPrice(t *testing.T) {
	db, book := seeded(t)

	t.Run("degrade", func(t *testing.T) {
		agg := NewAggregator(db, book, stubPrices{})
		records, err := agg.PnL(context.Background(), 1)
		require.NoError(t, err)

		eth := bySymbol(records)["ETHUSDT"]
		assert.True(t, eth.PriceMissing)
		assert.True(t, eth.CurrentPrice.IsZero())
		assert.True(t, eth.PnL.Equal(dec("-15")))
		assert.True(t, bySymbol(records)["BTCUSDT"].PnL.Equal(dec("-0.01")))
	})

	t.Run("strict", func(t *testing.T) {
		agg := NewAggregator(db, book, stubPrices{}, WithPolicy(Strict))
		_, err := agg.PnL(context.Background(), 1)
		assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
	})

	t.Run("source failure is not degraded", func(t *testing.T) {
		agg := NewAggregator(db, book, brokenPrices{})
		_, err := agg.PnL(context.Background(), 1)
		assert.Error(t, err)
	})
}

func TestAggregator_SummaryAndBalance(t *testing.T) {
	db, book := seeded(t)
	agg := NewAggregator(db, book, stubPrices{})

	summary, err := agg.Summary(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	for _, s := range summary {
		if s.AssetSymbol == "BTCUSDT" {
			assert.True(t, s.Quantity.IsZero())
			assert.True(t, s.NetValue.IsZero())
		}
	}

	balance, err := agg.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAggregator_EmptyLedger(t *testing.T) {
	agg := NewAggregator(memory.New(), ledger.NewBook(), stubPrices{})

	records, err := agg.PnL(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParsePricePolicy(t *testing.T) {
	p, err := ParsePricePolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	_, err = ParsePricePolicy("lenient")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
