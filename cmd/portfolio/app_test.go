package main

import (
	"context"
	"testing"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_MemoryWiring(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("INITIAL_BALANCE", "25")
	t.Setenv("DISCORD_TRADE_WEBHOOK", "")
	t.Setenv("DISCORD_ERROR_WEBHOOK", "")
	t.Setenv("DISCORD_INFO_WEBHOOK", "")
	ctx := context.Background()

	a, err := newApp(ctx, true)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, notification.Nop{}, a.notifier)

	acct, err := a.wallet.Open(ctx, a.db, 1)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(25)))

	require.NoError(t, a.assets.UpsertAsset(ctx, domain.Asset{Symbol: "BTC", Active: true}))
	require.NoError(t, a.cache.Merge(ctx, domain.Candle{
		Symbol: "BTC", Interval: domain.Interval1h,
		Open: decimal.NewFromInt(20), High: decimal.NewFromInt(20), Low: decimal.NewFromInt(20), Close: decimal.NewFromInt(20),
	}))

	entry, err := a.engine.Execute(ctx, 1, domain.BuyRequest{AssetSymbol: "BTC", Amount: decimal.NewFromInt(20)})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", entry.AssetSymbol)

	records, err := a.valuation.PnL(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].CurrentPrice.Equal(decimal.NewFromInt(20)))
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := newApp(context.Background(), false)
	assert.Error(t, err)
}
