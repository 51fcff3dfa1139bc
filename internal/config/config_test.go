package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Database.Storage)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.Trading.FeeRate.Equal(decimal.RequireFromString("0.0001")))
	assert.True(t, cfg.Trading.MinimumInvestment.Equal(decimal.NewFromInt(10)))
	assert.True(t, cfg.Trading.InitialBalance.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 3*time.Second, cfg.Trading.PriceTimeout)
	assert.Equal(t, 5*time.Second, cfg.Market.QuoteTTL)
	assert.Equal(t, PolicyDegrade, cfg.Valuation.PricePolicy)
	assert.Equal(t, "1h", string(cfg.CandleInterval()))
	assert.False(t, cfg.TradeStreamEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/portfolio")
	t.Setenv("FEE_RATE", "0.001")
	t.Setenv("PNL_PRICE_POLICY", "strict")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.True(t, cfg.Trading.FeeRate.Equal(decimal.RequireFromString("0.001")))
	assert.Equal(t, PolicyStrict, cfg.Valuation.PricePolicy)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.TradeStreamEnabled())
}

func TestLoadConfig_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE=memory\nHTTP_PORT=9191\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STORAGE")
		os.Unsetenv("HTTP_PORT")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.HTTP.Port)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		var cfg Config
		cfg.Database.Storage = StorageMemory
		cfg.HTTP.Port = 8080
		cfg.Trading.FeeRate = decimal.RequireFromString("0.0001")
		cfg.Trading.MinimumInvestment = decimal.NewFromInt(10)
		cfg.Trading.PriceTimeout = 3 * time.Second
		cfg.Valuation.PricePolicy = PolicyDegrade
		cfg.Market.FetchInterval = 15 * time.Minute
		cfg.Market.CandleInterval = "1h"
		return &cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"postgres without url", func(c *Config) { c.Database.Storage = StoragePostgres }},
		{"unknown storage", func(c *Config) { c.Database.Storage = "sqlite" }},
		{"negative fee", func(c *Config) { c.Trading.FeeRate = decimal.NewFromInt(-1) }},
		{"zero minimum", func(c *Config) { c.Trading.MinimumInvestment = decimal.Zero }},
		{"zero price timeout", func(c *Config) { c.Trading.PriceTimeout = 0 }},
		{"unknown policy", func(c *Config) { c.Valuation.PricePolicy = "ignore" }},
		{"short fetch interval", func(c *Config) { c.Market.FetchInterval = time.Second }},
		{"bad candle interval", func(c *Config) { c.Market.CandleInterval = "2h" }},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }},
	}

	require.NoError(t, ValidateConfig(valid()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}
