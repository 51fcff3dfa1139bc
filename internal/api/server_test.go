package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/ledger"
	"github.com/assist-by/portfolio/internal/market"
	"github.com/assist-by/portfolio/internal/storage/memory"
	"github.com/assist-by/portfolio/internal/trading"
	"github.com/assist-by/portfolio/internal/valuation"
	"github.com/assist-by/portfolio/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubMarket struct {
	klines domain.CandleList
	err    error
}

func (m *stubMarket) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Zero, m.err
	}
	return dec("51"), nil
}

func (m *stubMarket) Klines(ctx context.Context, symbol string, interval domain.TimeInterval, since time.Time) (domain.CandleList, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.klines, nil
}

type testServer struct {
	*Server
	market *stubMarket
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db := memory.New()
	candles := memory.NewCandleStore()
	require.NoError(t, candles.MergeCandle(ctx, domain.Candle{
		Symbol: "BTCUSDT", Interval: domain.Interval1m, Timestamp: time.Now().Add(-time.Minute),
		Open: dec("50"), High: dec("50"), Low: dec("50"), Close: dec("50"),
	}))
	assets := memory.NewAssetRegistry(
		domain.Asset{Symbol: "BTC", Name: "Bitcoin", Active: true},
		domain.Asset{Symbol: "ETH", Name: "Ethereum", Active: true},
	)

	src := &stubMarket{}
	cache, err := market.NewCache(candles, src, market.WithQuoteTTL(0))
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	w := wallet.NewAccount(wallet.WithInitialBalance(dec("10")))
	book := ledger.NewBook()
	engine := trading.NewEngine(db, cache, assets, w, book, trading.DefaultConfig())

	srv := NewServer(Services{
		DB:             db,
		Engine:         engine,
		Wallet:         w,
		Book:           book,
		Valuation:      valuation.NewAggregator(db, book, cache),
		Prices:         cache,
		Assets:         assets,
		CandleInterval: domain.Interval1h,
	}, nil)
	return &testServer{Server: srv, market: src}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.R.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestServer_TradeFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/users/7/open", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[domain.BalanceAccount](t, w).Balance.Equal(dec("10")))

	w = s.do(t, http.MethodPost, "/api/users/7/deposit", map[string]string{"amount": "90"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[balanceResponse](t, w).Balance.Equal(dec("100")))

	w = s.do(t, http.MethodPost, "/api/users/7/buy", map[string]string{"asset_symbol": "btc", "amount_val": "100"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	buy := decode[domain.LedgerEntry](t, w)
	assert.True(t, buy.Quantity.Equal(dec("1.9998")))
	assert.True(t, buy.NetValue.Equal(dec("99.99")))

	w = s.do(t, http.MethodPost, "/api/trades", map[string]any{
		"user_id": 7, "asset_symbol": "BTC", "trade_type": "sell", "perc_withdraw": "100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sell := decode[domain.LedgerEntry](t, w)
	assert.True(t, sell.NetValue.Equal(dec("-99.98")))

	w = s.do(t, http.MethodGet, "/api/users/7/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[balanceResponse](t, w).Balance.Equal(dec("99.98")))

	w = s.do(t, http.MethodGet, "/api/users/7/transactions?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	txs := decode[struct {
		Rows []domain.LedgerEntry `json:"rows"`
	}](t, w)
	require.Len(t, txs.Rows, 1)
	assert.Equal(t, sell.ID, txs.Rows[0].ID)

	w = s.do(t, http.MethodGet, "/api/users/7/pnl", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pnl := decode[struct {
		Rows []domain.PnLRecord `json:"rows"`
	}](t, w)
	require.Len(t, pnl.Rows, 1)
	assert.True(t, pnl.Rows[0].PnL.Equal(dec("-0.01")))

	w = s.do(t, http.MethodGet, "/api/users/7/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/users/1/deposit", map[string]string{"amount": "100"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"below minimum", http.MethodPost, "/api/users/1/buy", map[string]string{"asset_symbol": "BTC", "amount_val": "5"}, http.StatusUnprocessableEntity, "below_minimum"},
		{"insufficient funds", http.MethodPost, "/api/users/2/buy", map[string]string{"asset_symbol": "BTC", "amount_val": "10"}, http.StatusConflict, "insufficient_funds"},
		{"no position", http.MethodPost, "/api/users/1/sell", map[string]string{"asset_symbol": "BTC", "qty": "1"}, http.StatusConflict, "no_position"},
		{"missing sell amount", http.MethodPost, "/api/users/1/sell", map[string]string{"asset_symbol": "BTC"}, http.StatusBadRequest, "invalid_request"},
		{"price unavailable", http.MethodPost, "/api/users/1/buy", map[string]string{"asset_symbol": "ETH", "amount_val": "10"}, http.StatusServiceUnavailable, "price_unavailable"},
		{"bad user id", http.MethodGet, "/api/users/abc/balance", nil, http.StatusBadRequest, "invalid_request"},
		{"bad trade type", http.MethodPost, "/api/trades", map[string]any{"user_id": 1, "asset_symbol": "BTC", "trade_type": "hold"}, http.StatusBadRequest, "invalid_request"},
		{"bad interval", http.MethodGet, "/api/prices/BTC/history?interval=7m", nil, http.StatusBadRequest, "invalid_request"},
		{"bad resample", http.MethodGet, "/api/prices/BTC/history?resample=7m", nil, http.StatusBadRequest, "invalid_request"},
		{"inverted range", http.MethodGet, "/api/prices/BTC/history?from=2024-01-02T00:00:00Z&to=2024-01-01T00:00:00Z", nil, http.StatusBadRequest, "invalid_request"},
		{"unknown asset toggle", http.MethodPut, "/api/assets/XRP/active", map[string]bool{"active": true}, http.StatusNotFound, "asset_not_found"},
		{"no stored price", http.MethodGet, "/api/prices/ETH", nil, http.StatusServiceUnavailable, "price_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[apiError](t, w).Code)
		})
	}
}

func TestServer_Prices(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/prices/btc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[priceResponse](t, w)
	assert.Equal(t, "BTCUSDT", p.Symbol)
	assert.True(t, p.Price.Equal(dec("50")))

	w = s.do(t, http.MethodGet, "/api/prices/BTC/market", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[priceResponse](t, w).Price.Equal(dec("51")))

	w = s.do(t, http.MethodGet, "/api/prices", nil)
	require.Equal(t, http.StatusOK, w.Code)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.market.klines = domain.CandleList{{Timestamp: ts, Open: dec("1"), High: dec("2"), Low: dec("1"), Close: dec("2")}}
	w = s.do(t, http.MethodPost, "/api/prices/ETH/ingest?interval=1h&since=2024-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[ingestResponse](t, w).Written)

	w = s.do(t, http.MethodGet, "/api/prices/ETH/history?interval=1h&from=2024-01-01T00:00:00Z&to=2024-01-01T01:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[struct {
		Rows []domain.Candle `json:"rows"`
	}](t, w)
	require.Len(t, hist.Rows, 1)

	w = s.do(t, http.MethodGet, "/api/prices/ETH/history?interval=1h&resample=1d&from=2024-01-01T00:00:00Z&to=2024-01-01T01:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	daily := decode[struct {
		Rows []domain.Candle `json:"rows"`
	}](t, w)
	require.Len(t, daily.Rows, 1)
	assert.Equal(t, domain.Interval1d, daily.Rows[0].Interval)

	s.market.err = errors.New("upstream 503")
	w = s.do(t, http.MethodPost, "/api/prices/ETH/ingest", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	w = s.do(t, http.MethodGet, "/api/prices/ETH/market", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServer_Assets(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/assets", map[string]any{"symbol": "solusdt", "name": "Solana", "category": "crypto", "active": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "SOL", decode[domain.Asset](t, w).Symbol)

	w = s.do(t, http.MethodPut, "/api/assets/SOL/active", map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/assets?active=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Rows []domain.Asset `json:"rows"`
	}](t, w)
	assert.Len(t, list.Rows, 2)

	w = s.do(t, http.MethodPost, "/api/assets", map[string]any{"name": "nameless"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_RequestID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeaderKey, "abc-123")
	w := httptest.NewRecorder()
	s.R.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeaderKey))
}
