package discord

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendTradeInfo(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	err := c.SendTradeInfo(notification.TradeInfo{
		UserID:    7,
		Symbol:    "BTCUSDT",
		TradeType: domain.Buy,
		Quantity:  decimal.RequireFromString("1.9998"),
		Price:     decimal.NewFromInt(50),
		NetValue:  decimal.RequireFromString("99.99"),
		Fee:       decimal.RequireFromString("0.01"),
		Balance:   decimal.Zero,
	})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	e := got.Embeds[0]
	assert.Equal(t, "거래 체결: BUY BTCUSDT", e.Title)
	assert.Equal(t, notification.ColorSuccess, e.Color)
	require.Len(t, e.Fields, 5)
	assert.Equal(t, "$99.99", e.Fields[2].Value)
}

func TestClient_SkipsEmptyWebhook(t *testing.T) {
	c := NewClient("", "", "")
	assert.NoError(t, c.SendError(errors.New("boom")))
	assert.NoError(t, c.SendInfo("hello"))
}

func TestClient_ReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("", srv.URL, "")
	err := c.SendError(errors.New("boom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
