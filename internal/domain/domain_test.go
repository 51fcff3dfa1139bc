package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestCandle_Merge(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := Candle{Symbol: "BTCUSDT", Interval: Interval1h, Timestamp: ts,
		Open: d("95"), High: d("100"), Low: d("90"), Close: d("97")}

	tests := []struct {
		name      string
		incoming  Candle
		wantHigh  string
		wantLow   string
		wantClose string
	}{
		{
			name:      "저가만 갱신",
			incoming:  Candle{Open: d("96"), High: d("95"), Low: d("85"), Close: d("88")},
			wantHigh:  "100",
			wantLow:   "85",
			wantClose: "88",
		},
		{
			name:      "고가만 갱신",
			incoming:  Candle{Open: d("96"), High: d("120"), Low: d("92"), Close: d("110")},
			wantHigh:  "120",
			wantLow:   "90",
			wantClose: "110",
		},
		{
			name:      "같은 캔들 재수집",
			incoming:  first,
			wantHigh:  "100",
			wantLow:   "90",
			wantClose: "97",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := first.Merge(tt.incoming)
			assert.True(t, got.Open.Equal(d("95")), "시가는 처음 값을 유지해야 합니다")
			assert.True(t, got.High.Equal(d(tt.wantHigh)), "high = %s", got.High)
			assert.True(t, got.Low.Equal(d(tt.wantLow)), "low = %s", got.Low)
			assert.True(t, got.Close.Equal(d(tt.wantClose)), "close = %s", got.Close)
			assert.True(t, got.SameBucket(first))
		})
	}
}

func TestPairSymbol(t *testing.T) {
	tests := []struct {
		in       string
		wantPair string
		wantBase string
	}{
		{"btc", "BTCUSDT", "BTC"},
		{"BTCUSDT", "BTCUSDT", "BTC"},
		{" eth ", "ETHUSDT", "ETH"},
		{"USDT", "USDTUSDT", "USDT"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.wantPair, PairSymbol(tt.in))
			assert.Equal(t, tt.wantBase, BaseSymbol(PairSymbol(tt.in)))
		})
	}
}

func TestSellRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     SellRequest
		wantErr bool
	}{
		{"수량 지정", SellRequest{AssetSymbol: "BTC", Quantity: dp("0.5")}, false},
		{"비율 지정", SellRequest{AssetSymbol: "BTC", Percent: dp("50")}, false},
		{"비율 100", SellRequest{AssetSymbol: "BTC", Percent: dp("100")}, false},
		{"둘 다 없음", SellRequest{AssetSymbol: "BTC"}, true},
		{"비율 0은 없는 값", SellRequest{AssetSymbol: "BTC", Percent: dp("0")}, true},
		{"수량 0은 없는 값", SellRequest{AssetSymbol: "BTC", Quantity: dp("0")}, true},
		{"비율 범위 초과", SellRequest{AssetSymbol: "BTC", Percent: dp("101")}, true},
		{"음수 비율", SellRequest{AssetSymbol: "BTC", Percent: dp("-1")}, true},
		{"음수 수량", SellRequest{AssetSymbol: "BTC", Quantity: dp("-1")}, true},
		{"심볼 없음", SellRequest{Quantity: dp("1")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRequest))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSellRequest_QuantityFor(t *testing.T) {
	held := d("2")

	byQty := SellRequest{AssetSymbol: "BTC", Quantity: dp("0.5"), Percent: dp("50")}
	assert.True(t, byQty.QuantityFor(held).Equal(d("0.5")), "수량이 비율보다 우선합니다")

	byPerc := SellRequest{AssetSymbol: "BTC", Percent: dp("25")}
	assert.True(t, byPerc.QuantityFor(held).Equal(d("0.5")))
}

func TestBuyRequest_Validate(t *testing.T) {
	assert.NoError(t, BuyRequest{AssetSymbol: "BTC", Amount: d("10")}.Validate())
	assert.ErrorIs(t, BuyRequest{AssetSymbol: "BTC", Amount: d("0")}.Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, BuyRequest{AssetSymbol: "", Amount: d("10")}.Validate(), ErrInvalidRequest)
}

func TestTradeMessage_Request(t *testing.T) {
	req, err := TradeMessage{UserID: 1, AssetSymbol: "btc", TradeType: "BUY", AmountVal: dp("100")}.Request()
	require.NoError(t, err)
	buy, ok := req.(BuyRequest)
	require.True(t, ok)
	assert.Equal(t, "BTC", buy.Asset())

	req, err = TradeMessage{AssetSymbol: "eth", TradeType: "sell", PercWithdraw: dp("10")}.Request()
	require.NoError(t, err)
	assert.Equal(t, Sell, req.Side())

	_, err = TradeMessage{AssetSymbol: "eth", TradeType: "hold"}.Request()
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = TradeMessage{AssetSymbol: "eth", TradeType: "buy"}.Request()
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestTradeError_Unwrap(t *testing.T) {
	err := NewTradeError("BTCUSDT", "매도", ErrNoPosition)
	assert.ErrorIs(t, err, ErrNoPosition)
	assert.Contains(t, err.Error(), "BTCUSDT")
}

func TestParseTimeInterval(t *testing.T) {
	i, err := ParseTimeInterval("1h")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, i.Duration())

	_, err = ParseTimeInterval("7m")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestResample(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hourly := func(h int, o, hi, lo, c string) Candle {
		return Candle{Symbol: "BTCUSDT", Interval: Interval1h, Timestamp: day.Add(time.Duration(h) * time.Hour), Open: d(o), High: d(hi), Low: d(lo), Close: d(c)}
	}

	// 순서가 섞여 있어도 시간순으로 묶어야 함
	in := CandleList{
		hourly(25, "60", "62", "58", "61"),
		hourly(1, "51", "55", "49", "54"),
		hourly(0, "50", "52", "48", "51"),
		hourly(23, "54", "70", "53", "59"),
	}

	got, err := Resample(in, Interval1d)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, Interval1d, first.Interval)
	assert.True(t, first.Timestamp.Equal(day))
	assert.True(t, first.Open.Equal(d("50")))
	assert.True(t, first.High.Equal(d("70")))
	assert.True(t, first.Low.Equal(d("48")))
	assert.True(t, first.Close.Equal(d("59")))

	assert.True(t, got[1].Timestamp.Equal(day.Add(24*time.Hour)))
	assert.True(t, got[1].Open.Equal(d("60")))

	t.Run("빈 목록", func(t *testing.T) {
		got, err := Resample(nil, Interval4h)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("더 짧은 간격으로 나눌 수 없음", func(t *testing.T) {
		_, err := Resample(in, Interval15m)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("심볼 혼합 거부", func(t *testing.T) {
		other := hourly(2, "1", "1", "1", "1")
		other.Symbol = "ETHUSDT"
		_, err := Resample(append(CandleList{}, in[2], other), Interval1d)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}
