package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle은 (심볼, 간격, 시작 시각) 단위로 저장되는 OHLC 캔들입니다
type Candle struct {
	Symbol    string          // 거래쌍 심볼 (예: BTCUSDT)
	Interval  TimeInterval    // 시간 간격 (예: 15m, 1h)
	Timestamp time.Time       // 캔들 시작 시간
	Open      decimal.Decimal // 시가
	High      decimal.Decimal // 고가
	Low       decimal.Decimal // 저가
	Close     decimal.Decimal // 종가
}

// SameBucket은 두 캔들이 같은 저장 키를 갖는지 확인합니다
func (c Candle) SameBucket(o Candle) bool {
	return c.Symbol == o.Symbol && c.Interval == o.Interval && c.Timestamp.Equal(o.Timestamp)
}

// Merge는 같은 버킷에 다시 수집된 캔들을 기존 캔들에 합칩니다.
// 시가는 처음 기록된 값을 유지하고, 고가와 저가는 극값을, 종가는 새 값을 따릅니다.
func (c Candle) Merge(incoming Candle) Candle {
	merged := c
	if incoming.High.GreaterThan(merged.High) {
		merged.High = incoming.High
	}
	if incoming.Low.LessThan(merged.Low) {
		merged.Low = incoming.Low
	}
	merged.Close = incoming.Close
	return merged
}

// CandleList는 캔들 데이터 목록입니다
type CandleList []Candle

// GetLastCandle은 가장 최근 캔들을 반환합니다
func (cl CandleList) GetLastCandle() (Candle, bool) {
	if len(cl) == 0 {
		return Candle{}, false
	}
	return cl[len(cl)-1], true
}
