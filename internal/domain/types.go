package domain

import (
	"fmt"
	"strings"
	"time"
)

// TradeType은 원장 항목의 거래 방향을 정의합니다
type TradeType string

const (
	Buy  TradeType = "buy"
	Sell TradeType = "sell"
)

// Valid는 지원하는 거래 방향인지 확인합니다
func (t TradeType) Valid() bool {
	return t == Buy || t == Sell
}

// ParseTradeType은 대소문자를 구분하지 않고 거래 방향을 파싱합니다
func ParseTradeType(s string) (TradeType, error) {
	t := TradeType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: 알 수 없는 거래 방향 %q", ErrInvalidRequest, s)
	}
	return t, nil
}

// TimeInterval은 캔들 차트의 시간 간격을 정의합니다
type TimeInterval string

const (
	Interval1m  TimeInterval = "1m"
	Interval5m  TimeInterval = "5m"
	Interval15m TimeInterval = "15m"
	Interval30m TimeInterval = "30m"
	Interval1h  TimeInterval = "1h"
	Interval4h  TimeInterval = "4h"
	Interval1d  TimeInterval = "1d"
)

var intervalDurations = map[TimeInterval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval1d:  24 * time.Hour,
}

// Duration은 간격의 길이를 반환합니다. 지원하지 않는 간격이면 0입니다
func (i TimeInterval) Duration() time.Duration {
	return intervalDurations[i]
}

// ParseTimeInterval은 문자열을 지원하는 캔들 간격으로 변환합니다
func ParseTimeInterval(s string) (TimeInterval, error) {
	i := TimeInterval(strings.TrimSpace(s))
	if _, ok := intervalDurations[i]; !ok {
		return "", fmt.Errorf("%w: 지원하지 않는 캔들 간격 %q", ErrInvalidRequest, s)
	}
	return i, nil
}
