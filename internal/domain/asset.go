package domain

import "strings"

// QuoteCurrency는 모든 거래쌍의 기준 통화입니다
const QuoteCurrency = "USDT"

// Asset은 거래 가능한 자산 정보를 표현합니다
type Asset struct {
	Symbol   string `json:"symbol"`   // 기본 심볼 (예: BTC)
	Name     string `json:"name"`     // 자산 이름
	Category string `json:"category"` // 분류 (예: crypto)
	Active   bool   `json:"active"`   // 거래 가능 여부
}

// Pair는 자산의 거래쌍 심볼을 반환합니다
func (a Asset) Pair() string {
	return PairSymbol(a.Symbol)
}

// PairSymbol은 기본 심볼을 기준 통화 거래쌍으로 변환합니다 (BTC -> BTCUSDT).
// 이미 거래쌍이면 대문자로만 정규화합니다.
func PairSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || (strings.HasSuffix(s, QuoteCurrency) && len(s) > len(QuoteCurrency)) {
		return s
	}
	return s + QuoteCurrency
}

// BaseSymbol은 거래쌍에서 기준 통화를 떼어낸 기본 심볼을 반환합니다
func BaseSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if len(s) > len(QuoteCurrency) {
		return strings.TrimSuffix(s, QuoteCurrency)
	}
	return s
}
