package notification

import (
	"github.com/Rhymond/go-money"
	"github.com/assist-by/portfolio/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// USDT는 go-money 기본 통화 목록에 없어서 소수 둘째 자리까지 표시하도록 등록합니다
func init() {
	if money.GetCurrency(domain.QuoteCurrency) == nil {
		money.AddCurrency(domain.QuoteCurrency, "$", "$1", ".", ",", 2)
	}
}

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendTradeInfo는 거래 체결 정보를 전송합니다
	SendTradeInfo(info TradeInfo) error
}

// TradeInfo는 거래 체결 정보를 정의합니다
type TradeInfo struct {
	UserID    int64            // 사용자 ID
	Symbol    string           // 심볼 (예: BTCUSDT)
	TradeType domain.TradeType // buy 또는 sell
	Quantity  decimal.Decimal  // 체결 수량
	Price     decimal.Decimal  // 체결 가격
	NetValue  decimal.Decimal  // 수수료 차감 후 금액 (양수)
	Fee       decimal.Decimal  // 수수료
	Balance   decimal.Decimal  // 체결 후 현금 잔고
}

// NewTradeInfo는 원장 항목과 체결 후 잔고로 TradeInfo를 만듭니다
func NewTradeInfo(e domain.LedgerEntry, balance decimal.Decimal) TradeInfo {
	return TradeInfo{
		UserID:    e.UserID,
		Symbol:    e.AssetSymbol,
		TradeType: e.TradeType,
		Quantity:  e.Quantity.Abs(),
		Price:     e.Price,
		NetValue:  e.NetValue.Abs(),
		Fee:       e.Fee,
		Balance:   balance,
	}
}

// GetColorForTrade는 거래 방향에 따른 색상을 반환합니다
func GetColorForTrade(t domain.TradeType) int {
	switch t {
	case domain.Buy:
		return ColorSuccess
	case domain.Sell:
		return ColorError
	default:
		return ColorInfo
	}
}

// FormatQuote는 기준 통화 금액을 표시용 문자열로 변환합니다 (예: $1,234.57)
func FormatQuote(amount decimal.Decimal) string {
	cur := money.GetCurrency(domain.QuoteCurrency)
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, domain.QuoteCurrency).Display()
}

// Nop은 아무것도 보내지 않는 Notifier입니다
type Nop struct{}

func (Nop) SendError(error) error         { return nil }
func (Nop) SendInfo(string) error         { return nil }
func (Nop) SendTradeInfo(TradeInfo) error { return nil }
