package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TradeRequest는 매수/매도 요청의 공통 인터페이스입니다.
// BuyRequest와 SellRequest만 구현합니다.
type TradeRequest interface {
	Side() TradeType
	Asset() string
	Validate() error
	isTradeRequest()
}

// BuyRequest는 지정한 금액만큼 자산을 매수하는 요청입니다
type BuyRequest struct {
	AssetSymbol string          `json:"asset_symbol"`
	Amount      decimal.Decimal `json:"amount_val"`
}

func (BuyRequest) Side() TradeType { return Buy }
func (BuyRequest) isTradeRequest() {}

// Asset은 정규화된 기본 심볼을 반환합니다
func (r BuyRequest) Asset() string { return BaseSymbol(r.AssetSymbol) }

// Validate는 매수 요청의 형식을 검증합니다
func (r BuyRequest) Validate() error {
	if strings.TrimSpace(r.AssetSymbol) == "" {
		return invalid("asset_symbol", "필수 값입니다")
	}
	if !r.Amount.IsPositive() {
		return invalid("amount_val", "0보다 커야 합니다")
	}
	return nil
}

// SellRequest는 수량 또는 보유 비율로 자산을 매도하는 요청입니다.
// 둘 다 주어지면 Quantity가 우선합니다. 0은 값이 없는 것으로 취급합니다.
type SellRequest struct {
	AssetSymbol string           `json:"asset_symbol"`
	Quantity    *decimal.Decimal `json:"qty,omitempty"`
	Percent     *decimal.Decimal `json:"perc_withdraw,omitempty"`
}

func (SellRequest) Side() TradeType { return Sell }
func (SellRequest) isTradeRequest() {}

// Asset은 정규화된 기본 심볼을 반환합니다
func (r SellRequest) Asset() string { return BaseSymbol(r.AssetSymbol) }

// HasQuantity는 명시적인 매도 수량이 있는지 확인합니다
func (r SellRequest) HasQuantity() bool {
	return r.Quantity != nil && !r.Quantity.IsZero()
}

// HasPercent는 매도 비율이 있는지 확인합니다
func (r SellRequest) HasPercent() bool {
	return r.Percent != nil && !r.Percent.IsZero()
}

// Validate는 매도 요청의 형식을 검증합니다
func (r SellRequest) Validate() error {
	if strings.TrimSpace(r.AssetSymbol) == "" {
		return invalid("asset_symbol", "필수 값입니다")
	}
	if !r.HasQuantity() && !r.HasPercent() {
		return invalid("qty", "qty 또는 perc_withdraw 중 하나가 필요합니다")
	}
	if r.HasPercent() && (r.Percent.IsNegative() || r.Percent.GreaterThan(hundred)) {
		return invalid("perc_withdraw", "0 이상 100 이하이어야 합니다")
	}
	if r.HasQuantity() && r.Quantity.IsNegative() {
		return invalid("qty", "0보다 커야 합니다")
	}
	return nil
}

// QuantityFor는 보유 수량을 기준으로 실제 매도 수량을 계산합니다
func (r SellRequest) QuantityFor(held decimal.Decimal) decimal.Decimal {
	if r.HasQuantity() {
		return *r.Quantity
	}
	return held.Mul(*r.Percent).Div(hundred)
}

// TradeMessage는 HTTP나 메시지 큐로 들어오는 거래 요청의 평면 표현입니다
type TradeMessage struct {
	UserID       int64            `json:"user_id"`
	AssetSymbol  string           `json:"asset_symbol"`
	TradeType    string           `json:"trade_type"`
	AmountVal    *decimal.Decimal `json:"amount_val,omitempty"`
	Qty          *decimal.Decimal `json:"qty,omitempty"`
	PercWithdraw *decimal.Decimal `json:"perc_withdraw,omitempty"`
}

// Request는 메시지를 거래 방향에 맞는 요청으로 변환하고 검증합니다
func (m TradeMessage) Request() (TradeRequest, error) {
	side, err := ParseTradeType(m.TradeType)
	if err != nil {
		return nil, err
	}

	var req TradeRequest
	switch side {
	case Buy:
		if m.AmountVal == nil {
			return nil, invalid("amount_val", "필수 값입니다")
		}
		req = BuyRequest{AssetSymbol: m.AssetSymbol, Amount: *m.AmountVal}
	default:
		req = SellRequest{AssetSymbol: m.AssetSymbol, Quantity: m.Qty, Percent: m.PercWithdraw}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
