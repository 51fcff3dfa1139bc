package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry는 체결된 거래 한 건을 기록하는 불변 원장 항목입니다.
// Quantity는 매수 시 양수, 매도 시 음수입니다.
// NetValue는 포지션 기준 부호를 따릅니다: 매수는 +순액, 매도는 -순액.
type LedgerEntry struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"user_id"`
	AssetSymbol string          `json:"asset_symbol"`
	TradeType   TradeType       `json:"trade_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	NetValue    decimal.Decimal `json:"net_value"`
	Price       decimal.Decimal `json:"price"`
	Fee         decimal.Decimal `json:"fee"`
	TradeAt     time.Time       `json:"trade_at"`
}

// BalanceAccount는 사용자별 현금 잔고입니다. Balance는 항상 0 이상입니다.
type BalanceAccount struct {
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PositionSummary는 자산별 보유 요약입니다
type PositionSummary struct {
	AssetSymbol string          `json:"asset_symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	NetValue    decimal.Decimal `json:"net_value"`
	Fee         decimal.Decimal `json:"fee"`
}

// PnLAggregate는 손익 계산을 위한 자산별 원장 집계입니다
type PnLAggregate struct {
	AssetSymbol string
	Invested    decimal.Decimal // 매수 순액 합계
	Received    decimal.Decimal // 매도 순액 합계 (양수)
	Quantity    decimal.Decimal // 현재 보유 수량
}

// PnLRecord는 현재 가격을 반영한 자산별 손익입니다
type PnLRecord struct {
	AssetSymbol  string          `json:"asset_symbol"`
	Invested     decimal.Decimal `json:"invested"`
	Received     decimal.Decimal `json:"received"`
	Quantity     decimal.Decimal `json:"quantity"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PnL          decimal.Decimal `json:"pnl"`
	PriceMissing bool            `json:"price_missing,omitempty"`
}
