package trading

import (
	"context"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// Config는 거래를 실행하는데 필요한 설정을 담고 있는 구조체이다.
type Config struct {
	FeeRate           decimal.Decimal // 거래 수수료율 (예: 0.0001)
	MinimumInvestment decimal.Decimal // 최소 매수 금액
	PriceTimeout      time.Duration   // 가격 조회 제한 시간
}

// DefaultConfig는 기본 거래 설정을 반환합니다
func DefaultConfig() Config {
	return Config{
		FeeRate:           decimal.RequireFromString("0.0001"),
		MinimumInvestment: decimal.NewFromInt(10),
		PriceTimeout:      3 * time.Second,
	}
}

// Executor는 매매 실행기 인터페이스를 정의합니다
type Executor interface {
	// Execute는 요청에 따라 매매를 체결하고 기록된 원장 항목을 반환합니다
	Execute(ctx context.Context, userID int64, req domain.TradeRequest) (domain.LedgerEntry, error)
}

// PriceResolver는 체결 가격을 결정합니다
type PriceResolver interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// AssetChecker는 거래 대상 자산을 조회합니다
type AssetChecker interface {
	Asset(ctx context.Context, symbol string) (domain.Asset, bool, error)
}

// ExecutionError는 거래 실행 중 발생한 오류를 나타내는 구조체입니다.
type ExecutionError struct {
	Phase string
	Err   error
}

func (e *ExecutionError) Error() string {
	return "매매 실행 실패 (" + e.Phase + "): " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
