// internal/exchange/exchange.go
package exchange

import (
	"context"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// MarketData는 외부 시세 제공자와의 상호작용을 위한 인터페이스입니다.
// 모든 실패는 domain.ErrMarket으로 풀리는 에러를 반환해야 합니다.
type MarketData interface {
	// LatestPrice는 거래쌍의 현재 시세를 조회합니다
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// Klines는 since 이후의 캔들을 시간 오름차순으로 조회합니다
	Klines(ctx context.Context, symbol string, interval domain.TimeInterval, since time.Time) (domain.CandleList, error)
}
