// Package market은 캔들 시세 캐시와 주기적 수집기를 제공합니다
package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/exchange"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// freshWindow 안의 캔들 종가를 현재 가격으로 우선 사용합니다
	freshWindow = time.Hour
	// defaultBackfill은 저장된 캔들이 없을 때 수집을 시작할 과거 구간입니다
	defaultBackfill = 24 * time.Hour
)

// Cache는 저장된 캔들로 현재 가격을 결정하고 외부 시세를 병합 수집합니다
type Cache struct {
	store    storage.CandleStore
	source   exchange.MarketData
	quotes   *ristretto.Cache
	quoteTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// CacheOption은 Cache 생성 옵션입니다
type CacheOption func(*Cache)

// WithQuoteTTL은 외부 시세 메모 유지 시간을 설정합니다. 0이면 메모하지 않습니다.
func WithQuoteTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.quoteTTL = ttl
	}
}

// WithLogger는 로거를 설정합니다
func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithClock은 현재 시각 함수를 교체합니다
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache는 새로운 Cache를 생성합니다
func NewCache(store storage.CandleStore, source exchange.MarketData, opts ...CacheOption) (*Cache, error) {
	c := &Cache{
		store:    store,
		source:   source,
		quoteTTL: 5 * time.Second,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.quoteTTL > 0 {
		quotes, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e4,
			MaxCost:     1e3,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("시세 메모 캐시 생성 실패: %w", err)
		}
		c.quotes = quotes
	}
	return c, nil
}

// Close는 내부 캐시를 정리합니다
func (c *Cache) Close() {
	if c.quotes != nil {
		c.quotes.Close()
	}
}

// CurrentPrice는 저장된 캔들에서 현재 가격을 결정합니다.
// 최근 1시간 안의 가장 최근 종가, 없으면 기록된 가장 최근 종가를 사용하고
// 둘 다 없으면 ErrPriceUnavailable을 반환합니다.
func (c *Cache) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := domain.PairSymbol(symbol)

	candle, found, err := c.store.LatestCandle(ctx, pair, c.now().Add(-freshWindow))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s 가격 조회 실패: %w", pair, err)
	}
	if found {
		return candle.Close, nil
	}

	candle, found, err = c.store.LatestCandle(ctx, pair, time.Time{})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s 가격 조회 실패: %w", pair, err)
	}
	if !found {
		return decimal.Zero, domain.NewTradeError(pair, "가격 조회", domain.ErrPriceUnavailable)
	}
	return candle.Close, nil
}

// MarketPrice는 캔들 저장소를 거치지 않고 외부 시세를 조회합니다.
// 거래 가격 결정에는 사용하지 않습니다.
func (c *Cache) MarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := domain.PairSymbol(symbol)

	if c.quotes != nil {
		if v, ok := c.quotes.Get(pair); ok {
			return v.(decimal.Decimal), nil
		}
	}

	price, err := c.source.LatestPrice(ctx, pair)
	if err != nil {
		if !errors.Is(err, domain.ErrMarket) {
			err = fmt.Errorf("%w: %v", domain.ErrMarket, err)
		}
		return decimal.Zero, err
	}

	if c.quotes != nil {
		c.quotes.SetWithTTL(pair, price, 1, c.quoteTTL)
	}
	return price, nil
}

// Ingest는 since 이후의 캔들을 외부에서 받아 저장소에 병합합니다.
// since가 nil이면 마지막 저장 캔들부터(진행 중인 버킷을 다시 받아 갱신), 없으면 24시간 전부터 수집합니다.
// 캔들은 하나씩 커밋되므로 중간에 실패해도 앞서 저장한 캔들은 남습니다.
func (c *Cache) Ingest(ctx context.Context, symbol string, interval domain.TimeInterval, since *time.Time) (int, error) {
	pair := domain.PairSymbol(symbol)

	start, err := c.ingestStart(ctx, pair, interval, since)
	if err != nil {
		return 0, fmt.Errorf("%w: %s 시작 시점 조회 실패: %w", domain.ErrIngestion, pair, err)
	}

	candles, err := c.source.Klines(ctx, pair, interval, start)
	if err != nil {
		c.logger.Error("kline fetch failed",
			zap.String("symbol", pair),
			zap.String("interval", string(interval)),
			zap.Error(err),
		)
		if !errors.Is(err, domain.ErrMarket) {
			err = fmt.Errorf("%w: %v", domain.ErrMarket, err)
		}
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrIngestion, pair, err)
	}

	written := 0
	for _, candle := range candles {
		candle.Symbol = pair
		candle.Interval = interval
		if err := c.store.MergeCandle(ctx, candle); err != nil {
			return written, fmt.Errorf("%w: %s 저장 실패 (%d개 저장됨): %w", domain.ErrIngestion, pair, written, err)
		}
		written++
	}

	c.logger.Info("candles ingested",
		zap.String("symbol", pair),
		zap.String("interval", string(interval)),
		zap.Time("since", start),
		zap.Int("count", written),
	)
	return written, nil
}

func (c *Cache) ingestStart(ctx context.Context, pair string, interval domain.TimeInterval, since *time.Time) (time.Time, error) {
	if since != nil {
		return *since, nil
	}
	last, found, err := c.store.LastCandle(ctx, pair, interval)
	if err != nil {
		return time.Time{}, err
	}
	if found {
		return last.Timestamp, nil
	}
	return c.now().Add(-defaultBackfill), nil
}

// Merge는 캔들 하나를 저장소에 병합합니다. 실시간 스트림이 사용합니다.
func (c *Cache) Merge(ctx context.Context, candle domain.Candle) error {
	candle.Symbol = domain.PairSymbol(candle.Symbol)
	return c.store.MergeCandle(ctx, candle)
}

// LatestPrices는 심볼별 가장 최근 캔들을 반환합니다
func (c *Cache) LatestPrices(ctx context.Context) ([]domain.Candle, error) {
	return c.store.LatestPerSymbol(ctx)
}

// History는 기간 안의 캔들을 시간 오름차순으로 반환합니다
func (c *Cache) History(ctx context.Context, symbol string, interval domain.TimeInterval, from, to time.Time) ([]domain.Candle, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: 조회 종료 시각이 시작 시각보다 앞섭니다", domain.ErrInvalidRequest)
	}
	return c.store.Candles(ctx, domain.PairSymbol(symbol), interval, from, to)
}
