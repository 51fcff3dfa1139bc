package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/notification"
	"github.com/assist-by/portfolio/internal/storage"
	"go.uber.org/zap"
)

// RetryConfig는 재시도 설정을 정의합니다
type RetryConfig struct {
	MaxRetries int           // 최대 재시도 횟수
	BaseDelay  time.Duration // 기본 대기 시간
	MaxDelay   time.Duration // 최대 대기 시간
	Factor     float64       // 대기 시간 증가 계수
}

// DefaultRetryConfig는 수집기의 기본 재시도 설정입니다
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   30 * time.Second,
	Factor:     2.0,
}

// Collector는 활성 자산의 캔들을 주기적으로 수집합니다.
// scheduler.Task를 구현하며 한 심볼의 실패가 다른 심볼 수집을 막지 않습니다.
type Collector struct {
	cache    *Cache
	assets   storage.AssetRegistry
	notifier notification.Notifier
	interval domain.TimeInterval
	logger   *zap.Logger

	retry RetryConfig
	mu    sync.Mutex
}

// CollectorOption은 수집기의 옵션을 정의합니다
type CollectorOption func(*Collector)

// WithRetryConfig는 재시도 설정을 지정합니다
func WithRetryConfig(config RetryConfig) CollectorOption {
	return func(c *Collector) {
		c.retry = config
	}
}

// WithCollectorLogger는 수집기 로거를 지정합니다
func WithCollectorLogger(l *zap.Logger) CollectorOption {
	return func(c *Collector) {
		c.logger = l
	}
}

// NewCollector는 새로운 데이터 수집기를 생성합니다
func NewCollector(cache *Cache, assets storage.AssetRegistry, notifier notification.Notifier, interval domain.TimeInterval, opts ...CollectorOption) *Collector {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	c := &Collector{
		cache:    cache,
		assets:   assets,
		notifier: notifier,
		interval: interval,
		logger:   zap.NewNop(),
		retry:    DefaultRetryConfig,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Execute는 스케줄러에서 호출되는 한 번의 수집 사이클입니다
func (c *Collector) Execute(ctx context.Context) error {
	_, err := c.Collect(ctx)
	return err
}

// Collect는 활성 자산 전체를 한 번 수집하고 심볼별 저장 개수를 반환합니다.
// 실패한 심볼이 있으면 나머지를 모두 처리한 뒤 묶어서 에러로 반환합니다.
func (c *Collector) Collect(ctx context.Context) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	assets, err := c.assets.ActiveAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("활성 자산 조회 실패: %w", err)
	}

	counts := make(map[string]int, len(assets))
	var failures []error
	for _, asset := range assets {
		pair := asset.Pair()
		err := c.withRetry(ctx, fmt.Sprintf("%s 캔들 수집", pair), func() error {
			n, err := c.cache.Ingest(ctx, pair, c.interval, nil)
			counts[pair] += n
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return counts, ctx.Err()
			}
			c.logger.Error("symbol ingestion failed", zap.String("symbol", pair), zap.Error(err))
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return counts, fmt.Errorf("%d개 심볼 수집 실패: %w", len(failures), errors.Join(failures...))
	}
	return counts, nil
}

// IsRetryableError는 외부 시세 조회 실패처럼 다시 시도할 만한 에러인지 판단합니다.
// 저장소 에러와 컨텍스트 취소는 재시도하지 않습니다.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, domain.ErrMarket)
}

// withRetry는 재시도 로직을 구현한 래퍼 함수입니다
func (c *Collector) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	delay := c.retry.BaseDelay

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		// 재시도가 필요 없는 오류는 바로 알리고 반환
		if !IsRetryableError(err) {
			c.notify(fmt.Errorf("%s 실패: %w", operation, err))
			return err
		}

		if attempt == c.retry.MaxRetries {
			c.notify(fmt.Errorf("%s 실패 (최대 재시도 횟수 초과): %w", operation, err))
			return fmt.Errorf("최대 재시도 횟수 초과: %w", lastErr)
		}

		c.logger.Warn("retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.retry.MaxRetries),
			zap.Error(err),
		)

		// 다음 재시도 전 대기
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			// 대기 시간을 증가시키되, 최대 대기 시간을 넘지 않도록 함
			delay = time.Duration(float64(delay) * c.retry.Factor)
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}
	}

	return lastErr
}

func (c *Collector) notify(err error) {
	if notifyErr := c.notifier.SendError(err); notifyErr != nil {
		c.logger.Warn("error notification failed", zap.Error(notifyErr))
	}
}
