package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
)

type candleKey struct {
	symbol   string
	interval domain.TimeInterval
	ts       int64
}

// CandleStore는 메모리 캔들 저장소입니다
type CandleStore struct {
	mu      sync.RWMutex
	candles map[candleKey]domain.Candle
}

// NewCandleStore는 빈 캔들 저장소를 생성합니다
func NewCandleStore() *CandleStore {
	return &CandleStore{candles: make(map[candleKey]domain.Candle)}
}

var _ storage.CandleStore = (*CandleStore)(nil)

func keyOf(c domain.Candle) candleKey {
	return candleKey{symbol: c.Symbol, interval: c.Interval, ts: c.Timestamp.UnixMilli()}
}

func (s *CandleStore) MergeCandle(ctx context.Context, c domain.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyOf(c)
	if existing, ok := s.candles[k]; ok {
		s.candles[k] = existing.Merge(c)
		return nil
	}
	c.Timestamp = c.Timestamp.UTC()
	s.candles[k] = c
	return nil
}

// newer는 a가 b보다 최근 캔들인지 판단합니다. 같은 시각이면 짧은 간격을 우선합니다.
func newer(a, b domain.Candle) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.Interval.Duration() < b.Interval.Duration()
}

func (s *CandleStore) LastCandle(ctx context.Context, symbol string, interval domain.TimeInterval) (domain.Candle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last domain.Candle
	found := false
	for k, c := range s.candles {
		if k.symbol != symbol || k.interval != interval {
			continue
		}
		if !found || c.Timestamp.After(last.Timestamp) {
			last, found = c, true
		}
	}
	return last, found, nil
}

func (s *CandleStore) LatestCandle(ctx context.Context, symbol string, since time.Time) (domain.Candle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last domain.Candle
	found := false
	for k, c := range s.candles {
		if k.symbol != symbol {
			continue
		}
		if !since.IsZero() && c.Timestamp.Before(since) {
			continue
		}
		if !found || newer(c, last) {
			last, found = c, true
		}
	}
	return last, found, nil
}

func (s *CandleStore) LatestPerSymbol(ctx context.Context) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]domain.Candle)
	for _, c := range s.candles {
		if cur, ok := latest[c.Symbol]; !ok || newer(c, cur) {
			latest[c.Symbol] = c
		}
	}

	out := make([]domain.Candle, 0, len(latest))
	for _, c := range latest {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *CandleStore) Candles(ctx context.Context, symbol string, interval domain.TimeInterval, from, to time.Time) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Candle
	for k, c := range s.candles {
		if k.symbol != symbol || k.interval != interval {
			continue
		}
		if c.Timestamp.Before(from) || c.Timestamp.After(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
