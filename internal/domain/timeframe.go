package domain

import (
	"fmt"
	"sort"
)

// Resample은 같은 심볼의 캔들 목록을 더 긴 간격의 캔들로 묶습니다.
// 각 구간의 시가는 첫 캔들, 종가는 마지막 캔들을 따르고 고가와 저가는 극값입니다.
// 구간 시작 시각은 UTC 기준으로 target 길이에 맞춰 내림합니다.
func Resample(candles CandleList, target TimeInterval) (CandleList, error) {
	width := target.Duration()
	if width == 0 {
		return nil, fmt.Errorf("%w: 지원하지 않는 캔들 간격 %q", ErrInvalidRequest, target)
	}
	if len(candles) == 0 {
		return CandleList{}, nil
	}

	sorted := make(CandleList, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var out CandleList
	for _, c := range sorted {
		if c.Symbol != sorted[0].Symbol {
			return nil, fmt.Errorf("%w: 서로 다른 심볼은 묶을 수 없습니다 (%s, %s)", ErrInvalidRequest, sorted[0].Symbol, c.Symbol)
		}
		if c.Interval.Duration() > width {
			return nil, fmt.Errorf("%w: %s 캔들을 더 짧은 %s 간격으로 나눌 수 없습니다", ErrInvalidRequest, c.Interval, target)
		}

		bucket := c
		bucket.Interval = target
		bucket.Timestamp = c.Timestamp.UTC().Truncate(width)

		if last, ok := out.GetLastCandle(); ok && last.SameBucket(bucket) {
			out[len(out)-1] = last.Merge(bucket)
			continue
		}
		out = append(out, bucket)
	}
	return out, nil
}
