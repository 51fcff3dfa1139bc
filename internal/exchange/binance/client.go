// internal/exchange/binance/client.go
package binance

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/exchange"
	binance_connector "github.com/binance/binance-connector-go"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL은 바이낸스 현물 API 주소입니다
const DefaultBaseURL = "https://api.binance.com"

// Client는 바이낸스 현물 시세 API 클라이언트를 구현합니다
type Client struct {
	api   *binance_connector.Client
	limit int
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.api.HTTPClient = &http.Client{Timeout: timeout}
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.api.BaseURL = baseURL
		}
	}
}

// WithKlineLimit는 한 번에 조회할 최대 캔들 개수를 설정합니다 (최대 1000)
func WithKlineLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 && limit <= 1000 {
			c.limit = limit
		}
	}
}

// NewClient는 새로운 바이낸스 API 클라이언트를 생성합니다.
// 시세 조회는 공개 API라 키 없이도 동작합니다.
func NewClient(apiKey, secretKey string, opts ...ClientOption) *Client {
	c := &Client{
		api:   binance_connector.NewClient(apiKey, secretKey, DefaultBaseURL),
		limit: 1000,
	}
	c.api.HTTPClient = &http.Client{Timeout: 10 * time.Second}

	// 옵션 적용
	for _, opt := range opts {
		opt(c)
	}

	return c
}

var _ exchange.MarketData = (*Client)(nil)

// Klines는 since 이후의 캔들 데이터를 조회합니다
func (c *Client) Klines(ctx context.Context, symbol string, interval domain.TimeInterval, since time.Time) (domain.CandleList, error) {
	svc := c.api.NewKlinesService().
		Symbol(symbol).
		Interval(string(interval)).
		Limit(c.limit)
	if !since.IsZero() {
		svc = svc.StartTime(uint64(since.UnixMilli()))
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s 캔들 조회 실패: %v", domain.ErrMarket, symbol, err)
	}

	candles := make(domain.CandleList, 0, len(resp))
	for _, k := range resp {
		candle, err := toCandle(symbol, interval, k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// LatestPrice는 가장 최근 1분봉 종가를 현재 시세로 사용합니다
func (c *Client) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	resp, err := c.api.NewKlinesService().
		Symbol(symbol).
		Interval(string(domain.Interval1m)).
		Limit(1).
		Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s 시세 조회 실패: %v", domain.ErrMarket, symbol, err)
	}
	if len(resp) == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s 시세 응답이 비어 있습니다", domain.ErrMarket, symbol)
	}

	candle, err := toCandle(symbol, domain.Interval1m, resp[len(resp)-1])
	if err != nil {
		return decimal.Zero, err
	}
	return candle.Close, nil
}

// toCandle은 커넥터 응답을 도메인 캔들로 변환합니다
func toCandle(symbol string, interval domain.TimeInterval, k *binance_connector.KlinesResponse) (domain.Candle, error) {
	prices := make([]decimal.Decimal, 4)
	for i, raw := range []string{k.Open, k.High, k.Low, k.Close} {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("%w: %s 가격 파싱 실패 %q", domain.ErrMarket, symbol, raw)
		}
		prices[i] = v
	}

	return domain.Candle{
		Symbol:    symbol,
		Interval:  interval,
		Timestamp: time.UnixMilli(int64(k.OpenTime)).UTC(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
	}, nil
}
