package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultStreamURL은 바이낸스 현물 결합 스트림 주소입니다
const DefaultStreamURL = "wss://stream.binance.com:9443/stream"

// CandleHandler는 스트림으로 받은 캔들을 처리합니다
type CandleHandler func(ctx context.Context, c domain.Candle) error

// Stream은 웹소켓 kline 스트림을 구독해 진행 중인 캔들을 전달합니다
type Stream struct {
	url            string
	interval       domain.TimeInterval
	reconnectDelay time.Duration
	logger         *zap.Logger
}

// NewStream은 새로운 Stream을 생성합니다
func NewStream(url string, interval domain.TimeInterval, logger *zap.Logger) *Stream {
	if url == "" {
		url = DefaultStreamURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		url:            url,
		interval:       interval,
		reconnectDelay: 5 * time.Second,
		logger:         logger,
	}
}

type streamData struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type wsKlineEvent struct {
	Event  string  `json:"e"`
	Time   int64   `json:"E"`
	Symbol string  `json:"s"`
	Kline  wsKline `json:"k"`
}

type wsKline struct {
	StartTime int64  `json:"t"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	IsFinal   bool   `json:"x"`
}

// Run은 ctx가 끝날 때까지 스트림을 구독합니다. 연결이 끊기면 다시 연결합니다.
func (s *Stream) Run(ctx context.Context, symbols []string, handle CandleHandler) error {
	if len(symbols) == 0 {
		return fmt.Errorf("구독할 심볼이 없습니다")
	}

	for {
		err := s.session(ctx, symbols, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("kline stream disconnected", zap.Error(err), zap.Duration("retry_in", s.reconnectDelay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Stream) session(ctx context.Context, symbols []string, handle CandleHandler) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("스트림 연결 실패: %w", err)
	}
	defer ws.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-done:
		}
	}()

	params := make([]string, len(symbols))
	for i, sym := range symbols {
		params[i] = strings.ToLower(sym) + "@kline_" + string(s.interval)
	}
	if err := ws.WriteJSON(map[string]any{"method": "SUBSCRIBE", "params": params, "id": 1}); err != nil {
		return fmt.Errorf("스트림 구독 실패: %w", err)
	}
	s.logger.Info("kline stream subscribed", zap.Strings("streams", params))

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		candle, ok, err := s.parse(message)
		if err != nil {
			s.logger.Warn("bad stream message", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if err := handle(ctx, candle); err != nil {
			s.logger.Error("stream candle merge failed", zap.String("symbol", candle.Symbol), zap.Error(err))
		}
	}
}

// parse는 결합 스트림 메시지에서 kline 이벤트를 캔들로 변환합니다
func (s *Stream) parse(message []byte) (domain.Candle, bool, error) {
	if bytes.Contains(message, []byte(`"result"`)) {
		return domain.Candle{}, false, nil
	}

	var msg streamData
	if err := json.Unmarshal(message, &msg); err != nil {
		return domain.Candle{}, false, err
	}
	var ev wsKlineEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return domain.Candle{}, false, err
	}
	if ev.Event != "kline" {
		return domain.Candle{}, false, nil
	}

	k := ev.Kline
	prices := make([]decimal.Decimal, 4)
	for i, raw := range []string{k.Open, k.High, k.Low, k.Close} {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.Candle{}, false, fmt.Errorf("가격 파싱 실패 %q: %w", raw, err)
		}
		prices[i] = v
	}

	return domain.Candle{
		Symbol:    strings.ToUpper(k.Symbol),
		Interval:  domain.TimeInterval(k.Interval),
		Timestamp: time.UnixMilli(k.StartTime).UTC(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
	}, true, nil
}
