// Package stream은 메시지 큐로 들어오는 거래 요청을 체결 엔진에 전달합니다
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/trading"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader는 kafka.Reader 중 소비자가 사용하는 부분입니다
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer는 거래 요청 토픽을 읽어 순서대로 체결합니다.
// 잘못된 메시지와 거절된 거래는 기록만 하고 다음 메시지로 넘어갑니다.
type Consumer struct {
	Reader   MessageReader
	Executor trading.Executor
	Logger   *zap.Logger
}

// NewConsumer는 consumer group으로 토픽을 구독하는 Consumer를 생성합니다
func NewConsumer(brokers []string, topic, groupID string, executor trading.Executor, logger *zap.Logger) *Consumer {
	return &Consumer{
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
			MaxWait:  500 * time.Millisecond,
		}),
		Executor: executor,
		Logger:   logger,
	}
}

// Run은 ctx가 취소되거나 읽기에 실패할 때까지 메시지를 처리합니다
func (c *Consumer) Run(ctx context.Context) error {
	defer c.Reader.Close()
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := c.Handle(ctx, m.Value); err != nil {
			c.Logger.Warn("trade message rejected",
				zap.Int64("offset", m.Offset),
				zap.Int("partition", m.Partition),
				zap.Error(err))
		}
	}
}

// Handle은 메시지 하나를 해석해 체결합니다
func (c *Consumer) Handle(ctx context.Context, value []byte) error {
	var msg domain.TradeMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return errors.Join(domain.ErrInvalidRequest, err)
	}
	if msg.UserID <= 0 {
		return errors.Join(domain.ErrInvalidRequest, errors.New("user_id must be positive"))
	}

	req, err := msg.Request()
	if err != nil {
		return err
	}

	entry, err := c.Executor.Execute(ctx, msg.UserID, req)
	if err != nil {
		return err
	}
	c.Logger.Debug("trade applied",
		zap.String("id", entry.ID),
		zap.Int64("user_id", entry.UserID),
		zap.String("symbol", entry.AssetSymbol))
	return nil
}
