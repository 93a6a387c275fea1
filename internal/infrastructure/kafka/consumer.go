package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/infrastructure/store"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// EventHandler receives decoded inventory events.
type EventHandler func(ctx context.Context, event store.Event) error

type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: logger}
}

// Consume reads until ctx is done. Handler errors are logged and the
// message is committed anyway.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Warn("error reading message", zap.Error(err))
				continue
			}

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				c.logger.Error("error handling message",
					zap.String("key", string(msg.Key)),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
		}
	}
}

// DecodeEvents adapts an EventHandler to the raw message form. Events whose
// type is not in types are skipped; no types means all.
func DecodeEvents(handler EventHandler, types ...string) MessageHandler {
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	return func(ctx context.Context, _, value []byte) error {
		var e store.Event
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if len(wanted) > 0 && !wanted[e.EventType] {
			return nil
		}
		return handler(ctx, e)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
