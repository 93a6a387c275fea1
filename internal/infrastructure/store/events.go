package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewEvent(aggregateID, aggregateType, eventType string, data any, at time.Time) (Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     at,
	}, nil
}

// Publisher delivers events to the broker. kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Outbox buffers the events of one unit of work until it commits.
type Outbox struct {
	mu     sync.Mutex
	events []Event
}

func (o *Outbox) Record(aggregateID, aggregateType, eventType string, data any, at time.Time) error {
	e, err := NewEvent(aggregateID, aggregateType, eventType, data, at)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
	return nil
}

func (o *Outbox) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

// Flush publishes the buffered events keyed by aggregate id. The data is
// already committed, so failures are logged and never returned.
func (o *Outbox) Flush(ctx context.Context, publisher Publisher, logger *zap.Logger) {
	if publisher == nil {
		return
	}
	for _, e := range o.Events() {
		if err := publisher.Publish(ctx, e.AggregateID, e); err != nil {
			logger.Error("failed to publish event",
				zap.String("event_type", e.EventType),
				zap.String("aggregate_id", e.AggregateID),
				zap.Error(err),
			)
		}
	}
}
