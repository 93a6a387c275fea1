package mocks

import (
	"context"
	"sync"

	"github.com/example/stock-ledger/internal/infrastructure/store"
)

// MockPublisher records published events for testing
type MockPublisher struct {
	mu sync.Mutex

	// For tracking calls in tests
	PublishCalls []PublishCall
	PublishErr   error
}

// PublishCall records parameters passed to Publish
type PublishCall struct {
	Key   string
	Event store.Event
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{PublishCalls: make([]PublishCall, 0)}
}

func (m *MockPublisher) Publish(_ context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, _ := event.(store.Event)
	m.PublishCalls = append(m.PublishCalls, PublishCall{Key: key, Event: e})
	return m.PublishErr
}

// EventTypes returns the published event types in order.
func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.PublishCalls))
	for _, c := range m.PublishCalls {
		types = append(types, c.Event.EventType)
	}
	return types
}

// Reset clears recorded calls
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishCalls = make([]PublishCall, 0)
	m.PublishErr = nil
}
