package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/stock-ledger/internal/infrastructure/store"
	"github.com/example/stock-ledger/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOutbox_FlushPublishesInOrder(t *testing.T) {
	var outbox store.Outbox
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, outbox.Record("agg-1", "Stock", "StockAdded", map[string]int{"quantity": 3}, at))
	require.NoError(t, outbox.Record("agg-2", "StockAlert", "AlertRaised", map[string]string{"type": "oos"}, at))

	publisher := mocks.NewMockPublisher()
	outbox.Flush(context.Background(), publisher, zap.NewNop())

	require.Len(t, publisher.PublishCalls, 2)
	assert.Equal(t, []string{"StockAdded", "AlertRaised"}, publisher.EventTypes())
	assert.Equal(t, "agg-1", publisher.PublishCalls[0].Key)
	assert.Equal(t, at, publisher.PublishCalls[0].Event.Timestamp)

	var data map[string]int
	require.NoError(t, json.Unmarshal(publisher.PublishCalls[0].Event.Data, &data))
	assert.Equal(t, 3, data["quantity"])
}

func TestOutbox_FlushSwallowsPublishErrors(t *testing.T) {
	var outbox store.Outbox
	require.NoError(t, outbox.Record("agg-1", "Stock", "StockAdded", struct{}{}, time.Now()))

	publisher := mocks.NewMockPublisher()
	publisher.PublishErr = errors.New("broker down")

	assert.NotPanics(t, func() {
		outbox.Flush(context.Background(), publisher, zap.NewNop())
	})
	assert.Len(t, publisher.PublishCalls, 1)
}

func TestOutbox_RecordRejectsUnmarshalable(t *testing.T) {
	var outbox store.Outbox

	err := outbox.Record("agg-1", "Stock", "StockAdded", make(chan int), time.Now())

	assert.Error(t, err)
	assert.Empty(t, outbox.Events())
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, store.Page{Limit: store.DefaultPageLimit}, store.Page{}.Normalize())
	assert.Equal(t, store.Page{Limit: store.MaxPageLimit, Offset: 5}, store.Page{Limit: 10000, Offset: 5}.Normalize())
	assert.Equal(t, store.Page{Limit: 10}, store.Page{Limit: 10, Offset: -1}.Normalize())
}

func TestUUIDGenerator(t *testing.T) {
	id := store.UUIDGenerator{}.NewID()

	assert.True(t, store.IsValidID(id))
	assert.NotEqual(t, id, store.UUIDGenerator{}.NewID())
	assert.False(t, store.IsValidID("not-a-uuid"))
}
