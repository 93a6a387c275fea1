package purchaseorder

import (
	"testing"
	"time"

	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestItem(t *testing.T, variantID string, ordered int) *Item {
	t.Helper()
	it, err := NewItem("item-"+variantID, "po-1", variantID, ordered)
	require.NoError(t, err)
	return it
}

func sentOrder(t *testing.T, items []*Item) *PurchaseOrder {
	t.Helper()
	po, err := New("po-1", "supplier-1", nil, testNow).TransitionTo(StatusSent, items, testNow)
	require.NoError(t, err)
	return po
}

// ============================================
// Status graph
// ============================================

func TestPurchaseOrder_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusClosed, true},
		{StatusDraft, StatusReceived, false},
		{StatusSent, StatusPartReceived, true},
		{StatusSent, StatusReceived, true},
		{StatusSent, StatusDraft, false},
		{StatusPartReceived, StatusReceived, true},
		{StatusPartReceived, StatusSent, false},
		{StatusReceived, StatusClosed, true},
		{StatusReceived, StatusPartReceived, false},
		{StatusClosed, StatusDraft, false},
		{StatusClosed, StatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			po := &PurchaseOrder{ID: "po-1", Status: tt.from}
			assert.Equal(t, tt.allowed, po.CanTransitionTo(tt.to))
		})
	}
}

func TestPurchaseOrder_TransitionTo_Guards(t *testing.T) {
	draft := New("po-1", "supplier-1", nil, testNow)

	_, err := draft.TransitionTo(StatusSent, nil, testNow)
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = draft.TransitionTo(StatusReceived, nil, testNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	items := []*Item{newTestItem(t, "v1", 10)}
	sent := sentOrder(t, items)

	_, err = sent.TransitionTo(StatusReceived, items, testNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "items outstanding")

	_, err = sent.TransitionTo(StatusPartReceived, items, testNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "nothing received")

	closed, err := sent.TransitionTo(StatusClosed, items, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, StatusSent, sent.Status)
}

func TestPurchaseOrder_RequireDraft(t *testing.T) {
	assert.NoError(t, New("po-1", "s", nil, testNow).RequireDraft())

	sent := sentOrder(t, []*Item{newTestItem(t, "v1", 1)})
	assert.ErrorIs(t, sent.RequireDraft(), ErrNotDraft)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("part_received")
	assert.True(t, ok)
	assert.Equal(t, StatusPartReceived, st)

	_, ok = ParseStatus("shipped")
	assert.False(t, ok)
}

// ============================================
// Items
// ============================================

func TestItem_Receive(t *testing.T) {
	it := newTestItem(t, "v1", 10)

	next, err := it.Receive(6)
	require.NoError(t, err)
	assert.Equal(t, 6, next.ReceivedQty)
	assert.Equal(t, 4, next.RemainingQty())
	assert.True(t, next.IsPartiallyReceived())
	assert.Equal(t, 0, it.ReceivedQty)

	_, err = next.Receive(5)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "would exceed ordered quantity")

	full, err := next.Receive(4)
	require.NoError(t, err)
	assert.True(t, full.IsFullyReceived())
	assert.False(t, full.IsPartiallyReceived())
}

func TestItem_WithOrderedQty(t *testing.T) {
	it := newTestItem(t, "v1", 10)

	next, err := it.WithOrderedQty(4)
	require.NoError(t, err)
	assert.Equal(t, 4, next.OrderedQty)

	_, err = it.WithOrderedQty(0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	got, err := it.Receive(5)
	require.NoError(t, err)
	_, err = got.WithOrderedQty(4)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// ============================================
// Receiving
// ============================================

func TestReceive_PartialThenFull(t *testing.T) {
	items := []*Item{newTestItem(t, "v1", 10)}
	po := sentOrder(t, items)

	first, err := Receive(po, items, []ReceiptLine{{VariantID: "v1", Qty: 6}}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPartReceived, first.Order.Status)
	require.Len(t, first.Changed, 1)
	assert.Equal(t, 6, first.Changed[0].ReceivedQty)
	assert.Equal(t, 0, items[0].ReceivedQty, "input items are not mutated")

	second, err := Receive(first.Order, first.Changed, []ReceiptLine{{VariantID: "v1", Qty: 4}}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, second.Order.Status)

	_, err = Receive(second.Order, second.Changed, []ReceiptLine{{VariantID: "v1", Qty: 1}}, testNow)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "would exceed ordered quantity")

	closed, err := second.Order.TransitionTo(StatusClosed, second.Changed, testNow)
	require.NoError(t, err)
	_, err = Receive(closed, second.Changed, []ReceiptLine{{VariantID: "v1", Qty: 1}}, testNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestReceive_AbortsWholeBatch(t *testing.T) {
	items := []*Item{newTestItem(t, "v1", 10), newTestItem(t, "v2", 2)}
	po := sentOrder(t, items)

	_, err := Receive(po, items, []ReceiptLine{
		{VariantID: "v1", Qty: 5},
		{VariantID: "v2", Qty: 3},
	}, testNow)

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, items[0].ReceivedQty)
	assert.Equal(t, 0, items[1].ReceivedQty)
}

func TestReceive_DuplicateLinesAccumulate(t *testing.T) {
	items := []*Item{newTestItem(t, "v1", 10)}
	po := sentOrder(t, items)

	r, err := Receive(po, items, []ReceiptLine{{VariantID: "v1", Qty: 4}, {VariantID: "v1", Qty: 6}}, testNow)
	require.NoError(t, err)
	require.Len(t, r.Changed, 1)
	assert.Equal(t, 10, r.Changed[0].ReceivedQty)
	assert.Equal(t, StatusReceived, r.Order.Status)

	_, err = Receive(po, items, []ReceiptLine{{VariantID: "v1", Qty: 6}, {VariantID: "v1", Qty: 6}}, testNow)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReceive_UnknownVariantAndClosedOrder(t *testing.T) {
	items := []*Item{newTestItem(t, "v1", 10)}
	po := sentOrder(t, items)

	_, err := Receive(po, items, []ReceiptLine{{VariantID: "v9", Qty: 1}}, testNow)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	draft := New("po-2", "s", nil, testNow)
	_, err = Receive(draft, items, []ReceiptLine{{VariantID: "v1", Qty: 1}}, testNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestReceive_PartReceivedStaysUntilComplete(t *testing.T) {
	items := []*Item{newTestItem(t, "v1", 10), newTestItem(t, "v2", 5)}
	po := sentOrder(t, items)

	r, err := Receive(po, items, []ReceiptLine{{VariantID: "v2", Qty: 5}}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPartReceived, r.Order.Status)

	all := []*Item{items[0], r.Changed[0]}
	r2, err := Receive(r.Order, all, []ReceiptLine{{VariantID: "v1", Qty: 9}}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPartReceived, r2.Order.Status)
}
