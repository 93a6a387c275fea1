package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/purchaseorder"
	"github.com/example/stock-ledger/internal/domain/reservation"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
	"github.com/example/stock-ledger/internal/infrastructure/store/memory"
	"github.com/example/stock-ledger/internal/infrastructure/store/mocks"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	handler   *Handler
	store     *memory.Store
	failing   *mocks.FailingStore
	publisher *mocks.MockPublisher
	clock     *testClock
}

func newTestHandler() *testEnv {
	mem := memory.New()
	failing := mocks.NewFailingStore(mem)
	publisher := mocks.NewMockPublisher()
	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}

	handler := NewHandler(failing, zap.NewNop(),
		WithPublisher(publisher),
		WithClock(clock.Now),
	)
	return &testEnv{
		handler:   handler,
		store:     mem,
		failing:   failing,
		publisher: publisher,
		clock:     clock,
	}
}

func newID() string { return uuid.NewString() }

func (e *testEnv) seed(t *testing.T, variantID, locationID string, qty int) {
	t.Helper()
	_, err := e.handler.AddStock(context.Background(), AddStock{
		VariantID:  variantID,
		LocationID: locationID,
		Qty:        qty,
		Reason:     "initial count",
	})
	require.NoError(t, err)
	e.publisher.Reset()
}

func (e *testEnv) level(t *testing.T, variantID, locationID string) stock.Level {
	t.Helper()
	s, err := e.store.Stocks().FindByVariantAndLocation(context.Background(), variantID, locationID)
	require.NoError(t, err)
	return s.Level
}

func (e *testEnv) ledger(t *testing.T, variantID string) []*stock.Transaction {
	t.Helper()
	txs, err := e.store.Transactions().FindByVariant(context.Background(), variantID, store.Page{})
	require.NoError(t, err)
	return txs
}

// ============================================
// Add / Adjust Stock Tests
// ============================================

func TestHandler_AddStock_OpensRecord(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()

	out, err := env.handler.AddStock(ctx, AddStock{
		VariantID:  variant,
		LocationID: location,
		Qty:        10,
		Reason:     "initial count",
	})

	require.NoError(t, err)
	require.Len(t, out.Stocks, 1)
	assert.Equal(t, 10, out.Stocks[0].Level.OnHand)
	assert.Equal(t, 1, out.Stocks[0].Version)

	ledger := env.ledger(t, variant)
	require.Len(t, ledger, 1)
	assert.Equal(t, 10, ledger[0].QtyDelta)
	assert.Equal(t, "initial count", ledger[0].Reason)

	assert.Equal(t, []string{stock.EventStockAdded}, env.publisher.EventTypes())
	assert.Equal(t, variant+"@"+location, env.publisher.PublishCalls[0].Key)
}

func TestHandler_AddStock_AccumulatesOnExistingRecord(t *testing.T) {
	env := newTestHandler()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)

	_, err := env.handler.AddStock(context.Background(), AddStock{
		VariantID:  variant,
		LocationID: location,
		Qty:        5,
		Reason:     stock.ReasonAdjustment,
	})

	require.NoError(t, err)
	assert.Equal(t, 15, env.level(t, variant, location).OnHand)
	assert.Len(t, env.ledger(t, variant), 2)
}

func TestHandler_AddStock_ValidationFields(t *testing.T) {
	env := newTestHandler()

	_, err := env.handler.AddStock(context.Background(), AddStock{
		VariantID:  "not-a-uuid",
		LocationID: newID(),
		Qty:        0,
		Reason:     "x",
	})

	require.ErrorIs(t, err, apperr.ErrValidation)
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	fields := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"variant_id", "qty", "reason"}, fields)
	assert.Empty(t, env.publisher.PublishCalls)
}

func TestHandler_AdjustStock_NegativeOnMissingRecord(t *testing.T) {
	env := newTestHandler()

	_, err := env.handler.AdjustStock(context.Background(), AdjustStock{
		VariantID:  newID(),
		LocationID: newID(),
		Delta:      -3,
		Reason:     "shrinkage",
	})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHandler_AdjustStock_Negative(t *testing.T) {
	env := newTestHandler()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)

	out, err := env.handler.AdjustStock(context.Background(), AdjustStock{
		VariantID:  variant,
		LocationID: location,
		Delta:      -3,
		Reason:     "shrinkage",
	})

	require.NoError(t, err)
	assert.Equal(t, 7, out.Stocks[0].Level.OnHand)
	assert.Equal(t, -3, out.Transactions[0].QtyDelta)
	assert.Equal(t, []string{stock.EventStockRemoved}, env.publisher.EventTypes())
}

// ============================================
// Reserve / Fulfill / Remove Scenario
// ============================================

func TestHandler_ReserveFulfillRemove(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)

	_, err := env.handler.ReserveStock(ctx, ReserveStock{VariantID: variant, LocationID: location, Qty: 4})
	require.NoError(t, err)
	lvl := env.level(t, variant, location)
	assert.Equal(t, 10, lvl.OnHand)
	assert.Equal(t, 4, lvl.Reserved)
	assert.Len(t, env.ledger(t, variant), 1, "reserving writes no ledger row")

	// Removing 7 would leave 3 on hand under 4 reserved
	_, err = env.handler.AdjustStock(ctx, AdjustStock{VariantID: variant, LocationID: location, Delta: -7, Reason: "damaged"})
	assert.ErrorIs(t, err, apperr.ErrInvariantViolation)

	orderID := newID()
	out, err := env.handler.FulfillStock(ctx, FulfillStock{VariantID: variant, LocationID: location, Qty: 4, OrderID: &orderID})
	require.NoError(t, err)
	assert.Equal(t, 6, out.Stocks[0].Level.OnHand)
	assert.Equal(t, 0, out.Stocks[0].Level.Reserved)
	assert.Equal(t, stock.ReasonOrder, out.Transactions[0].Reason)
	require.NotNil(t, out.Transactions[0].ReferenceID)
	assert.Equal(t, orderID, *out.Transactions[0].ReferenceID)

	_, err = env.handler.AdjustStock(ctx, AdjustStock{VariantID: variant, LocationID: location, Delta: -7, Reason: "damaged"})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	lvl = env.level(t, variant, location)
	assert.Equal(t, 6, lvl.OnHand)
	assert.Len(t, env.ledger(t, variant), 2)
}

func TestHandler_ReleaseStock_MoreThanReserved(t *testing.T) {
	env := newTestHandler()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)

	_, err := env.handler.ReleaseStock(context.Background(), ReleaseStock{VariantID: variant, LocationID: location, Qty: 1})

	assert.ErrorIs(t, err, apperr.ErrInvariantViolation)
}

func TestHandler_ReserveStock_Insufficient(t *testing.T) {
	env := newTestHandler()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 3)

	_, err := env.handler.ReserveStock(context.Background(), ReserveStock{VariantID: variant, LocationID: location, Qty: 4})

	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 0, env.level(t, variant, location).Reserved)
}

// ============================================
// Atomicity Tests
// ============================================

func TestHandler_AddStock_LedgerFailureLeavesNoTrace(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.failing.FailOn(mocks.OpTransactionAdd, errors.New("disk full"), 0)

	_, err := env.handler.AddStock(ctx, AddStock{VariantID: variant, LocationID: location, Qty: 5, Reason: "initial count"})

	require.ErrorIs(t, err, apperr.ErrInternal)
	_, err = env.store.Stocks().FindByVariantAndLocation(ctx, variant, location)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, env.ledger(t, variant))
	assert.Empty(t, env.publisher.PublishCalls)
}

func TestHandler_TransferStock(t *testing.T) {
	env := newTestHandler()
	variant, from, to := newID(), newID(), newID()
	env.seed(t, variant, from, 10)

	out, err := env.handler.TransferStock(context.Background(), TransferStock{
		VariantID:      variant,
		FromLocationID: from,
		ToLocationID:   to,
		Qty:            4,
	})

	require.NoError(t, err)
	require.Len(t, out.Transactions, 2)
	assert.Equal(t, -4, out.Transactions[0].QtyDelta)
	assert.Equal(t, stock.ReasonTransferOut, out.Transactions[0].Reason)
	assert.Equal(t, 4, out.Transactions[1].QtyDelta)
	assert.Equal(t, stock.ReasonTransferIn, out.Transactions[1].Reason)

	assert.Equal(t, 6, env.level(t, variant, from).OnHand)
	assert.Equal(t, 4, env.level(t, variant, to).OnHand)
	assert.Equal(t, []string{stock.EventStockTransferred}, env.publisher.EventTypes())
}

func TestHandler_TransferStock_SecondLegFailure(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, from, to := newID(), newID(), newID()
	env.seed(t, variant, from, 10)
	env.failing.FailOn(mocks.OpTransactionAdd, errors.New("connection reset"), 1)

	_, err := env.handler.TransferStock(ctx, TransferStock{VariantID: variant, FromLocationID: from, ToLocationID: to, Qty: 4})

	require.ErrorIs(t, err, apperr.ErrInternal)
	assert.Equal(t, 10, env.level(t, variant, from).OnHand)
	_, err = env.store.Stocks().FindByVariantAndLocation(ctx, variant, to)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Len(t, env.ledger(t, variant), 1)
}

func TestHandler_TransferStock_Rejections(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, from := newID(), newID()
	env.seed(t, variant, from, 3)

	_, err := env.handler.TransferStock(ctx, TransferStock{VariantID: variant, FromLocationID: from, ToLocationID: from, Qty: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.handler.TransferStock(ctx, TransferStock{VariantID: variant, FromLocationID: from, ToLocationID: newID(), Qty: 5})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	_, err = env.handler.TransferStock(ctx, TransferStock{VariantID: variant, FromLocationID: newID(), ToLocationID: from, Qty: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ============================================
// Threshold Tests
// ============================================

func TestHandler_SetStockThresholds_KeepAndClear(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)

	s, err := env.handler.SetStockThresholds(ctx, SetStockThresholds{
		VariantID:         variant,
		LocationID:        location,
		LowStockThreshold: stock.SetThreshold(3),
		SafetyStock:       stock.SetThreshold(1),
	})
	require.NoError(t, err)
	require.NotNil(t, s.Level.LowStockThreshold)
	assert.Equal(t, 3, *s.Level.LowStockThreshold)

	s, err = env.handler.SetStockThresholds(ctx, SetStockThresholds{
		VariantID:         variant,
		LocationID:        location,
		LowStockThreshold: stock.KeepThreshold(),
		SafetyStock:       stock.ClearThreshold(),
	})
	require.NoError(t, err)
	require.NotNil(t, s.Level.LowStockThreshold)
	assert.Equal(t, 3, *s.Level.LowStockThreshold)
	assert.Nil(t, s.Level.SafetyStock)
	assert.Len(t, env.ledger(t, variant), 1, "thresholds write no ledger row")
}

// ============================================
// Reservation Tests
// ============================================

func TestHandler_CreateReservation(t *testing.T) {
	env := newTestHandler()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)

	r, err := env.handler.CreateReservation(context.Background(), CreateReservation{
		OrderID:    newID(),
		VariantID:  variant,
		LocationID: location,
		Qty:        3,
	})

	require.NoError(t, err)
	assert.Equal(t, reservation.StatusActive, r.Status)
	assert.Equal(t, env.clock.now.Add(DefaultReservationHold), r.ExpiresAt)
	assert.Equal(t, 3, env.level(t, variant, location).Reserved)
	assert.Equal(t, []string{stock.EventStockReserved, reservation.EventReservationCreated}, env.publisher.EventTypes())
}

func TestHandler_CreateReservation_InsufficientLeavesNoHold(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	orderID := newID()
	env.seed(t, variant, location, 2)

	_, err := env.handler.CreateReservation(ctx, CreateReservation{OrderID: orderID, VariantID: variant, LocationID: location, Qty: 3})

	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	held, err := env.store.Reservations().FindByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestHandler_CancelReservation_ReleasesStock(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)
	r, err := env.handler.CreateReservation(ctx, CreateReservation{OrderID: newID(), VariantID: variant, LocationID: location, Qty: 3})
	require.NoError(t, err)

	cancelled, err := env.handler.CancelReservation(ctx, CancelReservation{ReservationID: r.ID})

	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
	assert.Equal(t, 0, env.level(t, variant, location).Reserved)

	_, err = env.handler.CancelReservation(ctx, CancelReservation{ReservationID: r.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestHandler_CancelReservation_NotFound(t *testing.T) {
	env := newTestHandler()

	_, err := env.handler.CancelReservation(context.Background(), CancelReservation{ReservationID: newID()})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHandler_FulfillReservation(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	orderID := newID()
	env.seed(t, variant, location, 10)
	r, err := env.handler.CreateReservation(ctx, CreateReservation{OrderID: orderID, VariantID: variant, LocationID: location, Qty: 4})
	require.NoError(t, err)

	fulfilled, err := env.handler.FulfillReservation(ctx, FulfillReservation{ReservationID: r.ID})

	require.NoError(t, err)
	assert.Equal(t, reservation.StatusFulfilled, fulfilled.Status)
	lvl := env.level(t, variant, location)
	assert.Equal(t, 6, lvl.OnHand)
	assert.Equal(t, 0, lvl.Reserved)

	ledger := env.ledger(t, variant)
	require.Len(t, ledger, 2)
	assert.Equal(t, -4, ledger[0].QtyDelta)
	require.NotNil(t, ledger[0].ReferenceID)
	assert.Equal(t, orderID, *ledger[0].ReferenceID)
}

func TestHandler_ExtendReservation(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)
	r, err := env.handler.CreateReservation(ctx, CreateReservation{OrderID: newID(), VariantID: variant, LocationID: location, Qty: 1})
	require.NoError(t, err)

	later := r.ExpiresAt.Add(time.Hour)
	extended, err := env.handler.ExtendReservation(ctx, ExtendReservation{ReservationID: r.ID, ExpiresAt: later})
	require.NoError(t, err)
	assert.Equal(t, later, extended.ExpiresAt)

	_, err = env.handler.ExtendReservation(ctx, ExtendReservation{ReservationID: r.ID, ExpiresAt: r.ExpiresAt})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestHandler_ExpireReservation_Forced(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)
	r, err := env.handler.CreateReservation(ctx, CreateReservation{OrderID: newID(), VariantID: variant, LocationID: location, Qty: 2})
	require.NoError(t, err)
	env.publisher.Reset()

	expired, err := env.handler.ExpireReservation(ctx, ExpireReservation{ReservationID: r.ID})

	require.NoError(t, err)
	assert.Equal(t, reservation.StatusExpired, expired.Status)
	assert.Equal(t, 0, env.level(t, variant, location).Reserved)
	assert.Contains(t, env.publisher.EventTypes(), reservation.EventReservationExpired)
}

func TestHandler_LapsedReservation(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)
	expiresAt := env.clock.now.Add(time.Minute)
	r, err := env.handler.CreateReservation(ctx, CreateReservation{
		OrderID:    newID(),
		VariantID:  variant,
		LocationID: location,
		Qty:        2,
		ExpiresAt:  &expiresAt,
	})
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)

	_, err = env.handler.CancelReservation(ctx, CancelReservation{ReservationID: r.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = env.handler.FulfillReservation(ctx, FulfillReservation{ReservationID: r.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 2, env.level(t, variant, location).Reserved, "lapsed hold keeps its units until settled")

	settled, err := env.handler.ExpireReservation(ctx, ExpireReservation{ReservationID: r.ID})
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusExpired, settled.Status)
	assert.Equal(t, 0, env.level(t, variant, location).Reserved)
}

func TestHandler_SettleExpiredReservations(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)

	expiresAt := env.clock.now.Add(time.Minute)
	for i := 0; i < 2; i++ {
		_, err := env.handler.CreateReservation(ctx, CreateReservation{
			OrderID:    newID(),
			VariantID:  variant,
			LocationID: location,
			Qty:        2,
			ExpiresAt:  &expiresAt,
		})
		require.NoError(t, err)
	}
	kept, err := env.handler.CreateReservation(ctx, CreateReservation{OrderID: newID(), VariantID: variant, LocationID: location, Qty: 1})
	require.NoError(t, err)

	env.clock.Advance(5 * time.Minute)
	settled, err := env.handler.SettleExpiredReservations(ctx, SettleExpiredReservations{})

	require.NoError(t, err)
	assert.Len(t, settled, 2)
	assert.Equal(t, 1, env.level(t, variant, location).Reserved)

	r, err := env.store.Reservations().FindByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusActive, r.Status)

	again, err := env.handler.SettleExpiredReservations(ctx, SettleExpiredReservations{})
	require.NoError(t, err)
	assert.Empty(t, again)
}

// ============================================
// Purchase Order Tests
// ============================================

func (e *testEnv) sentOrder(t *testing.T, lines ...PurchaseOrderLine) *purchaseorder.Details {
	t.Helper()
	ctx := context.Background()
	po, err := e.handler.CreatePurchaseOrder(ctx, CreatePurchaseOrder{SupplierID: newID(), Items: lines})
	require.NoError(t, err)
	_, err = e.handler.UpdatePurchaseOrderStatus(ctx, UpdatePurchaseOrderStatus{PurchaseOrderID: po.ID, Status: string(purchaseorder.StatusSent)})
	require.NoError(t, err)
	e.publisher.Reset()
	return po
}

func TestHandler_ReceivePurchaseOrder_Scenario(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	v1, v2, location := newID(), newID(), newID()
	po := env.sentOrder(t,
		PurchaseOrderLine{VariantID: v1, OrderedQty: 10},
		PurchaseOrderLine{VariantID: v2, OrderedQty: 5},
	)

	// 1. Partial receipt
	out, err := env.handler.ReceivePurchaseOrderItems(ctx, ReceivePurchaseOrderItems{
		PurchaseOrderID: po.ID,
		LocationID:      location,
		Lines:           []ReceiveLine{{VariantID: v1, Qty: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, purchaseorder.StatusPartReceived, out.Status)
	assert.Equal(t, 4, env.level(t, v1, location).OnHand)

	ledger := env.ledger(t, v1)
	require.Len(t, ledger, 1)
	assert.Equal(t, stock.ReasonPurchaseOrder, ledger[0].Reason)
	require.NotNil(t, ledger[0].ReferenceID)
	assert.Equal(t, po.ID, *ledger[0].ReferenceID)

	// 2. Receive the rest
	out, err = env.handler.ReceivePurchaseOrderItems(ctx, ReceivePurchaseOrderItems{
		PurchaseOrderID: po.ID,
		LocationID:      location,
		Lines:           []ReceiveLine{{VariantID: v1, Qty: 6}, {VariantID: v2, Qty: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, purchaseorder.StatusReceived, out.Status)
	assert.Equal(t, 10, env.level(t, v1, location).OnHand)
	assert.Equal(t, 5, env.level(t, v2, location).OnHand)
	for _, it := range out.Items {
		assert.True(t, it.IsFullyReceived())
	}

	// 3. Over-receipt is rejected and changes nothing
	_, err = env.handler.ReceivePurchaseOrderItems(ctx, ReceivePurchaseOrderItems{
		PurchaseOrderID: po.ID,
		LocationID:      location,
		Lines:           []ReceiveLine{{VariantID: v1, Qty: 1}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "would exceed ordered quantity")
	assert.Equal(t, 10, env.level(t, v1, location).OnHand)
}

func TestHandler_ReceivePurchaseOrder_BatchAborts(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	v1, location := newID(), newID()
	po := env.sentOrder(t, PurchaseOrderLine{VariantID: v1, OrderedQty: 10})

	_, err := env.handler.ReceivePurchaseOrderItems(ctx, ReceivePurchaseOrderItems{
		PurchaseOrderID: po.ID,
		LocationID:      location,
		Lines:           []ReceiveLine{{VariantID: v1, Qty: 3}, {VariantID: newID(), Qty: 1}},
	})

	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.store.Stocks().FindByVariantAndLocation(ctx, v1, location)
	assert.ErrorIs(t, err, store.ErrNotFound)
	items, err := env.store.PurchaseOrderItems().FindByPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0, items[0].ReceivedQty)
	assert.Empty(t, env.publisher.PublishCalls)
}

func TestHandler_ReceivePurchaseOrder_StockFailureRollsBackItems(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	v1, location := newID(), newID()
	po := env.sentOrder(t, PurchaseOrderLine{VariantID: v1, OrderedQty: 10})
	env.failing.FailOn(mocks.OpStockSave, errors.New("deadlock detected"), 0)

	_, err := env.handler.ReceivePurchaseOrderItems(ctx, ReceivePurchaseOrderItems{
		PurchaseOrderID: po.ID,
		LocationID:      location,
		Lines:           []ReceiveLine{{VariantID: v1, Qty: 3}},
	})

	require.ErrorIs(t, err, apperr.ErrInternal)
	stored, err := env.store.PurchaseOrders().FindByID(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, purchaseorder.StatusSent, stored.Status)
}

func TestHandler_ReceivePurchaseOrder_DraftRejected(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	v1 := newID()
	po, err := env.handler.CreatePurchaseOrder(ctx, CreatePurchaseOrder{
		SupplierID: newID(),
		Items:      []PurchaseOrderLine{{VariantID: v1, OrderedQty: 2}},
	})
	require.NoError(t, err)

	_, err = env.handler.ReceivePurchaseOrderItems(ctx, ReceivePurchaseOrderItems{
		PurchaseOrderID: po.ID,
		LocationID:      newID(),
		Lines:           []ReceiveLine{{VariantID: v1, Qty: 1}},
	})

	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestHandler_PurchaseOrderDraftEditing(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	v1, v2 := newID(), newID()

	po, err := env.handler.CreatePurchaseOrder(ctx, CreatePurchaseOrder{SupplierID: newID()})
	require.NoError(t, err)
	assert.Equal(t, purchaseorder.StatusDraft, po.Status)

	// Sending an empty order is refused
	_, err = env.handler.UpdatePurchaseOrderStatus(ctx, UpdatePurchaseOrderStatus{PurchaseOrderID: po.ID, Status: "sent"})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	it, err := env.handler.AddPurchaseOrderItem(ctx, AddPurchaseOrderItem{PurchaseOrderID: po.ID, VariantID: v1, OrderedQty: 5})
	require.NoError(t, err)
	_, err = env.handler.AddPurchaseOrderItem(ctx, AddPurchaseOrderItem{PurchaseOrderID: po.ID, VariantID: v1, OrderedQty: 1})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	updated, err := env.handler.UpdatePurchaseOrderItem(ctx, UpdatePurchaseOrderItem{PurchaseOrderID: po.ID, ItemID: it.ID, OrderedQty: 8})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.OrderedQty)

	second, err := env.handler.AddPurchaseOrderItem(ctx, AddPurchaseOrderItem{PurchaseOrderID: po.ID, VariantID: v2, OrderedQty: 2})
	require.NoError(t, err)
	require.NoError(t, env.handler.RemovePurchaseOrderItem(ctx, RemovePurchaseOrderItem{PurchaseOrderID: po.ID, ItemID: second.ID}))

	sent, err := env.handler.UpdatePurchaseOrderStatus(ctx, UpdatePurchaseOrderStatus{PurchaseOrderID: po.ID, Status: "sent"})
	require.NoError(t, err)
	assert.Equal(t, purchaseorder.StatusSent, sent.Status)
	require.Len(t, sent.Items, 1)

	// Items are frozen once the order left draft
	_, err = env.handler.AddPurchaseOrderItem(ctx, AddPurchaseOrderItem{PurchaseOrderID: po.ID, VariantID: v2, OrderedQty: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	err = env.handler.DeletePurchaseOrder(ctx, DeletePurchaseOrder{PurchaseOrderID: po.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// received needs every item fully received
	_, err = env.handler.UpdatePurchaseOrderStatus(ctx, UpdatePurchaseOrderStatus{PurchaseOrderID: po.ID, Status: "received"})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestHandler_CreatePurchaseOrder_DuplicateVariant(t *testing.T) {
	env := newTestHandler()
	v1 := newID()

	_, err := env.handler.CreatePurchaseOrder(context.Background(), CreatePurchaseOrder{
		SupplierID: newID(),
		Items:      []PurchaseOrderLine{{VariantID: v1, OrderedQty: 1}, {VariantID: v1, OrderedQty: 2}},
	})

	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestHandler_DeletePurchaseOrder(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	po, err := env.handler.CreatePurchaseOrder(ctx, CreatePurchaseOrder{
		SupplierID: newID(),
		Items:      []PurchaseOrderLine{{VariantID: newID(), OrderedQty: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, env.handler.DeletePurchaseOrder(ctx, DeletePurchaseOrder{PurchaseOrderID: po.ID}))

	_, err = env.store.PurchaseOrders().FindByID(ctx, po.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	items, err := env.store.PurchaseOrderItems().FindByPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// ============================================
// Alert Tests
// ============================================

func TestHandler_AlertLifecycle(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	variant, location := newID(), newID()
	env.seed(t, variant, location, 10)
	_, err := env.handler.SetStockThresholds(ctx, SetStockThresholds{
		VariantID:         variant,
		LocationID:        location,
		LowStockThreshold: stock.SetThreshold(5),
		SafetyStock:       stock.KeepThreshold(),
	})
	require.NoError(t, err)
	env.publisher.Reset()

	// Available drops to 4, under the threshold of 5
	_, err = env.handler.ReserveStock(ctx, ReserveStock{VariantID: variant, LocationID: location, Qty: 6})
	require.NoError(t, err)
	assert.Contains(t, env.publisher.EventTypes(), alert.EventAlertRaised)
	active, err := env.store.Alerts().FindActiveAlertsByVariant(ctx, variant)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, alert.TypeLowStock, active[0].Type)

	// Releasing restores availability and resolves the alert
	_, err = env.handler.ReleaseStock(ctx, ReleaseStock{VariantID: variant, LocationID: location, Qty: 6})
	require.NoError(t, err)
	active, err = env.store.Alerts().FindActiveAlertsByVariant(ctx, variant)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Reserving everything raises oos
	_, err = env.handler.ReserveStock(ctx, ReserveStock{VariantID: variant, LocationID: location, Qty: 10})
	require.NoError(t, err)
	active, err = env.store.Alerts().FindActiveAlertsByVariant(ctx, variant)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, alert.TypeOutOfStock, active[0].Type)

	_, err = env.handler.CreateAlert(ctx, CreateAlert{VariantID: variant, Type: string(alert.TypeOutOfStock)})
	assert.ErrorIs(t, err, apperr.ErrDuplicateActiveAlert)

	resolved, err := env.handler.ResolveAlert(ctx, ResolveAlert{AlertID: active[0].ID})
	require.NoError(t, err)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = env.handler.ResolveAlert(ctx, ResolveAlert{AlertID: active[0].ID})
	assert.ErrorIs(t, err, apperr.ErrAlreadyResolved)

	// A manual check raises it again while nothing is available
	check, err := env.handler.CheckAlerts(ctx, CheckAlerts{VariantID: variant})
	require.NoError(t, err)
	require.Len(t, check.Raised, 1)
	assert.Equal(t, alert.TypeOutOfStock, check.Raised[0].Type)
}

func TestHandler_ResolveAlert_NotFound(t *testing.T) {
	env := newTestHandler()

	_, err := env.handler.ResolveAlert(context.Background(), ResolveAlert{AlertID: newID()})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ============================================
// Publishing Tests
// ============================================

func TestHandler_PublishFailureDoesNotFailCommand(t *testing.T) {
	env := newTestHandler()
	variant, location := newID(), newID()
	env.publisher.PublishErr = errors.New("broker unavailable")

	_, err := env.handler.AddStock(context.Background(), AddStock{VariantID: variant, LocationID: location, Qty: 1, Reason: "initial count"})

	require.NoError(t, err)
	assert.Equal(t, 1, env.level(t, variant, location).OnHand)
}
