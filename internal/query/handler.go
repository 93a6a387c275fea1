package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/purchaseorder"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

// Handler serves reads straight from the store outside any unit of work.
type Handler struct {
	reader store.Tx
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(reader store.Tx, logger *zap.Logger, now func() time.Time) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Handler{reader: reader, logger: logger, now: now}
}

// Stock
func (h *Handler) GetStock(ctx context.Context, variantID, locationID string) (*StockReadModel, error) {
	if err := requireIDs(map[string]string{"variant_id": variantID, "location_id": locationID}); err != nil {
		return nil, err
	}
	s, err := h.reader.Stocks().FindByVariantAndLocation(ctx, variantID, locationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("no stock for variant %s at location %s", variantID, locationID)
	}
	if err != nil {
		return nil, h.internal(err, "get stock")
	}
	return newStockReadModel(s), nil
}

func (h *Handler) ListStockByVariant(ctx context.Context, variantID string) ([]*StockReadModel, error) {
	if err := requireIDs(map[string]string{"variant_id": variantID}); err != nil {
		return nil, err
	}
	stocks, err := h.reader.Stocks().FindByVariant(ctx, variantID)
	if err != nil {
		return nil, h.internal(err, "list stock by variant")
	}
	return toStockReadModels(stocks), nil
}

// ListLowStock returns every record at or below its low stock threshold.
func (h *Handler) ListLowStock(ctx context.Context) ([]*StockReadModel, error) {
	stocks, err := h.reader.Stocks().FindLowStockItems(ctx)
	if err != nil {
		return nil, h.internal(err, "list low stock")
	}
	return toStockReadModels(stocks), nil
}

func (h *Handler) GetTotalAvailable(ctx context.Context, variantID string) (*AvailabilityReadModel, error) {
	if err := requireIDs(map[string]string{"variant_id": variantID}); err != nil {
		return nil, err
	}
	total, err := h.reader.Stocks().GetTotalAvailableStock(ctx, variantID)
	if err != nil {
		return nil, h.internal(err, "get total available")
	}
	return &AvailabilityReadModel{VariantID: variantID, TotalAvailable: total}, nil
}

// ListTransactions pages the ledger of a variant newest first, narrowed to
// one location when locationID is set.
func (h *Handler) ListTransactions(ctx context.Context, variantID, locationID string, page store.Page) ([]*stock.Transaction, error) {
	ids := map[string]string{"variant_id": variantID}
	if locationID != "" {
		ids["location_id"] = locationID
	}
	if err := requireIDs(ids); err != nil {
		return nil, err
	}

	var (
		txs []*stock.Transaction
		err error
	)
	if locationID == "" {
		txs, err = h.reader.Transactions().FindByVariant(ctx, variantID, page.Normalize())
	} else {
		txs, err = h.reader.Transactions().FindByVariantAndLocation(ctx, variantID, locationID, page.Normalize())
	}
	if err != nil {
		return nil, h.internal(err, "list transactions")
	}
	return txs, nil
}

// Reservations
func (h *Handler) GetReservation(ctx context.Context, id string) (*ReservationReadModel, error) {
	if err := requireIDs(map[string]string{"id": id}); err != nil {
		return nil, err
	}
	r, err := h.reader.Reservations().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("reservation %s not found", id)
	}
	if err != nil {
		return nil, h.internal(err, "get reservation")
	}
	return newReservationReadModel(r, h.now()), nil
}

func (h *Handler) ListReservationsByOrder(ctx context.Context, orderID string) ([]*ReservationReadModel, error) {
	if err := requireIDs(map[string]string{"order_id": orderID}); err != nil {
		return nil, err
	}
	rs, err := h.reader.Reservations().FindByOrder(ctx, orderID)
	if err != nil {
		return nil, h.internal(err, "list reservations by order")
	}
	now := h.now()
	out := make([]*ReservationReadModel, 0, len(rs))
	for _, r := range rs {
		out = append(out, newReservationReadModel(r, now))
	}
	return out, nil
}

// ListActiveReservations returns holds that are active right now.
func (h *Handler) ListActiveReservations(ctx context.Context) ([]*ReservationReadModel, error) {
	now := h.now()
	rs, err := h.reader.Reservations().FindActiveReservations(ctx, now)
	if err != nil {
		return nil, h.internal(err, "list active reservations")
	}
	out := make([]*ReservationReadModel, 0, len(rs))
	for _, r := range rs {
		out = append(out, newReservationReadModel(r, now))
	}
	return out, nil
}

// Purchase orders
func (h *Handler) GetPurchaseOrder(ctx context.Context, id string) (*purchaseorder.Details, error) {
	if err := requireIDs(map[string]string{"id": id}); err != nil {
		return nil, err
	}
	po, err := h.reader.PurchaseOrders().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("purchase order %s not found", id)
	}
	if err != nil {
		return nil, h.internal(err, "get purchase order")
	}
	items, err := h.reader.PurchaseOrderItems().FindByPurchaseOrder(ctx, id)
	if err != nil {
		return nil, h.internal(err, "list purchase order items")
	}
	if items == nil {
		items = []*purchaseorder.Item{}
	}
	return &purchaseorder.Details{PurchaseOrder: po, Items: items}, nil
}

// Alerts
func (h *Handler) GetAlert(ctx context.Context, id string) (*alert.Alert, error) {
	if err := requireIDs(map[string]string{"id": id}); err != nil {
		return nil, err
	}
	a, err := h.reader.Alerts().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("alert %s not found", id)
	}
	if err != nil {
		return nil, h.internal(err, "get alert")
	}
	return a, nil
}

// ListActiveAlerts lists unresolved alerts, of one variant when variantID
// is set.
func (h *Handler) ListActiveAlerts(ctx context.Context, variantID string) ([]*alert.Alert, error) {
	var (
		alerts []*alert.Alert
		err    error
	)
	if variantID == "" {
		alerts, err = h.reader.Alerts().FindActiveAlerts(ctx)
	} else {
		if verr := requireIDs(map[string]string{"variant_id": variantID}); verr != nil {
			return nil, verr
		}
		alerts, err = h.reader.Alerts().FindActiveAlertsByVariant(ctx, variantID)
	}
	if err != nil {
		return nil, h.internal(err, "list active alerts")
	}
	if alerts == nil {
		alerts = []*alert.Alert{}
	}
	return alerts, nil
}

func (h *Handler) internal(err error, op string) error {
	h.logger.Error("query failed", zap.String("query", op), zap.Error(err))
	return apperr.Internal(err, "failed to %s", op)
}

func requireIDs(ids map[string]string) error {
	var fields []apperr.FieldError
	for name, id := range ids {
		if !store.IsValidID(id) {
			fields = append(fields, apperr.FieldError{Field: name, Message: "must be a valid UUID"})
		}
	}
	if len(fields) > 0 {
		sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return apperr.ValidationFields(fields)
	}
	return nil
}

func toStockReadModels(stocks []*stock.Stock) []*StockReadModel {
	out := make([]*StockReadModel, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, newStockReadModel(s))
	}
	return out
}
