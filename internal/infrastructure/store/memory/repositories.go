package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/purchaseorder"
	"github.com/example/stock-ledger/internal/domain/reservation"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

var errReadOnly = errors.New("memory store: write outside of a unit of work")

func copyStock(s *stock.Stock) *stock.Stock {
	c := *s
	c.Level.LowStockThreshold = copyInt(s.Level.LowStockThreshold)
	c.Level.SafetyStock = copyInt(s.Level.SafetyStock)
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ============================================
// Stocks
// ============================================

type stockRepo struct {
	st       *state
	readOnly bool
}

func (r *stockRepo) FindByVariantAndLocation(_ context.Context, variantID, locationID string) (*stock.Stock, error) {
	s, ok := r.st.stocks[stock.Key{VariantID: variantID, LocationID: locationID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyStock(s), nil
}

func (r *stockRepo) FindByVariant(_ context.Context, variantID string) ([]*stock.Stock, error) {
	var out []*stock.Stock
	for k, s := range r.st.stocks {
		if k.VariantID == variantID {
			out = append(out, copyStock(s))
		}
	}
	sortStocks(out)
	return out, nil
}

func (r *stockRepo) Save(_ context.Context, s *stock.Stock) error {
	if r.readOnly {
		return errReadOnly
	}
	existing, ok := r.st.stocks[s.Key()]
	switch {
	case ok && existing.Version != s.Version:
		return store.ErrConcurrentUpdate
	case !ok && s.Version != 0:
		return store.ErrConcurrentUpdate
	}
	s.Version++
	r.st.stocks[s.Key()] = copyStock(s)
	return nil
}

func (r *stockRepo) FindLowStockItems(_ context.Context) ([]*stock.Stock, error) {
	var out []*stock.Stock
	for _, s := range r.st.stocks {
		if s.Level.IsLowStock() {
			out = append(out, copyStock(s))
		}
	}
	sortStocks(out)
	return out, nil
}

func (r *stockRepo) GetTotalAvailableStock(_ context.Context, variantID string) (int, error) {
	total := 0
	for k, s := range r.st.stocks {
		if k.VariantID == variantID {
			total += s.Available()
		}
	}
	return total, nil
}

func sortStocks(s []*stock.Stock) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].VariantID != s[j].VariantID {
			return s[i].VariantID < s[j].VariantID
		}
		return s[i].LocationID < s[j].LocationID
	})
}

// ============================================
// Ledger
// ============================================

type transactionRepo struct {
	st       *state
	readOnly bool
}

func (r *transactionRepo) Append(_ context.Context, tx *stock.Transaction) error {
	if r.readOnly {
		return errReadOnly
	}
	c := *tx
	r.st.transactions = append(r.st.transactions, &c)
	return nil
}

func (r *transactionRepo) FindByVariant(_ context.Context, variantID string, page store.Page) ([]*stock.Transaction, error) {
	return r.find(page, func(tx *stock.Transaction) bool {
		return tx.VariantID == variantID
	}), nil
}

func (r *transactionRepo) FindByVariantAndLocation(_ context.Context, variantID, locationID string, page store.Page) ([]*stock.Transaction, error) {
	return r.find(page, func(tx *stock.Transaction) bool {
		return tx.VariantID == variantID && tx.LocationID == locationID
	}), nil
}

// find walks the ledger newest first.
func (r *transactionRepo) find(page store.Page, match func(*stock.Transaction) bool) []*stock.Transaction {
	page = page.Normalize()
	out := make([]*stock.Transaction, 0)
	skipped := 0
	for i := len(r.st.transactions) - 1; i >= 0 && len(out) < page.Limit; i-- {
		tx := r.st.transactions[i]
		if !match(tx) {
			continue
		}
		if skipped < page.Offset {
			skipped++
			continue
		}
		c := *tx
		out = append(out, &c)
	}
	return out
}

// ============================================
// Reservations
// ============================================

type reservationRepo struct {
	st       *state
	readOnly bool
}

func (r *reservationRepo) Save(_ context.Context, res *reservation.Reservation) error {
	if r.readOnly {
		return errReadOnly
	}
	c := *res
	r.st.reservations[res.ID] = &c
	return nil
}

func (r *reservationRepo) FindByID(_ context.Context, id string) (*reservation.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *res
	return &c, nil
}

func (r *reservationRepo) FindByOrder(_ context.Context, orderID string) ([]*reservation.Reservation, error) {
	return r.filter(func(res *reservation.Reservation) bool { return res.OrderID == orderID }, 0), nil
}

func (r *reservationRepo) FindActiveReservations(_ context.Context, now time.Time) ([]*reservation.Reservation, error) {
	return r.filter(func(res *reservation.Reservation) bool { return res.IsActive(now) }, 0), nil
}

func (r *reservationRepo) FindLapsedReservations(_ context.Context, now time.Time, limit int) ([]*reservation.Reservation, error) {
	return r.filter(func(res *reservation.Reservation) bool {
		return res.Status == reservation.StatusActive && res.IsExpired(now)
	}, limit), nil
}

func (r *reservationRepo) filter(match func(*reservation.Reservation) bool, limit int) []*reservation.Reservation {
	var out []*reservation.Reservation
	for _, res := range r.st.reservations {
		if match(res) {
			c := *res
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ============================================
// Purchase orders
// ============================================

type orderRepo struct {
	st       *state
	readOnly bool
}

func (r *orderRepo) Save(_ context.Context, po *purchaseorder.PurchaseOrder) error {
	if r.readOnly {
		return errReadOnly
	}
	c := *po
	r.st.orders[po.ID] = &c
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, id string) (*purchaseorder.PurchaseOrder, error) {
	po, ok := r.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *po
	return &c, nil
}

func (r *orderRepo) Delete(_ context.Context, id string) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.st.orders, id)
	return nil
}

type itemRepo struct {
	st       *state
	readOnly bool
}

func (r *itemRepo) Save(_ context.Context, it *purchaseorder.Item) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.itemSeq[it.ID]; !ok {
		r.st.nextItemSeq++
		r.st.itemSeq[it.ID] = r.st.nextItemSeq
	}
	c := *it
	r.st.items[it.ID] = &c
	return nil
}

func (r *itemRepo) FindByID(_ context.Context, id string) (*purchaseorder.Item, error) {
	it, ok := r.st.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *it
	return &c, nil
}

func (r *itemRepo) FindByPOAndVariant(_ context.Context, purchaseOrderID, variantID string) (*purchaseorder.Item, error) {
	for _, it := range r.st.items {
		if it.PurchaseOrderID == purchaseOrderID && it.VariantID == variantID {
			c := *it
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

// FindByPurchaseOrder returns the items in insertion order.
func (r *itemRepo) FindByPurchaseOrder(_ context.Context, purchaseOrderID string) ([]*purchaseorder.Item, error) {
	var out []*purchaseorder.Item
	for _, it := range r.st.items {
		if it.PurchaseOrderID == purchaseOrderID {
			c := *it
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.st.itemSeq[out[i].ID] < r.st.itemSeq[out[j].ID]
	})
	return out, nil
}

func (r *itemRepo) Delete(_ context.Context, id string) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.st.items, id)
	delete(r.st.itemSeq, id)
	return nil
}

func (r *itemRepo) DeleteByPurchaseOrder(_ context.Context, purchaseOrderID string) error {
	if r.readOnly {
		return errReadOnly
	}
	for id, it := range r.st.items {
		if it.PurchaseOrderID == purchaseOrderID {
			delete(r.st.items, id)
			delete(r.st.itemSeq, id)
		}
	}
	return nil
}

// ============================================
// Alerts
// ============================================

type alertRepo struct {
	st       *state
	readOnly bool
}

func (r *alertRepo) Save(_ context.Context, a *alert.Alert) error {
	if r.readOnly {
		return errReadOnly
	}
	c := *a
	r.st.alerts[a.ID] = &c
	return nil
}

func (r *alertRepo) FindByID(_ context.Context, id string) (*alert.Alert, error) {
	a, ok := r.st.alerts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r *alertRepo) HasActiveAlert(_ context.Context, variantID string, t alert.Type) (bool, error) {
	for _, a := range r.st.alerts {
		if a.VariantID == variantID && a.Type == t && a.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r *alertRepo) FindActiveAlertsByVariant(_ context.Context, variantID string) ([]*alert.Alert, error) {
	return r.active(func(a *alert.Alert) bool { return a.VariantID == variantID }), nil
}

func (r *alertRepo) FindActiveAlerts(_ context.Context) ([]*alert.Alert, error) {
	return r.active(func(*alert.Alert) bool { return true }), nil
}

func (r *alertRepo) active(match func(*alert.Alert) bool) []*alert.Alert {
	var out []*alert.Alert
	for _, a := range r.st.alerts {
		if a.IsActive() && match(a) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TriggeredAt.Equal(out[j].TriggeredAt) {
			return out[i].TriggeredAt.Before(out[j].TriggeredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
