package mocks

import (
	"context"
	"sync"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/purchaseorder"
	"github.com/example/stock-ledger/internal/domain/reservation"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

// Write operations that FailingStore can break.
const (
	OpStockSave       = "stocks.save"
	OpTransactionAdd  = "transactions.append"
	OpReservationSave = "reservations.save"
	OpOrderSave       = "purchase_orders.save"
	OpItemSave        = "purchase_order_items.save"
	OpAlertSave       = "alerts.save"
)

// FailingStore wraps a Store and fails chosen write operations inside units
// of work.
type FailingStore struct {
	store.Store

	mu     sync.Mutex
	fail   map[string]failure
	counts map[string]int
}

type failure struct {
	err   error
	after int
}

func NewFailingStore(inner store.Store) *FailingStore {
	return &FailingStore{
		Store:  inner,
		fail:   make(map[string]failure),
		counts: make(map[string]int),
	}
}

// FailOn makes op return err after `after` successful calls.
func (f *FailingStore) FailOn(op string, err error, after int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = failure{err: err, after: after}
}

func (f *FailingStore) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.fail[op]
	if !ok {
		return nil
	}
	f.counts[op]++
	if f.counts[op] > fl.after {
		return fl.err
	}
	return nil
}

func (f *FailingStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.WithinTx(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx, f: f})
	})
}

type failingTx struct {
	store.Tx
	f *FailingStore
}

func (t *failingTx) Stocks() store.StockStore {
	return &failingStocks{StockStore: t.Tx.Stocks(), f: t.f}
}

func (t *failingTx) Transactions() store.TransactionStore {
	return &failingTransactions{TransactionStore: t.Tx.Transactions(), f: t.f}
}

func (t *failingTx) Reservations() store.ReservationStore {
	return &failingReservations{ReservationStore: t.Tx.Reservations(), f: t.f}
}

func (t *failingTx) PurchaseOrders() store.PurchaseOrderStore {
	return &failingOrders{PurchaseOrderStore: t.Tx.PurchaseOrders(), f: t.f}
}

func (t *failingTx) PurchaseOrderItems() store.PurchaseOrderItemStore {
	return &failingItems{PurchaseOrderItemStore: t.Tx.PurchaseOrderItems(), f: t.f}
}

func (t *failingTx) Alerts() store.AlertStore {
	return &failingAlerts{AlertStore: t.Tx.Alerts(), f: t.f}
}

type failingStocks struct {
	store.StockStore
	f *FailingStore
}

func (s *failingStocks) Save(ctx context.Context, st *stock.Stock) error {
	if err := s.f.check(OpStockSave); err != nil {
		return err
	}
	return s.StockStore.Save(ctx, st)
}

type failingTransactions struct {
	store.TransactionStore
	f *FailingStore
}

func (s *failingTransactions) Append(ctx context.Context, tx *stock.Transaction) error {
	if err := s.f.check(OpTransactionAdd); err != nil {
		return err
	}
	return s.TransactionStore.Append(ctx, tx)
}

type failingReservations struct {
	store.ReservationStore
	f *FailingStore
}

func (s *failingReservations) Save(ctx context.Context, r *reservation.Reservation) error {
	if err := s.f.check(OpReservationSave); err != nil {
		return err
	}
	return s.ReservationStore.Save(ctx, r)
}

type failingOrders struct {
	store.PurchaseOrderStore
	f *FailingStore
}

func (s *failingOrders) Save(ctx context.Context, po *purchaseorder.PurchaseOrder) error {
	if err := s.f.check(OpOrderSave); err != nil {
		return err
	}
	return s.PurchaseOrderStore.Save(ctx, po)
}

type failingItems struct {
	store.PurchaseOrderItemStore
	f *FailingStore
}

func (s *failingItems) Save(ctx context.Context, it *purchaseorder.Item) error {
	if err := s.f.check(OpItemSave); err != nil {
		return err
	}
	return s.PurchaseOrderItemStore.Save(ctx, it)
}

type failingAlerts struct {
	store.AlertStore
	f *FailingStore
}

func (s *failingAlerts) Save(ctx context.Context, a *alert.Alert) error {
	if err := s.f.check(OpAlertSave); err != nil {
		return err
	}
	return s.AlertStore.Save(ctx, a)
}
