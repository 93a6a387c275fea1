// Package memory is the in-process Store used by tests and the memory
// driver. Every unit of work runs against a private copy of the state that
// replaces the shared one only when the unit of work succeeds.
package memory

import (
	"context"
	"sync"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/purchaseorder"
	"github.com/example/stock-ledger/internal/domain/reservation"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

type state struct {
	stocks       map[stock.Key]*stock.Stock
	transactions []*stock.Transaction
	reservations map[string]*reservation.Reservation
	orders       map[string]*purchaseorder.PurchaseOrder
	items        map[string]*purchaseorder.Item
	itemSeq      map[string]int
	nextItemSeq  int
	alerts       map[string]*alert.Alert
}

func newState() *state {
	return &state{
		stocks:       make(map[stock.Key]*stock.Stock),
		reservations: make(map[string]*reservation.Reservation),
		orders:       make(map[string]*purchaseorder.PurchaseOrder),
		items:        make(map[string]*purchaseorder.Item),
		itemSeq:      make(map[string]int),
		alerts:       make(map[string]*alert.Alert),
	}
}

// clone copies the maps. Stored values are never mutated in place, so the
// pointers can be shared between snapshots.
func (s *state) clone() *state {
	c := &state{
		stocks:       make(map[stock.Key]*stock.Stock, len(s.stocks)),
		transactions: append([]*stock.Transaction(nil), s.transactions...),
		reservations: make(map[string]*reservation.Reservation, len(s.reservations)),
		orders:       make(map[string]*purchaseorder.PurchaseOrder, len(s.orders)),
		items:        make(map[string]*purchaseorder.Item, len(s.items)),
		itemSeq:      make(map[string]int, len(s.itemSeq)),
		nextItemSeq:  s.nextItemSeq,
		alerts:       make(map[string]*alert.Alert, len(s.alerts)),
	}
	for k, v := range s.stocks {
		c.stocks[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.itemSeq {
		c.itemSeq[k] = v
	}
	for k, v := range s.alerts {
		c.alerts[k] = v
	}
	return c
}

// Store is safe for concurrent use. Units of work are serialized.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	current *state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{current: newState()}
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.snapshot().clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = work
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Stocks() store.StockStore {
	return &stockRepo{st: s.snapshot(), readOnly: true}
}

func (s *Store) Transactions() store.TransactionStore {
	return &transactionRepo{st: s.snapshot(), readOnly: true}
}

func (s *Store) Reservations() store.ReservationStore {
	return &reservationRepo{st: s.snapshot(), readOnly: true}
}

func (s *Store) PurchaseOrders() store.PurchaseOrderStore {
	return &orderRepo{st: s.snapshot(), readOnly: true}
}

func (s *Store) PurchaseOrderItems() store.PurchaseOrderItemStore {
	return &itemRepo{st: s.snapshot(), readOnly: true}
}

func (s *Store) Alerts() store.AlertStore {
	return &alertRepo{st: s.snapshot(), readOnly: true}
}

type tx struct {
	st *state
}

func (t *tx) Stocks() store.StockStore                         { return &stockRepo{st: t.st} }
func (t *tx) Transactions() store.TransactionStore             { return &transactionRepo{st: t.st} }
func (t *tx) Reservations() store.ReservationStore             { return &reservationRepo{st: t.st} }
func (t *tx) PurchaseOrders() store.PurchaseOrderStore         { return &orderRepo{st: t.st} }
func (t *tx) PurchaseOrderItems() store.PurchaseOrderItemStore { return &itemRepo{st: t.st} }
func (t *tx) Alerts() store.AlertStore                         { return &alertRepo{st: t.st} }
