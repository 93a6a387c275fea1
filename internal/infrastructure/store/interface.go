package store

import (
	"context"
	"time"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/purchaseorder"
	"github.com/example/stock-ledger/internal/domain/reservation"
	"github.com/example/stock-ledger/internal/domain/stock"
)

var (
	// ErrNotFound is returned by every Find/Delete that misses.
	ErrNotFound = apperr.NotFound("record not found")
	// ErrConcurrentUpdate is returned when a stock row changed since it was read.
	ErrConcurrentUpdate = apperr.Conflict("stock record was modified concurrently")
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum limit.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// StockStore persists stock records. Save performs the optimistic version
// check and bumps s.Version on success.
type StockStore interface {
	FindByVariantAndLocation(ctx context.Context, variantID, locationID string) (*stock.Stock, error)
	FindByVariant(ctx context.Context, variantID string) ([]*stock.Stock, error)
	Save(ctx context.Context, s *stock.Stock) error
	FindLowStockItems(ctx context.Context) ([]*stock.Stock, error)
	GetTotalAvailableStock(ctx context.Context, variantID string) (int, error)
}

// TransactionStore is the append-only ledger. Finds return newest first.
type TransactionStore interface {
	Append(ctx context.Context, tx *stock.Transaction) error
	FindByVariant(ctx context.Context, variantID string, page Page) ([]*stock.Transaction, error)
	FindByVariantAndLocation(ctx context.Context, variantID, locationID string, page Page) ([]*stock.Transaction, error)
}

type ReservationStore interface {
	Save(ctx context.Context, r *reservation.Reservation) error
	FindByID(ctx context.Context, id string) (*reservation.Reservation, error)
	FindByOrder(ctx context.Context, orderID string) ([]*reservation.Reservation, error)
	// FindActiveReservations returns holds that are active at now.
	FindActiveReservations(ctx context.Context, now time.Time) ([]*reservation.Reservation, error)
	// FindLapsedReservations returns holds still stored active whose expiry passed.
	FindLapsedReservations(ctx context.Context, now time.Time, limit int) ([]*reservation.Reservation, error)
}

type PurchaseOrderStore interface {
	Save(ctx context.Context, po *purchaseorder.PurchaseOrder) error
	FindByID(ctx context.Context, id string) (*purchaseorder.PurchaseOrder, error)
	Delete(ctx context.Context, id string) error
}

type PurchaseOrderItemStore interface {
	Save(ctx context.Context, it *purchaseorder.Item) error
	FindByID(ctx context.Context, id string) (*purchaseorder.Item, error)
	FindByPOAndVariant(ctx context.Context, purchaseOrderID, variantID string) (*purchaseorder.Item, error)
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*purchaseorder.Item, error)
	Delete(ctx context.Context, id string) error
	DeleteByPurchaseOrder(ctx context.Context, purchaseOrderID string) error
}

type AlertStore interface {
	Save(ctx context.Context, a *alert.Alert) error
	FindByID(ctx context.Context, id string) (*alert.Alert, error)
	HasActiveAlert(ctx context.Context, variantID string, t alert.Type) (bool, error)
	FindActiveAlertsByVariant(ctx context.Context, variantID string) ([]*alert.Alert, error)
	FindActiveAlerts(ctx context.Context) ([]*alert.Alert, error)
}

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Stocks() StockStore
	Transactions() TransactionStore
	Reservations() ReservationStore
	PurchaseOrders() PurchaseOrderStore
	PurchaseOrderItems() PurchaseOrderItemStore
	Alerts() AlertStore
}

// Store reads outside of a unit of work through its embedded Tx and writes
// through WithinTx. If fn returns an error nothing it wrote is kept.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type IDGenerator interface {
	NewID() string
}
