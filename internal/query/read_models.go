package query

import (
	"time"

	"github.com/example/stock-ledger/internal/domain/reservation"
	"github.com/example/stock-ledger/internal/domain/stock"
)

// StockReadModel is a stock record with its derived quantities.
type StockReadModel struct {
	VariantID         string    `json:"variant_id"`
	LocationID        string    `json:"location_id"`
	OnHand            int       `json:"on_hand"`
	Reserved          int       `json:"reserved"`
	Available         int       `json:"available"`
	LowStockThreshold *int      `json:"low_stock_threshold"`
	SafetyStock       *int      `json:"safety_stock"`
	IsLowStock        bool      `json:"is_low_stock"`
	IsOutOfStock      bool      `json:"is_out_of_stock"`
	Version           int       `json:"version"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newStockReadModel(s *stock.Stock) *StockReadModel {
	return &StockReadModel{
		VariantID:         s.VariantID,
		LocationID:        s.LocationID,
		OnHand:            s.Level.OnHand,
		Reserved:          s.Level.Reserved,
		Available:         s.Available(),
		LowStockThreshold: s.Level.LowStockThreshold,
		SafetyStock:       s.Level.SafetyStock,
		IsLowStock:        s.Level.IsLowStock(),
		IsOutOfStock:      s.Level.IsOutOfStock(),
		Version:           s.Version,
		UpdatedAt:         s.UpdatedAt,
	}
}

// AvailabilityReadModel is the variant wide availability.
type AvailabilityReadModel struct {
	VariantID      string `json:"variant_id"`
	TotalAvailable int    `json:"total_available"`
}

// ReservationReadModel reports the status a caller should act on: a hold
// whose time ran out reads as expired before it is settled.
type ReservationReadModel struct {
	ID           string             `json:"id"`
	OrderID      string             `json:"order_id"`
	VariantID    string             `json:"variant_id"`
	LocationID   string             `json:"location_id"`
	Qty          int                `json:"qty"`
	ExpiresAt    time.Time          `json:"expires_at"`
	Status       reservation.Status `json:"status"`
	StoredStatus reservation.Status `json:"stored_status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func newReservationReadModel(r *reservation.Reservation, now time.Time) *ReservationReadModel {
	return &ReservationReadModel{
		ID:           r.ID,
		OrderID:      r.OrderID,
		VariantID:    r.VariantID,
		LocationID:   r.LocationID,
		Qty:          r.Qty,
		ExpiresAt:    r.ExpiresAt,
		Status:       r.EffectiveStatus(now),
		StoredStatus: r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
