package stock

import (
	"time"
)

const AggregateType = "Stock"

// Key is the composite identity of a stock record.
type Key struct {
	VariantID  string
	LocationID string
}

func (k Key) String() string {
	return k.VariantID + "@" + k.LocationID
}

// Stock binds a (variant, location) pair to its Level. Mutators return a new
// Stock; on hand changes also return the ledger row that must be appended in
// the same unit of work.
type Stock struct {
	VariantID  string    `json:"variant_id"`
	LocationID string    `json:"location_id"`
	Level      Level     `json:"level"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Stock) Key() Key {
	return Key{VariantID: s.VariantID, LocationID: s.LocationID}
}

func (s *Stock) Available() int {
	return s.Level.Available()
}

// Open creates the stock record for a pair on its first addition.
func Open(variantID, locationID string, qty int, e Entry) (*Stock, *Transaction, error) {
	empty := &Stock{
		VariantID:  variantID,
		LocationID: locationID,
		CreatedAt:  e.At,
		UpdatedAt:  e.At,
	}
	return empty.AddStock(qty, e)
}

func (s *Stock) AddStock(qty int, e Entry) (*Stock, *Transaction, error) {
	level, err := s.Level.AddStock(qty)
	if err != nil {
		return nil, nil, err
	}
	return s.withLedger(level, qty, e)
}

func (s *Stock) RemoveStock(qty int, e Entry) (*Stock, *Transaction, error) {
	level, err := s.Level.RemoveStock(qty)
	if err != nil {
		return nil, nil, err
	}
	return s.withLedger(level, -qty, e)
}

// Adjust routes a signed delta to AddStock or RemoveStock.
func (s *Stock) Adjust(delta int, e Entry) (*Stock, *Transaction, error) {
	switch {
	case delta > 0:
		return s.AddStock(delta, e)
	case delta < 0:
		return s.RemoveStock(-delta, e)
	default:
		return nil, nil, ErrInvalidQuantity
	}
}

// FulfillReservation consumes reserved units and records the outbound row.
func (s *Stock) FulfillReservation(qty int, e Entry) (*Stock, *Transaction, error) {
	level, err := s.Level.FulfillReservation(qty)
	if err != nil {
		return nil, nil, err
	}
	return s.withLedger(level, -qty, e)
}

// ReserveStock holds units for an order. On hand is unchanged, so there is
// no ledger row.
func (s *Stock) ReserveStock(qty int, at time.Time) (*Stock, error) {
	level, err := s.Level.ReserveStock(qty)
	if err != nil {
		return nil, err
	}
	return s.with(level, at), nil
}

func (s *Stock) ReleaseReservation(qty int, at time.Time) (*Stock, error) {
	level, err := s.Level.ReleaseReservation(qty)
	if err != nil {
		return nil, err
	}
	return s.with(level, at), nil
}

func (s *Stock) SetThresholds(low, safety ThresholdUpdate, at time.Time) (*Stock, error) {
	level, err := s.Level.UpdateThresholds(low, safety)
	if err != nil {
		return nil, err
	}
	return s.with(level, at), nil
}

func (s *Stock) with(level Level, at time.Time) *Stock {
	next := *s
	next.Level = level
	next.UpdatedAt = at
	return &next
}

func (s *Stock) withLedger(level Level, delta int, e Entry) (*Stock, *Transaction, error) {
	tx, err := newTransaction(s.VariantID, s.LocationID, delta, e)
	if err != nil {
		return nil, nil, err
	}
	return s.with(level, e.At), tx, nil
}
