package stock

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/example/stock-ledger/internal/domain/apperr"
)

var (
	ErrInvalidQuantity  = apperr.Validation("quantity must be positive")
	ErrInvalidThreshold = apperr.Validation("threshold must not be negative")
)

// Level is the quantity state of one stock record. It is a value: every
// mutator returns a new Level and leaves the receiver untouched.
type Level struct {
	OnHand            int  `json:"on_hand"`
	Reserved          int  `json:"reserved"`
	LowStockThreshold *int `json:"low_stock_threshold,omitempty"`
	SafetyStock       *int `json:"safety_stock,omitempty"`
}

// NewLevel validates the invariants 0 <= reserved <= onHand and
// non-negative thresholds.
func NewLevel(onHand, reserved int, lowStockThreshold, safetyStock *int) (Level, error) {
	if onHand < 0 || reserved < 0 {
		return Level{}, apperr.InvariantViolation("quantities must not be negative: on_hand %d, reserved %d", onHand, reserved)
	}
	if reserved > onHand {
		return Level{}, apperr.InvariantViolation("reserved %d exceeds on hand %d", reserved, onHand)
	}
	if (lowStockThreshold != nil && *lowStockThreshold < 0) || (safetyStock != nil && *safetyStock < 0) {
		return Level{}, ErrInvalidThreshold
	}
	return Level{
		OnHand:            onHand,
		Reserved:          reserved,
		LowStockThreshold: copyInt(lowStockThreshold),
		SafetyStock:       copyInt(safetyStock),
	}, nil
}

func (l Level) Available() int {
	return l.OnHand - l.Reserved
}

func (l Level) AddStock(qty int) (Level, error) {
	if qty <= 0 {
		return l, ErrInvalidQuantity
	}
	next := l.clone()
	next.OnHand += qty
	return next, nil
}

// RemoveStock takes qty off the shelf. It never drops on hand below what is
// already reserved; reservations have to be released first.
func (l Level) RemoveStock(qty int) (Level, error) {
	if qty <= 0 {
		return l, ErrInvalidQuantity
	}
	if qty > l.OnHand {
		return l, apperr.InsufficientStock("insufficient stock: on hand %d, requested %d", l.OnHand, qty)
	}
	if l.OnHand-qty < l.Reserved {
		return l, apperr.InvariantViolation("removing %d would leave on hand %d below reserved %d; release reservations first",
			qty, l.OnHand-qty, l.Reserved)
	}
	next := l.clone()
	next.OnHand -= qty
	return next, nil
}

func (l Level) ReserveStock(qty int) (Level, error) {
	if qty <= 0 {
		return l, ErrInvalidQuantity
	}
	if qty > l.Available() {
		return l, apperr.InsufficientStock("insufficient stock: available %d, requested %d", l.Available(), qty)
	}
	next := l.clone()
	next.Reserved += qty
	return next, nil
}

// ReleaseReservation returns reserved units to available without touching
// on hand.
func (l Level) ReleaseReservation(qty int) (Level, error) {
	if qty <= 0 {
		return l, ErrInvalidQuantity
	}
	if qty > l.Reserved {
		return l, apperr.InvariantViolation("cannot release %d: only %d reserved", qty, l.Reserved)
	}
	next := l.clone()
	next.Reserved -= qty
	return next, nil
}

// FulfillReservation consumes reserved units permanently.
func (l Level) FulfillReservation(qty int) (Level, error) {
	if qty <= 0 {
		return l, ErrInvalidQuantity
	}
	if qty > l.Reserved {
		return l, apperr.InvariantViolation("cannot fulfill %d: only %d reserved", qty, l.Reserved)
	}
	next := l.clone()
	next.OnHand -= qty
	next.Reserved -= qty
	return next, nil
}

func (l Level) IsLowStock() bool {
	return l.LowStockThreshold != nil && l.Available() <= *l.LowStockThreshold
}

func (l Level) IsOutOfStock() bool {
	return l.Available() <= 0
}

// UpdateThresholds applies both updates; a Keep update preserves the current
// value and a Clear update removes it.
func (l Level) UpdateThresholds(low, safety ThresholdUpdate) (Level, error) {
	if err := low.validate(); err != nil {
		return l, err
	}
	if err := safety.validate(); err != nil {
		return l, err
	}
	next := l.clone()
	next.LowStockThreshold = low.apply(l.LowStockThreshold)
	next.SafetyStock = safety.apply(l.SafetyStock)
	return next, nil
}

func (l Level) clone() Level {
	return Level{
		OnHand:            l.OnHand,
		Reserved:          l.Reserved,
		LowStockThreshold: copyInt(l.LowStockThreshold),
		SafetyStock:       copyInt(l.SafetyStock),
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ThresholdAction selects what a ThresholdUpdate does.
type ThresholdAction int

const (
	ThresholdKeep ThresholdAction = iota
	ThresholdClear
	ThresholdSet
)

// ThresholdUpdate is a tri-state threshold argument: keep, clear or set.
// In JSON an absent field keeps, null clears and a number sets.
type ThresholdUpdate struct {
	Action ThresholdAction
	Value  int
}

func KeepThreshold() ThresholdUpdate     { return ThresholdUpdate{Action: ThresholdKeep} }
func ClearThreshold() ThresholdUpdate    { return ThresholdUpdate{Action: ThresholdClear} }
func SetThreshold(v int) ThresholdUpdate { return ThresholdUpdate{Action: ThresholdSet, Value: v} }

func (u ThresholdUpdate) IsKeep() bool { return u.Action == ThresholdKeep }

func (u ThresholdUpdate) validate() error {
	if u.Action == ThresholdSet && u.Value < 0 {
		return ErrInvalidThreshold
	}
	return nil
}

func (u ThresholdUpdate) apply(current *int) *int {
	switch u.Action {
	case ThresholdClear:
		return nil
	case ThresholdSet:
		v := u.Value
		return &v
	default:
		return copyInt(current)
	}
}

func (u *ThresholdUpdate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*u = ClearThreshold()
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("threshold must be an integer or null: %w", err)
	}
	*u = SetThreshold(v)
	return nil
}
