package reservation

import (
	"time"

	"github.com/example/stock-ledger/internal/domain/apperr"
)

const AggregateType = "Reservation"

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusFulfilled Status = "fulfilled"
	StatusExpired   Status = "expired"
)

var (
	ErrInvalidQuantity = apperr.Validation("reservation quantity must be positive")
	ErrExpiryInPast    = apperr.Validation("expires_at must be in the future")
	ErrNotExtended     = apperr.Validation("new expiry must be later than the current expiry")
)

// validTransitions defines allowed state transitions. Time based expiry is
// derived on read and never stored unless settled.
var validTransitions = map[Status][]Status{
	StatusActive:    {StatusCancelled, StatusFulfilled, StatusExpired},
	StatusCancelled: {},
	StatusFulfilled: {},
	StatusExpired:   {},
}

// Reservation holds Qty units of a (variant, location) pair for an order
// until ExpiresAt.
type Reservation struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	VariantID  string    `json:"variant_id"`
	LocationID string    `json:"location_id"`
	Qty        int       `json:"qty"`
	ExpiresAt  time.Time `json:"expires_at"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func New(id, orderID, variantID, locationID string, qty int, expiresAt, now time.Time) (*Reservation, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !expiresAt.After(now) {
		return nil, ErrExpiryInPast
	}
	return &Reservation{
		ID:         id,
		OrderID:    orderID,
		VariantID:  variantID,
		LocationID: locationID,
		Qty:        qty,
		ExpiresAt:  expiresAt,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsExpired reports whether the hold is expired, either settled or because
// the wall clock passed ExpiresAt while still active.
func (r *Reservation) IsExpired(now time.Time) bool {
	if r.Status == StatusExpired {
		return true
	}
	return r.Status == StatusActive && now.After(r.ExpiresAt)
}

func (r *Reservation) IsActive(now time.Time) bool {
	return r.Status == StatusActive && !r.IsExpired(now)
}

// EffectiveStatus is the status a reader should see at now.
func (r *Reservation) EffectiveStatus(now time.Time) Status {
	if r.IsExpired(now) {
		return StatusExpired
	}
	return r.Status
}

// HoldsStock reports whether the reserved units are still counted on the
// stock record. Lazily expired holds keep their units until settled.
func (r *Reservation) HoldsStock() bool {
	return r.Status == StatusActive
}

// CanTransitionTo checks the stored status graph.
func (r *Reservation) CanTransitionTo(target Status) bool {
	for _, s := range validTransitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}

func (r *Reservation) transitionError(target Status, now time.Time) error {
	return apperr.InvalidTransition("reservation %s is %s, cannot become %s", r.ID, r.EffectiveStatus(now), target)
}

func (r *Reservation) requireActive(target Status, now time.Time) error {
	if !r.CanTransitionTo(target) || !r.IsActive(now) {
		return r.transitionError(target, now)
	}
	return nil
}

func (r *Reservation) with(status Status, now time.Time) *Reservation {
	next := *r
	next.Status = status
	next.UpdatedAt = now
	return &next
}

// Cancel marks the hold cancelled. The caller releases the stock in the
// same unit of work.
func (r *Reservation) Cancel(now time.Time) (*Reservation, error) {
	if err := r.requireActive(StatusCancelled, now); err != nil {
		return nil, err
	}
	return r.with(StatusCancelled, now), nil
}

func (r *Reservation) Extend(newExpiresAt, now time.Time) (*Reservation, error) {
	if !r.IsActive(now) {
		return nil, apperr.InvalidTransition("reservation %s is %s and cannot be extended", r.ID, r.EffectiveStatus(now))
	}
	if !newExpiresAt.After(r.ExpiresAt) {
		return nil, ErrNotExtended
	}
	next := *r
	next.ExpiresAt = newExpiresAt
	next.UpdatedAt = now
	return &next, nil
}

func (r *Reservation) Fulfill(now time.Time) (*Reservation, error) {
	if err := r.requireActive(StatusFulfilled, now); err != nil {
		return nil, err
	}
	return r.with(StatusFulfilled, now), nil
}

// MarkExpired forces expiry regardless of the wall clock.
func (r *Reservation) MarkExpired(now time.Time) (*Reservation, error) {
	if err := r.requireActive(StatusExpired, now); err != nil {
		return nil, err
	}
	return r.with(StatusExpired, now), nil
}

// SettleExpired persists the derived expiry of a hold whose time ran out.
func (r *Reservation) SettleExpired(now time.Time) (*Reservation, error) {
	if r.Status != StatusActive || !r.IsExpired(now) {
		return nil, apperr.InvalidTransition("reservation %s is %s, only lapsed active holds can be settled", r.ID, r.EffectiveStatus(now))
	}
	return r.with(StatusExpired, now), nil
}
