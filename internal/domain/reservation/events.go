package reservation

import "time"

const (
	EventReservationCreated   = "ReservationCreated"
	EventReservationCancelled = "ReservationCancelled"
	EventReservationExtended  = "ReservationExtended"
	EventReservationFulfilled = "ReservationFulfilled"
	EventReservationExpired   = "ReservationExpired"
)

type ReservationCreated struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	VariantID     string    `json:"variant_id"`
	LocationID    string    `json:"location_id"`
	Qty           int       `json:"qty"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReservationCancelled struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	ReleasedQty   int       `json:"released_qty"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

type ReservationExtended struct {
	ReservationID string    `json:"reservation_id"`
	OldExpiresAt  time.Time `json:"old_expires_at"`
	NewExpiresAt  time.Time `json:"new_expires_at"`
}

type ReservationFulfilled struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	Qty           int       `json:"qty"`
	FulfilledAt   time.Time `json:"fulfilled_at"`
}

type ReservationExpired struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	ReleasedQty   int       `json:"released_qty"`
	Forced        bool      `json:"forced"`
	ExpiredAt     time.Time `json:"expired_at"`
}
