package command

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/reservation"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

// CreateReservation holds stock for an order at one location.
func (h *Handler) CreateReservation(ctx context.Context, cmd CreateReservation) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := h.execute(ctx, "CreateReservation", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		expiresAt := u.now.Add(h.defaultHold)
		if cmd.ExpiresAt != nil {
			expiresAt = cmd.ExpiresAt.UTC()
		}

		// 1. Build the hold first so bad input never touches stock
		r, err := reservation.New(h.ids.NewID(), cmd.OrderID, cmd.VariantID, cmd.LocationID, cmd.Qty, expiresAt, u.now)
		if err != nil {
			return err
		}
		u.annotate(zap.String("reservation_id", r.ID), zap.String("order_id", r.OrderID))

		// 2. Reserve the units (emits StockReserved)
		if _, err := u.reserve(ctx, cmd.VariantID, cmd.LocationID, cmd.Qty); err != nil {
			return err
		}

		// 3. Persist the hold (emits ReservationCreated)
		if err := u.tx.Reservations().Save(ctx, r); err != nil {
			return err
		}
		if err := u.record(r.ID, reservation.AggregateType, reservation.EventReservationCreated, reservation.ReservationCreated{
			ReservationID: r.ID,
			OrderID:       r.OrderID,
			VariantID:     r.VariantID,
			LocationID:    r.LocationID,
			Qty:           r.Qty,
			ExpiresAt:     r.ExpiresAt,
			CreatedAt:     r.CreatedAt,
		}); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelReservation cancels an active hold and releases its units.
func (h *Handler) CancelReservation(ctx context.Context, cmd CancelReservation) (*reservation.Reservation, error) {
	return h.onReservation(ctx, "CancelReservation", cmd, cmd.ReservationID, func(ctx context.Context, u *unit, r *reservation.Reservation) (*reservation.Reservation, error) {
		cancelled, err := r.Cancel(u.now)
		if err != nil {
			return nil, err
		}
		if _, err := u.release(ctx, r.VariantID, r.LocationID, r.Qty); err != nil {
			return nil, err
		}
		return cancelled, u.record(r.ID, reservation.AggregateType, reservation.EventReservationCancelled, reservation.ReservationCancelled{
			ReservationID: r.ID,
			OrderID:       r.OrderID,
			ReleasedQty:   r.Qty,
			CancelledAt:   u.now,
		})
	})
}

func (h *Handler) ExtendReservation(ctx context.Context, cmd ExtendReservation) (*reservation.Reservation, error) {
	return h.onReservation(ctx, "ExtendReservation", cmd, cmd.ReservationID, func(ctx context.Context, u *unit, r *reservation.Reservation) (*reservation.Reservation, error) {
		extended, err := r.Extend(cmd.ExpiresAt.UTC(), u.now)
		if err != nil {
			return nil, err
		}
		return extended, u.record(r.ID, reservation.AggregateType, reservation.EventReservationExtended, reservation.ReservationExtended{
			ReservationID: r.ID,
			OldExpiresAt:  r.ExpiresAt,
			NewExpiresAt:  extended.ExpiresAt,
		})
	})
}

// FulfillReservation ships the held units against the order.
func (h *Handler) FulfillReservation(ctx context.Context, cmd FulfillReservation) (*reservation.Reservation, error) {
	return h.onReservation(ctx, "FulfillReservation", cmd, cmd.ReservationID, func(ctx context.Context, u *unit, r *reservation.Reservation) (*reservation.Reservation, error) {
		fulfilled, err := r.Fulfill(u.now)
		if err != nil {
			return nil, err
		}
		orderID := r.OrderID
		if _, _, err := u.fulfill(ctx, r.VariantID, r.LocationID, r.Qty, &orderID); err != nil {
			return nil, err
		}
		return fulfilled, u.record(r.ID, reservation.AggregateType, reservation.EventReservationFulfilled, reservation.ReservationFulfilled{
			ReservationID: r.ID,
			OrderID:       r.OrderID,
			Qty:           r.Qty,
			FulfilledAt:   u.now,
		})
	})
}

// ExpireReservation expires a hold now. An active hold is forced; a hold
// whose time already ran out is settled. Either way its units are released.
func (h *Handler) ExpireReservation(ctx context.Context, cmd ExpireReservation) (*reservation.Reservation, error) {
	return h.expire(ctx, "ExpireReservation", cmd, cmd.ReservationID, false)
}

// SettleExpiredReservations settles up to Limit lapsed holds, each in its
// own unit of work. A hold another writer settled meanwhile is skipped.
func (h *Handler) SettleExpiredReservations(ctx context.Context, cmd SettleExpiredReservations) ([]*reservation.Reservation, error) {
	if err := Validate(cmd); err != nil {
		return nil, err
	}
	limit := cmd.Limit
	if limit == 0 {
		limit = h.settleBatch
	}

	lapsed, err := h.store.Reservations().FindLapsedReservations(ctx, h.now(), limit)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list lapsed reservations")
	}

	settled := make([]*reservation.Reservation, 0, len(lapsed))
	for _, r := range lapsed {
		s, err := h.expire(ctx, "SettleExpiredReservation", nil, r.ID, true)
		if errors.Is(err, apperr.ErrInvalidTransition) {
			h.logger.Debug("reservation already settled", zap.String("reservation_id", r.ID))
			continue
		}
		if err != nil {
			return settled, err
		}
		settled = append(settled, s)
	}
	if len(settled) > 0 {
		h.logger.Info("settled expired reservations", zap.Int("count", len(settled)))
	}
	return settled, nil
}

func (h *Handler) expire(ctx context.Context, name string, cmd any, id string, lapsedOnly bool) (*reservation.Reservation, error) {
	return h.onReservation(ctx, name, cmd, id, func(ctx context.Context, u *unit, r *reservation.Reservation) (*reservation.Reservation, error) {
		var (
			expired *reservation.Reservation
			err     error
		)
		forced := r.IsActive(u.now)
		if forced && !lapsedOnly {
			expired, err = r.MarkExpired(u.now)
		} else {
			expired, err = r.SettleExpired(u.now)
		}
		if err != nil {
			return nil, err
		}
		if r.HoldsStock() {
			if _, err := u.release(ctx, r.VariantID, r.LocationID, r.Qty); err != nil {
				return nil, err
			}
		}
		return expired, u.record(r.ID, reservation.AggregateType, reservation.EventReservationExpired, reservation.ReservationExpired{
			ReservationID: r.ID,
			OrderID:       r.OrderID,
			ReleasedQty:   r.Qty,
			Forced:        forced && !lapsedOnly,
			ExpiredAt:     u.now,
		})
	})
}

// onReservation locks the stock of reservation id, reloads it inside the
// unit of work and saves what fn returns.
func (h *Handler) onReservation(
	ctx context.Context,
	name string,
	cmd any,
	id string,
	fn func(ctx context.Context, u *unit, r *reservation.Reservation) (*reservation.Reservation, error),
) (*reservation.Reservation, error) {
	// The stock key comes from the stored reservation; the row is read
	// again once the lock is held.
	keys := func(ctx context.Context) ([]string, error) {
		current, err := h.store.Reservations().FindByID(ctx, id)
		if err != nil {
			return nil, reservationNotFound(err, id)
		}
		return stockKeys(current.VariantID), nil
	}

	var out *reservation.Reservation
	err := h.run(ctx, name, cmd, keys, func(ctx context.Context, u *unit) error {
		r, err := u.tx.Reservations().FindByID(ctx, id)
		if err != nil {
			return reservationNotFound(err, id)
		}
		u.annotate(zap.String("reservation_id", r.ID), zap.String("order_id", r.OrderID))
		next, err := fn(ctx, u, r)
		if err != nil {
			return err
		}
		if err := u.tx.Reservations().Save(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func reservationNotFound(err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("reservation %s not found", id)
	}
	return err
}
