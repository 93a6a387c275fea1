package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/stock-ledger/internal/command"
)

// Reservation Handlers

func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateReservation
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	res, err := h.cmdHandler.CreateReservation(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondReservation(w, r, http.StatusCreated, res.ID)
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	h.respondReservation(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

// ListReservations lists the holds of ?order_id=, or every active hold.
func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	if orderID := r.URL.Query().Get("order_id"); orderID != "" {
		rs, err := h.queryHandler.ListReservationsByOrder(r.Context(), orderID)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, rs)
		return
	}
	rs, err := h.queryHandler.ListActiveReservations(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rs)
}

func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.cmdHandler.CancelReservation(r.Context(), command.CancelReservation{ReservationID: id}); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondReservation(w, r, http.StatusOK, id)
}

func (h *Handlers) ExtendReservation(w http.ResponseWriter, r *http.Request) {
	var cmd command.ExtendReservation
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	cmd.ReservationID = chi.URLParam(r, "id")
	if _, err := h.cmdHandler.ExtendReservation(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondReservation(w, r, http.StatusOK, cmd.ReservationID)
}

func (h *Handlers) FulfillReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.cmdHandler.FulfillReservation(r.Context(), command.FulfillReservation{ReservationID: id}); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondReservation(w, r, http.StatusOK, id)
}

func (h *Handlers) ExpireReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.cmdHandler.ExpireReservation(r.Context(), command.ExpireReservation{ReservationID: id}); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondReservation(w, r, http.StatusOK, id)
}

// SettleExpiredReservations settles one batch of lapsed holds.
func (h *Handlers) SettleExpiredReservations(w http.ResponseWriter, r *http.Request) {
	var cmd command.SettleExpiredReservations
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	settled, err := h.cmdHandler.SettleExpiredReservations(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ids := make([]string, 0, len(settled))
	for _, res := range settled {
		ids = append(ids, res.ID)
	}
	respondJSON(w, http.StatusOK, map[string]any{"settled": len(ids), "reservation_ids": ids})
}

// respondReservation answers with the read model so the status is the
// effective one.
func (h *Handlers) respondReservation(w http.ResponseWriter, r *http.Request, status int, id string) {
	view, err := h.queryHandler.GetReservation(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, status, view)
}
