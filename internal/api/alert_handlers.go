package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/stock-ledger/internal/command"
)

// Alert Handlers

func (h *Handlers) ListActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.queryHandler.ListActiveAlerts(r.Context(), r.URL.Query().Get("variant_id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *Handlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.queryHandler.GetAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handlers) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateAlert
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	a, err := h.cmdHandler.CreateAlert(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.cmdHandler.ResolveAlert(r.Context(), command.ResolveAlert{AlertID: chi.URLParam(r, "id")})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handlers) CheckAlerts(w http.ResponseWriter, r *http.Request) {
	var cmd command.CheckAlerts
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	check, err := h.cmdHandler.CheckAlerts(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, check)
}
