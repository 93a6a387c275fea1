package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/stock-ledger/internal/command"
)

// Stock Handlers

func (h *Handlers) AddStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddStock
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	change, err := h.cmdHandler.AddStock(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, change)
}

func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.AdjustStock
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	change, err := h.cmdHandler.AdjustStock(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, change)
}

func (h *Handlers) TransferStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.TransferStock
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	change, err := h.cmdHandler.TransferStock(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, change)
}

func (h *Handlers) ReserveStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.ReserveStock
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	change, err := h.cmdHandler.ReserveStock(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, change)
}

func (h *Handlers) ReleaseStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.ReleaseStock
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	change, err := h.cmdHandler.ReleaseStock(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, change)
}

func (h *Handlers) FulfillStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.FulfillStock
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	change, err := h.cmdHandler.FulfillStock(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, change)
}

// SetStockThresholds takes the pair from the path; the body carries only
// the threshold fields.
func (h *Handlers) SetStockThresholds(w http.ResponseWriter, r *http.Request) {
	var cmd command.SetStockThresholds
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	cmd.VariantID = chi.URLParam(r, "variantID")
	cmd.LocationID = chi.URLParam(r, "locationID")

	if _, err := h.cmdHandler.SetStockThresholds(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	s, err := h.queryHandler.GetStock(r.Context(), cmd.VariantID, cmd.LocationID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handlers) GetStock(w http.ResponseWriter, r *http.Request) {
	s, err := h.queryHandler.GetStock(r.Context(), chi.URLParam(r, "variantID"), chi.URLParam(r, "locationID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handlers) ListStockByVariant(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.queryHandler.ListStockByVariant(r.Context(), chi.URLParam(r, "variantID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stocks)
}

func (h *Handlers) GetTotalAvailable(w http.ResponseWriter, r *http.Request) {
	total, err := h.queryHandler.GetTotalAvailable(r.Context(), chi.URLParam(r, "variantID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, total)
}

func (h *Handlers) ListLowStock(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.queryHandler.ListLowStock(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stocks)
}

// ListTransactions serves ?location_id=&limit=&offset=.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	txs, err := h.queryHandler.ListTransactions(r.Context(), chi.URLParam(r, "variantID"), r.URL.Query().Get("location_id"), page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}
