package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/stock-ledger/internal/command"
)

// Purchase Order Handlers

func (h *Handlers) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreatePurchaseOrder
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	po, err := h.cmdHandler.CreatePurchaseOrder(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, po)
}

func (h *Handlers) GetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.queryHandler.GetPurchaseOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

func (h *Handlers) DeletePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeletePurchaseOrder{PurchaseOrderID: chi.URLParam(r, "id")}
	if err := h.cmdHandler.DeletePurchaseOrder(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AddPurchaseOrderItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddPurchaseOrderItem
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	cmd.PurchaseOrderID = chi.URLParam(r, "id")
	it, err := h.cmdHandler.AddPurchaseOrderItem(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, it)
}

func (h *Handlers) UpdatePurchaseOrderItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdatePurchaseOrderItem
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	cmd.PurchaseOrderID = chi.URLParam(r, "id")
	cmd.ItemID = chi.URLParam(r, "itemID")
	it, err := h.cmdHandler.UpdatePurchaseOrderItem(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, it)
}

func (h *Handlers) RemovePurchaseOrderItem(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemovePurchaseOrderItem{
		PurchaseOrderID: chi.URLParam(r, "id"),
		ItemID:          chi.URLParam(r, "itemID"),
	}
	if err := h.cmdHandler.RemovePurchaseOrderItem(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UpdatePurchaseOrderStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdatePurchaseOrderStatus
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	cmd.PurchaseOrderID = chi.URLParam(r, "id")
	po, err := h.cmdHandler.UpdatePurchaseOrderStatus(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

// ReceivePurchaseOrderItems books one receiving batch; any bad line fails
// the whole request.
func (h *Handlers) ReceivePurchaseOrderItems(w http.ResponseWriter, r *http.Request) {
	var cmd command.ReceivePurchaseOrderItems
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	cmd.PurchaseOrderID = chi.URLParam(r, "id")
	po, err := h.cmdHandler.ReceivePurchaseOrderItems(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}
