package command

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/purchaseorder"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

// CreatePurchaseOrder opens a draft order, optionally with its first items.
func (h *Handler) CreatePurchaseOrder(ctx context.Context, cmd CreatePurchaseOrder) (*purchaseorder.Details, error) {
	var out *purchaseorder.Details
	err := h.execute(ctx, "CreatePurchaseOrder", cmd, nil, func(ctx context.Context, u *unit) error {
		po := purchaseorder.New(h.ids.NewID(), cmd.SupplierID, cmd.ETA, u.now)
		u.annotate(zap.String("po_id", po.ID), zap.String("supplier_id", po.SupplierID))

		seen := make(map[string]bool, len(cmd.Items))
		items := make([]*purchaseorder.Item, 0, len(cmd.Items))
		for _, line := range cmd.Items {
			if seen[line.VariantID] {
				return apperr.Conflict("variant %s is listed more than once", line.VariantID)
			}
			seen[line.VariantID] = true
			it, err := purchaseorder.NewItem(h.ids.NewID(), po.ID, line.VariantID, line.OrderedQty)
			if err != nil {
				return err
			}
			items = append(items, it)
		}

		if err := u.tx.PurchaseOrders().Save(ctx, po); err != nil {
			return err
		}
		for _, it := range items {
			if err := u.tx.PurchaseOrderItems().Save(ctx, it); err != nil {
				return err
			}
		}

		snapshot := make([]purchaseorder.Item, 0, len(items))
		for _, it := range items {
			snapshot = append(snapshot, *it)
		}
		if err := u.record(po.ID, purchaseorder.AggregateType, purchaseorder.EventPurchaseOrderCreated, purchaseorder.PurchaseOrderCreated{
			PurchaseOrderID: po.ID,
			SupplierID:      po.SupplierID,
			ETA:             po.ETA,
			Items:           snapshot,
			CreatedAt:       po.CreatedAt,
		}); err != nil {
			return err
		}
		out = &purchaseorder.Details{PurchaseOrder: po, Items: items}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) AddPurchaseOrderItem(ctx context.Context, cmd AddPurchaseOrderItem) (*purchaseorder.Item, error) {
	var out *purchaseorder.Item
	err := h.execute(ctx, "AddPurchaseOrderItem", cmd, orderKeys(cmd.PurchaseOrderID), func(ctx context.Context, u *unit) error {
		po, err := u.findDraftOrder(ctx, cmd.PurchaseOrderID)
		if err != nil {
			return err
		}
		_, err = u.tx.PurchaseOrderItems().FindByPOAndVariant(ctx, po.ID, cmd.VariantID)
		switch {
		case err == nil:
			return apperr.Conflict("variant %s is already on purchase order %s", cmd.VariantID, po.ID)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		it, err := purchaseorder.NewItem(h.ids.NewID(), po.ID, cmd.VariantID, cmd.OrderedQty)
		if err != nil {
			return err
		}
		if err := u.tx.PurchaseOrderItems().Save(ctx, it); err != nil {
			return err
		}
		if err := u.touchOrder(ctx, po); err != nil {
			return err
		}
		out = it
		return u.recordItemChange(purchaseorder.EventPurchaseOrderItemAdded, it)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) UpdatePurchaseOrderItem(ctx context.Context, cmd UpdatePurchaseOrderItem) (*purchaseorder.Item, error) {
	var out *purchaseorder.Item
	err := h.execute(ctx, "UpdatePurchaseOrderItem", cmd, orderKeys(cmd.PurchaseOrderID), func(ctx context.Context, u *unit) error {
		po, err := u.findDraftOrder(ctx, cmd.PurchaseOrderID)
		if err != nil {
			return err
		}
		current, err := u.findItem(ctx, po.ID, cmd.ItemID)
		if err != nil {
			return err
		}
		it, err := current.WithOrderedQty(cmd.OrderedQty)
		if err != nil {
			return err
		}
		if err := u.tx.PurchaseOrderItems().Save(ctx, it); err != nil {
			return err
		}
		if err := u.touchOrder(ctx, po); err != nil {
			return err
		}
		out = it
		return u.recordItemChange(purchaseorder.EventPurchaseOrderItemUpdated, it)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) RemovePurchaseOrderItem(ctx context.Context, cmd RemovePurchaseOrderItem) error {
	return h.execute(ctx, "RemovePurchaseOrderItem", cmd, orderKeys(cmd.PurchaseOrderID), func(ctx context.Context, u *unit) error {
		po, err := u.findDraftOrder(ctx, cmd.PurchaseOrderID)
		if err != nil {
			return err
		}
		it, err := u.findItem(ctx, po.ID, cmd.ItemID)
		if err != nil {
			return err
		}
		if err := u.tx.PurchaseOrderItems().Delete(ctx, it.ID); err != nil {
			return err
		}
		if err := u.touchOrder(ctx, po); err != nil {
			return err
		}
		return u.recordItemChange(purchaseorder.EventPurchaseOrderItemRemoved, it)
	})
}

// UpdatePurchaseOrderStatus moves the order along its status graph.
func (h *Handler) UpdatePurchaseOrderStatus(ctx context.Context, cmd UpdatePurchaseOrderStatus) (*purchaseorder.Details, error) {
	var out *purchaseorder.Details
	err := h.execute(ctx, "UpdatePurchaseOrderStatus", cmd, orderKeys(cmd.PurchaseOrderID), func(ctx context.Context, u *unit) error {
		target, ok := purchaseorder.ParseStatus(cmd.Status)
		if !ok {
			return apperr.Validation("unknown purchase order status %q", cmd.Status)
		}
		po, err := u.findOrder(ctx, cmd.PurchaseOrderID)
		if err != nil {
			return err
		}
		items, err := u.tx.PurchaseOrderItems().FindByPurchaseOrder(ctx, po.ID)
		if err != nil {
			return err
		}
		next, err := po.TransitionTo(target, items, u.now)
		if err != nil {
			return err
		}
		if err := u.tx.PurchaseOrders().Save(ctx, next); err != nil {
			return err
		}
		if err := u.recordStatusChange(po.Status, next); err != nil {
			return err
		}
		out = &purchaseorder.Details{PurchaseOrder: next, Items: items}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReceivePurchaseOrderItems books a receiving batch against the order and
// adds the units to stock at the location. Any failing line aborts the
// whole batch.
func (h *Handler) ReceivePurchaseOrderItems(ctx context.Context, cmd ReceivePurchaseOrderItems) (*purchaseorder.Details, error) {
	variants := make([]string, 0, len(cmd.Lines))
	for _, l := range cmd.Lines {
		variants = append(variants, l.VariantID)
	}

	var out *purchaseorder.Details
	err := h.execute(ctx, "ReceivePurchaseOrderItems", cmd, orderKeys(cmd.PurchaseOrderID, variants...), func(ctx context.Context, u *unit) error {
		po, err := u.findOrder(ctx, cmd.PurchaseOrderID)
		if err != nil {
			return err
		}
		items, err := u.tx.PurchaseOrderItems().FindByPurchaseOrder(ctx, po.ID)
		if err != nil {
			return err
		}

		lines := make([]purchaseorder.ReceiptLine, 0, len(cmd.Lines))
		for _, l := range cmd.Lines {
			lines = append(lines, purchaseorder.ReceiptLine{VariantID: l.VariantID, Qty: l.Qty})
		}

		// 1. Apply the batch to the items
		receipt, err := purchaseorder.Receive(po, items, lines, u.now)
		if err != nil {
			return err
		}
		for _, it := range receipt.Changed {
			if err := u.tx.PurchaseOrderItems().Save(ctx, it); err != nil {
				return err
			}
		}
		if err := u.tx.PurchaseOrders().Save(ctx, receipt.Order); err != nil {
			return err
		}

		// 2. Post every line into stock (emits StockAdded per line)
		poID := po.ID
		for _, l := range receipt.Lines {
			if _, _, err := u.addOrOpen(ctx, l.VariantID, cmd.LocationID, l.Qty, u.entry(stock.ReasonPurchaseOrder, &poID)); err != nil {
				return err
			}
		}

		// 3. Emit ItemsReceived and the status change, if any
		if err := u.record(po.ID, purchaseorder.AggregateType, purchaseorder.EventItemsReceived, purchaseorder.ItemsReceived{
			PurchaseOrderID: po.ID,
			LocationID:      cmd.LocationID,
			Lines:           receipt.Lines,
			Status:          receipt.Order.Status,
			ReceivedAt:      u.now,
		}); err != nil {
			return err
		}
		if receipt.Order.Status != po.Status {
			if err := u.recordStatusChange(po.Status, receipt.Order); err != nil {
				return err
			}
		}

		all, err := u.tx.PurchaseOrderItems().FindByPurchaseOrder(ctx, po.ID)
		if err != nil {
			return err
		}
		out = &purchaseorder.Details{PurchaseOrder: receipt.Order, Items: all}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePurchaseOrder removes a draft order and its items.
func (h *Handler) DeletePurchaseOrder(ctx context.Context, cmd DeletePurchaseOrder) error {
	return h.execute(ctx, "DeletePurchaseOrder", cmd, orderKeys(cmd.PurchaseOrderID), func(ctx context.Context, u *unit) error {
		po, err := u.findDraftOrder(ctx, cmd.PurchaseOrderID)
		if err != nil {
			return err
		}
		if err := u.tx.PurchaseOrderItems().DeleteByPurchaseOrder(ctx, po.ID); err != nil {
			return err
		}
		if err := u.tx.PurchaseOrders().Delete(ctx, po.ID); err != nil {
			return err
		}
		return u.record(po.ID, purchaseorder.AggregateType, purchaseorder.EventPurchaseOrderDeleted, purchaseorder.PurchaseOrderDeleted{
			PurchaseOrderID: po.ID,
			DeletedAt:       u.now,
		})
	})
}

func (u *unit) findOrder(ctx context.Context, id string) (*purchaseorder.PurchaseOrder, error) {
	po, err := u.tx.PurchaseOrders().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("purchase order %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	u.annotate(zap.String("po_id", po.ID))
	return po, nil
}

func (u *unit) findDraftOrder(ctx context.Context, id string) (*purchaseorder.PurchaseOrder, error) {
	po, err := u.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := po.RequireDraft(); err != nil {
		return nil, err
	}
	return po, nil
}

// findItem loads an item and checks it belongs to the order.
func (u *unit) findItem(ctx context.Context, purchaseOrderID, itemID string) (*purchaseorder.Item, error) {
	it, err := u.tx.PurchaseOrderItems().FindByID(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && it.PurchaseOrderID != purchaseOrderID) {
		return nil, apperr.NotFound("item %s not found on purchase order %s", itemID, purchaseOrderID)
	}
	return it, err
}

func (u *unit) touchOrder(ctx context.Context, po *purchaseorder.PurchaseOrder) error {
	next := *po
	next.UpdatedAt = u.now
	return u.tx.PurchaseOrders().Save(ctx, &next)
}

func (u *unit) recordItemChange(eventType string, it *purchaseorder.Item) error {
	return u.record(it.PurchaseOrderID, purchaseorder.AggregateType, eventType, purchaseorder.PurchaseOrderItemChanged{
		PurchaseOrderID: it.PurchaseOrderID,
		ItemID:          it.ID,
		VariantID:       it.VariantID,
		OrderedQty:      it.OrderedQty,
		ChangedAt:       u.now,
	})
}

func (u *unit) recordStatusChange(old purchaseorder.Status, po *purchaseorder.PurchaseOrder) error {
	return u.record(po.ID, purchaseorder.AggregateType, purchaseorder.EventPurchaseOrderStatusChanged, purchaseorder.PurchaseOrderStatusChanged{
		PurchaseOrderID: po.ID,
		OldStatus:       old,
		NewStatus:       po.Status,
		ChangedAt:       u.now,
	})
}
