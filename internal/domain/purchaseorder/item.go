package purchaseorder

import "github.com/example/stock-ledger/internal/domain/apperr"

var ErrInvalidQuantity = apperr.Validation("quantity must be positive")

// Item is one purchase order line. A purchase order holds at most one item
// per variant.
type Item struct {
	ID              string `json:"id"`
	PurchaseOrderID string `json:"purchase_order_id"`
	VariantID       string `json:"variant_id"`
	OrderedQty      int    `json:"ordered_qty"`
	ReceivedQty     int    `json:"received_qty"`
}

func NewItem(id, purchaseOrderID, variantID string, orderedQty int) (*Item, error) {
	if orderedQty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{
		ID:              id,
		PurchaseOrderID: purchaseOrderID,
		VariantID:       variantID,
		OrderedQty:      orderedQty,
	}, nil
}

func (it *Item) RemainingQty() int {
	return it.OrderedQty - it.ReceivedQty
}

func (it *Item) IsFullyReceived() bool {
	return it.ReceivedQty >= it.OrderedQty
}

func (it *Item) IsPartiallyReceived() bool {
	return it.ReceivedQty > 0 && it.ReceivedQty < it.OrderedQty
}

func (it *Item) WithOrderedQty(qty int) (*Item, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if qty < it.ReceivedQty {
		return nil, apperr.Validation("ordered quantity %d is below received quantity %d", qty, it.ReceivedQty)
	}
	next := *it
	next.OrderedQty = qty
	return &next, nil
}

// Receive books qty more units against the line.
func (it *Item) Receive(qty int) (*Item, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if it.ReceivedQty+qty > it.OrderedQty {
		return nil, apperr.Validation("receiving %d of variant %s would exceed ordered quantity (%d of %d received)",
			qty, it.VariantID, it.ReceivedQty, it.OrderedQty)
	}
	next := *it
	next.ReceivedQty += qty
	return &next, nil
}
