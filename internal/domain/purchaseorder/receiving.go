package purchaseorder

import (
	"time"

	"github.com/example/stock-ledger/internal/domain/apperr"
)

// ReceiptLine is one (variant, qty) pair of a receiving batch.
type ReceiptLine struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
}

// Receipt is the outcome of applying a batch: the updated order, the items
// whose received quantity changed and the lines to post into stock.
type Receipt struct {
	Order   *PurchaseOrder
	Changed []*Item
	Lines   []ReceiptLine
}

// Receive applies lines in order against items and recomputes the order
// status from every item. Nothing is returned unless every line succeeds.
func Receive(po *PurchaseOrder, items []*Item, lines []ReceiptLine, now time.Time) (*Receipt, error) {
	if !po.IsReceivable() {
		return nil, apperr.InvalidTransition("purchase order %s is %s and not open for receiving", po.ID, po.Status)
	}
	if len(lines) == 0 {
		return nil, apperr.Validation("at least one line is required")
	}

	byVariant := make(map[string]int, len(items))
	working := make([]*Item, len(items))
	for i, it := range items {
		c := *it
		working[i] = &c
		byVariant[it.VariantID] = i
	}

	touched := make(map[int]bool)
	var order []int
	for _, line := range lines {
		idx, ok := byVariant[line.VariantID]
		if !ok {
			return nil, apperr.NotFound("variant %s is not on purchase order %s", line.VariantID, po.ID)
		}
		next, err := working[idx].Receive(line.Qty)
		if err != nil {
			return nil, err
		}
		working[idx] = next
		if !touched[idx] {
			touched[idx] = true
			order = append(order, idx)
		}
	}

	changed := make([]*Item, 0, len(order))
	for _, idx := range order {
		changed = append(changed, working[idx])
	}

	next := *po
	next.UpdatedAt = now
	switch {
	case allFullyReceived(working):
		next.Status = StatusReceived
	case anyReceived(working) && po.Status == StatusSent:
		next.Status = StatusPartReceived
	}

	return &Receipt{Order: &next, Changed: changed, Lines: lines}, nil
}
