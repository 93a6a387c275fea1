package purchaseorder

import (
	"time"

	"github.com/example/stock-ledger/internal/domain/apperr"
)

const AggregateType = "PurchaseOrder"

type Status string

const (
	StatusDraft        Status = "draft"
	StatusSent         Status = "sent"
	StatusPartReceived Status = "part_received"
	StatusReceived     Status = "received"
	StatusClosed       Status = "closed"
)

var (
	ErrNotDraft = apperr.InvalidTransition("purchase order can only be modified while in draft")
	ErrNoItems  = apperr.InvalidTransition("purchase order must have at least one item before it is sent")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusDraft:        {StatusSent, StatusClosed},
	StatusSent:         {StatusPartReceived, StatusReceived, StatusClosed},
	StatusPartReceived: {StatusReceived, StatusClosed},
	StatusReceived:     {StatusClosed},
	StatusClosed:       {}, // terminal state
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := validTransitions[st]
	return st, ok
}

type PurchaseOrder struct {
	ID         string     `json:"id"`
	SupplierID string     `json:"supplier_id"`
	ETA        *time.Time `json:"eta,omitempty"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func New(id, supplierID string, eta *time.Time, now time.Time) *PurchaseOrder {
	var e *time.Time
	if eta != nil {
		v := *eta
		e = &v
	}
	return &PurchaseOrder{
		ID:         id,
		SupplierID: supplierID,
		ETA:        e,
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanTransitionTo checks if the order can transition to the target status
func (po *PurchaseOrder) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[po.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

func (po *PurchaseOrder) transitionError(target Status) error {
	if po.Status == StatusClosed {
		return apperr.InvalidTransition("purchase order %s is closed", po.ID)
	}
	return apperr.InvalidTransition("cannot transition purchase order %s from %s to %s", po.ID, po.Status, target)
}

func (po *PurchaseOrder) IsDraft() bool {
	return po.Status == StatusDraft
}

// RequireDraft guards item mutation and deletion.
func (po *PurchaseOrder) RequireDraft() error {
	if !po.IsDraft() {
		return ErrNotDraft
	}
	return nil
}

// IsReceivable reports whether receipts may be booked. A received order is
// still accepted here so an over-receipt fails on the line quantity.
func (po *PurchaseOrder) IsReceivable() bool {
	switch po.Status {
	case StatusSent, StatusPartReceived, StatusReceived:
		return true
	}
	return false
}

// TransitionTo moves the order along the status graph. The items are needed
// to keep the status consistent with what has actually been received.
func (po *PurchaseOrder) TransitionTo(target Status, items []*Item, now time.Time) (*PurchaseOrder, error) {
	if !po.CanTransitionTo(target) {
		return nil, po.transitionError(target)
	}
	switch target {
	case StatusSent:
		if len(items) == 0 {
			return nil, ErrNoItems
		}
	case StatusReceived:
		if !allFullyReceived(items) {
			return nil, apperr.InvalidTransition("purchase order %s still has items outstanding", po.ID)
		}
	case StatusPartReceived:
		if !anyReceived(items) {
			return nil, apperr.InvalidTransition("purchase order %s has nothing received yet", po.ID)
		}
	}
	return po.with(target, now), nil
}

func (po *PurchaseOrder) with(status Status, now time.Time) *PurchaseOrder {
	next := *po
	next.Status = status
	next.UpdatedAt = now
	return &next
}

func allFullyReceived(items []*Item) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !it.IsFullyReceived() {
			return false
		}
	}
	return true
}

func anyReceived(items []*Item) bool {
	for _, it := range items {
		if it.ReceivedQty > 0 {
			return true
		}
	}
	return false
}

// Details is an order together with its items, the shape every read and
// write of a purchase order returns.
type Details struct {
	*PurchaseOrder
	Items []*Item `json:"items"`
}
