package purchaseorder

import "time"

const (
	EventPurchaseOrderCreated       = "PurchaseOrderCreated"
	EventPurchaseOrderItemAdded     = "PurchaseOrderItemAdded"
	EventPurchaseOrderItemUpdated   = "PurchaseOrderItemUpdated"
	EventPurchaseOrderItemRemoved   = "PurchaseOrderItemRemoved"
	EventPurchaseOrderStatusChanged = "PurchaseOrderStatusChanged"
	EventItemsReceived              = "ItemsReceived"
	EventPurchaseOrderDeleted       = "PurchaseOrderDeleted"
)

type PurchaseOrderCreated struct {
	PurchaseOrderID string     `json:"purchase_order_id"`
	SupplierID      string     `json:"supplier_id"`
	ETA             *time.Time `json:"eta,omitempty"`
	Items           []Item     `json:"items"`
	CreatedAt       time.Time  `json:"created_at"`
}

type PurchaseOrderItemChanged struct {
	PurchaseOrderID string    `json:"purchase_order_id"`
	ItemID          string    `json:"item_id"`
	VariantID       string    `json:"variant_id"`
	OrderedQty      int       `json:"ordered_qty"`
	ChangedAt       time.Time `json:"changed_at"`
}

type PurchaseOrderStatusChanged struct {
	PurchaseOrderID string    `json:"purchase_order_id"`
	OldStatus       Status    `json:"old_status"`
	NewStatus       Status    `json:"new_status"`
	ChangedAt       time.Time `json:"changed_at"`
}

type ItemsReceived struct {
	PurchaseOrderID string        `json:"purchase_order_id"`
	LocationID      string        `json:"location_id"`
	Lines           []ReceiptLine `json:"lines"`
	Status          Status        `json:"status"`
	ReceivedAt      time.Time     `json:"received_at"`
}

type PurchaseOrderDeleted struct {
	PurchaseOrderID string    `json:"purchase_order_id"`
	DeletedAt       time.Time `json:"deleted_at"`
}
