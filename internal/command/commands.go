package command

import (
	"time"

	"github.com/example/stock-ledger/internal/domain/stock"
)

// Stock Commands
type AddStock struct {
	VariantID   string  `json:"variant_id" validate:"required,uuid"`
	LocationID  string  `json:"location_id" validate:"required,uuid"`
	Qty         int     `json:"qty" validate:"gt=0"`
	Reason      string  `json:"reason" validate:"required,min=2,max=64"`
	ReferenceID *string `json:"reference_id,omitempty" validate:"omitempty,uuid"`
}

// AdjustStock applies a signed correction. A positive delta on a missing
// record opens it.
type AdjustStock struct {
	VariantID   string  `json:"variant_id" validate:"required,uuid"`
	LocationID  string  `json:"location_id" validate:"required,uuid"`
	Delta       int     `json:"delta" validate:"ne=0"`
	Reason      string  `json:"reason" validate:"required,min=2,max=64"`
	ReferenceID *string `json:"reference_id,omitempty" validate:"omitempty,uuid"`
}

type TransferStock struct {
	VariantID      string `json:"variant_id" validate:"required,uuid"`
	FromLocationID string `json:"from_location_id" validate:"required,uuid"`
	ToLocationID   string `json:"to_location_id" validate:"required,uuid,nefield=FromLocationID"`
	Qty            int    `json:"qty" validate:"gt=0"`
}

type ReserveStock struct {
	VariantID  string `json:"variant_id" validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	Qty        int    `json:"qty" validate:"gt=0"`
}

type ReleaseStock struct {
	VariantID  string `json:"variant_id" validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	Qty        int    `json:"qty" validate:"gt=0"`
}

type FulfillStock struct {
	VariantID  string  `json:"variant_id" validate:"required,uuid"`
	LocationID string  `json:"location_id" validate:"required,uuid"`
	Qty        int     `json:"qty" validate:"gt=0"`
	OrderID    *string `json:"order_id,omitempty" validate:"omitempty,uuid"`
}

// SetStockThresholds leaves a threshold untouched when its field is absent
// and clears it when the field is null.
type SetStockThresholds struct {
	VariantID         string                `json:"variant_id" validate:"required,uuid"`
	LocationID        string                `json:"location_id" validate:"required,uuid"`
	LowStockThreshold stock.ThresholdUpdate `json:"low_stock_threshold"`
	SafetyStock       stock.ThresholdUpdate `json:"safety_stock"`
}

// Reservation Commands
type CreateReservation struct {
	OrderID    string `json:"order_id" validate:"required,uuid"`
	VariantID  string `json:"variant_id" validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	Qty        int    `json:"qty" validate:"gt=0"`
	// ExpiresAt defaults to now plus the configured hold.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type CancelReservation struct {
	ReservationID string `json:"reservation_id" validate:"required,uuid"`
}

type ExtendReservation struct {
	ReservationID string    `json:"reservation_id" validate:"required,uuid"`
	ExpiresAt     time.Time `json:"expires_at" validate:"required"`
}

type FulfillReservation struct {
	ReservationID string `json:"reservation_id" validate:"required,uuid"`
}

type ExpireReservation struct {
	ReservationID string `json:"reservation_id" validate:"required,uuid"`
}

type SettleExpiredReservations struct {
	Limit int `json:"limit" validate:"gte=0,lte=500"`
}

// Purchase Order Commands
type PurchaseOrderLine struct {
	VariantID  string `json:"variant_id" validate:"required,uuid"`
	OrderedQty int    `json:"ordered_qty" validate:"gt=0"`
}

type CreatePurchaseOrder struct {
	SupplierID string              `json:"supplier_id" validate:"required,uuid"`
	ETA        *time.Time          `json:"eta,omitempty"`
	Items      []PurchaseOrderLine `json:"items" validate:"dive"`
}

type AddPurchaseOrderItem struct {
	PurchaseOrderID string `json:"purchase_order_id" validate:"required,uuid"`
	VariantID       string `json:"variant_id" validate:"required,uuid"`
	OrderedQty      int    `json:"ordered_qty" validate:"gt=0"`
}

type UpdatePurchaseOrderItem struct {
	PurchaseOrderID string `json:"purchase_order_id" validate:"required,uuid"`
	ItemID          string `json:"item_id" validate:"required,uuid"`
	OrderedQty      int    `json:"ordered_qty" validate:"gt=0"`
}

type RemovePurchaseOrderItem struct {
	PurchaseOrderID string `json:"purchase_order_id" validate:"required,uuid"`
	ItemID          string `json:"item_id" validate:"required,uuid"`
}

type UpdatePurchaseOrderStatus struct {
	PurchaseOrderID string `json:"purchase_order_id" validate:"required,uuid"`
	Status          string `json:"status" validate:"required,oneof=draft sent part_received received closed"`
}

type ReceiveLine struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"gt=0"`
}

type ReceivePurchaseOrderItems struct {
	PurchaseOrderID string        `json:"purchase_order_id" validate:"required,uuid"`
	LocationID      string        `json:"location_id" validate:"required,uuid"`
	Lines           []ReceiveLine `json:"lines" validate:"required,min=1,dive"`
}

type DeletePurchaseOrder struct {
	PurchaseOrderID string `json:"purchase_order_id" validate:"required,uuid"`
}

// Alert Commands
type CreateAlert struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Type      string `json:"type" validate:"required,oneof=low_stock oos"`
}

type ResolveAlert struct {
	AlertID string `json:"alert_id" validate:"required,uuid"`
}

type CheckAlerts struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
}
