package stock

import "time"

const (
	EventStockAdded        = "StockAdded"
	EventStockRemoved      = "StockRemoved"
	EventStockTransferred  = "StockTransferred"
	EventStockReserved     = "StockReserved"
	EventStockReleased     = "StockReleased"
	EventStockFulfilled    = "StockFulfilled"
	EventThresholdsUpdated = "StockThresholdsUpdated"
)

type StockAdded struct {
	VariantID   string    `json:"variant_id"`
	LocationID  string    `json:"location_id"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	ReferenceID *string   `json:"reference_id,omitempty"`
	OnHand      int       `json:"on_hand"`
	AddedAt     time.Time `json:"added_at"`
}

type StockRemoved struct {
	VariantID  string    `json:"variant_id"`
	LocationID string    `json:"location_id"`
	Quantity   int       `json:"quantity"`
	Reason     string    `json:"reason"`
	OnHand     int       `json:"on_hand"`
	RemovedAt  time.Time `json:"removed_at"`
}

type StockTransferred struct {
	VariantID      string    `json:"variant_id"`
	FromLocationID string    `json:"from_location_id"`
	ToLocationID   string    `json:"to_location_id"`
	Quantity       int       `json:"quantity"`
	TransferredAt  time.Time `json:"transferred_at"`
}

type StockReserved struct {
	VariantID  string    `json:"variant_id"`
	LocationID string    `json:"location_id"`
	Quantity   int       `json:"quantity"`
	Available  int       `json:"available"`
	ReservedAt time.Time `json:"reserved_at"`
}

type StockReleased struct {
	VariantID  string    `json:"variant_id"`
	LocationID string    `json:"location_id"`
	Quantity   int       `json:"quantity"`
	Available  int       `json:"available"`
	ReleasedAt time.Time `json:"released_at"`
}

type StockFulfilled struct {
	VariantID   string    `json:"variant_id"`
	LocationID  string    `json:"location_id"`
	Quantity    int       `json:"quantity"`
	OrderID     *string   `json:"order_id,omitempty"`
	OnHand      int       `json:"on_hand"`
	FulfilledAt time.Time `json:"fulfilled_at"`
}

type ThresholdsUpdated struct {
	VariantID         string    `json:"variant_id"`
	LocationID        string    `json:"location_id"`
	LowStockThreshold *int      `json:"low_stock_threshold"`
	SafetyStock       *int      `json:"safety_stock"`
	UpdatedAt         time.Time `json:"updated_at"`
}
