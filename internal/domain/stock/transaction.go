package stock

import (
	"time"
	"unicode/utf8"

	"github.com/example/stock-ledger/internal/domain/apperr"
)

// Ledger reasons used by the engine itself. Callers may pass any other
// 2-64 character reason for manual adjustments.
const (
	ReasonPurchaseOrder = "po"
	ReasonOrder         = "order"
	ReasonTransferOut   = "transfer_out"
	ReasonTransferIn    = "transfer_in"
	ReasonAdjustment    = "adjustment"
)

const (
	minReasonLength = 2
	maxReasonLength = 64
)

// Transaction is one append-only ledger row. Exactly one is written for
// every change of on hand quantity.
type Transaction struct {
	ID          string    `json:"id"`
	VariantID   string    `json:"variant_id"`
	LocationID  string    `json:"location_id"`
	QtyDelta    int       `json:"qty_delta"`
	Reason      string    `json:"reason"`
	ReferenceID *string   `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Entry carries the metadata of the ledger row a stock mutation produces.
type Entry struct {
	ID          string
	Reason      string
	ReferenceID *string
	At          time.Time
}

func ValidateReason(reason string) error {
	n := utf8.RuneCountInString(reason)
	if n < minReasonLength || n > maxReasonLength {
		return apperr.Validation("reason must be between %d and %d characters", minReasonLength, maxReasonLength)
	}
	return nil
}

func newTransaction(variantID, locationID string, delta int, e Entry) (*Transaction, error) {
	if delta == 0 {
		return nil, apperr.Validation("ledger delta must not be zero")
	}
	if err := ValidateReason(e.Reason); err != nil {
		return nil, err
	}
	var ref *string
	if e.ReferenceID != nil {
		r := *e.ReferenceID
		ref = &r
	}
	return &Transaction{
		ID:          e.ID,
		VariantID:   variantID,
		LocationID:  locationID,
		QtyDelta:    delta,
		Reason:      e.Reason,
		ReferenceID: ref,
		CreatedAt:   e.At,
	}, nil
}
