package alert

import (
	"time"

	"github.com/example/stock-ledger/internal/domain/apperr"
)

const AggregateType = "StockAlert"

type Type string

const (
	TypeLowStock   Type = "low_stock"
	TypeOutOfStock Type = "oos"
)

func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeLowStock, TypeOutOfStock:
		return Type(s), true
	}
	return "", false
}

// Alert flags a variant as low or out of stock. At most one unresolved alert
// exists per (variant, type).
type Alert struct {
	ID          string     `json:"id"`
	VariantID   string     `json:"variant_id"`
	Type        Type       `json:"type"`
	TriggeredAt time.Time  `json:"triggered_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func New(id, variantID string, t Type, now time.Time) (*Alert, error) {
	if _, ok := ParseType(string(t)); !ok {
		return nil, apperr.Validation("unknown alert type %q", t)
	}
	return &Alert{
		ID:          id,
		VariantID:   variantID,
		Type:        t,
		TriggeredAt: now,
	}, nil
}

func (a *Alert) IsActive() bool {
	return a.ResolvedAt == nil
}

func (a *Alert) Resolve(now time.Time) (*Alert, error) {
	if !a.IsActive() {
		return nil, apperr.AlreadyResolved("alert %s was resolved at %s", a.ID, a.ResolvedAt.Format(time.RFC3339))
	}
	next := *a
	at := now
	next.ResolvedAt = &at
	return &next, nil
}
