package alert

import "time"

const (
	EventAlertRaised   = "AlertRaised"
	EventAlertResolved = "AlertResolved"
)

type AlertRaised struct {
	AlertID        string    `json:"alert_id"`
	VariantID      string    `json:"variant_id"`
	Type           Type      `json:"type"`
	TotalAvailable int       `json:"total_available"`
	TriggeredAt    time.Time `json:"triggered_at"`
}

type AlertResolved struct {
	AlertID    string    `json:"alert_id"`
	VariantID  string    `json:"variant_id"`
	Type       Type      `json:"type"`
	ResolvedAt time.Time `json:"resolved_at"`
}
