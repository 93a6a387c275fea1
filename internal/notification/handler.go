package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/email"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

// Sender delivers alert notices. *email.Service implements it.
type Sender interface {
	SendStockAlert(n email.AlertNotice) error
}

// StockReader supplies the per location breakdown of a variant.
type StockReader interface {
	FindByVariant(ctx context.Context, variantID string) ([]*stock.Stock, error)
}

// Handler turns alert events into emails
type Handler struct {
	sender Sender
	stocks StockReader
	logger *zap.Logger
}

// NewHandler creates a new notification handler. stocks may be nil, in
// which case emails carry no per location breakdown.
func NewHandler(sender Sender, stocks StockReader, logger *zap.Logger) *Handler {
	return &Handler{sender: sender, stocks: stocks, logger: logger}
}

// EventTypes are the events HandleEvent acts on.
func EventTypes() []string {
	return []string{alert.EventAlertRaised, alert.EventAlertResolved}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case alert.EventAlertRaised:
		var e alert.AlertRaised
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", event.EventType, err)
		}
		return h.notify(ctx, email.AlertNotice{
			AlertID:        e.AlertID,
			VariantID:      e.VariantID,
			Type:           string(e.Type),
			TotalAvailable: e.TotalAvailable,
			At:             e.TriggeredAt,
		})
	case alert.EventAlertResolved:
		var e alert.AlertResolved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", event.EventType, err)
		}
		return h.notify(ctx, email.AlertNotice{
			AlertID:   e.AlertID,
			VariantID: e.VariantID,
			Type:      string(e.Type),
			Resolved:  true,
			At:        e.ResolvedAt,
		})
	}
	return nil
}

func (h *Handler) notify(ctx context.Context, n email.AlertNotice) error {
	if h.stocks != nil {
		levels, err := h.stocks.FindByVariant(ctx, n.VariantID)
		if err != nil {
			// Send without the breakdown rather than drop the alert.
			h.logger.Warn("failed to load stock levels", zap.String("variant_id", n.VariantID), zap.Error(err))
		}
		total := 0
		for _, s := range levels {
			n.Locations = append(n.Locations, email.LocationLevel{
				LocationID: s.LocationID,
				OnHand:     s.Level.OnHand,
				Reserved:   s.Level.Reserved,
				Available:  s.Available(),
				Threshold:  s.Level.LowStockThreshold,
			})
			total += s.Available()
		}
		if n.Resolved && err == nil {
			n.TotalAvailable = total
		}
	}

	if err := h.sender.SendStockAlert(n); err != nil {
		h.logger.Error("failed to send alert email",
			zap.String("alert_id", n.AlertID),
			zap.Bool("resolved", n.Resolved),
			zap.Error(err),
		)
		return err
	}
	h.logger.Info("alert email sent",
		zap.String("alert_id", n.AlertID),
		zap.String("variant_id", n.VariantID),
		zap.String("type", n.Type),
		zap.Bool("resolved", n.Resolved),
	)
	return nil
}
