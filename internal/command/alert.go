package command

import (
	"context"
	"errors"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

// AlertCheck lists what one evaluation of a variant changed.
type AlertCheck struct {
	Raised   []*alert.Alert `json:"raised"`
	Resolved []*alert.Alert `json:"resolved"`
}

// CreateAlert raises an alert by hand.
func (h *Handler) CreateAlert(ctx context.Context, cmd CreateAlert) (*alert.Alert, error) {
	var out *alert.Alert
	err := h.execute(ctx, "CreateAlert", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		t, ok := alert.ParseType(cmd.Type)
		if !ok {
			return apperr.Validation("unknown alert type %q", cmd.Type)
		}
		a, err := u.alertEngine().Create(ctx, cmd.VariantID, t, u.now)
		if err != nil {
			return err
		}
		out = a
		return u.recordAlertRaised(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) ResolveAlert(ctx context.Context, cmd ResolveAlert) (*alert.Alert, error) {
	var out *alert.Alert
	err := h.execute(ctx, "ResolveAlert", cmd, nil, func(ctx context.Context, u *unit) error {
		a, err := u.alertEngine().Resolve(ctx, cmd.AlertID, u.now)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("alert %s not found", cmd.AlertID)
		}
		if err != nil {
			return err
		}
		out = a
		return u.recordAlertResolved(a)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckAlerts resolves stale alerts of a variant and raises the ones its
// current stock calls for.
func (h *Handler) CheckAlerts(ctx context.Context, cmd CheckAlerts) (*AlertCheck, error) {
	out := &AlertCheck{}
	err := h.execute(ctx, "CheckAlerts", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		raised, resolved, err := u.reevaluate(ctx, cmd.VariantID)
		if err != nil {
			return err
		}
		out.Raised = append(out.Raised, raised...)
		out.Resolved = append(out.Resolved, resolved...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
