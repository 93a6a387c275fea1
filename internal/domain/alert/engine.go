package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/stock"
)

// StockReader lists every stock record of a variant across locations.
type StockReader interface {
	FindByVariant(ctx context.Context, variantID string) ([]*stock.Stock, error)
}

type Repository interface {
	Save(ctx context.Context, a *Alert) error
	FindByID(ctx context.Context, id string) (*Alert, error)
	HasActiveAlert(ctx context.Context, variantID string, t Type) (bool, error)
	FindActiveAlertsByVariant(ctx context.Context, variantID string) ([]*Alert, error)
}

type IDGenerator interface {
	NewID() string
}

// Engine raises and resolves alerts from the stock of a variant. It is bound
// to the repositories of one unit of work.
type Engine struct {
	stocks StockReader
	alerts Repository
	ids    IDGenerator
}

func NewEngine(stocks StockReader, alerts Repository, ids IDGenerator) *Engine {
	return &Engine{stocks: stocks, alerts: alerts, ids: ids}
}

// Summary is the variant wide view the rules are evaluated on.
type Summary struct {
	TotalAvailable int
	AnyLow         bool
}

func Summarize(stocks []*stock.Stock) Summary {
	var s Summary
	for _, st := range stocks {
		s.TotalAvailable += st.Available()
		if st.Level.IsLowStock() {
			s.AnyLow = true
		}
	}
	return s
}

func (e *Engine) summary(ctx context.Context, variantID string) (Summary, error) {
	stocks, err := e.stocks.FindByVariant(ctx, variantID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load stock for variant %s: %w", variantID, err)
	}
	return Summarize(stocks), nil
}

// Create raises an alert unless one of the same type is already active.
func (e *Engine) Create(ctx context.Context, variantID string, t Type, now time.Time) (*Alert, error) {
	active, err := e.alerts.HasActiveAlert(ctx, variantID, t)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperr.DuplicateActiveAlert("variant %s already has an active %s alert", variantID, t)
	}
	a, err := New(e.ids.NewID(), variantID, t, now)
	if err != nil {
		return nil, err
	}
	if err := e.alerts.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (e *Engine) Resolve(ctx context.Context, id string, now time.Time) (*Alert, error) {
	a, err := e.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resolved, err := a.Resolve(now)
	if err != nil {
		return nil, err
	}
	if err := e.alerts.Save(ctx, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// CheckAndCreateAlerts raises oos when nothing is available anywhere, or
// low_stock when stock remains but some location is at or below its
// threshold. Types that already have an active alert are skipped.
func (e *Engine) CheckAndCreateAlerts(ctx context.Context, variantID string, now time.Time) ([]*Alert, error) {
	sum, err := e.summary(ctx, variantID)
	if err != nil {
		return nil, err
	}

	var want Type
	switch {
	case sum.TotalAvailable <= 0:
		want = TypeOutOfStock
	case sum.AnyLow:
		want = TypeLowStock
	default:
		return nil, nil
	}

	active, err := e.alerts.HasActiveAlert(ctx, variantID, want)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, nil
	}
	a, err := e.Create(ctx, variantID, want, now)
	if err != nil {
		return nil, err
	}
	return []*Alert{a}, nil
}

// AutoResolveAlerts closes alerts whose condition no longer holds.
func (e *Engine) AutoResolveAlerts(ctx context.Context, variantID string, now time.Time) ([]*Alert, error) {
	active, err := e.alerts.FindActiveAlertsByVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}
	sum, err := e.summary(ctx, variantID)
	if err != nil {
		return nil, err
	}

	var resolved []*Alert
	for _, a := range active {
		cleared := false
		switch a.Type {
		case TypeOutOfStock:
			cleared = sum.TotalAvailable > 0
		case TypeLowStock:
			cleared = !sum.AnyLow
		}
		if !cleared {
			continue
		}
		r, err := a.Resolve(now)
		if err != nil {
			return nil, err
		}
		if err := e.alerts.Save(ctx, r); err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

// Reevaluate runs AutoResolveAlerts then CheckAndCreateAlerts.
func (e *Engine) Reevaluate(ctx context.Context, variantID string, now time.Time) (raised, resolved []*Alert, err error) {
	resolved, err = e.AutoResolveAlerts(ctx, variantID, now)
	if err != nil {
		return nil, nil, err
	}
	raised, err = e.CheckAndCreateAlerts(ctx, variantID, now)
	if err != nil {
		return nil, nil, err
	}
	return raised, resolved, nil
}
