package alert

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeStocks struct {
	byVariant map[string][]*stock.Stock
}

func (f *fakeStocks) FindByVariant(_ context.Context, variantID string) ([]*stock.Stock, error) {
	return f.byVariant[variantID], nil
}

type fakeAlerts struct {
	alerts map[string]*Alert
}

func (f *fakeAlerts) Save(_ context.Context, a *Alert) error {
	f.alerts[a.ID] = a
	return nil
}

func (f *fakeAlerts) FindByID(_ context.Context, id string) (*Alert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return nil, apperr.NotFound("alert %s not found", id)
	}
	return a, nil
}

func (f *fakeAlerts) HasActiveAlert(_ context.Context, variantID string, t Type) (bool, error) {
	for _, a := range f.alerts {
		if a.VariantID == variantID && a.Type == t && a.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlerts) FindActiveAlertsByVariant(_ context.Context, variantID string) ([]*Alert, error) {
	var out []*Alert
	for _, a := range f.alerts {
		if a.VariantID == variantID && a.IsActive() {
			out = append(out, a)
		}
	}
	return out, nil
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("alert-%d", s.n)
}

func newTestEngine() (*Engine, *fakeStocks, *fakeAlerts) {
	stocks := &fakeStocks{byVariant: map[string][]*stock.Stock{}}
	alerts := &fakeAlerts{alerts: map[string]*Alert{}}
	return NewEngine(stocks, alerts, &seqIDs{}), stocks, alerts
}

func stockAt(t *testing.T, location string, onHand, reserved int, low *int) *stock.Stock {
	t.Helper()
	level, err := stock.NewLevel(onHand, reserved, low, nil)
	require.NoError(t, err)
	return &stock.Stock{VariantID: "variant-1", LocationID: location, Level: level}
}

func intPtr(v int) *int { return &v }

// ============================================
// Alert entity
// ============================================

func TestAlert_Resolve(t *testing.T) {
	a, err := New("a-1", "variant-1", TypeLowStock, testNow)
	require.NoError(t, err)
	assert.True(t, a.IsActive())

	r, err := a.Resolve(testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, r.IsActive())
	assert.True(t, a.IsActive())

	_, err = r.Resolve(testNow)
	assert.ErrorIs(t, err, apperr.ErrAlreadyResolved)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New("a-1", "variant-1", Type("overstock"), testNow)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// ============================================
// Engine
// ============================================

func TestEngine_Create_RejectsDuplicateActive(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.Create(ctx, "variant-1", TypeLowStock, testNow)
	require.NoError(t, err)

	_, err = engine.Create(ctx, "variant-1", TypeLowStock, testNow)
	assert.ErrorIs(t, err, apperr.ErrDuplicateActiveAlert)

	_, err = engine.Create(ctx, "variant-1", TypeOutOfStock, testNow)
	assert.NoError(t, err, "different type is independent")
}

func TestEngine_CheckAndCreateAlerts(t *testing.T) {
	tests := []struct {
		name   string
		stocks func(t *testing.T) []*stock.Stock
		want   []Type
	}{
		{"no stock records", func(t *testing.T) []*stock.Stock { return nil }, []Type{TypeOutOfStock}},
		{"all reserved", func(t *testing.T) []*stock.Stock {
			return []*stock.Stock{stockAt(t, "l1", 5, 5, nil)}
		}, []Type{TypeOutOfStock}},
		{"one location low", func(t *testing.T) []*stock.Stock {
			return []*stock.Stock{stockAt(t, "l1", 50, 0, intPtr(5)), stockAt(t, "l2", 3, 0, intPtr(5))}
		}, []Type{TypeLowStock}},
		{"healthy", func(t *testing.T) []*stock.Stock {
			return []*stock.Stock{stockAt(t, "l1", 50, 0, intPtr(5))}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, stocks, _ := newTestEngine()
			stocks.byVariant["variant-1"] = tt.stocks(t)

			raised, err := engine.CheckAndCreateAlerts(context.Background(), "variant-1", testNow)

			require.NoError(t, err)
			var types []Type
			for _, a := range raised {
				types = append(types, a.Type)
			}
			assert.Equal(t, tt.want, types)
		})
	}
}

func TestEngine_CheckAndCreateAlerts_SkipsActive(t *testing.T) {
	engine, stocks, alerts := newTestEngine()
	ctx := context.Background()
	stocks.byVariant["variant-1"] = []*stock.Stock{stockAt(t, "l1", 2, 0, intPtr(5))}

	first, err := engine.CheckAndCreateAlerts(ctx, "variant-1", testNow)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := engine.CheckAndCreateAlerts(ctx, "variant-1", testNow)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, alerts.alerts, 1)
}

func TestEngine_LowStockLifecycle(t *testing.T) {
	engine, stocks, alerts := newTestEngine()
	ctx := context.Background()

	stocks.byVariant["variant-1"] = []*stock.Stock{stockAt(t, "l1", 3, 0, intPtr(5))}
	raised, _, err := engine.Reevaluate(ctx, "variant-1", testNow)
	require.NoError(t, err)
	require.Len(t, raised, 1)
	first := raised[0]

	_, err = engine.Create(ctx, "variant-1", TypeLowStock, testNow)
	assert.ErrorIs(t, err, apperr.ErrDuplicateActiveAlert)

	stocks.byVariant["variant-1"] = []*stock.Stock{stockAt(t, "l1", 30, 0, intPtr(5))}
	raised, resolved, err := engine.Reevaluate(ctx, "variant-1", testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, raised)
	require.Len(t, resolved, 1)
	assert.Equal(t, first.ID, resolved[0].ID)
	require.NotNil(t, alerts.alerts[first.ID].ResolvedAt)

	stocks.byVariant["variant-1"] = []*stock.Stock{stockAt(t, "l1", 4, 0, intPtr(5))}
	raised, _, err = engine.Reevaluate(ctx, "variant-1", testNow.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, raised, 1)
	assert.NotEqual(t, first.ID, raised[0].ID)
}

func TestEngine_AutoResolve_OutOfStockTurnsIntoLow(t *testing.T) {
	engine, stocks, _ := newTestEngine()
	ctx := context.Background()

	stocks.byVariant["variant-1"] = []*stock.Stock{stockAt(t, "l1", 0, 0, intPtr(5))}
	raised, _, err := engine.Reevaluate(ctx, "variant-1", testNow)
	require.NoError(t, err)
	require.Len(t, raised, 1)
	assert.Equal(t, TypeOutOfStock, raised[0].Type)

	stocks.byVariant["variant-1"] = []*stock.Stock{stockAt(t, "l1", 2, 0, intPtr(5))}
	raised, resolved, err := engine.Reevaluate(ctx, "variant-1", testNow)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, TypeOutOfStock, resolved[0].Type)
	require.Len(t, raised, 1)
	assert.Equal(t, TypeLowStock, raised[0].Type)
}

func TestEngine_Resolve(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	a, err := engine.Create(ctx, "variant-1", TypeOutOfStock, testNow)
	require.NoError(t, err)

	r, err := engine.Resolve(ctx, a.ID, testNow)
	require.NoError(t, err)
	assert.NotNil(t, r.ResolvedAt)

	_, err = engine.Resolve(ctx, a.ID, testNow)
	assert.ErrorIs(t, err, apperr.ErrAlreadyResolved)

	_, err = engine.Resolve(ctx, "missing", testNow)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
