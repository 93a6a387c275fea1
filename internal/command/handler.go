package command

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/infrastructure/lock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
)

const DefaultReservationHold = 15 * time.Minute

// Handler runs every state changing inventory operation. Each operation is
// one unit of work: the stock locks are taken, the store transaction runs
// and the buffered events are published once it commits.
type Handler struct {
	store       store.Store
	locker      lock.Locker
	publisher   store.Publisher
	ids         store.IDGenerator
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
	defaultHold time.Duration
	settleBatch int
}

type Option func(*Handler)

func WithLocker(l lock.Locker) Option {
	return func(h *Handler) { h.locker = l }
}

func WithPublisher(p store.Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

func WithIDGenerator(ids store.IDGenerator) Option {
	return func(h *Handler) { h.ids = ids }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func WithDefaultHold(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.defaultHold = d
		}
	}
}

// WithSettleBatch sets how many lapsed holds one settle call takes when the
// command names no limit.
func WithSettleBatch(n int) Option {
	return func(h *Handler) {
		if n > 0 && n <= store.MaxPageLimit {
			h.settleBatch = n
		}
	}
}

func NewHandler(st store.Store, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:       st,
		locker:      lock.NewLocal(),
		ids:         store.UUIDGenerator{},
		logger:      logger,
		tracer:      otel.Tracer("stock-ledger/command"),
		now:         func() time.Time { return time.Now().UTC() },
		defaultHold: DefaultReservationHold,
		settleBatch: store.DefaultPageLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// unit is the state of one running operation.
type unit struct {
	h       *Handler
	tx      store.Tx
	outbox  *store.Outbox
	now     time.Time
	touched map[string]struct{}
	fields  []zap.Field
}

// execute validates cmd, locks keys, runs fn inside a store transaction and
// publishes what fn recorded. Alerts of every variant whose stock fn saved
// are re-evaluated before the transaction commits.
func (h *Handler) execute(ctx context.Context, name string, cmd any, keys []string, fn func(ctx context.Context, u *unit) error) error {
	return h.run(ctx, name, cmd, func(context.Context) ([]string, error) { return keys, nil }, fn)
}

// run is execute for commands whose lock keys depend on stored state.
// keysFn runs after validation and before any lock is taken; its errors
// are reported like any other rejection.
func (h *Handler) run(
	ctx context.Context,
	name string,
	cmd any,
	keysFn func(ctx context.Context) ([]string, error),
	fn func(ctx context.Context, u *unit) error,
) error {
	ctx, span := h.tracer.Start(ctx, "command."+name, trace.WithAttributes(attribute.String("command", name)))
	defer span.End()

	if cmd != nil {
		if err := Validate(cmd); err != nil {
			return h.fail(span, name, err)
		}
	}

	keys, err := keysFn(ctx)
	if err != nil {
		return h.fail(span, name, err)
	}
	if len(keys) > 0 {
		unlock, err := lock.LockAll(ctx, h.locker, keys...)
		if err != nil {
			return h.fail(span, name, err)
		}
		defer unlock()
	}

	u := &unit{
		h:       h,
		outbox:  &store.Outbox{},
		now:     h.now(),
		touched: make(map[string]struct{}),
	}
	err = h.store.WithinTx(ctx, func(tx store.Tx) error {
		u.tx = tx
		if err := fn(ctx, u); err != nil {
			return err
		}
		return u.reevaluateAlerts(ctx)
	})
	if err != nil {
		return h.fail(span, name, err)
	}

	u.outbox.Flush(ctx, h.publisher, h.logger)
	span.SetStatus(codes.Ok, "")
	h.logger.Info("command completed", append([]zap.Field{
		zap.String("command", name),
		zap.Int("events", len(u.outbox.Events())),
	}, u.fields...)...)
	return nil
}

func (h *Handler) fail(span trace.Span, name string, err error) error {
	e := apperr.From(err)
	span.RecordError(e)
	span.SetStatus(codes.Error, string(e.Kind))
	if e.Kind == apperr.KindInternal {
		h.logger.Error("command failed", zap.String("command", name), zap.Error(e.Err))
	} else {
		h.logger.Debug("command rejected",
			zap.String("command", name),
			zap.String("kind", string(e.Kind)),
			zap.String("error", e.Error()),
		)
	}
	return e
}

func (u *unit) entry(reason string, referenceID *string) stock.Entry {
	return stock.Entry{
		ID:          u.h.ids.NewID(),
		Reason:      reason,
		ReferenceID: referenceID,
		At:          u.now,
	}
}

// annotate adds fields to the completion log line.
func (u *unit) annotate(fields ...zap.Field) {
	u.fields = append(u.fields, fields...)
}

func (u *unit) record(aggregateID, aggregateType, eventType string, data any) error {
	return u.outbox.Record(aggregateID, aggregateType, eventType, data, u.now)
}

// findStock loads a stock record, naming the pair when it is missing.
func (u *unit) findStock(ctx context.Context, variantID, locationID string) (*stock.Stock, error) {
	s, err := u.tx.Stocks().FindByVariantAndLocation(ctx, variantID, locationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("no stock for variant %s at location %s", variantID, locationID)
	}
	return s, err
}

// saveStock persists s with the ledger rows its mutation produced.
func (u *unit) saveStock(ctx context.Context, s *stock.Stock, txs ...*stock.Transaction) error {
	if err := u.tx.Stocks().Save(ctx, s); err != nil {
		return err
	}
	for _, t := range txs {
		if t == nil {
			continue
		}
		if err := u.tx.Transactions().Append(ctx, t); err != nil {
			return err
		}
	}
	if _, seen := u.touched[s.VariantID]; !seen {
		u.annotate(zap.String("variant_id", s.VariantID))
	}
	u.touched[s.VariantID] = struct{}{}
	u.annotate(zap.String("location_id", s.LocationID))
	return nil
}

func (u *unit) alertEngine() *alert.Engine {
	return alert.NewEngine(u.tx.Stocks(), u.tx.Alerts(), u.h.ids)
}

func (u *unit) reevaluateAlerts(ctx context.Context) error {
	variants := make([]string, 0, len(u.touched))
	for v := range u.touched {
		variants = append(variants, v)
	}
	sort.Strings(variants)
	for _, v := range variants {
		if _, _, err := u.reevaluate(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) reevaluate(ctx context.Context, variantID string) (raised, resolved []*alert.Alert, err error) {
	raised, resolved, err = u.alertEngine().Reevaluate(ctx, variantID, u.now)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range resolved {
		if err := u.recordAlertResolved(a); err != nil {
			return nil, nil, err
		}
	}
	for _, a := range raised {
		if err := u.recordAlertRaised(ctx, a); err != nil {
			return nil, nil, err
		}
	}
	delete(u.touched, variantID)
	return raised, resolved, nil
}

func (u *unit) recordAlertRaised(ctx context.Context, a *alert.Alert) error {
	total, err := u.tx.Stocks().GetTotalAvailableStock(ctx, a.VariantID)
	if err != nil {
		return err
	}
	return u.record(a.ID, alert.AggregateType, alert.EventAlertRaised, alert.AlertRaised{
		AlertID:        a.ID,
		VariantID:      a.VariantID,
		Type:           a.Type,
		TotalAvailable: total,
		TriggeredAt:    a.TriggeredAt,
	})
}

func (u *unit) recordAlertResolved(a *alert.Alert) error {
	var at time.Time
	if a.ResolvedAt != nil {
		at = *a.ResolvedAt
	}
	return u.record(a.ID, alert.AggregateType, alert.EventAlertResolved, alert.AlertResolved{
		AlertID:    a.ID,
		VariantID:  a.VariantID,
		Type:       a.Type,
		ResolvedAt: at,
	})
}

func stockKeys(variantIDs ...string) []string {
	keys := make([]string, 0, len(variantIDs))
	for _, v := range variantIDs {
		keys = append(keys, lock.VariantKey(v))
	}
	return keys
}

// orderKeys locks the purchase order along with the stock of any variants
// the command books against it.
func orderKeys(purchaseOrderID string, variantIDs ...string) []string {
	return append(stockKeys(variantIDs...), lock.PurchaseOrderKey(purchaseOrderID))
}
