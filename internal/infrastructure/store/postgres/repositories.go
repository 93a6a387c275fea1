package postgres

import (
	"context"
	"time"

	"github.com/example/stock-ledger/internal/domain/alert"
	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/purchaseorder"
	"github.com/example/stock-ledger/internal/domain/reservation"
	"github.com/example/stock-ledger/internal/domain/stock"
	"github.com/example/stock-ledger/internal/infrastructure/store"
	"github.com/jmoiron/sqlx"
)

// ============================================
// Stocks
// ============================================

type stockRow struct {
	VariantID         string    `db:"variant_id"`
	LocationID        string    `db:"location_id"`
	OnHand            int       `db:"on_hand"`
	Reserved          int       `db:"reserved"`
	LowStockThreshold *int      `db:"low_stock_threshold"`
	SafetyStock       *int      `db:"safety_stock"`
	Version           int       `db:"version"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r stockRow) toDomain() *stock.Stock {
	return &stock.Stock{
		VariantID:  r.VariantID,
		LocationID: r.LocationID,
		Level: stock.Level{
			OnHand:            r.OnHand,
			Reserved:          r.Reserved,
			LowStockThreshold: r.LowStockThreshold,
			SafetyStock:       r.SafetyStock,
		},
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromStock(s *stock.Stock) stockRow {
	return stockRow{
		VariantID:         s.VariantID,
		LocationID:        s.LocationID,
		OnHand:            s.Level.OnHand,
		Reserved:          s.Level.Reserved,
		LowStockThreshold: s.Level.LowStockThreshold,
		SafetyStock:       s.Level.SafetyStock,
		Version:           s.Version,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

const stockColumns = `variant_id, location_id, on_hand, reserved, low_stock_threshold, safety_stock, version, created_at, updated_at`

type stockRepo struct {
	q    sqlx.ExtContext
	lock bool
}

func (r *stockRepo) forUpdate(query string) string {
	if r.lock {
		return query + ` FOR UPDATE`
	}
	return query
}

func (r *stockRepo) FindByVariantAndLocation(ctx context.Context, variantID, locationID string) (*stock.Stock, error) {
	var row stockRow
	query := r.forUpdate(`SELECT ` + stockColumns + ` FROM stocks WHERE variant_id = $1 AND location_id = $2`)
	if err := sqlx.GetContext(ctx, r.q, &row, query, variantID, locationID); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (r *stockRepo) FindByVariant(ctx context.Context, variantID string) ([]*stock.Stock, error) {
	var rows []stockRow
	query := r.forUpdate(`SELECT ` + stockColumns + ` FROM stocks WHERE variant_id = $1 ORDER BY location_id`)
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, variantID); err != nil {
		return nil, err
	}
	return toStocks(rows), nil
}

// Save inserts a new record (Version 0) or updates the row at s.Version.
func (r *stockRepo) Save(ctx context.Context, s *stock.Stock) error {
	row := fromStock(s)
	var query string
	if s.Version == 0 {
		row.Version = 1
		query = `
			INSERT INTO stocks (` + stockColumns + `)
			VALUES (:variant_id, :location_id, :on_hand, :reserved, :low_stock_threshold, :safety_stock, :version, :created_at, :updated_at)
			ON CONFLICT (variant_id, location_id) DO NOTHING`
	} else {
		query = `
			UPDATE stocks SET
				on_hand = :on_hand,
				reserved = :reserved,
				low_stock_threshold = :low_stock_threshold,
				safety_stock = :safety_stock,
				version = version + 1,
				updated_at = :updated_at
			WHERE variant_id = :variant_id AND location_id = :location_id AND version = :version`
	}

	res, err := sqlx.NamedExecContext(ctx, r.q, query, row)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConcurrentUpdate
	}
	s.Version++
	return nil
}

func (r *stockRepo) FindLowStockItems(ctx context.Context) ([]*stock.Stock, error) {
	var rows []stockRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT `+stockColumns+` FROM stocks
		WHERE low_stock_threshold IS NOT NULL AND on_hand - reserved <= low_stock_threshold
		ORDER BY variant_id, location_id`)
	if err != nil {
		return nil, err
	}
	return toStocks(rows), nil
}

func (r *stockRepo) GetTotalAvailableStock(ctx context.Context, variantID string) (int, error) {
	var total int
	err := sqlx.GetContext(ctx, r.q, &total,
		`SELECT COALESCE(SUM(on_hand - reserved), 0) FROM stocks WHERE variant_id = $1`, variantID)
	return total, err
}

func toStocks(rows []stockRow) []*stock.Stock {
	out := make([]*stock.Stock, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

// ============================================
// Ledger
// ============================================

type transactionRow struct {
	ID          string    `db:"id"`
	VariantID   string    `db:"variant_id"`
	LocationID  string    `db:"location_id"`
	QtyDelta    int       `db:"qty_delta"`
	Reason      string    `db:"reason"`
	ReferenceID *string   `db:"reference_id"`
	CreatedAt   time.Time `db:"created_at"`
}

type transactionRepo struct {
	q sqlx.ExtContext
}

func (r *transactionRepo) Append(ctx context.Context, tx *stock.Transaction) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO inventory_transactions (id, variant_id, location_id, qty_delta, reason, reference_id, created_at)
		VALUES (:id, :variant_id, :location_id, :qty_delta, :reason, :reference_id, :created_at)`,
		transactionRow(*tx))
	return err
}

func (r *transactionRepo) FindByVariant(ctx context.Context, variantID string, page store.Page) ([]*stock.Transaction, error) {
	page = page.Normalize()
	return r.find(ctx, `
		SELECT id, variant_id, location_id, qty_delta, reason, reference_id, created_at
		FROM inventory_transactions
		WHERE variant_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`, variantID, page.Limit, page.Offset)
}

func (r *transactionRepo) FindByVariantAndLocation(ctx context.Context, variantID, locationID string, page store.Page) ([]*stock.Transaction, error) {
	page = page.Normalize()
	return r.find(ctx, `
		SELECT id, variant_id, location_id, qty_delta, reason, reference_id, created_at
		FROM inventory_transactions
		WHERE variant_id = $1 AND location_id = $2
		ORDER BY seq DESC
		LIMIT $3 OFFSET $4`, variantID, locationID, page.Limit, page.Offset)
}

func (r *transactionRepo) find(ctx context.Context, query string, args ...any) ([]*stock.Transaction, error) {
	var rows []transactionRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*stock.Transaction, 0, len(rows))
	for _, row := range rows {
		tx := stock.Transaction(row)
		out = append(out, &tx)
	}
	return out, nil
}

// ============================================
// Reservations
// ============================================

type reservationRow struct {
	ID         string    `db:"id"`
	OrderID    string    `db:"order_id"`
	VariantID  string    `db:"variant_id"`
	LocationID string    `db:"location_id"`
	Qty        int       `db:"qty"`
	ExpiresAt  time.Time `db:"expires_at"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r reservationRow) toDomain() *reservation.Reservation {
	return &reservation.Reservation{
		ID:         r.ID,
		OrderID:    r.OrderID,
		VariantID:  r.VariantID,
		LocationID: r.LocationID,
		Qty:        r.Qty,
		ExpiresAt:  r.ExpiresAt,
		Status:     reservation.Status(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

const reservationColumns = `id, order_id, variant_id, location_id, qty, expires_at, status, created_at, updated_at`

type reservationRepo struct {
	q sqlx.ExtContext
}

func (r *reservationRepo) Save(ctx context.Context, res *reservation.Reservation) error {
	row := reservationRow{
		ID:         res.ID,
		OrderID:    res.OrderID,
		VariantID:  res.VariantID,
		LocationID: res.LocationID,
		Qty:        res.Qty,
		ExpiresAt:  res.ExpiresAt,
		Status:     string(res.Status),
		CreatedAt:  res.CreatedAt,
		UpdatedAt:  res.UpdatedAt,
	}
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO pickup_reservations (`+reservationColumns+`)
		VALUES (:id, :order_id, :variant_id, :location_id, :qty, :expires_at, :status, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			expires_at = EXCLUDED.expires_at,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`, row)
	return err
}

func (r *reservationRepo) FindByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+reservationColumns+` FROM pickup_reservations WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (r *reservationRepo) FindByOrder(ctx context.Context, orderID string) ([]*reservation.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM pickup_reservations
		WHERE order_id = $1 ORDER BY created_at, id`, orderID)
}

func (r *reservationRepo) FindActiveReservations(ctx context.Context, now time.Time) ([]*reservation.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM pickup_reservations
		WHERE status = $1 AND expires_at >= $2 ORDER BY created_at, id`, string(reservation.StatusActive), now)
}

func (r *reservationRepo) FindLapsedReservations(ctx context.Context, now time.Time, limit int) ([]*reservation.Reservation, error) {
	if limit <= 0 {
		limit = store.MaxPageLimit
	}
	return r.list(ctx, `SELECT `+reservationColumns+` FROM pickup_reservations
		WHERE status = $1 AND expires_at < $2 ORDER BY expires_at, id LIMIT $3`, string(reservation.StatusActive), now, limit)
}

func (r *reservationRepo) list(ctx context.Context, query string, args ...any) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*reservation.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ============================================
// Purchase orders
// ============================================

type orderRow struct {
	ID         string     `db:"id"`
	SupplierID string     `db:"supplier_id"`
	ETA        *time.Time `db:"eta"`
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

type orderRepo struct {
	q    sqlx.ExtContext
	lock bool
}

func (r *orderRepo) forUpdate(query string) string {
	if r.lock {
		return query + ` FOR UPDATE`
	}
	return query
}

func (r *orderRepo) Save(ctx context.Context, po *purchaseorder.PurchaseOrder) error {
	row := orderRow{
		ID:         po.ID,
		SupplierID: po.SupplierID,
		ETA:        po.ETA,
		Status:     string(po.Status),
		CreatedAt:  po.CreatedAt,
		UpdatedAt:  po.UpdatedAt,
	}
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO purchase_orders (id, supplier_id, eta, status, created_at, updated_at)
		VALUES (:id, :supplier_id, :eta, :status, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			eta = EXCLUDED.eta,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`, row)
	return err
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (*purchaseorder.PurchaseOrder, error) {
	var row orderRow
	query := r.forUpdate(`SELECT id, supplier_id, eta, status, created_at, updated_at FROM purchase_orders WHERE id = $1`)
	err := sqlx.GetContext(ctx, r.q, &row, query, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &purchaseorder.PurchaseOrder{
		ID:         row.ID,
		SupplierID: row.SupplierID,
		ETA:        row.ETA,
		Status:     purchaseorder.Status(row.Status),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type itemRow struct {
	ID              string `db:"id"`
	PurchaseOrderID string `db:"purchase_order_id"`
	VariantID       string `db:"variant_id"`
	OrderedQty      int    `db:"ordered_qty"`
	ReceivedQty     int    `db:"received_qty"`
}

const itemColumns = `id, purchase_order_id, variant_id, ordered_qty, received_qty`

type itemRepo struct {
	q sqlx.ExtContext
}

func (r *itemRepo) Save(ctx context.Context, it *purchaseorder.Item) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO purchase_order_items (`+itemColumns+`)
		VALUES (:id, :purchase_order_id, :variant_id, :ordered_qty, :received_qty)
		ON CONFLICT (id) DO UPDATE SET
			ordered_qty = EXCLUDED.ordered_qty,
			received_qty = EXCLUDED.received_qty`, itemRow(*it))
	if isUniqueViolation(err) {
		return apperr.Conflict("variant %s is already on purchase order %s", it.VariantID, it.PurchaseOrderID)
	}
	return err
}

func (r *itemRepo) FindByID(ctx context.Context, id string) (*purchaseorder.Item, error) {
	var row itemRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+itemColumns+` FROM purchase_order_items WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	it := purchaseorder.Item(row)
	return &it, nil
}

func (r *itemRepo) FindByPOAndVariant(ctx context.Context, purchaseOrderID, variantID string) (*purchaseorder.Item, error) {
	var row itemRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+itemColumns+` FROM purchase_order_items
		WHERE purchase_order_id = $1 AND variant_id = $2`, purchaseOrderID, variantID)
	if err != nil {
		return nil, notFound(err)
	}
	it := purchaseorder.Item(row)
	return &it, nil
}

func (r *itemRepo) FindByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*purchaseorder.Item, error) {
	var rows []itemRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT `+itemColumns+` FROM purchase_order_items
		WHERE purchase_order_id = $1 ORDER BY seq`, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	out := make([]*purchaseorder.Item, 0, len(rows))
	for _, row := range rows {
		it := purchaseorder.Item(row)
		out = append(out, &it)
	}
	return out, nil
}

func (r *itemRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM purchase_order_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *itemRepo) DeleteByPurchaseOrder(ctx context.Context, purchaseOrderID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM purchase_order_items WHERE purchase_order_id = $1`, purchaseOrderID)
	return err
}

// ============================================
// Alerts
// ============================================

type alertRow struct {
	ID          string     `db:"id"`
	VariantID   string     `db:"variant_id"`
	Type        string     `db:"type"`
	TriggeredAt time.Time  `db:"triggered_at"`
	ResolvedAt  *time.Time `db:"resolved_at"`
}

func (r alertRow) toDomain() *alert.Alert {
	return &alert.Alert{
		ID:          r.ID,
		VariantID:   r.VariantID,
		Type:        alert.Type(r.Type),
		TriggeredAt: r.TriggeredAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

const alertColumns = `id, variant_id, type, triggered_at, resolved_at`

type alertRepo struct {
	q sqlx.ExtContext
}

func (r *alertRepo) Save(ctx context.Context, a *alert.Alert) error {
	row := alertRow{
		ID:          a.ID,
		VariantID:   a.VariantID,
		Type:        string(a.Type),
		TriggeredAt: a.TriggeredAt,
		ResolvedAt:  a.ResolvedAt,
	}
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO stock_alerts (`+alertColumns+`)
		VALUES (:id, :variant_id, :type, :triggered_at, :resolved_at)
		ON CONFLICT (id) DO UPDATE SET resolved_at = EXCLUDED.resolved_at`, row)
	if isUniqueViolation(err) {
		return apperr.DuplicateActiveAlert("variant %s already has an active %s alert", a.VariantID, a.Type)
	}
	return err
}

func (r *alertRepo) FindByID(ctx context.Context, id string) (*alert.Alert, error) {
	var row alertRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+alertColumns+` FROM stock_alerts WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (r *alertRepo) HasActiveAlert(ctx context.Context, variantID string, t alert.Type) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.q, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM stock_alerts
			WHERE variant_id = $1 AND type = $2 AND resolved_at IS NULL
		)`, variantID, string(t))
	return exists, err
}

func (r *alertRepo) FindActiveAlertsByVariant(ctx context.Context, variantID string) ([]*alert.Alert, error) {
	return r.list(ctx, `SELECT `+alertColumns+` FROM stock_alerts
		WHERE variant_id = $1 AND resolved_at IS NULL ORDER BY triggered_at, id`, variantID)
}

func (r *alertRepo) FindActiveAlerts(ctx context.Context) ([]*alert.Alert, error) {
	return r.list(ctx, `SELECT `+alertColumns+` FROM stock_alerts
		WHERE resolved_at IS NULL ORDER BY triggered_at, id`)
}

func (r *alertRepo) list(ctx context.Context, query string, args ...any) ([]*alert.Alert, error) {
	var rows []alertRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*alert.Alert, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
