// Package postgres is the PostgreSQL Store. Schema lives in
// migrations/001_init.sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/stock-ledger/internal/infrastructure/store"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect establishes a connection to PostgreSQL
func Connect(ctx context.Context, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	return db, nil
}

type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn in one database transaction. Stock rows read inside it
// are locked with SELECT ... FOR UPDATE until commit.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
			}
		}
	}()

	if err = fn(&repos{q: sqlTx, lock: true}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Stocks() store.StockStore {
	return &stockRepo{q: s.db}
}

func (s *Store) Transactions() store.TransactionStore {
	return &transactionRepo{q: s.db}
}

func (s *Store) Reservations() store.ReservationStore {
	return &reservationRepo{q: s.db}
}

func (s *Store) PurchaseOrders() store.PurchaseOrderStore {
	return &orderRepo{q: s.db}
}

func (s *Store) PurchaseOrderItems() store.PurchaseOrderItemStore {
	return &itemRepo{q: s.db}
}

func (s *Store) Alerts() store.AlertStore {
	return &alertRepo{q: s.db}
}

type repos struct {
	q    sqlx.ExtContext
	lock bool
}

func (r *repos) Stocks() store.StockStore                         { return &stockRepo{q: r.q, lock: r.lock} }
func (r *repos) Transactions() store.TransactionStore             { return &transactionRepo{q: r.q} }
func (r *repos) Reservations() store.ReservationStore             { return &reservationRepo{q: r.q} }
func (r *repos) PurchaseOrders() store.PurchaseOrderStore         { return &orderRepo{q: r.q, lock: r.lock} }
func (r *repos) PurchaseOrderItems() store.PurchaseOrderItemStore { return &itemRepo{q: r.q} }
func (r *repos) Alerts() store.AlertStore                         { return &alertRepo{q: r.q} }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
