package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store hands out repositories bound to the pool, or to a single transaction
// inside WithTx.
type Store interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Carts() CartRepository
	WithTx(ctx context.Context, fn func(Store) error) error
}

type sqlStore struct {
	db   *sql.DB
	conn DBTX
	inTx bool
}

// NewStore creates a Store backed by db
func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db, conn: db}
}

func (s *sqlStore) Products() ProductRepository {
	return NewProductRepository(s.conn)
}

func (s *sqlStore) Categories() CategoryRepository {
	return NewCategoryRepository(s.conn)
}

func (s *sqlStore) Carts() CartRepository {
	return NewCartRepository(s.conn)
}

// WithTx runs fn in a transaction, committing when fn returns nil and rolling
// back otherwise. Nested calls join the outer transaction.
func (s *sqlStore) WithTx(ctx context.Context, fn func(Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlStore{db: s.db, conn: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
