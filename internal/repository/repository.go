// Package repository is the Postgres implementation of storage.Store. Derived
// dataset structures (columns, grid, summary, chart config) are stored as
// JSONB.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

const uniqueViolation = "23505"

// Store wraps all SQL used by the API and worker.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// New constructs a Store on an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Users() storage.UserStore       { return &Users{pool: s.pool} }
func (s *Store) Datasets() storage.DatasetStore { return &Datasets{pool: s.pool} }
func (s *Store) Activity() storage.ActivityStore {
	return &Activity{pool: s.pool}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// mapErr converts driver errors into the storage sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrConflict
	}
	return err
}
