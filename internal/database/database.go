// Package database opens the Postgres pool and creates the SheetDrop schema.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN and checks that
// the server answers.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Schema is the DDL applied by EnsureSchema. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	last_login_at TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (lower(email));

CREATE TABLE IF NOT EXISTS datasets (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	storage_name      TEXT NOT NULL,
	original_name     TEXT NOT NULL,
	mime_type         TEXT NOT NULL,
	byte_size         BIGINT NOT NULL,
	storage_path      TEXT NOT NULL,
	sheet_name        TEXT NOT NULL,
	columns           JSONB,
	grid              JSONB,
	row_count         INTEGER NOT NULL DEFAULT 0,
	column_count      INTEGER NOT NULL DEFAULT 0,
	summary           JSONB,
	processing_status TEXT NOT NULL,
	processing_error  TEXT NOT NULL DEFAULT '',
	processing_time   BIGINT NOT NULL DEFAULT 0,
	is_public         BOOLEAN NOT NULL DEFAULT FALSE,
	tags              TEXT[] NOT NULL DEFAULT '{}',
	description       TEXT NOT NULL DEFAULT '',
	chart_config      JSONB,
	version           BIGINT NOT NULL DEFAULT 1,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_datasets_owner_created ON datasets (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_datasets_public_created ON datasets (is_public, created_at DESC);

CREATE TABLE IF NOT EXISTS activity_logs (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	action     TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	ip         TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_logs_created ON activity_logs (created_at DESC);`

// EnsureSchema creates the tables and indexes if needed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
