package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

// Activity is the append-only activity_logs table.
type Activity struct {
	pool *pgxpool.Pool
}

func (r *Activity) Append(ctx context.Context, e *model.ActivityLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_logs (id, user_id, action, details, ip, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.UserID, e.Action, e.Details, e.IP, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *Activity) List(ctx context.Context, q storage.ActivityQuery) ([]model.ActivityLogEntry, error) {
	sql := `SELECT id, user_id, action, details, ip, created_at FROM activity_logs`
	var args []any
	if q.UserID != "" {
		args = append(args, q.UserID)
		sql += ` WHERE user_id=$1`
	}
	sql += ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select activity: %w", err)
	}
	defer rows.Close()
	out := make([]model.ActivityLogEntry, 0)
	for rows.Next() {
		var e model.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details, &e.IP, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
