// Package storage defines the persistence contracts for users, datasets and
// the activity log, plus an in-memory implementation used in development and
// tests.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique field (user email) is taken.
	ErrConflict = errors.New("record already exists")
	// ErrVersionMismatch is returned by DatasetStore.Update when the stored
	// version differs from the one the caller read.
	ErrVersionMismatch = errors.New("record was modified concurrently")
)

// Store groups the three collections.
type Store interface {
	Users() UserStore
	Datasets() DatasetStore
	Activity() ActivityStore
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns users newest first.
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
}

type DatasetStore interface {
	Create(ctx context.Context, d *model.Dataset) error
	Get(ctx context.Context, id string) (*model.Dataset, error)
	// Update replaces the stored dataset when d.Version equals the stored
	// version, then increments d.Version.
	Update(ctx context.Context, d *model.Dataset) error
	Delete(ctx context.Context, id string) error
	// List returns a page of datasets without their grids and the total
	// number of matches.
	List(ctx context.Context, q DatasetQuery) ([]model.Dataset, int, error)
	Stats(ctx context.Context, q DatasetQuery) (DatasetStats, error)
}

type ActivityStore interface {
	Append(ctx context.Context, e *model.ActivityLogEntry) error
	// List returns entries newest first.
	List(ctx context.Context, q ActivityQuery) ([]model.ActivityLogEntry, error)
}

// Sortable dataset fields.
const (
	SortCreatedAt    = "createdAt"
	SortOriginalName = "originalName"
	SortFileSize     = "fileSize"
	SortRowCount     = "rowCount"
)

// DatasetQuery filters dataset listings. Zero values mean no filter; a zero
// Limit means no limit.
type DatasetQuery struct {
	OwnerID      string
	PublicOnly   bool
	Search       string
	CreatedAfter time.Time
	SortBy       string
	SortAsc      bool
	Limit        int
	Offset       int
}

// SortField returns a known sort field, defaulting to createdAt.
func (q DatasetQuery) SortField() string {
	switch q.SortBy {
	case SortOriginalName, SortFileSize, SortRowCount:
		return q.SortBy
	case "byteSize":
		return SortFileSize
	default:
		return SortCreatedAt
	}
}

type DatasetStats struct {
	Count      int   `json:"totalFiles"`
	TotalBytes int64 `json:"totalSize"`
}

type ActivityQuery struct {
	UserID string
	Limit  int
}
