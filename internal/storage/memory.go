package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

// MemoryStore keeps every collection in maps guarded by one RWMutex. Reads
// return copies so callers never alias stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	datasets map[string]*model.Dataset
	activity []model.ActivityLogEntry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*model.User),
		datasets: make(map[string]*model.Dataset),
	}
}

func (m *MemoryStore) Users() UserStore       { return memoryUsers{m} }
func (m *MemoryStore) Datasets() DatasetStore { return memoryDatasets{m} }
func (m *MemoryStore) Activity() ActivityStore {
	return memoryActivity{m}
}

type memoryUsers struct{ m *MemoryStore }

func (s memoryUsers) Create(_ context.Context, u *model.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[u.ID]; ok {
		return ErrConflict
	}
	if s.emailTaken(u.Email, "") {
		return ErrConflict
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	c := *u
	s.m.users[u.ID] = &c
	return nil
}

// emailTaken must be called with the lock held.
func (s memoryUsers) emailTaken(email, exceptID string) bool {
	for id, u := range s.m.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s memoryUsers) Get(_ context.Context, id string) (*model.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s memoryUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, u := range s.m.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s memoryUsers) List(_ context.Context) ([]model.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := make([]model.User, 0, len(s.m.users))
	for _, u := range s.m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s memoryUsers) Update(_ context.Context, u *model.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[u.ID]; !ok {
		return ErrNotFound
	}
	if s.emailTaken(u.Email, u.ID) {
		return ErrConflict
	}
	u.UpdatedAt = time.Now().UTC()
	c := *u
	s.m.users[u.ID] = &c
	return nil
}

func (s memoryUsers) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.users, id)
	return nil
}

type memoryDatasets struct{ m *MemoryStore }

func (s memoryDatasets) Create(_ context.Context, d *model.Dataset) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.datasets[d.ID]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	d.Version = 1
	s.m.datasets[d.ID] = d.Clone()
	return nil
}

func (s memoryDatasets) Get(_ context.Context, id string) (*model.Dataset, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	d, ok := s.m.datasets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (s memoryDatasets) Update(_ context.Context, d *model.Dataset) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.datasets[d.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != d.Version {
		return ErrVersionMismatch
	}
	d.OwnerID = cur.OwnerID
	d.CreatedAt = cur.CreatedAt
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	s.m.datasets[d.ID] = d.Clone()
	return nil
}

func (s memoryDatasets) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.datasets[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.datasets, id)
	return nil
}

// match must be called with the lock held.
func (s memoryDatasets) match(q DatasetQuery) []*model.Dataset {
	search := strings.ToLower(q.Search)
	var out []*model.Dataset
	for _, d := range s.m.datasets {
		if q.OwnerID != "" && d.OwnerID != q.OwnerID {
			continue
		}
		if q.PublicOnly && !d.IsPublic {
			continue
		}
		if !q.CreatedAfter.IsZero() && !d.CreatedAt.After(q.CreatedAfter) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(d.OriginalName), search) &&
			!strings.Contains(strings.ToLower(d.StorageName), search) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (s memoryDatasets) List(_ context.Context, q DatasetQuery) ([]model.Dataset, int, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	matched := s.match(q)
	less := datasetLess(q.SortField())
	sort.Slice(matched, func(i, j int) bool {
		if q.SortAsc {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})
	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	out := make([]model.Dataset, 0, end-start)
	for _, d := range matched[start:end] {
		out = append(out, d.Clone().WithoutGrid())
	}
	return out, total, nil
}

func datasetLess(field string) func(a, b *model.Dataset) bool {
	switch field {
	case SortOriginalName:
		return func(a, b *model.Dataset) bool { return a.OriginalName < b.OriginalName }
	case SortFileSize:
		return func(a, b *model.Dataset) bool { return a.ByteSize < b.ByteSize }
	case SortRowCount:
		return func(a, b *model.Dataset) bool { return a.RowCount < b.RowCount }
	default:
		return func(a, b *model.Dataset) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func (s memoryDatasets) Stats(_ context.Context, q DatasetQuery) (DatasetStats, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var st DatasetStats
	for _, d := range s.match(q) {
		st.Count++
		st.TotalBytes += d.ByteSize
	}
	return st, nil
}

type memoryActivity struct{ m *MemoryStore }

func (s memoryActivity) Append(_ context.Context, e *model.ActivityLogEntry) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.m.activity = append(s.m.activity, *e)
	return nil
}

func (s memoryActivity) List(_ context.Context, q ActivityQuery) ([]model.ActivityLogEntry, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := make([]model.ActivityLogEntry, 0)
	for i := len(s.m.activity) - 1; i >= 0; i-- {
		e := s.m.activity[i]
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
