package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
	"github.com/dharsanguruparan/SheetDrop/internal/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	recentWindow    = 30 * 24 * time.Hour
)

type CreateUserInput struct {
	Username string     `json:"username" validate:"required,max=50"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=user admin moderator"`
	IsActive *bool      `json:"isActive"`
}

type UpdateUserInput struct {
	Username string     `json:"username" validate:"omitempty,max=50"`
	Email    string     `json:"email" validate:"omitempty,email"`
	Password string     `json:"password" validate:"omitempty,min=6"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=user admin moderator"`
	IsActive *bool      `json:"isActive"`
}

// DataQuery is the admin dataset listing request.
type DataQuery struct {
	Page      int
	Limit     int
	Search    string
	User      string
	SortBy    string
	SortOrder string
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// OwnerRef is the owner summary shown next to admin listings.
type OwnerRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AdminDataset is a dataset with its owner populated.
type AdminDataset struct {
	DatasetView
	Owner *OwnerRef `json:"owner,omitempty"`
}

type DataPage struct {
	Data       []AdminDataset `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// DataUpdateInput is an administrative change to a dataset.
type DataUpdateInput struct {
	Data        [][]model.Cell `json:"data"`
	Headers     []string       `json:"headers"`
	Description *string        `json:"description"`
	Tags        []string       `json:"tags"`
	IsPublic    *bool          `json:"isPublic"`
	Version     *int64         `json:"version"`
}

// AdminService backs the admin console. Callers must hold the admin role.
type AdminService struct {
	users    storage.UserStore
	data     storage.DatasetStore
	datasets *DatasetService
	activity *ActivityLog
	now      func() time.Time
}

func NewAdminService(store storage.Store, datasets *DatasetService, activity *ActivityLog) *AdminService {
	return &AdminService{
		users:    store.Users(),
		data:     store.Datasets(),
		datasets: datasets,
		activity: activity,
		now:      time.Now,
	}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	return users, nil
}

func (s *AdminService) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	return u, nil
}

// CreateUser adds a principal. p may be nil when invoked from the CLI.
func (s *AdminService) CreateUser(ctx context.Context, p *model.User, in CreateUserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflicting("Email already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, storeErr(err, "User not found")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internalf("Server error", err)
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.Conflicting("Email already exists")
		}
		return nil, storeErr(err, "User not found")
	}
	if p != nil {
		s.activity.Record(ctx, p.ID, model.ActionUserCreated, "Created user "+u.Email)
	}
	return u, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, p *model.User, id string, in UpdateUserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	if in.Username != "" {
		u.Username = in.Username
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.Role != "" {
		u.Role = in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, apperr.Internalf("Server error", err)
		}
		u.PasswordHash = hash
	}
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.Conflicting("Email already exists")
		}
		return nil, storeErr(err, "User not found")
	}
	s.activity.Record(ctx, p.ID, model.ActionUserUpdated, "Updated user "+u.Email)
	return u, nil
}

// DeleteUser removes a principal together with its datasets and files.
func (s *AdminService) DeleteUser(ctx context.Context, p *model.User, id string) error {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return storeErr(err, "User not found")
	}
	owned, _, err := s.data.List(ctx, storage.DatasetQuery{OwnerID: u.ID})
	if err != nil {
		return storeErr(err, "Data not found")
	}
	for i := range owned {
		if err := s.datasets.Remove(ctx, &owned[i]); err != nil && !apperr.Is(err, apperr.NotFound) {
			return err
		}
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return storeErr(err, "User not found")
	}
	logging.Ctx(ctx).Info().
		Str("user_id", u.ID).
		Int("datasets", len(owned)).
		Msg("user deleted")
	s.activity.Record(ctx, p.ID, model.ActionUserDeleted, "Deleted user "+u.Email)
	return nil
}

// Activity returns the latest activity entries.
func (s *AdminService) Activity(ctx context.Context) ([]model.ActivityLogEntry, error) {
	return s.activity.Recent(ctx, RecentActivityLimit)
}

func (s *AdminService) CreateActivity(ctx context.Context, in ActivityInput) (*model.ActivityLogEntry, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.activity.Create(ctx, in)
}

// ListData pages through every dataset.
func (s *AdminService) ListData(ctx context.Context, q DataQuery) (*DataPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	list, total, err := s.data.List(ctx, storage.DatasetQuery{
		OwnerID: q.User,
		Search:  strings.TrimSpace(q.Search),
		SortBy:  q.SortBy,
		SortAsc: strings.EqualFold(q.SortOrder, "asc"),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		return nil, storeErr(err, "Data not found")
	}
	owners := make(map[string]*OwnerRef)
	out := make([]AdminDataset, len(list))
	for i := range list {
		out[i] = AdminDataset{DatasetView: View(&list[i]), Owner: s.owner(ctx, owners, list[i].OwnerID)}
	}
	return &DataPage{
		Data: out,
		Pagination: Pagination{
			CurrentPage:  page,
			TotalPages:   int(math.Ceil(float64(total) / float64(limit))),
			TotalItems:   total,
			ItemsPerPage: limit,
		},
	}, nil
}

func (s *AdminService) owner(ctx context.Context, cache map[string]*OwnerRef, id string) *OwnerRef {
	if ref, ok := cache[id]; ok {
		return ref
	}
	var ref *OwnerRef
	if u, err := s.users.Get(ctx, id); err == nil {
		ref = &OwnerRef{ID: u.ID, Username: u.Username, Email: u.Email}
	}
	cache[id] = ref
	return ref
}

func (s *AdminService) GetData(ctx context.Context, id string) (*AdminDataset, error) {
	ds, err := s.data.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Data not found")
	}
	return &AdminDataset{DatasetView: DetailView(ds), Owner: s.owner(ctx, map[string]*OwnerRef{}, ds.OwnerID)}, nil
}

// UpdateData applies content and metadata changes to any dataset.
func (s *AdminService) UpdateData(ctx context.Context, p *model.User, id string, in DataUpdateInput) (*model.Dataset, error) {
	ds, err := s.data.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Data not found")
	}
	ds, err = s.datasets.Apply(ctx, ds, Edit{
		Headers:     in.Headers,
		Grid:        in.Data,
		Description: in.Description,
		Tags:        in.Tags,
		IsPublic:    in.IsPublic,
		Version:     in.Version,
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, p.ID, model.ActionModifiedData, "Modified data entry: "+ds.StorageName)
	return ds, nil
}

func (s *AdminService) DeleteData(ctx context.Context, p *model.User, id string) error {
	ds, err := s.data.Get(ctx, id)
	if err != nil {
		return storeErr(err, "Data not found")
	}
	if err := s.datasets.Remove(ctx, ds); err != nil {
		return err
	}
	s.activity.Record(ctx, p.ID, model.ActionDeletedData, "Deleted data entry: "+ds.StorageName)
	return nil
}

// Reprocess schedules server-side parsing of a dataset.
func (s *AdminService) Reprocess(ctx context.Context, id string) (*model.Dataset, error) {
	return s.datasets.Reprocess(ctx, id)
}

// Analytics computes dashboard counters.
func (s *AdminService) Analytics(ctx context.Context) (*model.Analytics, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	var a model.Analytics
	a.TotalUsers = len(users)
	for _, u := range users {
		if u.IsActive {
			a.ActiveUsers++
		}
		if u.Role == model.RoleAdmin {
			a.AdminUsers++
		}
	}
	all, err := s.data.Stats(ctx, storage.DatasetQuery{})
	if err != nil {
		return nil, storeErr(err, "Data not found")
	}
	recent, err := s.data.Stats(ctx, storage.DatasetQuery{CreatedAfter: s.now().Add(-recentWindow)})
	if err != nil {
		return nil, storeErr(err, "Data not found")
	}
	public, err := s.data.Stats(ctx, storage.DatasetQuery{PublicOnly: true})
	if err != nil {
		return nil, storeErr(err, "Data not found")
	}
	a.TotalUploads = all.Count
	a.TotalFileSize = all.TotalBytes
	a.RecentUploads = recent.Count
	a.PublicFiles = public.Count
	return &a, nil
}
