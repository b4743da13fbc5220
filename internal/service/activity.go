package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

// RecentActivityLimit caps the admin activity listing.
const RecentActivityLimit = 100

// ActivityLog appends audit entries. Write failures are logged and never
// reach the caller.
type ActivityLog struct {
	entries storage.ActivityStore
	users   storage.UserStore
	now     func() time.Time
}

func NewActivityLog(store storage.Store) *ActivityLog {
	return &ActivityLog{entries: store.Activity(), users: store.Users(), now: time.Now}
}

// Record appends an entry for userID using the client address held in ctx.
func (a *ActivityLog) Record(ctx context.Context, userID string, action model.Action, details string) {
	e := &model.ActivityLogEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		IP:        ClientIP(ctx),
		Timestamp: a.now().UTC(),
	}
	if err := a.entries.Append(ctx, e); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user_id", userID).
			Str("action", string(action)).
			Msg("activity log write failed")
	}
}

// ActivityInput is the body of an explicit activity entry.
type ActivityInput struct {
	User    string       `json:"user" validate:"required"`
	Action  model.Action `json:"action" validate:"required"`
	Details string       `json:"details"`
	IP      string       `json:"ip"`
}

// Create appends an entry supplied by an administrator.
func (a *ActivityLog) Create(ctx context.Context, in ActivityInput) (*model.ActivityLogEntry, error) {
	if !in.Action.Valid() {
		return nil, apperr.Invalid("Validation failed", apperr.FieldError{Field: "action", Message: "action is invalid"})
	}
	e := &model.ActivityLogEntry{
		ID:        uuid.NewString(),
		UserID:    in.User,
		Action:    in.Action,
		Details:   in.Details,
		IP:        in.IP,
		Timestamp: a.now().UTC(),
	}
	if e.IP == "" {
		e.IP = ClientIP(ctx)
	}
	if err := a.entries.Append(ctx, e); err != nil {
		return nil, storeErr(err, "Activity not found")
	}
	return e, nil
}

// Recent returns the latest entries, newest first, with usernames filled in.
func (a *ActivityLog) Recent(ctx context.Context, limit int) ([]model.ActivityLogEntry, error) {
	if limit <= 0 || limit > RecentActivityLimit {
		limit = RecentActivityLimit
	}
	entries, err := a.entries.List(ctx, storage.ActivityQuery{Limit: limit})
	if err != nil {
		return nil, storeErr(err, "Activity not found")
	}
	names := make(map[string]string)
	for i := range entries {
		id := entries[i].UserID
		name, ok := names[id]
		if !ok {
			if u, err := a.users.Get(ctx, id); err == nil {
				name = u.Username
			}
			names[id] = name
		}
		entries[i].Username = name
	}
	return entries, nil
}
