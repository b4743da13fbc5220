package model

import "time"

// Action is the closed set of auditable actions.
type Action string

const (
	ActionLogin         Action = "login"
	ActionLogout        Action = "logout"
	ActionRegistered    Action = "registered"
	ActionUploadedFile  Action = "uploaded_file"
	ActionViewedChart   Action = "viewed_chart"
	ActionExportedChart Action = "exported_chart"
	ActionModifiedData  Action = "modified_data"
	ActionDeletedFile   Action = "deleted_file"
	ActionDeletedData   Action = "deleted_data"
	ActionUserCreated   Action = "user_created"
	ActionUserUpdated   Action = "user_updated"
	ActionUserDeleted   Action = "user_deleted"
)

var knownActions = map[Action]struct{}{
	ActionLogin: {}, ActionLogout: {}, ActionRegistered: {}, ActionUploadedFile: {},
	ActionViewedChart: {}, ActionExportedChart: {}, ActionModifiedData: {},
	ActionDeletedFile: {}, ActionDeletedData: {}, ActionUserCreated: {},
	ActionUserUpdated: {}, ActionUserDeleted: {},
}

// Valid reports whether a is part of the enumeration.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// ActivityLogEntry is an immutable audit record.
type ActivityLogEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Username  string    `json:"username,omitempty"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}
