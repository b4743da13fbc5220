package model

import "time"

// Role is the authorization role of a principal.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// User is an authenticated principal. PasswordHash never leaves the process.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Analytics aggregates counters shown on the admin dashboard.
type Analytics struct {
	TotalUsers    int   `json:"totalUsers"`
	ActiveUsers   int   `json:"activeUsers"`
	AdminUsers    int   `json:"adminUsers"`
	TotalUploads  int   `json:"totalUploads"`
	RecentUploads int   `json:"recentUploads"`
	PublicFiles   int   `json:"publicFiles"`
	TotalFileSize int64 `json:"totalFileSize"`
}
