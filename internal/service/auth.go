package service

import (
	"context"
	"errors"
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

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a freshly issued credential.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user,omitempty"`
}

// AuthService registers principals and issues credentials.
type AuthService struct {
	users    storage.UserStore
	tokens   *auth.TokenManager
	activity *ActivityLog
	now      func() time.Time
}

func NewAuthService(users storage.UserStore, tokens *auth.TokenManager, activity *ActivityLog) *AuthService {
	return &AuthService{users: users, tokens: tokens, activity: activity, now: time.Now}
}

// Register creates a user principal and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflicting("Email already registered")
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
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.Conflicting("Email already registered")
		}
		return nil, storeErr(err, "User not found")
	}
	logging.Ctx(ctx).Info().Str("user_id", u.ID).Msg("user registered")
	s.activity.Record(ctx, u.ID, model.ActionRegistered, "Registered account "+u.Email)
	return s.issue(u)
}

// Login checks credentials. Unknown emails and wrong passwords produce the
// same message.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Invalid("Invalid credentials")
		}
		return nil, storeErr(err, "User not found")
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Invalid("Invalid credentials")
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("Account disabled")
	}
	now := s.now().UTC()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("record last login failed")
	}
	s.activity.Record(ctx, u.ID, model.ActionLogin, "Logged in")
	return s.issue(u)
}

// Refresh exchanges a valid credential for a new one. The principal must
// still exist and be active.
func (s *AuthService) Refresh(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Unauthorized("No token provided")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token")
	}
	u, err := s.users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized("Invalid token")
		}
		return nil, storeErr(err, "User not found")
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("Invalid token")
	}
	sess, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	sess.User = nil
	return sess, nil
}

// Logout records the event. Credentials are stateless so nothing is revoked.
func (s *AuthService) Logout(ctx context.Context, p *model.User) {
	if p == nil {
		return
	}
	s.activity.Record(ctx, p.ID, model.ActionLogout, "Logged out")
}

// Me reloads the principal.
func (s *AuthService) Me(ctx context.Context, p *model.User) (*model.User, error) {
	if p == nil {
		return nil, apperr.Unauthorized("Not authorized, no token")
	}
	u, err := s.users.Get(ctx, p.ID)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	return u, nil
}

func (s *AuthService) issue(u *model.User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internalf("Server error", err)
	}
	return &Session{Token: tok, ExpiresAt: s.now().Add(s.tokens.TTL()).UTC(), User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
