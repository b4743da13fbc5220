package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dharsanguruparan/SheetDrop/internal/api/response"
	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

// CookieName is the cookie consulted when no Authorization header is sent.
const CookieName = "token"

// UserLookup resolves a token subject to a principal.
type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// OwnerResolver returns the owner id of the resource addressed by r.
type OwnerResolver func(r *http.Request) (string, error)

// Gate authenticates requests and enforces role and ownership checks.
type Gate struct {
	tokens *TokenManager
	users  UserLookup
}

func NewGate(tokens *TokenManager, users UserLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// TokenFromRequest prefers "Authorization: Bearer" and falls back to the
// token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// resolve verifies the token and loads a live principal.
func (g *Gate) resolve(ctx context.Context, token string) (*model.User, error) {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Unauthorized("Not authorized, token failed")
	}
	u, err := g.users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || apperr.Is(err, apperr.NotFound) {
			return nil, apperr.Unauthorized("Not authorized, user not found")
		}
		return nil, apperr.Internalf("Server error", err)
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("Not authorized, account disabled")
	}
	return u, nil
}

// Authenticate rejects requests without a valid credential for a live
// principal and attaches the principal to the context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			response.Error(w, r, apperr.Unauthorized("Not authorized, no token"))
			return
		}
		u, err := g.resolve(r.Context(), token)
		if err != nil {
			response.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), u)))
	})
}

// OptionalAuthenticate attaches a principal when a valid credential is
// present and otherwise continues anonymously.
func (g *Gate) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := g.resolve(r.Context(), token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("optional auth ignored credential")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), u)))
	})
}

// Authorize allows only principals holding one of roles.
func Authorize(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p == nil {
				response.Error(w, r, apperr.Unauthorized("Not authorized, no token"))
				return
			}
			if !HasAnyRole(p, roles...) {
				response.Error(w, r, apperr.Denied("User role not authorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthorizeOwnerOrAdmin allows the resource owner and admins. A NotFound from
// the resolver is passed through; any other resolver failure is a generic
// server error.
func AuthorizeOwnerOrAdmin(resolve OwnerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p == nil {
				response.Error(w, r, apperr.Unauthorized("Not authorized, no token"))
				return
			}
			owner, err := resolve(r)
			if err != nil {
				switch {
				case apperr.Is(err, apperr.NotFound):
					response.Error(w, r, err)
				case errors.Is(err, storage.ErrNotFound):
					response.Error(w, r, apperr.Missing("Resource not found"))
				default:
					response.Error(w, r, apperr.Internalf("Server error", err))
				}
				return
			}
			if !CanAccess(p, owner) {
				response.Error(w, r, apperr.Denied("Not authorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
