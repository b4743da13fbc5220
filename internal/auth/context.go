package auth

import (
	"context"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal attaches u to ctx.
func WithPrincipal(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, principalKey, u)
}

// PrincipalFrom returns the authenticated principal, or nil.
func PrincipalFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(principalKey).(*model.User)
	return u
}

// CanAccess reports whether p may act on a resource owned by ownerID.
func CanAccess(p *model.User, ownerID string) bool {
	if p == nil {
		return false
	}
	return p.IsAdmin() || p.ID == ownerID
}

// HasAnyRole reports whether p holds one of roles.
func HasAnyRole(p *model.User, roles ...model.Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
