package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

func newTestGate(t *testing.T) (*Gate, *TokenManager, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for _, u := range []*model.User{
		{ID: "owner", Email: "owner@example.com", Role: model.RoleUser, IsActive: true},
		{ID: "other", Email: "other@example.com", Role: model.RoleUser, IsActive: true},
		{ID: "admin", Email: "admin@example.com", Role: model.RoleAdmin, IsActive: true},
		{ID: "disabled", Email: "off@example.com", Role: model.RoleUser, IsActive: false},
	} {
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	tokens, err := NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return NewGate(tokens, store.Users()), tokens, store
}

func bearer(t *testing.T, tokens *TokenManager, id string) string {
	t.Helper()
	tok, err := tokens.Issue(id, model.RoleUser)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if p := PrincipalFrom(r.Context()); p != nil {
		w.Header().Set("X-Principal", p.ID)
	}
	w.WriteHeader(http.StatusNoContent)
})

func TestAuthenticate(t *testing.T) {
	gate, tokens, _ := newTestGate(t)
	h := gate.Authenticate(okHandler)

	tests := []struct {
		name          string
		header        string
		cookie        string
		wantStatus    int
		wantPrincipal string
	}{
		{name: "no credential", wantStatus: http.StatusUnauthorized},
		{name: "bearer", header: bearer(t, tokens, "owner"), wantStatus: http.StatusNoContent, wantPrincipal: "owner"},
		{name: "cookie fallback", cookie: mustIssue(t, tokens, "admin"), wantStatus: http.StatusNoContent, wantPrincipal: "admin"},
		{name: "garbage", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "deleted principal", header: bearer(t, tokens, "ghost"), wantStatus: http.StatusUnauthorized},
		{name: "inactive principal", header: bearer(t, tokens, "disabled"), wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("X-Principal"); got != tt.wantPrincipal {
				t.Errorf("principal = %q, want %q", got, tt.wantPrincipal)
			}
		})
	}
}

func mustIssue(t *testing.T, tokens *TokenManager, id string) string {
	t.Helper()
	tok, err := tokens.Issue(id, model.RoleUser)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestOptionalAuthenticate(t *testing.T) {
	gate, tokens, _ := newTestGate(t)
	h := gate.OptionalAuthenticate(okHandler)

	for name, header := range map[string]string{
		"anonymous": "",
		"invalid":   "Bearer broken",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusNoContent || rec.Header().Get("X-Principal") != "" {
				t.Errorf("status = %d principal = %q", rec.Code, rec.Header().Get("X-Principal"))
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, tokens, "other"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Principal") != "other" {
		t.Errorf("valid credential not attached")
	}
}

func TestAuthorize(t *testing.T) {
	gate, tokens, _ := newTestGate(t)
	h := gate.Authenticate(Authorize(model.RoleAdmin)(okHandler))

	for id, want := range map[string]int{
		"admin": http.StatusNoContent,
		"owner": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearer(t, tokens, id))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", id, rec.Code, want)
		}
	}
}

func TestAuthorizeOwnerOrAdmin(t *testing.T) {
	gate, tokens, _ := newTestGate(t)

	tests := []struct {
		name       string
		principal  string
		resolver   OwnerResolver
		wantStatus int
	}{
		{name: "owner", principal: "owner", resolver: ownedBy("owner"), wantStatus: http.StatusNoContent},
		{name: "admin", principal: "admin", resolver: ownedBy("owner"), wantStatus: http.StatusNoContent},
		{name: "stranger", principal: "other", resolver: ownedBy("owner"), wantStatus: http.StatusForbidden},
		{
			name:       "missing resource",
			principal:  "owner",
			resolver:   func(*http.Request) (string, error) { return "", apperr.Missing("File not found") },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store not found",
			principal:  "owner",
			resolver:   func(*http.Request) (string, error) { return "", storage.ErrNotFound },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "resolver failure",
			principal:  "other",
			resolver:   func(*http.Request) (string, error) { return "", errors.New("db down") },
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := gate.Authenticate(AuthorizeOwnerOrAdmin(tt.resolver)(okHandler))
			req := httptest.NewRequest(http.MethodDelete, "/", nil)
			req.Header.Set("Authorization", bearer(t, tokens, tt.principal))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func ownedBy(id string) OwnerResolver {
	return func(*http.Request) (string, error) { return id, nil }
}

func TestCanAccess(t *testing.T) {
	admin := &model.User{ID: "a", Role: model.RoleAdmin}
	user := &model.User{ID: "u", Role: model.RoleUser}
	if !CanAccess(admin, "u") || !CanAccess(user, "u") {
		t.Error("owner and admin should have access")
	}
	if CanAccess(user, "x") || CanAccess(nil, "x") {
		t.Error("stranger and anonymous should be denied")
	}
}
