package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/api/response"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
)

type sessionResponse struct {
	Success   bool        `json:"success"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	sess, err := s.auth.Register(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	s.setSessionCookie(w, sess)
	response.Created(w, sessionResponse{Success: true, Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: sess.User})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	sess, err := s.auth.Login(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	s.setSessionCookie(w, sess)
	response.OK(w, sessionResponse{Success: true, Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: sess.User})
}

// handleRefresh reads the token from the JSON body, then X-Refresh-Token,
// then the usual bearer header or cookie.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	if r.ContentLength != 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(w, r, &body); err != nil {
			response.Error(w, r, err)
			return
		}
	}
	token := body.RefreshToken
	if token == "" {
		token = body.Token
	}
	if token == "" {
		token = r.Header.Get("X-Refresh-Token")
	}
	if token == "" {
		token = auth.TokenFromRequest(r)
	}
	sess, err := s.auth.Refresh(r.Context(), token)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	s.setSessionCookie(w, sess)
	response.OK(w, sessionResponse{Success: true, Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context(), auth.PrincipalFrom(r.Context()))
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
	response.Message(w, "Logged out")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Me(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "user": u})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess *service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}
