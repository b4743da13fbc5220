// Package response writes JSON bodies and maps classified errors onto HTTP
// responses. All handlers and middleware go through Error so every failure
// has the same shape.
package response

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
)

type causesKey struct{}

// WithCauses returns ctx marked so that Error includes the underlying cause
// of an error in the body.
func WithCauses(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, causesKey{}, on)
}

// ExposeCauses is middleware applying WithCauses to every request. The router
// enables it outside production.
func ExposeCauses(on bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithCauses(r.Context(), on)))
		})
	}
}

func causesExposed(ctx context.Context) bool {
	on, _ := ctx.Value(causesKey{}).(bool)
	return on
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("encode response")
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, v any) {
	JSON(w, http.StatusCreated, v)
}

// Message writes {"success":true,"message":msg}.
func Message(w http.ResponseWriter, msg string) {
	OK(w, map[string]any{"success": true, "message": msg})
}

// Error classifies err and writes the matching status and body. Internal
// errors are logged with the request id.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	body := ErrorBody{Message: e.Message, Errors: e.Fields}
	if e.Err != nil && causesExposed(r.Context()) {
		body.Error = e.Err.Error()
	}
	if e.Kind == apperr.Internal {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	JSON(w, e.Kind.HTTPStatus(), body)
}
