package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expose      bool
		wantStatus  int
		wantMessage string
		wantCause   string
	}{
		{
			name:        "validation",
			err:         apperr.Invalid("Validation failed", apperr.FieldError{Field: "email", Message: "bad"}),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Validation failed",
		},
		{
			name:        "forbidden",
			err:         apperr.Denied("Not authorized"),
			wantStatus:  http.StatusForbidden,
			wantMessage: "Not authorized",
		},
		{
			name:        "unclassified hidden in production",
			err:         errors.New("disk on fire"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Server error",
		},
		{
			name:        "unclassified exposed in development",
			err:         errors.New("disk on fire"),
			expose:      true,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Server error",
			wantCause:   "disk on fire",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req = req.WithContext(WithCauses(req.Context(), tt.expose))
			Error(rec, req, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decode(t, rec)
			if body.Success {
				t.Error("success should be false")
			}
			if body.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", body.Message, tt.wantMessage)
			}
			if body.Error != tt.wantCause {
				t.Errorf("error = %q, want %q", body.Error, tt.wantCause)
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodPost, "/", nil),
		apperr.Invalid("Validation failed", apperr.FieldError{Field: "password", Message: "too short"}))
	body := decode(t, rec)
	if len(body.Errors) != 1 || body.Errors[0].Field != "password" {
		t.Errorf("errors = %+v", body.Errors)
	}
}

func TestExposeCausesMiddleware(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, errors.New("pool exhausted"))
	})
	for _, on := range []bool{true, false} {
		rec := httptest.NewRecorder()
		ExposeCauses(on)(failing).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		got := decode(t, rec).Error
		if on && got != "pool exhausted" {
			t.Errorf("exposed: error = %q", got)
		}
		if !on && got != "" {
			t.Errorf("hidden: error = %q", got)
		}
	}
}
