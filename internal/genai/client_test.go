package genai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(config.AIConfig{
		APIKey:   "k",
		Model:    "gemini-test",
		Endpoint: srv.URL + "/v1beta/",
		Timeout:  5 * time.Second,
	}, srv.Client())
}

func TestGenerateText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("missing api key")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "How many rows?") {
			t.Errorf("prompt missing from body: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Three "},{"text":"rows."}]}}]}`)
	})
	got, err := c.GenerateText(context.Background(), "How many rows?")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if got != "Three rows." {
		t.Errorf("GenerateText() = %q", got)
	}
}

func TestGenerateTextErrors(t *testing.T) {
	t.Run("upstream status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota", http.StatusTooManyRequests)
		})
		_, err := c.GenerateText(context.Background(), "x")
		var he *HTTPError
		if !errors.As(err, &he) || he.StatusCode != http.StatusTooManyRequests {
			t.Errorf("error = %v, want HTTPError 429", err)
		}
	})
	t.Run("empty candidates", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"candidates":[]}`)
		})
		if _, err := c.GenerateText(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("error = %v, want ErrEmptyResponse", err)
		}
	})
	t.Run("no api key", func(t *testing.T) {
		c := New(config.AIConfig{})
		if _, err := c.GenerateText(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("error = %v, want ErrNotConfigured", err)
		}
	})
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	})
	for i := 0; i < 7; i++ {
		_, _ = c.GenerateText(context.Background(), "x")
	}
	if calls != 5 {
		t.Errorf("upstream calls = %d, want 5 before the breaker opens", calls)
	}
}
