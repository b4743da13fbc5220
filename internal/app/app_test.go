package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/config"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Environment:       config.EnvDevelopment,
			FrontendURL:       "http://localhost:3000",
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Auth: config.AuthConfig{
			JWTSecret:     "app-test-secret",
			JWTTTL:        time.Hour,
			SigningSecret: "app-signing-secret",
			SignedURLTTL:  time.Minute,
		},
		Upload: config.UploadConfig{
			MaxFileBytes:      1 << 20,
			AllowedExtensions: []string{".csv", ".xlsx"},
			Workers:           1,
		},
		Storage: config.StorageConfig{Backend: config.BackendLocal, Dir: t.TempDir()},
	}
}

func TestNewInMemory(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*storage.MemoryStore); !ok {
		t.Errorf("store = %T, want in-memory", a.Store)
	}
	if a.Pool == nil {
		t.Error("expected in-process pool without redis")
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRunWorkerRequiresBackends(t *testing.T) {
	cfg := testConfig(t)
	if err := RunWorker(context.Background(), cfg); err == nil {
		t.Error("expected error without REDIS_ADDR")
	}
	cfg.Redis.Addr = "localhost:6379"
	if err := RunWorker(context.Background(), cfg); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	if err := Migrate(context.Background(), testConfig(t)); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}
