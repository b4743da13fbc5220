package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.ListenAddress(); got != ":5000" {
		t.Errorf("ListenAddress() = %q, want :5000", got)
	}
	if cfg.Upload.MaxFileBytes != 50<<20 {
		t.Errorf("MaxFileBytes = %d, want 50 MiB", cfg.Upload.MaxFileBytes)
	}
	if !reflect.DeepEqual(cfg.Upload.AllowedExtensions, []string{".csv", ".xls", ".xlsx"}) {
		t.Errorf("AllowedExtensions = %v", cfg.Upload.AllowedExtensions)
	}
	if cfg.Auth.JWTSecret == "" || cfg.Auth.SigningSecret == "" {
		t.Error("development secrets should be generated")
	}
	if cfg.Auth.SignedURLTTL != 5*time.Minute {
		t.Errorf("SignedURLTTL = %v, want 5m", cfg.Auth.SignedURLTTL)
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("MONGODB_URI", "postgres://localhost/sheetdrop")
	t.Setenv("SHEETDROP_ALLOWED_EXTENSIONS", "csv, .XLSX")
	t.Setenv("SHEETDROP_MAX_FILE_BYTES", "1024")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.IsProduction() {
		t.Error("NODE_ENV=production not applied")
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Auth.JWTTTL != 2*time.Hour {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Database.URL != "postgres://localhost/sheetdrop" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if !reflect.DeepEqual(cfg.Upload.AllowedExtensions, []string{".csv", ".xlsx"}) {
		t.Errorf("AllowedExtensions = %v", cfg.Upload.AllowedExtensions)
	}
	if cfg.Upload.MaxFileBytes != 1024 {
		t.Errorf("MaxFileBytes = %d", cfg.Upload.MaxFileBytes)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetdrop.yaml")
	body := "server:\n  address: 127.0.0.1:7000\nstorage:\n  dir: /tmp/sheets\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PathEnvVar, path)
	t.Setenv("UPLOAD_DIR", "/srv/sheets")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddress() != "127.0.0.1:7000" {
		t.Errorf("ListenAddress() = %q", cfg.ListenAddress())
	}
	if cfg.Storage.Dir != "/srv/sheets" {
		t.Errorf("env should override file: Storage.Dir = %q", cfg.Storage.Dir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "production without secret", mutate: func(c *Config) { c.Server.Environment = EnvProduction }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "ftp" }, wantErr: true},
		{name: "s3 without endpoint", mutate: func(c *Config) { c.Storage.Backend = BackendS3 }, wantErr: true},
		{name: "s3 complete", mutate: func(c *Config) {
			c.Storage.Backend = BackendS3
			c.Storage.Endpoint = "localhost:9000"
		}},
		{name: "zero size cap", mutate: func(c *Config) { c.Upload.MaxFileBytes = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
