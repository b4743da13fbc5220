// Package config centralizes how SheetDrop reads its settings and exposes them
// as strongly typed Go values.
package config

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the runtime configuration. It is loaded once at start and passed
// to constructors.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Upload   UploadConfig   `koanf:"upload"`
	Database DatabaseConfig `koanf:"database"`
	Storage  StorageConfig  `koanf:"storage"`
	Redis    RedisConfig    `koanf:"redis"`
	AI       AIConfig       `koanf:"ai"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Address           string        `koanf:"address"`
	Port              int           `koanf:"port"`
	Environment       string        `koanf:"environment"`
	FrontendURL       string        `koanf:"frontend_url"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	JWTTTL        time.Duration `koanf:"jwt_ttl"`
	SigningSecret string        `koanf:"signing_secret"`
	SignedURLTTL  time.Duration `koanf:"signed_url_ttl"`
}

type UploadConfig struct {
	MaxFileBytes      int64    `koanf:"max_file_bytes"`
	AllowedExtensions []string `koanf:"allowed_extensions"`
	Workers           int      `koanf:"workers"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// StorageConfig selects where uploaded files live.
type StorageConfig struct {
	Backend   string `koanf:"backend"`
	Dir       string `koanf:"dir"`
	Endpoint  string `koanf:"s3_endpoint"`
	AccessKey string `koanf:"s3_access_key"`
	SecretKey string `koanf:"s3_secret_key"`
	Bucket    string `koanf:"s3_bucket"`
	Region    string `koanf:"s3_region"`
	UseSSL    bool   `koanf:"s3_use_ssl"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type AIConfig struct {
	APIKey   string        `koanf:"api_key"`
	Model    string        `koanf:"model"`
	Endpoint string        `koanf:"endpoint"`
	Timeout  time.Duration `koanf:"timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	BackendLocal = "local"
	BackendS3    = "s3"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              5000,
			Environment:       EnvDevelopment,
			FrontendURL:       "http://localhost:3000",
			RateLimitRequests: 100,
			RateLimitWindow:   15 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
		},
		Auth: AuthConfig{
			JWTTTL:       time.Hour,
			SignedURLTTL: 5 * time.Minute,
		},
		Upload: UploadConfig{
			MaxFileBytes:      50 << 20, // 50 MiB
			AllowedExtensions: []string{".csv", ".xls", ".xlsx"},
			Workers:           2,
		},
		Storage: StorageConfig{
			Backend: BackendLocal,
			Dir:     "uploads",
			Bucket:  "sheetdrop",
			Region:  "us-east-1",
		},
		AI: AIConfig{
			Model:    "gemini-1.5-flash",
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ListenAddress returns the explicit address, or ":<port>".
func (c *Config) ListenAddress() string {
	if c.Server.Address != "" {
		return c.Server.Address
	}
	return ":" + strconv.Itoa(c.Server.Port)
}

// IsProduction reports whether error causes must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, EnvProduction)
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("UPLOAD_DIR must not be empty")
		}
	case BackendS3:
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			return fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Upload.MaxFileBytes <= 0 {
		return fmt.Errorf("SHEETDROP_MAX_FILE_BYTES must be positive")
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("SHEETDROP_ALLOWED_EXTENSIONS must not be empty")
	}
	return nil
}

// applyFallbacks fills values that are derived rather than defaulted.
func (c *Config) applyFallbacks() {
	if c.Auth.JWTSecret == "" && !c.IsProduction() {
		c.Auth.JWTSecret = randomSecret()
	}
	if c.Auth.SigningSecret == "" {
		c.Auth.SigningSecret = randomSecret()
	}
	if c.Upload.Workers <= 0 {
		c.Upload.Workers = 1
	}
	if c.Auth.SignedURLTTL <= 0 {
		c.Auth.SignedURLTTL = 5 * time.Minute
	}
	if c.Auth.JWTTTL <= 0 {
		c.Auth.JWTTTL = time.Hour
	}
	for i, ext := range c.Upload.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Upload.AllowedExtensions[i] = ext
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "fallbacksecret"
	}
	return fmt.Sprintf("%x", buf)
}
