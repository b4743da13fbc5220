package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names an optional YAML file layered between defaults and env.
const PathEnvVar = "SHEETDROP_CONFIG"

// Load layers defaults, the optional config file and environment variables,
// in that order of increasing priority, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var sliceConfigPaths = []string{
	"upload.allowed_extensions",
}

// splitSliceFields turns comma separated env values into slices.
func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"port":                "server.port",
	"sheetdrop_address":   "server.address",
	"node_env":            "server.environment",
	"environment":         "server.environment",
	"frontend_url":        "server.frontend_url",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"shutdown_timeout":    "server.shutdown_timeout",

	"jwt_secret":               "auth.jwt_secret",
	"jwt_ttl":                  "auth.jwt_ttl",
	"sheetdrop_signing_secret": "auth.signing_secret",
	"sheetdrop_signed_ttl":     "auth.signed_url_ttl",

	"sheetdrop_max_file_bytes":     "upload.max_file_bytes",
	"sheetdrop_allowed_extensions": "upload.allowed_extensions",
	"sheetdrop_workers":            "upload.workers",

	"database_url": "database.url",
	"mongodb_uri":  "database.url",

	"storage_backend": "storage.backend",
	"upload_dir":      "storage.dir",
	"s3_endpoint":     "storage.s3_endpoint",
	"s3_access_key":   "storage.s3_access_key",
	"s3_secret_key":   "storage.s3_secret_key",
	"s3_bucket":       "storage.s3_bucket",
	"s3_region":       "storage.s3_region",
	"s3_use_ssl":      "storage.s3_use_ssl",

	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	"gemini_api_key":  "ai.api_key",
	"gemini_model":    "ai.model",
	"gemini_endpoint": "ai.endpoint",
	"gemini_timeout":  "ai.timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
