// Package config loads layered configuration: built-in defaults, an optional
// YAML file, then SLEDILNIK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "SLEDILNIK_"

// PathEnvVar names the environment variable holding the config file path.
const PathEnvVar = EnvPrefix + "CONFIG"

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Uploads  UploadsConfig  `koanf:"uploads"`
	Admin    AdminConfig    `koanf:"admin"`
	Cleanup  CleanupConfig  `koanf:"cleanup"`
	Security SecurityConfig `koanf:"security"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
	// BaseURL is the public origin used in tracking pages. Empty means the
	// page calls back to whatever origin served it.
	BaseURL      string `koanf:"base_url"`
	TrustedProxy bool   `koanf:"trusted_proxy"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type UploadsConfig struct {
	Dir      string `koanf:"dir"`
	MaxBytes int64  `koanf:"max_bytes"`
}

type AdminConfig struct {
	Username string `koanf:"username"`
	// Password is the shared secret for both the console login and the
	// X-API-Key header. Generated at startup when empty.
	Password string `koanf:"password"`
}

type CleanupConfig struct {
	// Interval between scheduled passes. Zero disables the scheduler.
	Interval          time.Duration `koanf:"interval"`
	LocationRetention time.Duration `koanf:"location_retention"`
}

type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	CaptureRateLimit  int           `koanf:"capture_rate_limit"`
	CaptureRateWindow time.Duration `koanf:"capture_rate_window"`
	LoginRateLimit    int           `koanf:"login_rate_limit"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type LogConfig struct {
	Path       string `koanf:"path"`
	Level      string `koanf:"level"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Path: "sledilnik.sqlite3",
		},
		Uploads: UploadsConfig{
			Dir:      "uploads",
			MaxBytes: 50 << 20,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Cleanup: CleanupConfig{
			Interval:          time.Hour,
			LocationRetention: 60 * time.Hour,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			CaptureRateLimit:  30,
			CaptureRateWindow: time.Minute,
			LoginRateLimit:    10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// sliceKeys are split on commas when they arrive as a single string.
var sliceKeys = []string{"security.cors_origins"}

// Load builds the configuration. path may be empty, in which case the file
// named by SLEDILNIK_CONFIG is used if set.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// sections are the top-level keys. The first underscore after a section
// name separates it from the field: SLEDILNIK_LOG_MAX_SIZE_MB -> log.max_size_mb.
var sections = []string{"server", "database", "uploads", "admin", "cleanup", "security", "metrics", "log"}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	// Unknown variables land outside the struct and are ignored.
	return key
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.base_url %q must be an absolute http(s) URL", c.Server.BaseURL))
		}
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Uploads.Dir == "" {
		errs = append(errs, errors.New("uploads.dir is required"))
	}
	if c.Uploads.MaxBytes <= 0 {
		errs = append(errs, errors.New("uploads.max_bytes must be positive"))
	}
	if c.Admin.Username == "" {
		errs = append(errs, errors.New("admin.username is required"))
	}
	if c.Cleanup.Interval < 0 {
		errs = append(errs, errors.New("cleanup.interval must not be negative"))
	}
	if c.Cleanup.LocationRetention <= 0 {
		errs = append(errs, errors.New("cleanup.location_retention must be positive"))
	}
	if c.Security.CaptureRateLimit < 0 || c.Security.LoginRateLimit < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.Security.CaptureRateLimit > 0 && c.Security.CaptureRateWindow <= 0 {
		errs = append(errs, errors.New("security.capture_rate_window must be positive"))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}

	return errors.Join(errs...)
}
