// Package config loads the analytics bridge configuration.
//
// Sources are layered, later ones winning:
//
//  1. built-in defaults
//  2. an optional YAML file (ANALYTICS_CONFIG_PATH, else the first of DefaultConfigPaths)
//  3. environment variables (POSTHOG_API_KEY, POSTHOG_API_HOST, ...)
//
// The PostHog section lives under "posthog" in the file:
//
//	posthog:
//	  api_key: phc_xxx
//	  api_endpoint: https://eu.i.posthog.com
//	  auto_identify: true
//	  options:
//	    capture_pageview: true
//	server:
//	  listen_addr: 127.0.0.1:8787
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"kongflow/analytics-bridge/internal/services/analytics"
	"kongflow/analytics-bridge/internal/validation"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "ANALYTICS_CONFIG_PATH"

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"analytics.yaml",
	"analytics.yml",
}

// Config is the full bridge configuration.
type Config struct {
	PostHog analytics.Config `koanf:"posthog"`
	Server  ServerConfig     `koanf:"server"`
	Logging LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the local HTTP transport for the command bridge.
type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr" json:"listenAddr" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdownTimeout" validate:"gt=0"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" json:"maxBodyBytes" validate:"gt=0"`

	// AllowedOrigins are the CORS origins allowed to call the bridge. One "*"
	// wildcard per origin is supported, e.g. "http://localhost:*".
	AllowedOrigins []string `koanf:"allowed_origins" json:"allowedOrigins"`

	// RateLimitRequests per RateLimitWindow and client IP. Zero disables.
	RateLimitRequests int           `koanf:"rate_limit_requests" json:"rateLimitRequests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" json:"rateLimitWindow" validate:"required_with=RateLimitRequests"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `koanf:"level" json:"level" validate:"oneof=log error warn info debug"`
}

func defaultConfig() *Config {
	return &Config{
		PostHog: analytics.DefaultConfig(),
		Server: ServerConfig{
			ListenAddr:        "127.0.0.1:8787",
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      1 << 20,
			AllowedOrigins:    []string{"http://localhost:*", "http://127.0.0.1:*"},
			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// envMappings maps (lower-cased) environment variable names to config paths.
var envMappings = map[string]string{
	"posthog_api_key":                 "posthog.api_key",
	"posthog_api_host":                "posthog.api_endpoint",
	"posthog_api_endpoint":            "posthog.api_endpoint",
	"posthog_request_timeout_seconds": "posthog.request_timeout_seconds",
	"posthog_auto_identify":           "posthog.auto_identify",
	"posthog_init_strategy":           "posthog.init_strategy",
	"posthog_device_id_source":        "posthog.device_id_source",
	"posthog_batch_size":              "posthog.batch_size",
	"posthog_flush_interval":          "posthog.flush_interval",
	"posthog_debug":                   "posthog.options.debug",
	"analytics_listen_addr":           "server.listen_addr",
	"analytics_shutdown_timeout":      "server.shutdown_timeout",
	"analytics_max_body_bytes":        "server.max_body_bytes",
	"analytics_allowed_origins":       "server.allowed_origins",
	"analytics_rate_limit_requests":   "server.rate_limit_requests",
	"analytics_rate_limit_window":     "server.rate_limit_window",
	"analytics_log_level":             "logging.level",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads defaults, the config file (if any) and the environment. A file
// named by ConfigPathEnvVar must exist.
func Load() (*Config, error) {
	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitListFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the server and logging sections. The PostHog section is
// validated by analytics.NewClientWrapper so a missing API key surfaces as an
// analytics configuration error.
func (c *Config) Validate() error {
	var errs []error
	if err := validation.Struct(c.Server); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := validation.Struct(c.Logging); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	return errors.Join(errs...)
}

// listPaths hold lists that arrive from the environment as comma-separated strings.
var listPaths = []string{
	"server.allowed_origins",
}

func splitListFields(k *koanf.Koanf) error {
	for _, path := range listPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() (string, error) {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("config file from %s: %w", ConfigPathEnvVar, err)
		}
		return envPath, nil
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}
