// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/artpar/polyapi/domain/ratelimit"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Schema    SchemaConfig    `yaml:"schema" validate:"required"`
	API       APIConfig       `yaml:"api"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port" validate:"min=0,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SchemaConfig points at the noun definition file.
type SchemaConfig struct {
	Path  string `yaml:"path" validate:"required"`
	Watch bool   `yaml:"watch"`
}

// APIConfig describes the generated API surface.
type APIConfig struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// AuthConfig configures API key authentication. When no keys and no
// key file are configured, every request passes.
type AuthConfig struct {
	Keys            []KeyConfig `yaml:"keys" validate:"dive"`
	AllowQueryParam bool        `yaml:"allow_query_param"`
	PublicEndpoints []string    `yaml:"public_endpoints"`
}

// KeyConfig is a statically configured API key.
type KeyConfig struct {
	Key            string `yaml:"key" validate:"required"`
	Tier           string `yaml:"tier"`
	OrganizationID string `yaml:"organization_id"`
}

// RateLimitConfig configures request rate limiting.
type RateLimitConfig struct {
	Enabled   bool                      `yaml:"enabled"`
	Requests  int                       `yaml:"requests" validate:"min=0"`
	Window    string                    `yaml:"window"`
	Endpoints map[string]ratelimit.Rule `yaml:"endpoints"`
	Tiers     map[string]ratelimit.Rule `yaml:"tiers"`
}

// CORSConfig configures cross-origin headers on the REST surface.
type CORSConfig struct {
	Enabled      bool   `yaml:"enabled"`
	AllowOrigin  string `yaml:"allow_origin"`
	AllowMethods string `yaml:"allow_methods"`
	AllowHeaders string `yaml:"allow_headers"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies POLYAPI_* environment variables.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYAPI_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("POLYAPI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("POLYAPI_SCHEMA_PATH"); v != "" {
		cfg.Schema.Path = v
	}
	if v := os.Getenv("POLYAPI_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("POLYAPI_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.API.Title == "" {
		cfg.API.Title = "API"
	}
	if cfg.API.Version == "" {
		cfg.API.Version = "1.0.0"
	}
	if cfg.RateLimit.Window == "" {
		cfg.RateLimit.Window = "1m"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.CORS.Enabled && cfg.CORS.AllowOrigin == "" {
		cfg.CORS.AllowOrigin = "*"
	}
}

// Validate checks the configuration for structural errors.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("field %s failed %q validation", e.Namespace(), e.Tag())
		}
		return err
	}

	if cfg.RateLimit.Window != "" && !ratelimit.ValidWindow(cfg.RateLimit.Window) {
		return fmt.Errorf("rate_limit.window: invalid window %q", cfg.RateLimit.Window)
	}
	for ep, rule := range cfg.RateLimit.Endpoints {
		if !ratelimit.ValidWindow(rule.Window) {
			return fmt.Errorf("rate_limit.endpoints[%s]: invalid window %q", ep, rule.Window)
		}
	}
	for tier, rule := range cfg.RateLimit.Tiers {
		if !ratelimit.ValidWindow(rule.Window) {
			return fmt.Errorf("rate_limit.tiers[%s]: invalid window %q", tier, rule.Window)
		}
	}

	return nil
}

// RateLimitSettings converts the config section to limiter settings.
// Returns nil when rate limiting is disabled.
func (c *Config) RateLimitSettings() *ratelimit.Settings {
	if !c.RateLimit.Enabled {
		return nil
	}
	return &ratelimit.Settings{
		Requests:  c.RateLimit.Requests,
		Window:    c.RateLimit.Window,
		Endpoints: c.RateLimit.Endpoints,
		Tiers:     c.RateLimit.Tiers,
	}
}
