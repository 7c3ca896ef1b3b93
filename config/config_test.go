package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/polyapi/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polyapi.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "schema:\n  path: schema.yaml\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.API.Title != "API" || cfg.API.Version != "1.0.0" {
		t.Errorf("api defaults = %q %q", cfg.API.Title, cfg.API.Version)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %q %q", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics path = %q", cfg.Metrics.Path)
	}
}

func TestLoad_MissingSchemaPathFails(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	_, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "Path") {
		t.Fatalf("err = %v, want schema path validation failure", err)
	}
}

func TestLoad_InvalidRateWindowFails(t *testing.T) {
	path := writeConfig(t, `
schema:
  path: schema.yaml
rate_limit:
  enabled: true
  requests: 10
  window: soonish
`)

	_, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "soonish") {
		t.Fatalf("err = %v, want invalid window error", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POLYAPI_SERVER_PORT", "9999")
	t.Setenv("POLYAPI_LOG_LEVEL", "debug")

	path := writeConfig(t, "schema:\n  path: schema.yaml\nserver:\n  port: 8081\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, env should win over the file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsEnvInFile(t *testing.T) {
	t.Setenv("SCHEMA_FILE", "from-env.yaml")

	path := writeConfig(t, "schema:\n  path: ${SCHEMA_FILE}\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schema.Path != "from-env.yaml" {
		t.Errorf("schema path = %q", cfg.Schema.Path)
	}
}

func TestRateLimitSettings(t *testing.T) {
	path := writeConfig(t, `
schema:
  path: schema.yaml
rate_limit:
  enabled: true
  requests: 100
  window: 1m
  tiers:
    pro:
      requests: 1000
      window: 1h
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	settings := cfg.RateLimitSettings()
	if settings == nil {
		t.Fatal("settings should be non-nil when enabled")
	}
	if settings.Requests != 100 || settings.Window != "1m" {
		t.Errorf("global rule = %d/%s", settings.Requests, settings.Window)
	}
	if settings.Tiers["pro"].Requests != 1000 {
		t.Errorf("tier rule = %+v", settings.Tiers["pro"])
	}

	cfg.RateLimit.Enabled = false
	if cfg.RateLimitSettings() != nil {
		t.Error("settings should be nil when disabled")
	}
}
