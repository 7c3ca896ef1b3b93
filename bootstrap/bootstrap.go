// Package bootstrap wires all dependencies and starts the application.
// The engine is rebuilt and swapped in place whenever the config or
// schema file changes, so in-flight requests always see a consistent
// schema.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/polyapi/adapters/httpserver"
	"github.com/artpar/polyapi/adapters/keystore"
	"github.com/artpar/polyapi/adapters/metrics"
	"github.com/artpar/polyapi/config"
	"github.com/artpar/polyapi/core/engine"
	"github.com/artpar/polyapi/core/openapi"
	"github.com/artpar/polyapi/core/rest"
	"github.com/artpar/polyapi/core/schema"
	"github.com/artpar/polyapi/domain/auth"
	"github.com/artpar/polyapi/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Holder     *config.Holder
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	// Verbs are registered in code before Run; they survive reloads.
	verbs schema.Verbs

	mu      sync.RWMutex
	engine  *engine.Engine
	handler http.Handler
}

// New creates the application from a config file path.
func New(configPath string, verbs schema.Verbs) (*App, error) {
	logger := setupLoggerFromEnv()

	holder, err := config.NewHolder(configPath, logger)
	if err != nil {
		return nil, err
	}

	cfg := holder.Get()
	logger = setupLogger(cfg.Logging)

	a := &App{
		Logger:  logger,
		Holder:  holder,
		Metrics: metrics.New(),
		verbs:   verbs,
	}

	if err := a.rebuild(cfg); err != nil {
		return nil, err
	}

	holder.OnChange(func(newCfg *config.Config) {
		if err := a.rebuild(newCfg); err != nil {
			a.Logger.Error().Err(err).Msg("rebuild failed, keeping old engine")
		}
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      http.HandlerFunc(a.serveHTTP),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Engine returns the current engine (thread-safe).
func (a *App) Engine() *engine.Engine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine
}

func (a *App) serveHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	h := a.handler
	a.mu.RUnlock()
	h.ServeHTTP(w, r)
}

// rebuild compiles the schema and swaps in a fresh engine. State held
// by the old engine (records, rate limit windows) does not carry over.
func (a *App) rebuild(cfg *config.Config) error {
	defs, err := schema.LoadDefinitions(cfg.Schema.Path)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	eng, err := engine.New(engine.Options{
		Nouns:     defs,
		Verbs:     a.verbs,
		Auth:      authSettings(cfg.Auth),
		RateLimit: cfg.RateLimitSettings(),
		CORS:      corsSettings(cfg.CORS),
		Info:      apiInfo(cfg.API),
		Logger:    a.Logger,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = a.Metrics
	}
	srv := httpserver.New(eng, collector, a.Logger)

	a.mu.Lock()
	a.engine = eng
	a.handler = srv.Router()
	a.mu.Unlock()

	a.Logger.Info().
		Int("nouns", len(defs)).
		Str("schema", cfg.Schema.Path).
		Msg("engine ready")
	return nil
}

func authSettings(cfg config.AuthConfig) auth.Settings {
	s := auth.Settings{
		AllowQueryParam: cfg.AllowQueryParam,
		PublicEndpoints: cfg.PublicEndpoints,
	}
	if len(cfg.Keys) == 0 {
		return s
	}

	keys := make(map[string]ports.KeyInfo, len(cfg.Keys))
	for i, k := range cfg.Keys {
		keys[k.Key] = ports.KeyInfo{
			KeyID:          fmt.Sprintf("static-%d", i),
			Tier:           k.Tier,
			OrganizationID: k.OrganizationID,
		}
	}

	s.APIKeys = true
	s.Validator = keystore.NewStatic(keys)
	return s
}

func corsSettings(cfg config.CORSConfig) *rest.CORS {
	if !cfg.Enabled {
		return nil
	}
	c := &rest.CORS{Origin: cfg.AllowOrigin}
	if cfg.AllowMethods != "" {
		c.Methods = splitList(cfg.AllowMethods)
	}
	if cfg.AllowHeaders != "" {
		c.AllowedHeaders = splitList(cfg.AllowHeaders)
	}
	return c
}

func apiInfo(cfg config.APIConfig) openapi.Info {
	return openapi.Info{
		Title:       cfg.Title,
		Description: cfg.Description,
		Version:     cfg.Version,
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Run starts the server and blocks until shutdown.
func (a *App) Run() error {
	cfg := a.Holder.Get()
	if cfg.Schema.Watch {
		if err := a.Holder.WatchFiles(); err != nil {
			return fmt.Errorf("watch files: %w", err)
		}
	}
	a.Holder.WatchSignals()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.Holder.Stop()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func setupLoggerFromEnv() zerolog.Logger {
	return setupLogger(config.LoggingConfig{
		Level:  os.Getenv("POLYAPI_LOG_LEVEL"),
		Format: os.Getenv("POLYAPI_LOG_FORMAT"),
	})
}
