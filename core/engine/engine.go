// Package engine wires the schema into the three API surfaces. The
// schema is compiled once at construction and is immutable for the
// engine's lifetime; REST and GraphQL share one store, one event bus, and
// one operation runtime.
package engine

import (
	"context"
	"fmt"

	"github.com/artpar/polyapi/adapters/clock"
	"github.com/artpar/polyapi/adapters/idgen"
	"github.com/artpar/polyapi/core/events"
	"github.com/artpar/polyapi/core/graphql"
	"github.com/artpar/polyapi/core/openapi"
	"github.com/artpar/polyapi/core/rest"
	"github.com/artpar/polyapi/core/runtime"
	"github.com/artpar/polyapi/core/schema"
	"github.com/artpar/polyapi/core/storage"
	"github.com/artpar/polyapi/domain/auth"
	"github.com/artpar/polyapi/domain/ratelimit"
	"github.com/artpar/polyapi/ports"
	"github.com/rs/zerolog"
)

// Options configures an Engine.
type Options struct {
	// Nouns are the raw noun declarations (required).
	Nouns schema.Definitions

	// Verbs are the custom operations, keyed by noun.
	Verbs schema.Verbs

	// Auth configures the API key gate. Zero value disables auth.
	Auth auth.Settings

	// RateLimit configures request limiting. Nil disables it.
	RateLimit *ratelimit.Settings

	// CORS configures Access-Control headers. Nil emits none.
	CORS *rest.CORS

	// Info feeds the generated OpenAPI document.
	Info openapi.Info

	// Clock defaults to the real clock.
	Clock ports.Clock

	// IDs defaults to UUID generation.
	IDs ports.IDGenerator

	// Logger defaults to a no-op logger.
	Logger zerolog.Logger
}

// Engine is a constructed multi-protocol API engine.
type Engine struct {
	nouns   schema.Nouns
	verbs   schema.Verbs
	store   *storage.Store
	bus     *events.Bus
	rt      *runtime.Runtime
	rest    *rest.Surface
	graphql *graphql.Surface
	limits  *ratelimit.Registry
	auth    auth.Settings
	info    openapi.Info
	logger  zerolog.Logger
}

// New compiles the schema and derives every surface. Configuration
// mistakes (bad field tokens, verbs shadowing CRUD, verbs on unknown
// nouns) fail here, never at request time.
func New(opts Options) (*Engine, error) {
	nouns, err := schema.Compile(opts.Nouns)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	for nounName, handlers := range opts.Verbs {
		if _, ok := nouns[nounName]; !ok {
			return nil, fmt.Errorf("verbs declared for unknown noun %q", nounName)
		}
		for verb := range handlers {
			if schema.IsCRUDName(verb) {
				return nil, fmt.Errorf("verb %q on %s shadows an implicit CRUD operation", verb, nounName)
			}
		}
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = idgen.UUID{}
	}

	store := storage.New(nouns, ids)
	bus := events.NewBus(opts.Logger)
	rt := runtime.New(nouns, opts.Verbs, store, bus, opts.Logger)

	var limits *ratelimit.Registry
	if opts.RateLimit != nil {
		limits = ratelimit.NewRegistry(*opts.RateLimit, clk)
	}

	e := &Engine{
		nouns:   nouns,
		verbs:   opts.Verbs,
		store:   store,
		bus:     bus,
		rt:      rt,
		limits:  limits,
		auth:    opts.Auth,
		info:    opts.Info,
		logger:  opts.Logger,
		graphql: graphql.New(rt, opts.Logger),
	}

	e.rest = rest.New(rt, rest.Config{
		Auth:      opts.Auth,
		RateLimit: limits,
		CORS:      opts.CORS,
		IDs:       ids,
		Logger:    opts.Logger,
	})

	return e, nil
}

// REST returns the REST surface.
func (e *Engine) REST() *rest.Surface {
	return e.rest
}

// GraphQL returns the GraphQL surface.
func (e *Engine) GraphQL() *graphql.Surface {
	return e.graphql
}

// Runtime returns the shared operation executor.
func (e *Engine) Runtime() *runtime.Runtime {
	return e.rt
}

// Store returns the shared record store.
func (e *Engine) Store() *storage.Store {
	return e.store
}

// Bus returns the shared event bus.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Nouns returns the compiled noun registry.
func (e *Engine) Nouns() schema.Nouns {
	return e.nouns
}

// Auth returns the configured auth settings, for adapters that gate
// endpoints outside the REST table.
func (e *Engine) Auth() auth.Settings {
	return e.auth
}

// HandleREST runs one transport-neutral request through the REST surface.
func (e *Engine) HandleREST(ctx context.Context, req rest.Request) rest.Response {
	return e.rest.Handle(ctx, req)
}

// GraphQLRequest is the transport-neutral GraphQL request shape.
type GraphQLRequest struct {
	Query      string
	Headers    map[string]string
	Params     map[string]string
	RemoteAddr string
}

// HandleGraphQL authenticates and rate-limits a GraphQL request before
// executing it, mirroring the REST pipeline. The returned status is 200
// for executed queries (including ones with errors entries), 401 or 429
// for gate failures.
func (e *Engine) HandleGraphQL(ctx context.Context, req GraphQLRequest) (int, any) {
	authResult := auth.Extract(auth.RequestInfo{
		Method:  "POST",
		Path:    "/graphql",
		Headers: req.Headers,
		Query:   req.Params,
	}, e.auth)
	if !authResult.Valid {
		return 401, rest.ErrorBody{Error: "unauthorized", Code: runtime.CodeUnauthorized}
	}

	if e.limits != nil {
		if limiter := e.limits.Resolve("POST /graphql", authResult.Tier); limiter != nil {
			key := authResult.KeyID
			if key == "" {
				key = authResult.Key
			}
			if key == "" {
				key = req.RemoteAddr
			}
			if key == "" {
				key = "anonymous"
			}
			if result := limiter.Check(key); !result.Allowed {
				return 429, rest.ErrorBody{Error: "rate limit exceeded", Code: runtime.CodeRateLimitExceeded}
			}
		}
	}

	return 200, e.graphql.Execute(ctx, req.Query, authResult.Key)
}

// Subscribe registers a listener for a change event. Thin pass-through to
// the event bus; the unsubscribe function is idempotent.
func (e *Engine) Subscribe(event string, handler events.Handler, filter map[string]any) func() {
	return e.bus.On(event, handler, filter)
}

// OpenAPI generates the specification document. Pure derivation: it never
// reads storage.
func (e *Engine) OpenAPI() openapi.Spec {
	return openapi.Generate(e.nouns, e.verbs, e.info)
}

// SDL renders the derived GraphQL schema definition.
func (e *Engine) SDL() string {
	return e.graphql.Schema().SDL()
}
