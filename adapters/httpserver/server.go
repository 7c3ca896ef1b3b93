// Package httpserver adapts the transport-neutral engine to net/http. It
// serves the derived REST surface as a catch-all, plus /graphql,
// /openapi.json, /openapi.yaml, a swagger UI at /docs, Prometheus
// metrics, and a server-sent-events stream over the engine's bus.
package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/artpar/polyapi/adapters/metrics"
	"github.com/artpar/polyapi/core/engine"
	"github.com/artpar/polyapi/core/openapi"
	"github.com/artpar/polyapi/core/rest"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Server serves an engine over HTTP.
type Server struct {
	engine    *engine.Engine
	collector *metrics.Collector
	logger    zerolog.Logger
}

// New creates a server. A nil collector disables metrics observation but
// keeps the /metrics endpoint absent rather than panicking.
func New(e *engine.Engine, collector *metrics.Collector, logger zerolog.Logger) *Server {
	return &Server{
		engine:    e,
		collector: collector,
		logger:    logger,
	}
}

// Router builds the chi router. Fixed routes win over the REST catch-all.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	if s.collector != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.collector.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/openapi.json", s.handleOpenAPIJSON)
	r.Get("/openapi.yaml", s.handleOpenAPIDoc)
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.json")))

	r.Get("/graphql", s.handleSDL)
	r.Post("/graphql", s.handleGraphQL)

	r.Get("/events", s.handleEvents)

	r.Handle("/*", http.HandlerFunc(s.handleREST))

	return r
}

// handleREST translates net/http to the engine's request shape and back.
func (s *Server) handleREST(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := rest.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      flattenValues(r.URL.Query()),
		Headers:    flattenHeader(r.Header),
		Body:       readBody(r),
		RemoteAddr: r.RemoteAddr,
	}

	resp := s.engine.HandleREST(r.Context(), req)

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}

	if resp.Body == nil {
		w.WriteHeader(resp.Status)
	} else {
		writeJSON(w, resp.Status, resp.Body)
	}

	if s.collector != nil {
		s.collector.ObserveRequest(r.Method, r.URL.Path, resp.Status, time.Since(start))
	}

	s.logger.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", resp.Status).
		Dur("elapsed", time.Since(start)).
		Msg("request")
}

// graphqlBody is the POST /graphql wire shape.
type graphqlBody struct {
	Query string `json:"query"`
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var body graphqlBody
	if data, err := io.ReadAll(r.Body); err == nil {
		_ = json.Unmarshal(data, &body)
	}

	status, result := s.engine.HandleGraphQL(r.Context(), engine.GraphQLRequest{
		Query:      body.Query,
		Headers:    flattenHeader(r.Header),
		Params:     flattenValues(r.URL.Query()),
		RemoteAddr: r.RemoteAddr,
	})

	if s.collector != nil {
		s.collector.GraphQLQueries.WithLabelValues(http.StatusText(status)).Inc()
	}

	writeJSON(w, status, result)
}

func (s *Server) handleSDL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s.engine.SDL())
}

func (s *Server) handleOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.OpenAPI())
}

func (s *Server) handleOpenAPIDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, openapi.RenderSpec(s.engine.OpenAPI()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readBody decodes a JSON request body, returning nil for an empty body.
func readBody(r *http.Request) any {
	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		return nil
	}

	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		// A malformed body dispatches as a non-object and fails
		// validation downstream.
		return string(data)
	}
	return body
}

func flattenValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
