// Package metrics provides Prometheus metrics collection for the engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the engine's Prometheus metrics. Each collector owns
// its registry so tests can construct them independently.
type Collector struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthFailures    *prometheus.CounterVec
	RateLimitHits   *prometheus.CounterVec
	GraphQLQueries  *prometheus.CounterVec
}

// New creates a collector with all metrics registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		Registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "polyapi",
				Name:      "requests_total",
				Help:      "Total number of REST requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "polyapi",
				Name:      "request_duration_seconds",
				Help:      "REST request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "polyapi",
				Name:      "auth_failures_total",
				Help:      "Authentication failures by reason",
			},
			[]string{"reason"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "polyapi",
				Name:      "rate_limit_rejections_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),
		GraphQLQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "polyapi",
				Name:      "graphql_queries_total",
				Help:      "GraphQL documents executed by status",
			},
			[]string{"status"},
		),
	}
}

// ObserveRequest records one completed REST request.
func (c *Collector) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	c.RequestsTotal.WithLabelValues(method, path, code).Inc()
	c.RequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())

	switch status {
	case 401:
		c.AuthFailures.WithLabelValues("rejected").Inc()
	case 429:
		c.RateLimitHits.WithLabelValues(path).Inc()
	}
}
