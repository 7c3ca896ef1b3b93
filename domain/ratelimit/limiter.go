package ratelimit

import (
	"sync"

	"github.com/artpar/polyapi/ports"
)

// Rule declares a limit in configuration form.
type Rule struct {
	Requests int    `yaml:"requests" json:"requests"`
	Window   string `yaml:"window" json:"window"`
}

// Settings is the full rate limiting configuration. Endpoint keys take the
// form "METHOD /path". Tier limiters are created lazily the first time a
// tier is seen.
type Settings struct {
	// Requests and Window form a global limit when Default is absent.
	Requests int    `yaml:"requests" json:"requests"`
	Window   string `yaml:"window" json:"window"`

	// Default, when set, is the global fallback rule.
	Default *Rule `yaml:"default" json:"default,omitempty"`

	// Endpoints maps "METHOD /path" keys to endpoint-specific rules.
	Endpoints map[string]Rule `yaml:"endpoints" json:"endpoints,omitempty"`

	// Tiers maps subscription tier names to tier rules.
	Tiers map[string]Rule `yaml:"tiers" json:"tiers,omitempty"`
}

// Limiter tracks fixed-window state per client key.
type Limiter struct {
	mu    sync.Mutex
	cfg   Config
	state map[string]WindowState
	clock ports.Clock
}

// NewLimiter creates a limiter from a rule.
func NewLimiter(rule Rule, clock ports.Clock) *Limiter {
	return &Limiter{
		cfg: Config{
			Limit:  rule.Requests,
			Window: ParseWindow(rule.Window),
		},
		state: make(map[string]WindowState),
		clock: clock,
	}
}

// Check counts one request for the client key and reports the outcome.
// The count-and-test is atomic under the limiter's lock, preserving
// at-most-one-increment-per-request.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	result, state := Check(l.state[key], l.cfg, l.clock.Now())
	l.state[key] = state
	return result
}

// Registry resolves which limiter applies to a request, in priority order:
// endpoint-specific rule, then per-tier rule, then the global rule, then
// none at all.
type Registry struct {
	mu        sync.Mutex
	settings  Settings
	clock     ports.Clock
	endpoints map[string]*Limiter
	tiers     map[string]*Limiter
	global    *Limiter
}

// NewRegistry builds a registry from settings. Endpoint limiters are
// created eagerly; tier limiters lazily on first sight of the tier.
func NewRegistry(settings Settings, clock ports.Clock) *Registry {
	r := &Registry{
		settings:  settings,
		clock:     clock,
		endpoints: make(map[string]*Limiter, len(settings.Endpoints)),
		tiers:     make(map[string]*Limiter),
	}

	for key, rule := range settings.Endpoints {
		r.endpoints[key] = NewLimiter(rule, clock)
	}

	switch {
	case settings.Default != nil:
		r.global = NewLimiter(*settings.Default, clock)
	case settings.Requests > 0:
		r.global = NewLimiter(Rule{Requests: settings.Requests, Window: settings.Window}, clock)
	}

	return r
}

// Resolve returns the limiter for an endpoint key ("METHOD /path") and
// tier, or nil when no limiting is configured for either.
func (r *Registry) Resolve(endpointKey, tier string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.endpoints[endpointKey]; ok {
		return l
	}

	if tier != "" {
		if l, ok := r.tiers[tier]; ok {
			return l
		}
		if rule, ok := r.settings.Tiers[tier]; ok {
			l := NewLimiter(rule, r.clock)
			r.tiers[tier] = l
			return l
		}
	}

	return r.global
}
