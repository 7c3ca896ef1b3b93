// Package ratelimit provides fixed-window rate limiting.
// The window algorithm is pure; stateful limiters and the per-endpoint/
// per-tier registry wrap it with locking and a Clock.
package ratelimit

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultWindow is used when a window string cannot be parsed.
const DefaultWindow = time.Minute

// WindowState is the counter state for one (limiter, client key) pair.
type WindowState struct {
	Count   int       // Requests counted in the current window
	ResetAt time.Time // When the current window expires
}

// Config holds fixed-window configuration (value type).
type Config struct {
	Limit  int           // Requests allowed per window
	Window time.Duration // Window duration
}

// Result is the outcome of a rate limit check (value type).
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Check performs one fixed-window rate limit check. Pure function: the
// caller persists the returned state.
//
// The request that reaches the limit is still allowed with Remaining 0;
// the one after it is rejected. A check at or after ResetAt starts a fresh
// window with this request counted as request #1.
func Check(state WindowState, cfg Config, now time.Time) (Result, WindowState) {
	if state.ResetAt.IsZero() || !now.Before(state.ResetAt) {
		state = WindowState{
			Count:   0,
			ResetAt: now.Add(cfg.Window),
		}
	}

	state.Count++

	remaining := cfg.Limit - state.Count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   state.Count <= cfg.Limit,
		Limit:     cfg.Limit,
		Remaining: remaining,
		ResetAt:   state.ResetAt,
	}, state
}

var windowPattern = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// ValidWindow reports whether s is a well-formed window string.
func ValidWindow(s string) bool {
	return windowPattern.MatchString(s)
}

// ParseWindow parses a window string like "30s", "5m", "1h", or "1d".
// An unparseable string falls back to one minute rather than erroring.
func ParseWindow(s string) time.Duration {
	m := windowPattern.FindStringSubmatch(s)
	if m == nil {
		return DefaultWindow
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DefaultWindow
	}

	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second
	case "m":
		return time.Duration(n) * time.Minute
	case "h":
		return time.Duration(n) * time.Hour
	case "d":
		return time.Duration(n) * 24 * time.Hour
	}
	return DefaultWindow
}
