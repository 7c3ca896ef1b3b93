// Package events provides the typed publish/subscribe bus shared by the
// REST and GraphQL surfaces. Mutations on either surface emit through one
// bus, so clients on both observe the same change notifications.
package events

import (
	"context"
	"reflect"
	"sync"

	"github.com/rs/zerolog"
)

// Handler is a function that processes an emitted payload.
type Handler func(ctx context.Context, payload map[string]any) error

// subscription pairs a handler with its optional equality filter.
type subscription struct {
	id      uint64
	handler Handler
	filter  map[string]any
}

// Bus is a filtered publish/subscribe event bus. Dispatch is asynchronous
// relative to the emitting call: the emitter's synchronous execution
// completes before any listener runs, but listeners for a single Emit run
// in registration order.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]subscription
	nextID uint64
	logger zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// On registers a handler for an exact event name. A non-nil filter is a
// conjunction of exact-equality field checks against emitted payloads; a
// filtered field absent from a payload fails the match. The returned
// unsubscribe function is idempotent.
func (b *Bus) On(event string, handler Handler, filter map[string]any) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscription{
		id:      id,
		handler: handler,
		filter:  filter,
	})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[event]
		for i, s := range subs {
			if s.id == id {
				b.subs[event] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
		// Already removed. Calling unsubscribe twice is a no-op.
	}
}

// Emit dispatches a payload to every listener registered for the exact
// event name whose filter matches. Zero listeners is a silent no-op.
func (b *Bus) Emit(ctx context.Context, event string, payload map[string]any) {
	b.mu.Lock()
	var matched []subscription
	for _, s := range b.subs[event] {
		if matchesFilter(payload, s.filter) {
			matched = append(matched, s)
		}
	}
	b.mu.Unlock()

	b.logger.Debug().
		Str("event", event).
		Int("listeners", len(matched)).
		Msg("event emitted")

	if len(matched) == 0 {
		return
	}

	go func() {
		for _, s := range matched {
			if err := s.handler(ctx, payload); err != nil {
				b.logger.Error().
					Err(err).
					Str("event", event).
					Msg("event handler error")
			}
		}
	}()
}

// ListenerCount reports how many listeners are registered for an event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[event])
}

// matchesFilter checks a payload against a conjunction of equality filters.
// A nil filter matches everything; an absent field never wildcards.
func matchesFilter(payload, filter map[string]any) bool {
	for field, want := range filter {
		got, ok := payload[field]
		if !ok {
			return false
		}
		if !filterEqual(got, want) {
			return false
		}
	}
	return true
}

// filterEqual tolerates the int/float64 split JSON decoding produces.
func filterEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
