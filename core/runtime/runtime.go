// Package runtime executes CRUD and verb operations against the shared
// store and emits change events. Both the REST and GraphQL surfaces
// dispatch through this one executor, which is what makes a REST POST and
// a create mutation produce identical stored records and identical event
// payloads for identical input.
package runtime

import (
	"context"
	"fmt"

	"github.com/artpar/polyapi/core/convention"
	"github.com/artpar/polyapi/core/events"
	"github.com/artpar/polyapi/core/schema"
	"github.com/artpar/polyapi/core/storage"
	"github.com/artpar/polyapi/core/validation"
	"github.com/rs/zerolog"
)

// Machine-readable failure codes shared by every surface.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeDuplicate         = "DUPLICATE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeVerbNotFound      = "VERB_NOT_FOUND"
)

// OpError is a typed operation failure. Client mistakes are values, never
// panics; each surface translates the code into its own wire shape.
type OpError struct {
	Code    string
	Message string
	Details []validation.FieldError
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return e.Message
}

// DefaultListLimit is the page size applied when a list request names none.
const DefaultListLimit = 20

// Runtime is the shared operation executor.
type Runtime struct {
	nouns     schema.Nouns
	verbs     schema.Verbs
	store     *storage.Store
	bus       *events.Bus
	validator *validation.Validator
	logger    zerolog.Logger
}

// New creates a runtime over the shared store and bus.
func New(nouns schema.Nouns, verbs schema.Verbs, store *storage.Store, bus *events.Bus, logger zerolog.Logger) *Runtime {
	return &Runtime{
		nouns:     nouns,
		verbs:     verbs,
		store:     store,
		bus:       bus,
		validator: validation.New(nouns),
		logger:    logger,
	}
}

// Nouns exposes the compiled noun registry.
func (r *Runtime) Nouns() schema.Nouns {
	return r.nouns
}

// Verbs exposes the verb registry.
func (r *Runtime) Verbs() schema.Verbs {
	return r.verbs
}

// Store exposes the shared store (for verb handlers and tests).
func (r *Runtime) Store() *storage.Store {
	return r.store
}

// Bus exposes the shared event bus.
func (r *Runtime) Bus() *events.Bus {
	return r.bus
}

// ListPage is a page of records plus the unsliced total.
type ListPage struct {
	Items  []map[string]any
	Limit  int
	Offset int
	Total  int
}

// List returns records matching the filters, paginated. A zero limit
// falls back to DefaultListLimit.
func (r *Runtime) List(ctx context.Context, noun string, filters map[string]any, limit, offset int) ListPage {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	items := r.store.List(ctx, noun, storage.ListOptions{
		Filters: filters,
		Limit:   limit,
		Offset:  offset,
	})
	if items == nil {
		items = []map[string]any{}
	}

	return ListPage{
		Items:  items,
		Limit:  limit,
		Offset: offset,
		Total:  r.store.Count(ctx, noun, filters),
	}
}

// Get retrieves one record.
func (r *Runtime) Get(ctx context.Context, noun, id string) (map[string]any, *OpError) {
	rec, ok := r.store.Get(ctx, noun, id)
	if !ok {
		return nil, r.notFound(noun)
	}
	return rec, nil
}

// Create validates and stores a new record, then emits {noun}Created with
// the full stored record.
func (r *Runtime) Create(ctx context.Context, noun string, input map[string]any) (map[string]any, *OpError) {
	if result := r.validator.ValidateCreate(noun, input); !result.Valid {
		return nil, &OpError{
			Code:    CodeValidationError,
			Message: "validation failed",
			Details: result.Errors,
		}
	}

	if id, _ := input["id"].(string); id != "" {
		if _, exists := r.store.Get(ctx, noun, id); exists {
			return nil, &OpError{
				Code:    CodeDuplicate,
				Message: fmt.Sprintf("%s with id %q already exists", noun, id),
			}
		}
	}

	rec, err := r.store.Create(ctx, noun, input)
	if err != nil {
		// Unregistered noun on a write is a configuration error.
		return nil, &OpError{Code: CodeInternalError, Message: err.Error()}
	}

	r.bus.Emit(ctx, convention.EventName(noun, "Created"), rec)
	return rec, nil
}

// Update validates a partial body, merges it over the existing record,
// and emits {noun}Updated with the merged record. The id is re-pinned.
func (r *Runtime) Update(ctx context.Context, noun, id string, input map[string]any) (map[string]any, *OpError) {
	if _, ok := r.store.Get(ctx, noun, id); !ok {
		return nil, r.notFound(noun)
	}

	if result := r.validator.ValidateUpdate(noun, input); !result.Valid {
		return nil, &OpError{
			Code:    CodeValidationError,
			Message: "validation failed",
			Details: result.Errors,
		}
	}

	rec, ok := r.store.Update(ctx, noun, id, input)
	if !ok {
		return nil, r.notFound(noun)
	}

	r.bus.Emit(ctx, convention.EventName(noun, "Updated"), rec)
	return rec, nil
}

// Delete removes a record and emits {noun}Deleted carrying only the id.
func (r *Runtime) Delete(ctx context.Context, noun, id string) *OpError {
	if !r.store.Delete(ctx, noun, id) {
		return r.notFound(noun)
	}

	r.bus.Emit(ctx, convention.EventName(noun, "Deleted"), map[string]any{"id": id})
	return nil
}

// InvokeVerb runs a custom verb handler against an existing record, then
// re-reads the record, emits the past-tense verb event, and returns the
// post-handler state. Handler errors and panics are contained here and
// surface as INTERNAL_ERROR; they never reach the transport layer.
func (r *Runtime) InvokeVerb(ctx context.Context, noun, verb, id string, input map[string]any, apiKey string) (rec map[string]any, opErr *OpError) {
	handler, ok := r.verbs[noun][verb]
	if !ok {
		return nil, &OpError{
			Code:    CodeVerbNotFound,
			Message: fmt.Sprintf("verb %q not found on %s", verb, noun),
		}
	}

	if _, ok := r.store.Get(ctx, noun, id); !ok {
		return nil, r.notFound(noun)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Str("noun", noun).
				Str("verb", verb).
				Interface("panic", p).
				Msg("verb handler panicked")
			rec = nil
			opErr = &OpError{Code: CodeInternalError, Message: "internal error"}
		}
	}()

	err := handler(ctx, schema.Call{
		ID:     id,
		Input:  input,
		DB:     r.store,
		APIKey: apiKey,
	})
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("noun", noun).
			Str("verb", verb).
			Msg("verb handler failed")
		return nil, &OpError{Code: CodeInternalError, Message: "internal error"}
	}

	after, ok := r.store.Get(ctx, noun, id)
	payload := after
	if !ok {
		// Handler deleted the record; the event still names the id.
		payload = map[string]any{"id": id}
	}

	r.bus.Emit(ctx, convention.VerbEventName(noun, verb), payload)
	return after, nil
}

// Subscribe registers a listener on a change event. Thin pass-through to
// the bus, exposed so surfaces share one subscription path.
func (r *Runtime) Subscribe(event string, handler events.Handler, filter map[string]any) func() {
	return r.bus.On(event, handler, filter)
}

func (r *Runtime) notFound(noun string) *OpError {
	return &OpError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", noun),
	}
}
