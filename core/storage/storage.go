// Package storage provides the shared in-memory record store backing every
// API surface. One keyed record set is created per registered noun at
// construction and lives for the process lifetime. Records are plain
// key/value bags keyed by id; durability is out of scope.
package storage

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/artpar/polyapi/core/schema"
	"github.com/artpar/polyapi/ports"
)

// ErrUnknownNoun is returned by Create for a noun that was never
// registered. Writes to unknown nouns indicate a configuration mistake;
// read-style operations on unknown nouns return empty results instead.
var ErrUnknownNoun = fmt.Errorf("unknown noun")

// ListOptions configures List and Count queries.
type ListOptions struct {
	// Filters are field-value pairs matched by exact equality.
	Filters map[string]any

	// Limit caps the number of returned records. Zero means unbounded.
	Limit int

	// Offset skips records before the page. Applied before Limit.
	Offset int
}

// Store is the in-memory record store. A single coarse lock guards all
// nouns; per-noun locking is not worth it at the throughput this engine
// targets.
type Store struct {
	mu      sync.RWMutex
	records map[string]map[string]map[string]any
	order   map[string][]string
	ids     ports.IDGenerator
}

// New creates a store with one record set per registered noun.
func New(nouns schema.Nouns, ids ports.IDGenerator) *Store {
	s := &Store{
		records: make(map[string]map[string]map[string]any, len(nouns)),
		order:   make(map[string][]string, len(nouns)),
		ids:     ids,
	}
	for name := range nouns {
		s.records[name] = make(map[string]map[string]any)
		s.order[name] = nil
	}
	return s
}

// Has reports whether a noun is registered.
func (s *Store) Has(noun string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[noun]
	return ok
}

// Create inserts a record, overwriting any record with the same id.
// A missing id is generated. Returns the stored record.
func (s *Store) Create(ctx context.Context, noun string, record map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.records[noun]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNoun, noun)
	}

	stored := make(map[string]any, len(record)+1)
	for k, v := range record {
		stored[k] = v
	}

	id, _ := stored["id"].(string)
	if id == "" {
		id = s.ids.New()
		stored["id"] = id
	}

	if _, exists := set[id]; !exists {
		s.order[noun] = append(s.order[noun], id)
	}
	set[id] = stored

	return copyRecord(stored), nil
}

// Get retrieves a record by id. A miss returns (nil, false), never an error.
func (s *Store) Get(ctx context.Context, noun, id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[noun][id]
	if !ok {
		return nil, false
	}
	return copyRecord(rec), true
}

// Update merges partial fields over an existing record. The id field is
// re-pinned: an id in the partial can never overwrite the stored one.
func (s *Store) Update(ctx context.Context, noun, id string, partial map[string]any) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[noun][id]
	if !ok {
		return nil, false
	}

	for k, v := range partial {
		rec[k] = v
	}
	rec["id"] = id

	return copyRecord(rec), true
}

// Delete removes a record, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, noun, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.records[noun]
	if !ok {
		return false
	}
	if _, exists := set[id]; !exists {
		return false
	}

	delete(set, id)

	ids := s.order[noun]
	for i, v := range ids {
		if v == id {
			s.order[noun] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	return true
}

// List returns records passing every filter equality, in insertion order,
// with offset applied before limit. Unknown nouns yield an empty slice.
func (s *Store) List(ctx context.Context, noun string, opts ListOptions) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.records[noun]
	if !ok {
		return nil
	}

	var matched []map[string]any
	for _, id := range s.order[noun] {
		rec := set[id]
		if matchesFilters(rec, opts.Filters) {
			matched = append(matched, copyRecord(rec))
		}
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil
		}
		matched = matched[opts.Offset:]
	}

	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}

	return matched
}

// Count mirrors List's filter semantics without materializing a page.
func (s *Store) Count(ctx context.Context, noun string, filters map[string]any) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.records[noun]
	if !ok {
		return 0
	}

	n := 0
	for _, rec := range set {
		if matchesFilters(rec, filters) {
			n++
		}
	}
	return n
}

// matchesFilters checks a record against a conjunction of equality filters.
// A filtered field absent from the record fails the match.
func matchesFilters(rec map[string]any, filters map[string]any) bool {
	for field, want := range filters {
		got, ok := rec[field]
		if !ok {
			return false
		}
		if !equalValue(got, want) {
			return false
		}
	}
	return true
}

// equalValue compares filter values, tolerating the int/float64 split that
// JSON decoding and query coercion produce for number fields.
func equalValue(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// copyRecord returns a shallow copy so callers can't mutate stored state
// behind the lock.
func copyRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// Interface check: verb handlers receive the store through schema.DB.
var _ schema.DB = (*Store)(nil)
