package graphql

import (
	"context"

	"github.com/artpar/polyapi/core/events"
	"github.com/artpar/polyapi/core/runtime"
	"github.com/rs/zerolog"
)

// Error is one entry in a result's errors list.
type Error struct {
	Message string `json:"message"`
}

// Result is the wire response: {data, errors?}.
type Result struct {
	Data   map[string]any `json:"data"`
	Errors []Error        `json:"errors,omitempty"`
}

// Surface executes parsed documents against the shared runtime, so a
// create mutation and a REST POST store identical records and emit
// identical events for identical input.
type Surface struct {
	rt     *runtime.Runtime
	schema *Schema
	logger zerolog.Logger
}

// New derives the GraphQL surface from the runtime's registries.
func New(rt *runtime.Runtime, logger zerolog.Logger) *Surface {
	return &Surface{
		rt:     rt,
		schema: DeriveSchema(rt.Nouns(), rt.Verbs()),
		logger: logger,
	}
}

// Schema returns the derived schema.
func (s *Surface) Schema() *Schema {
	return s.schema
}

// Execute parses and runs a query. A syntactically malformed query yields
// an errors entry; a well-formed query naming nothing the engine knows
// yields an empty-but-successful data object instead.
func (s *Surface) Execute(ctx context.Context, query, apiKey string) Result {
	result := Result{Data: map[string]any{}}

	doc, err := Parse(query)
	if err != nil {
		s.logger.Debug().Err(err).Msg("query parse failed")
		result.Errors = append(result.Errors, Error{Message: err.Error()})
		return result
	}

	for _, sel := range doc.Selections {
		switch doc.Operation {
		case OperationQuery:
			s.executeQuery(ctx, sel, &result)
		case OperationMutation:
			s.executeMutation(ctx, sel, apiKey, &result)
		}
	}

	return result
}

func (s *Surface) executeQuery(ctx context.Context, sel Selection, result *Result) {
	res, ok := s.schema.Queries[sel.Name]
	if !ok {
		// Unrecognized selections resolve to an absent field, not an error.
		return
	}

	switch res.Kind {
	case kindList:
		limit := argInt(sel.Args, "limit")
		offset := argInt(sel.Args, "offset")
		filters := s.listFilters(res.Noun, sel.Args)

		page := s.rt.List(ctx, res.Noun, filters, limit, offset)
		items := make([]map[string]any, len(page.Items))
		for i, rec := range page.Items {
			items[i] = project(rec, sel.Fields)
		}
		result.Data[sel.Name] = items

	case kindGet:
		id, _ := sel.Args["id"].(string)
		rec, opErr := s.rt.Get(ctx, res.Noun, id)
		if opErr != nil {
			result.Data[sel.Name] = nil
			return
		}
		result.Data[sel.Name] = project(rec, sel.Fields)
	}
}

func (s *Surface) executeMutation(ctx context.Context, sel Selection, apiKey string, result *Result) {
	res, ok := s.schema.Mutations[sel.Name]
	if !ok {
		return
	}

	id, _ := sel.Args["id"].(string)
	input := argObject(sel.Args, "input")

	var rec map[string]any
	var opErr *runtime.OpError

	switch res.Kind {
	case kindCreate:
		rec, opErr = s.rt.Create(ctx, res.Noun, input)

	case kindUpdate:
		rec, opErr = s.rt.Update(ctx, res.Noun, id, input)

	case kindDelete:
		if opErr = s.rt.Delete(ctx, res.Noun, id); opErr == nil {
			rec = map[string]any{"id": id}
		}

	case kindVerb:
		rec, opErr = s.rt.InvokeVerb(ctx, res.Noun, res.Verb, id, input, apiKey)
	}

	if opErr != nil {
		result.Data[sel.Name] = nil
		result.Errors = append(result.Errors, Error{Message: opErr.Message})
		return
	}

	result.Data[sel.Name] = project(rec, sel.Fields)
}

// listFilters keeps only args naming declared data fields, matching REST's
// query-filter behavior.
func (s *Surface) listFilters(nounName string, args map[string]any) map[string]any {
	noun := s.rt.Nouns()[nounName]
	filters := make(map[string]any)
	for key, value := range args {
		if key == "limit" || key == "offset" {
			continue
		}
		field, declared := noun.Fields[key]
		if !declared || field.IsRelation() {
			continue
		}
		filters[key] = value
	}
	return filters
}

// Subscribe registers a listener for a change event: a thin pass-through
// to the shared event bus.
func (s *Surface) Subscribe(event string, handler events.Handler, filter map[string]any) func() {
	return s.rt.Subscribe(event, handler, filter)
}

// project trims a record to the requested fields. An empty field list
// returns the record as is.
func project(rec map[string]any, fields []string) map[string]any {
	if rec == nil || len(fields) == 0 {
		return rec
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func argObject(args map[string]any, key string) map[string]any {
	if obj, ok := args[key].(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}
