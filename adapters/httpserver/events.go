package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/artpar/polyapi/core/convention"
	"github.com/artpar/polyapi/core/schema"
	"github.com/artpar/polyapi/core/validation"
	"github.com/artpar/polyapi/domain/auth"
)

func marshalPayload(payload map[string]any) ([]byte, error) {
	return json.Marshal(payload)
}

// buildFilter turns the remaining query parameters into a payload filter.
// Values are coerced to the emitting noun's declared field types, so
// ?done=true matches the boolean the bus actually carries.
func buildFilter(nouns schema.Nouns, event string, params map[string]string) map[string]any {
	noun, known := nounForEvent(nouns, event)

	var filter map[string]any
	for k, v := range params {
		if k == "event" {
			continue
		}
		if filter == nil {
			filter = make(map[string]any)
		}
		if known {
			if field, ok := noun.Fields[k]; ok {
				filter[k] = validation.CoerceQuery(field, v)
				continue
			}
		}
		filter[k] = v
	}
	return filter
}

// nounForEvent resolves an event name like "todoCompleted" back to its
// noun. Longest prefix wins so overlapping noun names resolve correctly.
func nounForEvent(nouns schema.Nouns, event string) (schema.Noun, bool) {
	var best schema.Noun
	found := false
	for name, noun := range nouns {
		prefix := convention.LowerFirst(name)
		if strings.HasPrefix(event, prefix) && (!found || len(prefix) > len(convention.LowerFirst(best.Name))) {
			best = noun
			found = true
		}
	}
	return best, found
}

// handleEvents streams bus events as server-sent events. The event name
// comes from the ?event query parameter; every other query parameter
// becomes an exact-match payload filter.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	result := auth.Extract(auth.RequestInfo{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: flattenHeader(r.Header),
		Query:   flattenValues(r.URL.Query()),
	}, s.engine.Auth())
	if !result.Valid {
		message := "invalid API key"
		if result.Reason == auth.ReasonMissing {
			message = "missing API key"
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": message,
			"code":  "UNAUTHORIZED",
		})
		return
	}

	event := r.URL.Query().Get("event")
	if event == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "event query parameter is required",
			"code":  "VALIDATION_ERROR",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "streaming is not supported",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	filter := buildFilter(s.engine.Nouns(), event, flattenValues(r.URL.Query()))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan map[string]any, 16)
	unsubscribe := s.engine.Subscribe(event, func(ctx context.Context, payload map[string]any) error {
		select {
		case ch <- payload:
		default:
			// Drop rather than block the bus on a slow consumer.
		}
		return nil
	}, filter)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-ch:
			data, err := marshalPayload(payload)
			if err != nil {
				s.logger.Warn().Err(err).Str("event", event).Msg("encode event payload")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
			flusher.Flush()
		}
	}
}
