package rest

import (
	"sort"
	"strings"

	"github.com/artpar/polyapi/core/convention"
	"github.com/artpar/polyapi/core/schema"
)

// Op identifies an endpoint's operation.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpGet    Op = "get"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpVerb   Op = "verb"
)

// Endpoint is one entry in the derived endpoint table. Paths are templates
// whose ":param" segments match any single path segment.
type Endpoint struct {
	Method string
	Path   string
	Noun   string
	Op     Op

	// Verb names the custom operation for declared verb endpoints. The
	// trailing generic ":verb" endpoint per noun leaves it empty and
	// captures the name from the path instead, so unregistered verbs
	// reach dispatch and fail there with VERB_NOT_FOUND.
	Verb string

	segments []string
}

// Match is a successful route lookup.
type Match struct {
	Endpoint Endpoint
	Params   map[string]string
}

// RuleKey returns the path used for endpoint-specific rate limit rules,
// with the verb name substituted into generic verb routes.
func (m Match) RuleKey() string {
	path := m.Endpoint.Path
	if verb, ok := m.Params["verb"]; ok && strings.Contains(path, ":verb") {
		path = strings.Replace(path, ":verb", verb, 1)
	}
	return path
}

// buildTable derives the endpoint table: CRUD routes per noun plus one
// route per declared verb. Nouns and verbs are sorted so the table is
// deterministic.
func buildTable(nouns schema.Nouns, verbs schema.Verbs) []Endpoint {
	names := make([]string, 0, len(nouns))
	for name := range nouns {
		names = append(names, name)
	}
	sort.Strings(names)

	var table []Endpoint
	for _, name := range names {
		plural := "/" + convention.Pluralize(name)
		byID := plural + "/:id"

		table = append(table,
			endpoint("GET", plural, name, OpList, ""),
			endpoint("POST", plural, name, OpCreate, ""),
			endpoint("GET", byID, name, OpGet, ""),
			endpoint("PUT", byID, name, OpUpdate, ""),
			endpoint("DELETE", byID, name, OpDelete, ""),
		)

		verbNames := make([]string, 0, len(verbs[name]))
		for verb := range verbs[name] {
			verbNames = append(verbNames, verb)
		}
		sort.Strings(verbNames)

		for _, verb := range verbNames {
			table = append(table, endpoint("POST", byID+"/"+verb, name, OpVerb, verb))
		}

		// Catch-all so unknown verb names 404 with VERB_NOT_FOUND rather
		// than a plain route miss.
		table = append(table, endpoint("POST", byID+"/:verb", name, OpVerb, ""))
	}

	return table
}

func endpoint(method, path, noun string, op Op, verb string) Endpoint {
	return Endpoint{
		Method:   method,
		Path:     path,
		Noun:     noun,
		Op:       op,
		Verb:     verb,
		segments: splitSegments(path),
	}
}

// match finds the first endpoint whose method and segments match the path.
// Segment counts must match exactly; ":param" segments capture their value.
func (s *Surface) match(method, path string) (Match, bool) {
	segs := splitSegments(path)

	for _, ep := range s.table {
		if ep.Method != method {
			continue
		}
		params, ok := matchSegments(ep.segments, segs)
		if !ok {
			continue
		}
		if ep.Verb != "" {
			params["verb"] = ep.Verb
		}
		return Match{Endpoint: ep, Params: params}, true
	}

	return Match{}, false
}

func matchSegments(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}

	params := make(map[string]string)
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			params[p[1:]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func splitSegments(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
