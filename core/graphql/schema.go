package graphql

import (
	"sort"
	"strings"

	"github.com/artpar/polyapi/core/convention"
	"github.com/artpar/polyapi/core/schema"
	"github.com/artpar/polyapi/core/validation"
)

// resolverKind identifies what a derived operation name resolves to.
type resolverKind string

const (
	kindList   resolverKind = "list"
	kindGet    resolverKind = "get"
	kindCreate resolverKind = "create"
	kindUpdate resolverKind = "update"
	kindDelete resolverKind = "delete"
	kindVerb   resolverKind = "verb"
)

// resolver binds a derived operation name to its noun and kind.
type resolver struct {
	Kind resolverKind
	Noun string
	Verb string
}

// Schema is the derived GraphQL schema: operation name tables mirroring
// the REST endpoint table, plus subscription event names.
type Schema struct {
	Queries       map[string]resolver
	Mutations     map[string]resolver
	Subscriptions []string

	nouns schema.Nouns
	verbs schema.Verbs
}

// DeriveSchema builds the operation tables from the noun/verb registry.
// Naming mirrors REST: plural list query, singular get query,
// create/update/delete{Noun} mutations, lifecycle and past-tense verb
// subscriptions.
func DeriveSchema(nouns schema.Nouns, verbs schema.Verbs) *Schema {
	s := &Schema{
		Queries:   make(map[string]resolver),
		Mutations: make(map[string]resolver),
		nouns:     nouns,
		verbs:     verbs,
	}

	names := make([]string, 0, len(nouns))
	for name := range nouns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s.Queries[convention.Pluralize(name)] = resolver{Kind: kindList, Noun: name}
		s.Queries[convention.LowerFirst(name)] = resolver{Kind: kindGet, Noun: name}

		s.Mutations["create"+name] = resolver{Kind: kindCreate, Noun: name}
		s.Mutations["update"+name] = resolver{Kind: kindUpdate, Noun: name}
		s.Mutations["delete"+name] = resolver{Kind: kindDelete, Noun: name}

		s.Subscriptions = append(s.Subscriptions,
			convention.EventName(name, "Created"),
			convention.EventName(name, "Updated"),
			convention.EventName(name, "Deleted"),
		)

		verbNames := make([]string, 0, len(verbs[name]))
		for verb := range verbs[name] {
			verbNames = append(verbNames, verb)
		}
		sort.Strings(verbNames)

		for _, verb := range verbNames {
			s.Mutations[verb+name] = resolver{Kind: kindVerb, Noun: name, Verb: verb}
			s.Subscriptions = append(s.Subscriptions, convention.VerbEventName(name, verb))
		}
	}

	return s
}

// SDL renders the derived schema in schema definition language, for
// documentation and the GET /graphql response. Purely descriptive; the
// executor works from the operation tables, not from this text.
func (s *Schema) SDL() string {
	var sb strings.Builder

	names := make([]string, 0, len(s.nouns))
	for name := range s.nouns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		noun := s.nouns[name]

		sb.WriteString("type " + name + " {\n")
		sb.WriteString("  id: String!\n")
		writeFieldLines(&sb, noun, false)
		sb.WriteString("}\n\n")

		sb.WriteString("input " + name + "CreateInput {\n")
		writeFieldLines(&sb, noun, false)
		sb.WriteString("}\n\n")

		sb.WriteString("input " + name + "UpdateInput {\n")
		writeFieldLines(&sb, noun, true)
		sb.WriteString("}\n\n")
	}

	sb.WriteString("type Query {\n")
	for _, name := range names {
		sb.WriteString("  " + convention.Pluralize(name) + "(limit: Int, offset: Int): [" + name + "]\n")
		sb.WriteString("  " + convention.LowerFirst(name) + "(id: String!): " + name + "\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("type Mutation {\n")
	for _, name := range names {
		sb.WriteString("  create" + name + "(input: " + name + "CreateInput!): " + name + "\n")
		sb.WriteString("  update" + name + "(id: String!, input: " + name + "UpdateInput!): " + name + "\n")
		sb.WriteString("  delete" + name + "(id: String!): " + name + "\n")

		verbNames := make([]string, 0, len(s.verbs[name]))
		for verb := range s.verbs[name] {
			verbNames = append(verbNames, verb)
		}
		sort.Strings(verbNames)
		for _, verb := range verbNames {
			sb.WriteString("  " + verb + name + "(id: String!, input: " + name + "UpdateInput): " + name + "\n")
		}
	}
	sb.WriteString("}\n\n")

	sb.WriteString("type Subscription {\n")
	for _, event := range s.Subscriptions {
		noun := s.subscriptionNoun(event)
		sb.WriteString("  " + event + ": " + noun + "\n")
	}
	sb.WriteString("}\n")

	return sb.String()
}

// subscriptionNoun recovers the noun type an event name carries.
func (s *Schema) subscriptionNoun(event string) string {
	for name := range s.nouns {
		if strings.HasPrefix(event, convention.LowerFirst(name)) {
			return name
		}
	}
	return "String"
}

func writeFieldLines(sb *strings.Builder, noun schema.Noun, forceOptional bool) {
	fieldNames := make([]string, 0, len(noun.Fields))
	for name := range noun.Fields {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	for _, name := range fieldNames {
		field := noun.Fields[name]
		if field.IsRelation() {
			continue
		}
		typ := validation.GraphQLType(field)
		if field.Required && !forceOptional {
			typ += "!"
		}
		sb.WriteString("  " + name + ": " + typ + "\n")
	}
}
