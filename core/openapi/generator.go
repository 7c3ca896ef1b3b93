// Package openapi generates an OpenAPI 3.0 specification from the noun
// and verb declarations. Generation is a pure function of the schema: it
// never touches storage or the event bus.
package openapi

import (
	"sort"

	"github.com/artpar/polyapi/core/convention"
	"github.com/artpar/polyapi/core/schema"
	"github.com/artpar/polyapi/core/validation"
)

// Spec is an OpenAPI 3.0 specification document.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// PathItem contains the operations available on a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation is one API operation.
type Operation struct {
	Summary     string              `json:"summary,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter is a path or query parameter.
type Parameter struct {
	Name     string  `json:"name"`
	In       string  `json:"in"`
	Required bool    `json:"required,omitempty"`
	Schema   *Schema `json:"schema,omitempty"`
}

// RequestBody describes an operation's body.
type RequestBody struct {
	Required bool                 `json:"required,omitempty"`
	Content  map[string]MediaType `json:"content"`
}

// Response describes one response code.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType wraps a schema for a content type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema is a JSON Schema fragment.
type Schema struct {
	Type       string             `json:"type,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
	Ref        string             `json:"$ref,omitempty"`
	Nullable   bool               `json:"nullable,omitempty"`
}

// Components holds reusable schemas.
type Components struct {
	Schemas map[string]*Schema `json:"schemas"`
}

// Generate walks the noun/verb registry once and emits the specification.
func Generate(nouns schema.Nouns, verbs schema.Verbs, info Info) Spec {
	spec := Spec{
		OpenAPI: "3.0.3",
		Info:    info,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]*Schema{
				"Error": errorSchema(),
			},
		},
	}

	names := make([]string, 0, len(nouns))
	for name := range nouns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		noun := nouns[name]
		plural := convention.Pluralize(name)

		spec.Components.Schemas[name] = nounSchema(noun, true)
		spec.Components.Schemas[name+"CreateInput"] = inputSchema(noun, false)
		spec.Components.Schemas[name+"UpdateInput"] = inputSchema(noun, true)
		spec.Components.Schemas[name+"ListResponse"] = listResponseSchema(name)

		collection := "/" + plural
		item := collection + "/{id}"

		spec.Paths[collection] = PathItem{
			Get:  listOperation(name, plural, noun),
			Post: createOperation(name),
		}
		spec.Paths[item] = PathItem{
			Get:    getOperation(name),
			Put:    updateOperation(name),
			Delete: deleteOperation(name),
		}

		verbNames := make([]string, 0, len(verbs[name]))
		for verb := range verbs[name] {
			verbNames = append(verbNames, verb)
		}
		sort.Strings(verbNames)

		for _, verb := range verbNames {
			spec.Paths[item+"/"+verb] = PathItem{
				Post: verbOperation(name, verb),
			}
		}
	}

	return spec
}

func errorSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"error":     {Type: "string"},
			"code":      {Type: "string"},
			"requestId": {Type: "string"},
		},
		Required: []string{"error", "code"},
	}
}

// nounSchema renders a noun's record shape. Relations are metadata and do
// not appear in wire schemas.
func nounSchema(noun schema.Noun, includeID bool) *Schema {
	s := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}

	if includeID {
		s.Properties["id"] = &Schema{Type: "string"}
		s.Required = append(s.Required, "id")
	}

	for _, name := range sortedFieldNames(noun) {
		field := noun.Fields[name]
		s.Properties[name] = fieldSchema(field)
		if field.Required {
			s.Required = append(s.Required, name)
		}
	}

	sort.Strings(s.Required)
	return s
}

// inputSchema renders the create or update body shape. Update inputs drop
// every required marker: absent fields mean partial update.
func inputSchema(noun schema.Noun, partial bool) *Schema {
	s := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}

	s.Properties["id"] = &Schema{Type: "string"}

	for _, name := range sortedFieldNames(noun) {
		field := noun.Fields[name]
		s.Properties[name] = fieldSchema(field)
		if field.Required && !partial {
			s.Required = append(s.Required, name)
		}
	}

	sort.Strings(s.Required)
	return s
}

func listResponseSchema(name string) *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"data": {
				Type:  "array",
				Items: ref(name),
			},
			"pagination": {
				Type: "object",
				Properties: map[string]*Schema{
					"limit":  {Type: "integer"},
					"offset": {Type: "integer"},
					"total":  {Type: "integer"},
				},
			},
		},
	}
}

func fieldSchema(field schema.Field) *Schema {
	typ, enum := validation.OpenAPIType(field)
	s := &Schema{Type: typ, Enum: enum}
	if field.Array {
		return &Schema{Type: "array", Items: s}
	}
	if field.Optional {
		s.Nullable = true
	}
	return s
}

func listOperation(name, plural string, noun schema.Noun) *Operation {
	params := []Parameter{
		{Name: "limit", In: "query", Schema: &Schema{Type: "integer"}},
		{Name: "offset", In: "query", Schema: &Schema{Type: "integer"}},
	}

	for _, fieldName := range sortedFieldNames(noun) {
		field := noun.Fields[fieldName]
		typ, enum := validation.OpenAPIType(field)
		params = append(params, Parameter{
			Name:   fieldName,
			In:     "query",
			Schema: &Schema{Type: typ, Enum: enum},
		})
	}

	return &Operation{
		Summary:     "List " + plural,
		OperationID: "list" + convention.UpperFirst(plural),
		Parameters:  params,
		Responses: map[string]Response{
			"200": jsonResponse("A page of "+plural, ref(name+"ListResponse")),
		},
	}
}

func createOperation(name string) *Operation {
	return &Operation{
		Summary:     "Create a " + name,
		OperationID: "create" + name,
		RequestBody: jsonBody(ref(name+"CreateInput"), true),
		Responses: map[string]Response{
			"201": jsonResponse("Created "+name, ref(name)),
			"400": errorResponse("Validation failed"),
			"409": errorResponse("Duplicate id"),
		},
	}
}

func getOperation(name string) *Operation {
	return &Operation{
		Summary:     "Get a " + name + " by id",
		OperationID: "get" + name,
		Parameters:  []Parameter{idParam()},
		Responses: map[string]Response{
			"200": jsonResponse("The "+name, ref(name)),
			"404": errorResponse(name + " not found"),
		},
	}
}

func updateOperation(name string) *Operation {
	return &Operation{
		Summary:     "Update a " + name,
		OperationID: "update" + name,
		Parameters:  []Parameter{idParam()},
		RequestBody: jsonBody(ref(name+"UpdateInput"), true),
		Responses: map[string]Response{
			"200": jsonResponse("Updated "+name, ref(name)),
			"400": errorResponse("Validation failed"),
			"404": errorResponse(name + " not found"),
		},
	}
}

func deleteOperation(name string) *Operation {
	return &Operation{
		Summary:     "Delete a " + name,
		OperationID: "delete" + name,
		Parameters:  []Parameter{idParam()},
		Responses: map[string]Response{
			"204": {Description: "Deleted"},
			"404": errorResponse(name + " not found"),
		},
	}
}

func verbOperation(name, verb string) *Operation {
	return &Operation{
		Summary:     convention.UpperFirst(verb) + " a " + name,
		OperationID: verb + name,
		Parameters:  []Parameter{idParam()},
		RequestBody: jsonBody(&Schema{Type: "object"}, false),
		Responses: map[string]Response{
			"200": jsonResponse("The "+name+" after "+verb, ref(name)),
			"404": errorResponse(name + " or verb not found"),
			"500": errorResponse("Verb handler failed"),
		},
	}
}

func idParam() Parameter {
	return Parameter{Name: "id", In: "path", Required: true, Schema: &Schema{Type: "string"}}
}

func ref(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}

func jsonBody(s *Schema, required bool) *RequestBody {
	return &RequestBody{
		Required: required,
		Content:  map[string]MediaType{"application/json": {Schema: s}},
	}
}

func jsonResponse(description string, s *Schema) Response {
	return Response{
		Description: description,
		Content:     map[string]MediaType{"application/json": {Schema: s}},
	}
}

func errorResponse(description string) Response {
	return Response{
		Description: description,
		Content:     map[string]MediaType{"application/json": {Schema: ref("Error")}},
	}
}

func sortedFieldNames(noun schema.Noun) []string {
	names := make([]string, 0, len(noun.Fields))
	for name, field := range noun.Fields {
		if field.IsRelation() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
