// Package validation provides the shared field validation and type
// mapping routine. REST bodies, GraphQL inputs, query-filter coercion, and
// the OpenAPI/GraphQL type descriptors all derive from the same noun
// schema, so every surface enforces identical rules.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/artpar/polyapi/core/schema"
)

// FieldError describes one failed field check.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result collects field errors for one validated input.
type Result struct {
	Valid  bool
	Errors []FieldError
}

// AddError records a failed check and marks the result invalid.
func (r *Result) AddError(field, rule, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, FieldError{Field: field, Rule: rule, Message: message})
}

// Validator validates input data against noun schemas.
type Validator struct {
	nouns schema.Nouns
}

// New creates a validator over the compiled noun registry.
func New(nouns schema.Nouns) *Validator {
	return &Validator{nouns: nouns}
}

// ValidateCreate validates a create body: unknown fields are rejected,
// declared fields are type-checked, required fields must be present.
func (v *Validator) ValidateCreate(nounName string, data map[string]any) Result {
	return v.validate(nounName, data, true)
}

// ValidateUpdate validates an update body. Same rules as create except
// absent fields are permitted for partial update.
func (v *Validator) ValidateUpdate(nounName string, data map[string]any) Result {
	return v.validate(nounName, data, false)
}

func (v *Validator) validate(nounName string, data map[string]any, requireRequired bool) Result {
	result := Result{Valid: true}

	noun, ok := v.nouns[nounName]
	if !ok {
		result.AddError("_noun", "unknown", fmt.Sprintf("unknown noun: %s", nounName))
		return result
	}

	// Unknown fields fail loud. "id" is implicit and always accepted.
	for name := range data {
		if name == "id" {
			continue
		}
		if _, known := noun.Fields[name]; !known {
			result.AddError(name, "unknown_field",
				fmt.Sprintf("unknown field %q - not defined in schema", name))
		}
	}

	for name, field := range noun.Fields {
		value, present := data[name]

		if !present {
			if requireRequired && field.Required {
				result.AddError(name, "required", "field is required")
			}
			continue
		}

		if value == nil {
			if field.Optional {
				continue
			}
			if field.Required {
				result.AddError(name, "required", "field is required")
			}
			continue
		}

		// Relation tokens are metadata; values pass through unchecked.
		if field.IsRelation() {
			continue
		}

		checkType(&result, field, value)
	}

	return result
}

// checkType verifies a value against the field's declared type.
func checkType(result *Result, field schema.Field, value any) {
	if field.Array {
		items, ok := value.([]any)
		if !ok {
			result.AddError(field.Name, "type", "must be an array")
			return
		}
		for _, item := range items {
			checkScalar(result, field, item)
		}
		return
	}

	checkScalar(result, field, value)
}

func checkScalar(result *Result, field schema.Field, value any) {
	switch field.Type {
	case schema.FieldTypeString, schema.FieldTypeText:
		if _, ok := value.(string); !ok {
			result.AddError(field.Name, "type", "must be a string")
		}

	case schema.FieldTypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			result.AddError(field.Name, "type", "must be a number")
		}

	case schema.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			result.AddError(field.Name, "type", "must be a boolean")
		}

	case schema.FieldTypeEnum:
		s, ok := value.(string)
		if !ok || !contains(field.Values, s) {
			result.AddError(field.Name, "enum",
				fmt.Sprintf("must be one of: %s", strings.Join(field.Values, ", ")))
		}
	}
}

// CoerceQuery converts a query-string value to the field's declared type
// so equality filters compare like with like. Boolean "true"/"false" and
// numeric strings are coerced; everything else stays a string.
func CoerceQuery(field schema.Field, raw string) any {
	switch field.Type {
	case schema.FieldTypeBoolean:
		if raw == "true" {
			return true
		}
		if raw == "false" {
			return false
		}
	case schema.FieldTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	}
	return raw
}

// OpenAPIType maps a field to its OpenAPI schema type and enum values.
func OpenAPIType(field schema.Field) (typ string, enum []string) {
	switch field.Type {
	case schema.FieldTypeNumber:
		return "number", nil
	case schema.FieldTypeBoolean:
		return "boolean", nil
	case schema.FieldTypeEnum:
		return "string", field.Values
	default:
		return "string", nil
	}
}

// GraphQLType maps a field to its GraphQL type name, without the non-null
// marker.
func GraphQLType(field schema.Field) string {
	var base string
	switch field.Type {
	case schema.FieldTypeNumber:
		base = "Float"
	case schema.FieldTypeBoolean:
		base = "Boolean"
	default:
		base = "String"
	}
	if field.Array {
		return "[" + base + "]"
	}
	return base
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
