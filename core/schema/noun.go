// Package schema defines the noun/verb declarations and the field type
// mini-language that every API surface is derived from.
package schema

// FieldType represents the resolved base type of a field.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeText    FieldType = "text"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeEnum    FieldType = "enum"
)

// RelationKind identifies the direction and fuzziness of a relation token.
type RelationKind string

const (
	RelationForward       RelationKind = "->"
	RelationBackward      RelationKind = "<-"
	RelationFuzzyForward  RelationKind = "~>"
	RelationFuzzyBackward RelationKind = "<~"
)

// Relation describes a link to another noun. Relations are metadata for
// downstream generators; the engine never resolves them.
type Relation struct {
	// Kind is the relation direction.
	Kind RelationKind

	// Target is the noun the relation points at.
	Target string

	// Field is the target field for backward relations (e.g. "<- Post.author").
	Field string

	// Many indicates a []-suffixed relation.
	Many bool
}

// Field is a fully-parsed field declaration.
type Field struct {
	// Name of the field.
	Name string

	// Raw is the original declaration token (e.g. "string!", "low | high").
	Raw string

	// Type is the resolved base type.
	Type FieldType

	// Required indicates a "!" modifier.
	Required bool

	// Optional indicates a "?" modifier (nullable on absence).
	Optional bool

	// Array indicates a "[]" modifier.
	Array bool

	// Indexed indicates a "#" modifier. Informational only.
	Indexed bool

	// Values lists the literal values for enum fields.
	Values []string

	// Relation is set for relation tokens. Nil for data fields.
	Relation *Relation
}

// IsRelation reports whether the field is a relation token rather than data.
func (f Field) IsRelation() bool {
	return f.Relation != nil
}

// Noun is a compiled entity type: a name plus its parsed fields.
type Noun struct {
	// Name is the PascalCase noun name.
	Name string

	// Fields are the parsed field declarations, keyed by field name.
	Fields map[string]Field
}

// Field returns the named field declaration.
func (n Noun) Field(name string) (Field, bool) {
	f, ok := n.Fields[name]
	return f, ok
}

// DataFields returns the non-relation fields of the noun.
func (n Noun) DataFields() map[string]Field {
	out := make(map[string]Field, len(n.Fields))
	for name, f := range n.Fields {
		if f.IsRelation() {
			continue
		}
		out[name] = f
	}
	return out
}

// Nouns is the compiled noun registry, keyed by noun name.
type Nouns map[string]Noun

// Definitions is the raw declarative form handed to the engine:
// noun name -> field name -> type token.
type Definitions map[string]map[string]string
