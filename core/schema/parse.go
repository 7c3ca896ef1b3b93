package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Compile parses raw noun definitions into the compiled registry.
// Compilation happens once at engine construction; a bad token is a
// configuration error and fails loudly.
func Compile(defs Definitions) (Nouns, error) {
	nouns := make(Nouns, len(defs))

	for name, fields := range defs {
		if !isValidNounName(name) {
			return nil, fmt.Errorf("noun name %q is not a valid identifier", name)
		}

		noun := Noun{
			Name:   name,
			Fields: make(map[string]Field, len(fields)),
		}

		for fieldName, token := range fields {
			f, err := ParseField(fieldName, token)
			if err != nil {
				return nil, fmt.Errorf("noun %q: %w", name, err)
			}
			noun.Fields[fieldName] = f
		}

		nouns[name] = noun
	}

	// Relation targets must name a declared noun. Relations are metadata,
	// but a dangling target is a configuration mistake all the same.
	for name, noun := range nouns {
		for fieldName, f := range noun.Fields {
			if !f.IsRelation() {
				continue
			}
			if _, ok := nouns[f.Relation.Target]; !ok {
				return nil, fmt.Errorf("noun %q: field %q relates to undeclared noun %q", name, fieldName, f.Relation.Target)
			}
		}
	}

	return nouns, nil
}

// ParseField parses a single field declaration token.
//
// Grammar:
//
//	base types: string, text, number/int/integer, boolean/bool
//	modifiers:  "!" required, "?" optional, "[]" array, "#" indexed
//	enums:      "a | b | c" (literal string values)
//	relations:  "-> Target", "<- Target.field[]", "~> Target", "<~ Target.field"
func ParseField(name, token string) (Field, error) {
	f := Field{Name: name, Raw: token}

	tok := strings.TrimSpace(token)
	if tok == "" {
		return f, fmt.Errorf("field %q: empty type token", name)
	}

	// Relation tokens. Metadata only, never resolved by the engine.
	for _, kind := range []RelationKind{RelationForward, RelationBackward, RelationFuzzyForward, RelationFuzzyBackward} {
		if strings.HasPrefix(tok, string(kind)) {
			rel, err := parseRelation(kind, strings.TrimSpace(tok[len(kind):]))
			if err != nil {
				return f, fmt.Errorf("field %q: %w", name, err)
			}
			f.Relation = &rel
			return f, nil
		}
	}

	// Enum: pipe-separated literal values.
	if strings.Contains(tok, "|") {
		parts := strings.Split(tok, "|")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			v := strings.TrimSpace(p)
			if v == "" {
				return f, fmt.Errorf("field %q: empty enum value in %q", name, token)
			}
			values = append(values, v)
		}
		f.Type = FieldTypeEnum
		f.Values = values
		return f, nil
	}

	// Strip modifiers off the end. Order-insensitive so "string[]!" and
	// "string![]" both parse.
	for {
		switch {
		case strings.HasSuffix(tok, "!"):
			f.Required = true
			tok = tok[:len(tok)-1]
		case strings.HasSuffix(tok, "?"):
			f.Optional = true
			tok = tok[:len(tok)-1]
		case strings.HasSuffix(tok, "#"):
			f.Indexed = true
			tok = tok[:len(tok)-1]
		case strings.HasSuffix(tok, "[]"):
			f.Array = true
			tok = tok[:len(tok)-2]
		default:
			base, err := resolveBaseType(tok)
			if err != nil {
				return f, fmt.Errorf("field %q: %w", name, err)
			}
			f.Type = base
			return f, nil
		}
	}
}

// parseRelation parses the remainder of a relation token after its arrow.
func parseRelation(kind RelationKind, rest string) (Relation, error) {
	if rest == "" {
		return Relation{}, fmt.Errorf("relation %q missing target", kind)
	}

	rel := Relation{Kind: kind}

	if strings.HasSuffix(rest, "[]") {
		rel.Many = true
		rest = strings.TrimSpace(rest[:len(rest)-2])
	}

	if dot := strings.Index(rest, "."); dot >= 0 {
		rel.Target = rest[:dot]
		rel.Field = rest[dot+1:]
	} else {
		rel.Target = rest
	}

	if rel.Target == "" {
		return Relation{}, fmt.Errorf("relation %q missing target", kind)
	}

	return rel, nil
}

// resolveBaseType maps a bare type name to its canonical FieldType.
func resolveBaseType(name string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string":
		return FieldTypeString, nil
	case "text":
		return FieldTypeText, nil
	case "number", "int", "integer", "float":
		return FieldTypeNumber, nil
	case "boolean", "bool":
		return FieldTypeBoolean, nil
	default:
		return "", fmt.Errorf("unknown type %q", name)
	}
}

// isValidNounName checks that a noun name is a PascalCase identifier.
func isValidNounName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if i == 0 {
			if c < 'A' || c > 'Z' {
				return false
			}
			continue
		}
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// File is the YAML document shape for declarative schema files.
type File struct {
	Nouns Definitions `yaml:"nouns"`
}

// ParseFile loads noun definitions from a YAML file.
func ParseFile(path string) (Nouns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return Parse(data)
}

// LoadDefinitions reads raw noun declarations from a YAML file without
// compiling them. Compilation errors surface later, from Compile.
func LoadDefinitions(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(file.Nouns) == 0 {
		return nil, fmt.Errorf("schema file declares no nouns")
	}
	return file.Nouns, nil
}

// Parse loads noun definitions from YAML bytes.
func Parse(data []byte) (Nouns, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(file.Nouns) == 0 {
		return nil, fmt.Errorf("schema file declares no nouns")
	}
	return Compile(file.Nouns)
}
