// Package graphql derives a query/mutation/subscription surface from the
// same noun/verb declarations as REST, over the same store and bus. The
// query language is a restricted subset: named selections with scalar
// arguments and one-level object literals. Fragments, directives, and
// introspection are out of scope.
package graphql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// OperationType distinguishes queries from mutations.
type OperationType string

const (
	OperationQuery    OperationType = "query"
	OperationMutation OperationType = "mutation"
)

// Selection is one top-level selection: name(args) { fields }.
type Selection struct {
	Name   string
	Args   map[string]any
	Fields []string
}

// Document is the parsed form of a request.
type Document struct {
	Operation  OperationType
	Selections []Selection
}

// Parse parses the restricted query grammar:
//
//	[query|mutation] { name(key: value, ...) { field field } ... }
//
// Argument values are quoted strings, bare integers, bare booleans, or a
// single-level { ... } object literal. The outer braces are optional. The
// parser is isolated behind this function so a real grammar could replace
// it without touching execution.
func Parse(query string) (Document, error) {
	p := &parser{input: query}
	return p.parseDocument()
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseDocument() (Document, error) {
	doc := Document{Operation: OperationQuery}

	p.skipSpace()
	switch {
	case p.consumeWord("mutation"):
		doc.Operation = OperationMutation
	case p.consumeWord("query"):
		// Explicit query keyword is permitted but redundant.
	}

	p.skipSpace()
	braced := p.consume('{')

	for {
		p.skipSpace()
		if p.done() {
			break
		}
		if braced && p.peek() == '}' {
			p.pos++
			break
		}
		if p.consume(',') {
			continue
		}

		sel, err := p.parseSelection()
		if err != nil {
			return Document{}, err
		}
		doc.Selections = append(doc.Selections, sel)
	}

	if len(doc.Selections) == 0 {
		return Document{}, fmt.Errorf("query has no selections")
	}

	return doc, nil
}

func (p *parser) parseSelection() (Selection, error) {
	name := p.readIdent()
	if name == "" {
		return Selection{}, fmt.Errorf("expected selection name at offset %d", p.pos)
	}

	sel := Selection{Name: name}

	p.skipSpace()
	if p.consume('(') {
		args, err := p.parseArgs()
		if err != nil {
			return Selection{}, err
		}
		sel.Args = args
	}

	p.skipSpace()
	if p.consume('{') {
		for {
			p.skipSpace()
			if p.done() {
				return Selection{}, fmt.Errorf("unterminated field list for %q", name)
			}
			if p.consume('}') {
				break
			}
			if p.consume(',') {
				continue
			}
			field := p.readIdent()
			if field == "" {
				return Selection{}, fmt.Errorf("expected field name in %q at offset %d", name, p.pos)
			}
			sel.Fields = append(sel.Fields, field)
		}
	}

	return sel, nil
}

func (p *parser) parseArgs() (map[string]any, error) {
	args := make(map[string]any)

	for {
		p.skipSpace()
		if p.done() {
			return nil, fmt.Errorf("unterminated argument list")
		}
		if p.consume(')') {
			return args, nil
		}
		if p.consume(',') {
			continue
		}

		key := p.readIdent()
		if key == "" {
			return nil, fmt.Errorf("expected argument name at offset %d", p.pos)
		}
		p.skipSpace()
		if !p.consume(':') {
			return nil, fmt.Errorf("expected ':' after argument %q", key)
		}

		value, err := p.parseValue(false)
		if err != nil {
			return nil, err
		}
		args[key] = value
	}
}

// parseValue parses a scalar or, at the top level only, an object literal.
// Nesting beyond one level is out of scope by design.
func (p *parser) parseValue(nested bool) (any, error) {
	p.skipSpace()
	if p.done() {
		return nil, fmt.Errorf("expected value at offset %d", p.pos)
	}

	switch c := p.peek(); {
	case c == '"':
		return p.readString()

	case c == '{':
		if nested {
			return nil, fmt.Errorf("nested object literals are not supported")
		}
		return p.parseObject()

	case c == '-' || unicode.IsDigit(rune(c)):
		return p.readNumber()

	default:
		word := p.readIdent()
		switch word {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		case "":
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, p.pos)
		default:
			return nil, fmt.Errorf("unexpected value %q", word)
		}
	}
}

func (p *parser) parseObject() (map[string]any, error) {
	p.consume('{')
	obj := make(map[string]any)

	for {
		p.skipSpace()
		if p.done() {
			return nil, fmt.Errorf("unterminated object literal")
		}
		if p.consume('}') {
			return obj, nil
		}
		if p.consume(',') {
			continue
		}

		key := p.readIdent()
		if key == "" {
			// Tolerate quoted keys.
			if p.peek() == '"' {
				s, err := p.readString()
				if err != nil {
					return nil, err
				}
				key = s
			} else {
				return nil, fmt.Errorf("expected object key at offset %d", p.pos)
			}
		}
		p.skipSpace()
		if !p.consume(':') {
			return nil, fmt.Errorf("expected ':' after object key %q", key)
		}

		value, err := p.parseValue(true)
		if err != nil {
			return nil, err
		}
		obj[key] = value
	}
}

func (p *parser) readString() (string, error) {
	p.consume('"')
	var sb strings.Builder
	for !p.done() {
		c := p.input[p.pos]
		p.pos++
		switch c {
		case '\\':
			if p.done() {
				return "", fmt.Errorf("unterminated string")
			}
			esc := p.input[p.pos]
			p.pos++
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(esc)
			}
		case '"':
			return sb.String(), nil
		default:
			sb.WriteByte(c)
		}
	}
	return "", fmt.Errorf("unterminated string")
}

func (p *parser) readNumber() (any, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.done() && (unicode.IsDigit(rune(p.peek())) || p.peek() == '.') {
		p.pos++
	}

	// All numbers become float64, matching encoding/json, so a record
	// stored through a mutation is identical to one stored through REST.
	raw := p.input[start:p.pos]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", raw)
	}
	return f, nil
}

func (p *parser) readIdent() string {
	start := p.pos
	for !p.done() {
		c := rune(p.peek())
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return p.input[start:p.pos]
}

// consumeWord consumes an identifier keyword followed by a boundary.
func (p *parser) consumeWord(word string) bool {
	if !strings.HasPrefix(p.input[p.pos:], word) {
		return false
	}
	next := p.pos + len(word)
	if next < len(p.input) {
		c := rune(p.input[next])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			return false
		}
	}
	p.pos = next
	return true
}

func (p *parser) consume(c byte) bool {
	p.skipSpace()
	if !p.done() && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.done() && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	return p.input[p.pos]
}

func (p *parser) done() bool {
	return p.pos >= len(p.input)
}
