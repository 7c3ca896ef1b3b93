package graphql_test

import (
	"strings"
	"testing"

	"github.com/artpar/polyapi/core/graphql"
)

func TestParse_QueryWithFields(t *testing.T) {
	doc, err := graphql.Parse(`{ todos { id title } }`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if doc.Operation != graphql.OperationQuery {
		t.Errorf("operation = %q, want query", doc.Operation)
	}
	if len(doc.Selections) != 1 {
		t.Fatalf("got %d selections", len(doc.Selections))
	}
	sel := doc.Selections[0]
	if sel.Name != "todos" {
		t.Errorf("name = %q", sel.Name)
	}
	if len(sel.Fields) != 2 || sel.Fields[0] != "id" || sel.Fields[1] != "title" {
		t.Errorf("fields = %v", sel.Fields)
	}
}

func TestParse_ExplicitKeywordsAndBareSelections(t *testing.T) {
	for _, query := range []string{
		`query { todos }`,
		`{ todos }`,
		`todos`,
	} {
		doc, err := graphql.Parse(query)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", query, err)
			continue
		}
		if doc.Operation != graphql.OperationQuery || doc.Selections[0].Name != "todos" {
			t.Errorf("Parse(%q) = %+v", query, doc)
		}
	}
}

func TestParse_Mutation(t *testing.T) {
	doc, err := graphql.Parse(`mutation { deleteTodo(id: "t1") { id } }`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if doc.Operation != graphql.OperationMutation {
		t.Errorf("operation = %q", doc.Operation)
	}
	if doc.Selections[0].Args["id"] != "t1" {
		t.Errorf("args = %v", doc.Selections[0].Args)
	}
}

func TestParse_ArgumentTypes(t *testing.T) {
	doc, err := graphql.Parse(`{ todos(limit: 5, offset: 2, done: true, score: 1.5, note: null) }`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	args := doc.Selections[0].Args
	// Integers decode as float64 just like encoding/json does.
	if args["limit"] != float64(5) {
		t.Errorf("limit = %v (%T)", args["limit"], args["limit"])
	}
	if args["offset"] != float64(2) {
		t.Errorf("offset = %v", args["offset"])
	}
	if args["done"] != true {
		t.Errorf("done = %v", args["done"])
	}
	if args["score"] != 1.5 {
		t.Errorf("score = %v", args["score"])
	}
	if v, present := args["note"]; !present || v != nil {
		t.Errorf("note = %v, want explicit null", v)
	}
}

func TestParse_ObjectLiteral(t *testing.T) {
	doc, err := graphql.Parse(`mutation { createTodo(input: {title: "write", done: false}) { id } }`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	input, ok := doc.Selections[0].Args["input"].(map[string]any)
	if !ok {
		t.Fatalf("input = %T", doc.Selections[0].Args["input"])
	}
	if input["title"] != "write" || input["done"] != false {
		t.Errorf("input = %v", input)
	}
}

func TestParse_NestedObjectRejected(t *testing.T) {
	_, err := graphql.Parse(`mutation { createTodo(input: {meta: {deep: 1}}) }`)
	if err == nil {
		t.Fatal("expected error for nested object literal")
	}
	if !strings.Contains(err.Error(), "nested") {
		t.Errorf("error = %v", err)
	}
}

func TestParse_StringEscapes(t *testing.T) {
	doc, err := graphql.Parse(`{ todo(id: "line\none \"quoted\"") }`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := doc.Selections[0].Args["id"]; got != "line\none \"quoted\"" {
		t.Errorf("id = %q", got)
	}
}

func TestParse_MultipleSelections(t *testing.T) {
	doc, err := graphql.Parse(`{ todos { id } users { id } }`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(doc.Selections) != 2 {
		t.Fatalf("got %d selections, want 2", len(doc.Selections))
	}
	if doc.Selections[1].Name != "users" {
		t.Errorf("second selection = %q", doc.Selections[1].Name)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, query := range []string{
		"",
		"{}",
		"{ todos(",
		`{ todos(limit) }`,
		`{ todos { id `,
		`{ todos(limit: @) }`,
	} {
		if _, err := graphql.Parse(query); err == nil {
			t.Errorf("Parse(%q): expected error", query)
		}
	}
}
