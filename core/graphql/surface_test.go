package graphql_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/polyapi/adapters/idgen"
	"github.com/artpar/polyapi/core/events"
	"github.com/artpar/polyapi/core/graphql"
	"github.com/artpar/polyapi/core/runtime"
	"github.com/artpar/polyapi/core/schema"
	"github.com/artpar/polyapi/core/storage"
)

func newGraphQL(t *testing.T, verbs schema.Verbs) (*graphql.Surface, *runtime.Runtime) {
	t.Helper()
	nouns, err := schema.Compile(schema.Definitions{
		"Todo": {
			"title": "string!",
			"done":  "boolean",
			"rank":  "number",
		},
	})
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	store := storage.New(nouns, idgen.NewSequential("id-"))
	bus := events.NewBus(zerolog.Nop())
	rt := runtime.New(nouns, verbs, store, bus, zerolog.Nop())
	return graphql.New(rt, zerolog.Nop()), rt
}

func TestExecute_CreateMutation(t *testing.T) {
	s, _ := newGraphQL(t, nil)

	result := s.Execute(context.Background(),
		`mutation { createTodo(input: {title: "write tests", done: false}) { id title } }`, "")

	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	rec, ok := result.Data["createTodo"].(map[string]any)
	if !ok {
		t.Fatalf("createTodo = %T", result.Data["createTodo"])
	}
	if rec["title"] != "write tests" {
		t.Errorf("title = %v", rec["title"])
	}
	if rec["id"] == "" {
		t.Error("created record has no id")
	}
}

func TestExecute_ListQueryWithProjection(t *testing.T) {
	s, rt := newGraphQL(t, nil)
	ctx := context.Background()

	rt.Create(ctx, "Todo", map[string]any{"id": "a", "title": "first", "done": true})
	rt.Create(ctx, "Todo", map[string]any{"id": "b", "title": "second", "done": false})

	result := s.Execute(ctx, `{ todos { id } }`, "")
	items, ok := result.Data["todos"].([]map[string]any)
	if !ok {
		t.Fatalf("todos = %T", result.Data["todos"])
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if _, present := items[0]["title"]; present {
		t.Error("projection should drop unselected fields")
	}
	if items[0]["id"] != "a" || items[1]["id"] != "b" {
		t.Errorf("order = [%v %v], want insertion order", items[0]["id"], items[1]["id"])
	}
}

func TestExecute_ListFiltersAndPaging(t *testing.T) {
	s, rt := newGraphQL(t, nil)
	ctx := context.Background()

	rt.Create(ctx, "Todo", map[string]any{"id": "a", "title": "x", "done": true})
	rt.Create(ctx, "Todo", map[string]any{"id": "b", "title": "y", "done": false})
	rt.Create(ctx, "Todo", map[string]any{"id": "c", "title": "z", "done": true})

	result := s.Execute(ctx, `{ todos(done: true) { id } }`, "")
	items := result.Data["todos"].([]map[string]any)
	if len(items) != 2 {
		t.Errorf("filtered items = %d, want 2", len(items))
	}

	result = s.Execute(ctx, `{ todos(limit: 1, offset: 1) { id } }`, "")
	items = result.Data["todos"].([]map[string]any)
	if len(items) != 1 || items[0]["id"] != "b" {
		t.Errorf("paged items = %v", items)
	}
}

func TestExecute_GetQueryMissIsNull(t *testing.T) {
	s, _ := newGraphQL(t, nil)

	result := s.Execute(context.Background(), `{ todo(id: "nope") { id } }`, "")
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, a get miss is not an error", result.Errors)
	}
	value, present := result.Data["todo"]
	if !present {
		t.Fatal("todo key should be present")
	}
	if value != nil {
		t.Errorf("todo = %v, want null", value)
	}
}

func TestExecute_UnknownSelectionAbsent(t *testing.T) {
	s, _ := newGraphQL(t, nil)

	result := s.Execute(context.Background(), `{ widgets { id } }`, "")
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v", result.Errors)
	}
	if _, present := result.Data["widgets"]; present {
		t.Error("unknown selection should be absent from data")
	}
}

func TestExecute_ParseErrorSurfaces(t *testing.T) {
	s, _ := newGraphQL(t, nil)

	result := s.Execute(context.Background(), `{ todos(limit: ) }`, "")
	if len(result.Errors) == 0 {
		t.Fatal("malformed query should produce an errors entry")
	}
	if result.Data == nil {
		t.Error("data must still be present")
	}
}

func TestExecute_MutationErrorEntry(t *testing.T) {
	s, _ := newGraphQL(t, nil)

	result := s.Execute(context.Background(),
		`mutation { updateTodo(id: "nope", input: {done: true}) { id } }`, "")

	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0].Message, "not found") {
		t.Errorf("message = %q", result.Errors[0].Message)
	}
	if value, present := result.Data["updateTodo"]; !present || value != nil {
		t.Errorf("updateTodo = %v, want explicit null", value)
	}
}

func TestExecute_DeleteMutation(t *testing.T) {
	s, rt := newGraphQL(t, nil)
	ctx := context.Background()

	rt.Create(ctx, "Todo", map[string]any{"id": "t1", "title": "x"})

	result := s.Execute(ctx, `mutation { deleteTodo(id: "t1") { id } }`, "")
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	rec := result.Data["deleteTodo"].(map[string]any)
	if rec["id"] != "t1" {
		t.Errorf("deleteTodo = %v", rec)
	}

	if _, ok := rt.Store().Get(ctx, "Todo", "t1"); ok {
		t.Error("record should be gone")
	}
}

func TestExecute_VerbMutation(t *testing.T) {
	verbs := schema.Verbs{
		"Todo": {
			"complete": func(ctx context.Context, call schema.Call) error {
				call.DB.Update(ctx, "Todo", call.ID, map[string]any{"done": true})
				return nil
			},
		},
	}
	s, rt := newGraphQL(t, verbs)
	ctx := context.Background()

	rt.Create(ctx, "Todo", map[string]any{"id": "t1", "title": "x", "done": false})

	result := s.Execute(ctx, `mutation { completeTodo(id: "t1") { id done } }`, "")
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	rec := result.Data["completeTodo"].(map[string]any)
	if rec["done"] != true {
		t.Errorf("done = %v", rec["done"])
	}
}

func TestExecute_MutationEmitsSameEventAsREST(t *testing.T) {
	s, rt := newGraphQL(t, nil)
	ctx := context.Background()

	got := make(chan map[string]any, 1)
	s.Subscribe("todoCreated", func(ctx context.Context, payload map[string]any) error {
		got <- payload
		return nil
	}, nil)

	s.Execute(ctx, `mutation { createTodo(input: {title: "x", rank: 3}) { id } }`, "")

	select {
	case payload := <-got:
		if payload["title"] != "x" {
			t.Errorf("payload = %v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for todoCreated")
	}

	// A mutation stores the same representation a JSON-decoded create
	// would: numeric literals arrive as float64 on both paths.
	direct, opErr := rt.Create(ctx, "Todo", map[string]any{"title": "x", "rank": float64(3)})
	if opErr != nil {
		t.Fatalf("direct create: %v", opErr)
	}
	viaMutation, ok := rt.Store().Get(ctx, "Todo", "id-1")
	if !ok {
		t.Fatal("mutated record missing from store")
	}
	for field, want := range direct {
		if field == "id" {
			continue
		}
		gotValue := viaMutation[field]
		if gotValue != want {
			t.Errorf("field %s = %v (%T), want %v (%T)", field, gotValue, gotValue, want, want)
		}
	}
}

func TestDeriveSchema_OperationTables(t *testing.T) {
	verbs := schema.Verbs{
		"Todo": {
			"complete": func(ctx context.Context, call schema.Call) error { return nil },
		},
	}
	s, _ := newGraphQL(t, verbs)
	derived := s.Schema()

	for _, q := range []string{"todos", "todo"} {
		if _, ok := derived.Queries[q]; !ok {
			t.Errorf("missing query %q", q)
		}
	}
	for _, m := range []string{"createTodo", "updateTodo", "deleteTodo", "completeTodo"} {
		if _, ok := derived.Mutations[m]; !ok {
			t.Errorf("missing mutation %q", m)
		}
	}

	wantSubs := map[string]bool{
		"todoCreated": false, "todoUpdated": false,
		"todoDeleted": false, "todoCompleted": false,
	}
	for _, sub := range derived.Subscriptions {
		if _, want := wantSubs[sub]; want {
			wantSubs[sub] = true
		}
	}
	for sub, seen := range wantSubs {
		if !seen {
			t.Errorf("missing subscription %q", sub)
		}
	}
}

func TestSDL_RendersTypesAndOperations(t *testing.T) {
	s, _ := newGraphQL(t, nil)
	sdl := s.Schema().SDL()

	for _, want := range []string{
		"type Todo {",
		"id: String!",
		"title: String!",
		"input TodoCreateInput {",
		"input TodoUpdateInput {",
		"type Query {",
		"todos(limit: Int, offset: Int): [Todo]",
		"todo(id: String!): Todo",
		"type Mutation {",
		"createTodo(input: TodoCreateInput!): Todo",
		"type Subscription {",
		"todoCreated: Todo",
	} {
		if !strings.Contains(sdl, want) {
			t.Errorf("SDL missing %q\n%s", want, sdl)
		}
	}

	// Update inputs drop the non-null markers.
	if strings.Contains(sdl, "UpdateInput") {
		updateBlock := sdl[strings.Index(sdl, "input TodoUpdateInput {"):]
		updateBlock = updateBlock[:strings.Index(updateBlock, "}")]
		if strings.Contains(updateBlock, "String!") {
			t.Error("update input should not require fields")
		}
	}
}
