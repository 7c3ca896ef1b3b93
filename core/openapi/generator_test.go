package openapi_test

import (
	"context"
	"testing"

	"github.com/artpar/polyapi/core/openapi"
	"github.com/artpar/polyapi/core/schema"
)

func compile(t *testing.T, defs schema.Definitions) schema.Nouns {
	t.Helper()
	nouns, err := schema.Compile(defs)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	return nouns
}

func TestGenerate_PathsAndOperations(t *testing.T) {
	nouns := compile(t, schema.Definitions{
		"Todo": {"title": "string!", "done": "boolean"},
	})
	verbs := schema.Verbs{
		"Todo": {
			"complete": func(ctx context.Context, call schema.Call) error { return nil },
		},
	}

	spec := openapi.Generate(nouns, verbs, openapi.Info{Title: "Test API", Version: "1.0.0"})

	if spec.OpenAPI != "3.0.3" {
		t.Errorf("openapi = %q", spec.OpenAPI)
	}

	collection, ok := spec.Paths["/todos"]
	if !ok {
		t.Fatal("missing /todos path")
	}
	if collection.Get == nil || collection.Get.OperationID != "listTodos" {
		t.Errorf("list operation = %+v", collection.Get)
	}
	if collection.Post == nil || collection.Post.OperationID != "createTodo" {
		t.Errorf("create operation = %+v", collection.Post)
	}

	item, ok := spec.Paths["/todos/{id}"]
	if !ok {
		t.Fatal("missing /todos/{id} path")
	}
	if item.Get == nil || item.Put == nil || item.Delete == nil {
		t.Error("item path should carry get, put, and delete")
	}
	if item.Delete.Responses["204"].Description == "" {
		t.Error("delete should document 204")
	}

	verbPath, ok := spec.Paths["/todos/{id}/complete"]
	if !ok {
		t.Fatal("missing verb path")
	}
	if verbPath.Post == nil || verbPath.Post.OperationID != "completeTodo" {
		t.Errorf("verb operation = %+v", verbPath.Post)
	}
}

func TestGenerate_ComponentSchemas(t *testing.T) {
	nouns := compile(t, schema.Definitions{
		"Todo": {
			"title":    "string!",
			"priority": "low | high",
			"tags":     "string[]",
			"owner":    "-> User",
		},
		"User": {"name": "string"},
	})

	spec := openapi.Generate(nouns, nil, openapi.Info{Title: "t", Version: "1"})

	for _, name := range []string{"Error", "Todo", "TodoCreateInput", "TodoUpdateInput", "TodoListResponse"} {
		if _, ok := spec.Components.Schemas[name]; !ok {
			t.Errorf("missing component schema %q", name)
		}
	}

	todo := spec.Components.Schemas["Todo"]
	if todo.Properties["id"] == nil {
		t.Error("record schema should include id")
	}
	if _, present := todo.Properties["owner"]; present {
		t.Error("relation fields must not appear in wire schemas")
	}
	if got := todo.Properties["priority"].Enum; len(got) != 2 {
		t.Errorf("enum values = %v", got)
	}
	if todo.Properties["tags"].Type != "array" {
		t.Errorf("tags type = %q", todo.Properties["tags"].Type)
	}

	create := spec.Components.Schemas["TodoCreateInput"]
	if len(create.Required) != 1 || create.Required[0] != "title" {
		t.Errorf("create required = %v", create.Required)
	}

	update := spec.Components.Schemas["TodoUpdateInput"]
	if len(update.Required) != 0 {
		t.Errorf("update required = %v, partial updates require nothing", update.Required)
	}
}

func TestGenerate_ListParametersIncludeFields(t *testing.T) {
	nouns := compile(t, schema.Definitions{
		"Todo": {"title": "string", "done": "boolean"},
	})

	spec := openapi.Generate(nouns, nil, openapi.Info{Title: "t", Version: "1"})
	params := spec.Paths["/todos"].Get.Parameters

	want := map[string]bool{"limit": false, "offset": false, "title": false, "done": false}
	for _, p := range params {
		if _, ok := want[p.Name]; ok {
			want[p.Name] = true
		}
		if p.In != "query" {
			t.Errorf("parameter %s in = %q", p.Name, p.In)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("missing list parameter %q", name)
		}
	}
}
