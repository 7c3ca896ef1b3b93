package convention_test

import (
	"testing"

	"github.com/artpar/polyapi/core/convention"
)

func TestPluralize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Todo", "todos"},
		{"Box", "boxes"},
		{"Bus", "buses"},
		{"Quiz", "quizes"},
		{"Match", "matches"},
		{"Dish", "dishes"},
		{"Category", "categories"},
		{"Day", "days"},
		{"User", "users"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := convention.Pluralize(tt.in); got != tt.want {
			t.Errorf("Pluralize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPastTense(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"complete", "completed"},
		{"archive", "archived"},
		{"assign", "assigned"},
		{"publish", "published"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := convention.PastTense(tt.in); got != tt.want {
			t.Errorf("PastTense(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEventNames(t *testing.T) {
	if got := convention.EventName("Todo", "Created"); got != "todoCreated" {
		t.Errorf("EventName = %q, want todoCreated", got)
	}
	if got := convention.VerbEventName("Todo", "complete"); got != "todoCompleted" {
		t.Errorf("VerbEventName = %q, want todoCompleted", got)
	}
	if got := convention.VerbEventName("Article", "archive"); got != "articleArchived" {
		t.Errorf("VerbEventName = %q, want articleArchived", got)
	}
}
