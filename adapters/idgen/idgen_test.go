package idgen_test

import (
	"testing"

	"github.com/artpar/polyapi/adapters/idgen"
)

func TestSequential(t *testing.T) {
	gen := idgen.NewSequential("p")

	if got := gen.New(); got != "p1" {
		t.Errorf("first id = %q", got)
	}
	if got := gen.New(); got != "p2" {
		t.Errorf("second id = %q", got)
	}

	gen.Reset()
	if got := gen.New(); got != "p1" {
		t.Errorf("id after reset = %q", got)
	}
}

func TestUUID(t *testing.T) {
	gen := idgen.UUID{}

	a, b := gen.New(), gen.New()
	if a == "" || b == "" {
		t.Fatal("UUIDs must be non-empty")
	}
	if a == b {
		t.Errorf("consecutive UUIDs collided: %q", a)
	}
}
