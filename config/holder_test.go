package config_test

import (
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/polyapi/config"
)

func TestHolder_ReloadSwapsConfig(t *testing.T) {
	path := writeConfig(t, "schema:\n  path: a.yaml\n")

	holder, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	defer holder.Stop()

	var observed string
	holder.OnChange(func(cfg *config.Config) {
		observed = cfg.Schema.Path
	})

	if err := os.WriteFile(path, []byte("schema:\n  path: b.yaml\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := holder.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if holder.Get().Schema.Path != "b.yaml" {
		t.Errorf("path after reload = %q", holder.Get().Schema.Path)
	}
	if observed != "b.yaml" {
		t.Errorf("callback saw %q", observed)
	}
}

func TestHolder_FailedReloadKeepsConfig(t *testing.T) {
	path := writeConfig(t, "schema:\n  path: a.yaml\n")

	holder, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	defer holder.Stop()

	called := false
	holder.OnChange(func(*config.Config) { called = true })

	if err := os.WriteFile(path, []byte("schema: [broken\n"), 0o644); err != nil {
		t.Fatalf("corrupt config: %v", err)
	}
	if err := holder.Reload(); err == nil {
		t.Fatal("Reload should fail on a broken file")
	}

	if holder.Get().Schema.Path != "a.yaml" {
		t.Error("old config should survive a failed reload")
	}
	if called {
		t.Error("callbacks must not fire on a failed reload")
	}
}
