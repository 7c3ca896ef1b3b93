package keystore_test

import (
	"strings"
	"testing"
	"time"

	"github.com/artpar/polyapi/adapters/clock"
	"github.com/artpar/polyapi/adapters/idgen"
	"github.com/artpar/polyapi/adapters/keystore"
	"github.com/artpar/polyapi/ports"
)

func newStore(t *testing.T) *keystore.Store {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return keystore.New(fake, idgen.NewSequential("key-"))
}

func TestIssueAndValidate(t *testing.T) {
	store := newStore(t)

	raw, entry, err := store.Issue("pro", "org-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.HasPrefix(raw, "pro_key_") {
		t.Errorf("raw key = %q, want the tier_key_ convention", raw)
	}
	if entry.ID != "key-1" {
		t.Errorf("entry id = %q", entry.ID)
	}

	info, ok := store.ValidateKey(raw)
	if !ok {
		t.Fatal("issued key should validate")
	}
	if info.KeyID != entry.ID || info.Tier != "pro" || info.OrganizationID != "org-1" {
		t.Errorf("info = %+v", info)
	}
}

func TestValidateKey_UnknownKey(t *testing.T) {
	store := newStore(t)
	if _, _, err := store.Issue("free", ""); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, ok := store.ValidateKey("free_key_not_the_real_one"); ok {
		t.Error("an unissued key must not validate")
	}
}

func TestRevoke(t *testing.T) {
	store := newStore(t)

	raw, entry, err := store.Issue("pro", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	store.Revoke(entry.ID)

	if _, ok := store.ValidateKey(raw); ok {
		t.Error("revoked key should fail validation")
	}

	// Revoking an unknown id is a no-op.
	store.Revoke("key-99")
}

func TestStatic(t *testing.T) {
	static := keystore.NewStatic(map[string]ports.KeyInfo{
		"pro_key_abc": {KeyID: "k1", Tier: "pro"},
	})

	info, ok := static.ValidateKey("pro_key_abc")
	if !ok || info.Tier != "pro" {
		t.Errorf("info = %+v ok = %v", info, ok)
	}

	if _, ok := static.ValidateKey("other"); ok {
		t.Error("unlisted key should fail")
	}
}
