// Package keystore provides API key validators for the auth gate. Keys
// issued here are bcrypt-hashed at rest; only the prefix is kept in the
// clear for lookup.
package keystore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/polyapi/ports"
	"golang.org/x/crypto/bcrypt"
)

// prefixLen is how many leading characters of a raw key are kept in the
// clear for candidate lookup.
const prefixLen = 12

// Entry is a stored API key (immutable value type).
type Entry struct {
	ID             string
	Hash           []byte
	Prefix         string
	Tier           string
	OrganizationID string
	CreatedAt      time.Time
	RevokedAt      *time.Time
}

// Store is an in-memory bcrypt-hashed key store implementing
// ports.KeyValidator.
type Store struct {
	mu    sync.RWMutex
	keys  map[string]Entry
	clock ports.Clock
	ids   ports.IDGenerator
}

// New creates an empty key store.
func New(clock ports.Clock, ids ports.IDGenerator) *Store {
	return &Store{
		keys:  make(map[string]Entry),
		clock: clock,
		ids:   ids,
	}
}

// Issue mints a raw key following the "{tier}_key_..." convention, stores
// its hash, and returns the raw key. The raw key is only available here.
func (s *Store) Issue(tier, organizationID string) (string, Entry, error) {
	randomBytes := make([]byte, 24)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", Entry{}, fmt.Errorf("generate key: %w", err)
	}

	raw := tier + "_key_" + hex.EncodeToString(randomBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", Entry{}, fmt.Errorf("hash key: %w", err)
	}

	entry := Entry{
		ID:             s.ids.New(),
		Hash:           hash,
		Prefix:         keyPrefix(raw),
		Tier:           tier,
		OrganizationID: organizationID,
		CreatedAt:      s.clock.Now(),
	}

	s.mu.Lock()
	s.keys[entry.ID] = entry
	s.mu.Unlock()

	return raw, entry, nil
}

// Revoke marks a key as revoked. Validation fails from then on.
func (s *Store) Revoke(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.keys[id]; ok {
		at := s.clock.Now()
		entry.RevokedAt = &at
		s.keys[id] = entry
	}
}

// ValidateKey checks a presented raw key against stored hashes.
func (s *Store) ValidateKey(raw string) (ports.KeyInfo, bool) {
	prefix := keyPrefix(raw)

	s.mu.RLock()
	var candidates []Entry
	for _, entry := range s.keys {
		if entry.Prefix == prefix {
			candidates = append(candidates, entry)
		}
	}
	s.mu.RUnlock()

	for _, entry := range candidates {
		if entry.RevokedAt != nil {
			continue
		}
		if bcrypt.CompareHashAndPassword(entry.Hash, []byte(raw)) == nil {
			return ports.KeyInfo{
				KeyID:          entry.ID,
				Tier:           entry.Tier,
				OrganizationID: entry.OrganizationID,
			}, true
		}
	}

	return ports.KeyInfo{}, false
}

func keyPrefix(raw string) string {
	if len(raw) < prefixLen {
		return raw
	}
	return raw[:prefixLen]
}

var _ ports.KeyValidator = (*Store)(nil)

// Static validates against a fixed key list, for configuration-driven
// deployments where keys live in the config file.
type Static struct {
	keys map[string]ports.KeyInfo
}

// NewStatic creates a validator over a fixed raw-key map.
func NewStatic(keys map[string]ports.KeyInfo) *Static {
	copied := make(map[string]ports.KeyInfo, len(keys))
	for k, v := range keys {
		copied[k] = v
	}
	return &Static{keys: copied}
}

// ValidateKey looks the raw key up directly.
func (s *Static) ValidateKey(raw string) (ports.KeyInfo, bool) {
	info, ok := s.keys[raw]
	return info, ok
}

var _ ports.KeyValidator = (*Static)(nil)
