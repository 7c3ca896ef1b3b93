// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import "time"

// Clock abstracts time for testability. The rate limiter's window expiry
// is a logical clock check against this, not a scheduled timer.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique record identifiers.
type IDGenerator interface {
	New() string
}

// KeyValidator validates a presented API key and resolves its metadata.
// Implementations return ok=false for unknown or revoked keys.
type KeyValidator interface {
	ValidateKey(rawKey string) (KeyInfo, bool)
}

// KeyInfo is the metadata a validator resolves for an accepted key.
type KeyInfo struct {
	KeyID          string
	Tier           string
	OrganizationID string
}
