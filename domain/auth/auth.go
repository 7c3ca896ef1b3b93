// Package auth provides the API-key gate: credential extraction from
// headers or query string, tier resolution, and the public-endpoint
// allowlist. Pure functions over value types; key storage lives behind
// ports.KeyValidator.
package auth

import (
	"regexp"
	"strings"

	"github.com/artpar/polyapi/ports"
)

// Settings configures the auth gate. A zero Settings (APIKeys false)
// disables authentication entirely.
type Settings struct {
	// APIKeys enables API key authentication.
	APIKeys bool

	// Validator, when set, decides validity and resolves key metadata.
	// Without one, any non-empty key is accepted and the tier is parsed
	// opportunistically from the "{tier}_key_..." prefix convention.
	Validator ports.KeyValidator

	// AllowQueryParam permits the api_key query parameter as a credential
	// source. Off by default; query strings end up in access logs.
	AllowQueryParam bool

	// PublicEndpoints lists "METHOD /path" entries that never require a
	// key. Path segments may be :param templates.
	PublicEndpoints []string
}

// RequestInfo is the slice of an inbound request the gate inspects.
type RequestInfo struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
}

// Result is the outcome of credential extraction and validation.
type Result struct {
	Valid          bool
	Key            string // The presented credential, when any
	Tier           string
	KeyID          string
	OrganizationID string
	Reason         string // ReasonMissing or ReasonInvalid when !Valid
}

// Reasons for rejection.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
)

// tierPrefix matches the "{tier}_key_..." naming convention.
var tierPrefix = regexp.MustCompile(`^([A-Za-z0-9]+)_key_`)

// Extract extracts and validates the caller credential.
//
// Order: no auth configured -> valid; public endpoint -> valid with no key;
// no candidate key -> missing; validator rejects -> invalid; otherwise the
// key is accepted and tier metadata resolved.
func Extract(req RequestInfo, cfg Settings) Result {
	if !cfg.APIKeys {
		return Result{Valid: true}
	}

	if IsPublicEndpoint(req.Method, req.Path, cfg.PublicEndpoints) {
		return Result{Valid: true}
	}

	key := candidateKey(req, cfg)
	if key == "" {
		return Result{Valid: false, Reason: ReasonMissing}
	}

	if cfg.Validator != nil {
		info, ok := cfg.Validator.ValidateKey(key)
		if !ok {
			return Result{Valid: false, Key: key, Reason: ReasonInvalid}
		}
		return Result{
			Valid:          true,
			Key:            key,
			Tier:           info.Tier,
			KeyID:          info.KeyID,
			OrganizationID: info.OrganizationID,
		}
	}

	// No validator: any non-empty key is accepted.
	result := Result{Valid: true, Key: key}
	if m := tierPrefix.FindStringSubmatch(key); m != nil {
		result.Tier = m[1]
	}
	return result
}

// candidateKey extracts a key with priority X-API-Key header, then
// Authorization bearer token, then (if allowed) the api_key query param.
func candidateKey(req RequestInfo, cfg Settings) string {
	if key := headerValue(req.Headers, "X-API-Key"); key != "" {
		return key
	}

	if authz := headerValue(req.Headers, "Authorization"); authz != "" {
		if token, ok := bearerToken(authz); ok {
			return token
		}
	}

	if cfg.AllowQueryParam {
		return req.Query["api_key"]
	}

	return ""
}

// bearerToken extracts the token from an "Authorization: Bearer x" value.
func bearerToken(authz string) (string, bool) {
	const prefix = "bearer "
	if len(authz) > len(prefix) && strings.EqualFold(authz[:len(prefix)], prefix) {
		return strings.TrimSpace(authz[len(prefix):]), true
	}
	return "", false
}

// IsPublicEndpoint checks "METHOD /path" entries against the request,
// treating :param segments as wildcards. Segment counts must match.
func IsPublicEndpoint(method, path string, entries []string) bool {
	for _, entry := range entries {
		entryMethod, entryPath, ok := strings.Cut(entry, " ")
		if !ok {
			continue
		}
		if !strings.EqualFold(entryMethod, method) {
			continue
		}
		if entryPath == path || templateMatch(entryPath, path) {
			return true
		}
	}
	return false
}

// templateMatch matches a templated path ("/todos/:id") against a request
// path segment by segment.
func templateMatch(template, path string) bool {
	tsegs := splitPath(template)
	psegs := splitPath(path)
	if len(tsegs) != len(psegs) {
		return false
	}
	for i, t := range tsegs {
		if strings.HasPrefix(t, ":") {
			continue
		}
		if t != psegs[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

// headerValue does a case-insensitive header lookup; inbound header maps
// are not guaranteed to be canonicalized.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
