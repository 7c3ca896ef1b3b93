package auth_test

import (
	"testing"

	"github.com/artpar/polyapi/domain/auth"
	"github.com/artpar/polyapi/ports"
)

type stubValidator struct {
	keys map[string]ports.KeyInfo
}

func (s stubValidator) ValidateKey(rawKey string) (ports.KeyInfo, bool) {
	info, ok := s.keys[rawKey]
	return info, ok
}

func TestExtract_NoAuthConfigured(t *testing.T) {
	result := auth.Extract(auth.RequestInfo{Method: "GET", Path: "/todos"}, auth.Settings{})

	if !result.Valid {
		t.Error("requests must pass when auth is disabled")
	}
}

func TestExtract_MissingKey(t *testing.T) {
	result := auth.Extract(auth.RequestInfo{Method: "GET", Path: "/todos"}, auth.Settings{APIKeys: true})

	if result.Valid {
		t.Error("expected rejection without a credential")
	}
	if result.Reason != auth.ReasonMissing {
		t.Errorf("reason = %q, want %q", result.Reason, auth.ReasonMissing)
	}
}

func TestExtract_HeaderPriority(t *testing.T) {
	req := auth.RequestInfo{
		Method: "GET",
		Path:   "/todos",
		Headers: map[string]string{
			"X-API-Key":     "header_key",
			"Authorization": "Bearer bearer_key",
		},
		Query: map[string]string{"api_key": "query_key"},
	}

	result := auth.Extract(req, auth.Settings{APIKeys: true, AllowQueryParam: true})
	if result.Key != "header_key" {
		t.Errorf("key = %q, X-API-Key should win", result.Key)
	}
}

func TestExtract_BearerToken(t *testing.T) {
	req := auth.RequestInfo{
		Method:  "GET",
		Path:    "/todos",
		Headers: map[string]string{"authorization": "bearer abc123"},
	}

	result := auth.Extract(req, auth.Settings{APIKeys: true})
	if !result.Valid {
		t.Fatal("expected bearer token to be accepted")
	}
	if result.Key != "abc123" {
		t.Errorf("key = %q, want abc123", result.Key)
	}
}

func TestExtract_QueryParamGated(t *testing.T) {
	req := auth.RequestInfo{
		Method: "GET",
		Path:   "/todos",
		Query:  map[string]string{"api_key": "q_key"},
	}

	// Off by default.
	result := auth.Extract(req, auth.Settings{APIKeys: true})
	if result.Valid {
		t.Error("query param credential must be ignored unless enabled")
	}

	result = auth.Extract(req, auth.Settings{APIKeys: true, AllowQueryParam: true})
	if !result.Valid || result.Key != "q_key" {
		t.Errorf("result = %+v, want valid with q_key", result)
	}
}

func TestExtract_TierFromKeyPrefix(t *testing.T) {
	req := auth.RequestInfo{
		Method:  "GET",
		Path:    "/todos",
		Headers: map[string]string{"X-API-Key": "pro_key_abc123"},
	}

	result := auth.Extract(req, auth.Settings{APIKeys: true})
	if result.Tier != "pro" {
		t.Errorf("tier = %q, want pro", result.Tier)
	}
}

func TestExtract_ValidatorDecides(t *testing.T) {
	cfg := auth.Settings{
		APIKeys: true,
		Validator: stubValidator{keys: map[string]ports.KeyInfo{
			"good": {KeyID: "k1", Tier: "enterprise", OrganizationID: "org1"},
		}},
	}

	good := auth.Extract(auth.RequestInfo{
		Method:  "GET",
		Path:    "/todos",
		Headers: map[string]string{"X-API-Key": "good"},
	}, cfg)
	if !good.Valid {
		t.Fatal("validator-approved key should pass")
	}
	if good.Tier != "enterprise" || good.KeyID != "k1" || good.OrganizationID != "org1" {
		t.Errorf("metadata not resolved: %+v", good)
	}

	bad := auth.Extract(auth.RequestInfo{
		Method:  "GET",
		Path:    "/todos",
		Headers: map[string]string{"X-API-Key": "bad"},
	}, cfg)
	if bad.Valid {
		t.Error("validator-rejected key should fail")
	}
	if bad.Reason != auth.ReasonInvalid {
		t.Errorf("reason = %q, want %q", bad.Reason, auth.ReasonInvalid)
	}
}

func TestIsPublicEndpoint(t *testing.T) {
	entries := []string{"GET /health", "GET /todos/:id"}

	tests := []struct {
		method, path string
		want         bool
	}{
		{"GET", "/health", true},
		{"get", "/health", true},
		{"POST", "/health", false},
		{"GET", "/todos/abc", true},
		{"GET", "/todos", false},
		{"GET", "/todos/abc/extra", false},
	}

	for _, tt := range tests {
		if got := auth.IsPublicEndpoint(tt.method, tt.path, entries); got != tt.want {
			t.Errorf("IsPublicEndpoint(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestExtract_PublicEndpointSkipsAuth(t *testing.T) {
	cfg := auth.Settings{
		APIKeys:         true,
		PublicEndpoints: []string{"GET /todos"},
	}

	result := auth.Extract(auth.RequestInfo{Method: "GET", Path: "/todos"}, cfg)
	if !result.Valid {
		t.Error("public endpoint should not require a key")
	}
	if result.Key != "" {
		t.Errorf("key = %q, want empty on public endpoint", result.Key)
	}
}
