// Package rest derives the REST endpoint surface from the noun/verb
// declarations. It owns the transport-neutral request pipeline: CORS
// preflight, authentication, routing, rate limiting, and operation
// dispatch through the shared runtime.
package rest

import (
	"context"
	"strconv"
	"strings"

	"github.com/artpar/polyapi/core/runtime"
	"github.com/artpar/polyapi/core/validation"
	"github.com/artpar/polyapi/domain/auth"
	"github.com/artpar/polyapi/domain/ratelimit"
	"github.com/artpar/polyapi/ports"
	"github.com/rs/zerolog"
)

// Request is a transport-neutral inbound request. The HTTP adapter builds
// one from net/http; tests build them directly.
type Request struct {
	Method     string
	Path       string
	Query      map[string]string
	Body       any
	Headers    map[string]string
	RemoteAddr string
}

// Response is a transport-neutral response.
type Response struct {
	Status  int
	Body    any
	Headers map[string]string
}

// ErrorBody is the structured error response shape.
type ErrorBody struct {
	Error     string                  `json:"error"`
	Code      string                  `json:"code"`
	RequestID string                  `json:"requestId,omitempty"`
	Details   []validation.FieldError `json:"details,omitempty"`
}

// Pagination is the list envelope's paging block.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ListEnvelope wraps a list page.
type ListEnvelope struct {
	Data       []map[string]any `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// CORS configures Access-Control-* response headers. A nil CORS emits no
// such headers at all.
type CORS struct {
	Origin         string
	Methods        []string
	AllowedHeaders []string
	ExposedHeaders []string
	Credentials    bool
	MaxAge         int
}

// Surface is the REST endpoint surface.
type Surface struct {
	rt     *runtime.Runtime
	auth   auth.Settings
	limits *ratelimit.Registry
	cors   *CORS
	ids    ports.IDGenerator
	logger zerolog.Logger
	table  []Endpoint
}

// Config wires a Surface.
type Config struct {
	Auth      auth.Settings
	RateLimit *ratelimit.Registry
	CORS      *CORS
	IDs       ports.IDGenerator
	Logger    zerolog.Logger
}

// New derives the endpoint table from the runtime's noun/verb registry.
func New(rt *runtime.Runtime, cfg Config) *Surface {
	return &Surface{
		rt:     rt,
		auth:   cfg.Auth,
		limits: cfg.RateLimit,
		cors:   cfg.CORS,
		ids:    cfg.IDs,
		logger: cfg.Logger,
		table:  buildTable(rt.Nouns(), rt.Verbs()),
	}
}

// Endpoints returns the derived endpoint table.
func (s *Surface) Endpoints() []Endpoint {
	return s.table
}

// Handle runs a request through the pipeline. Every failure mode returns
// a structured response; nothing escapes as a panic or raw error.
func (s *Surface) Handle(ctx context.Context, req Request) Response {
	// Stage 1: CORS preflight.
	if req.Method == "OPTIONS" && s.cors != nil {
		return Response{Status: 204, Headers: s.preflightHeaders()}
	}

	// Stage 2: authentication.
	authResult := auth.Extract(auth.RequestInfo{
		Method:  req.Method,
		Path:    req.Path,
		Headers: req.Headers,
		Query:   req.Query,
	}, s.auth)
	if !authResult.Valid {
		return s.error(401, runtime.CodeUnauthorized, authMessage(authResult.Reason), nil)
	}

	// Stage 3: routing.
	match, ok := s.match(req.Method, req.Path)
	if !ok {
		return s.error(404, runtime.CodeNotFound, "not found", nil)
	}

	// Stage 4: rate limiting, keyed by caller identity.
	var limitHeaders map[string]string
	if s.limits != nil {
		endpointKey := req.Method + " " + match.RuleKey()
		if limiter := s.limits.Resolve(endpointKey, authResult.Tier); limiter != nil {
			result := limiter.Check(clientKey(authResult, req))
			limitHeaders = rateHeaders(result)
			if !result.Allowed {
				resp := s.error(429, runtime.CodeRateLimitExceeded, "rate limit exceeded", nil)
				mergeHeaders(&resp, limitHeaders)
				return resp
			}
		}
	}

	// Stage 5: operation dispatch.
	resp := s.dispatch(ctx, match, authResult, req)
	mergeHeaders(&resp, limitHeaders)
	mergeHeaders(&resp, s.responseHeaders())
	return resp
}

// dispatch executes the matched operation through the shared runtime.
func (s *Surface) dispatch(ctx context.Context, match Match, authResult auth.Result, req Request) Response {
	ep := match.Endpoint
	id := match.Params["id"]

	switch ep.Op {
	case OpList:
		return s.handleList(ctx, ep.Noun, req)

	case OpGet:
		rec, opErr := s.rt.Get(ctx, ep.Noun, id)
		if opErr != nil {
			return s.opError(opErr)
		}
		return Response{Status: 200, Body: rec}

	case OpCreate:
		input, ok := bodyObject(req.Body)
		if !ok {
			return s.error(400, runtime.CodeValidationError, "request body must be an object", nil)
		}
		rec, opErr := s.rt.Create(ctx, ep.Noun, input)
		if opErr != nil {
			return s.opError(opErr)
		}
		return Response{Status: 201, Body: rec}

	case OpUpdate:
		input, ok := bodyObject(req.Body)
		if !ok {
			return s.error(400, runtime.CodeValidationError, "request body must be an object", nil)
		}
		rec, opErr := s.rt.Update(ctx, ep.Noun, id, input)
		if opErr != nil {
			return s.opError(opErr)
		}
		return Response{Status: 200, Body: rec}

	case OpDelete:
		if opErr := s.rt.Delete(ctx, ep.Noun, id); opErr != nil {
			return s.opError(opErr)
		}
		return Response{Status: 204, Body: nil}

	case OpVerb:
		verb := match.Params["verb"]
		input, _ := bodyObject(req.Body)
		rec, opErr := s.rt.InvokeVerb(ctx, ep.Noun, verb, id, input, authResult.Key)
		if opErr != nil {
			return s.opError(opErr)
		}
		return Response{Status: 200, Body: rec}
	}

	return s.error(404, runtime.CodeNotFound, "not found", nil)
}

// handleList reads limit/offset plus declared-field filters from the query
// string, coercing filter values to their declared types.
func (s *Surface) handleList(ctx context.Context, nounName string, req Request) Response {
	noun := s.rt.Nouns()[nounName]

	limit := queryInt(req.Query, "limit", 0)
	offset := queryInt(req.Query, "offset", 0)

	filters := make(map[string]any)
	for key, raw := range req.Query {
		if key == "limit" || key == "offset" {
			continue
		}
		field, declared := noun.Fields[key]
		if !declared || field.IsRelation() {
			continue
		}
		filters[key] = validation.CoerceQuery(field, raw)
	}

	page := s.rt.List(ctx, nounName, filters, limit, offset)
	return Response{Status: 200, Body: ListEnvelope{
		Data: page.Items,
		Pagination: Pagination{
			Limit:  page.Limit,
			Offset: page.Offset,
			Total:  page.Total,
		},
	}}
}

// opError maps a runtime failure code to its HTTP status.
func (s *Surface) opError(opErr *runtime.OpError) Response {
	status := 500
	switch opErr.Code {
	case runtime.CodeNotFound, runtime.CodeVerbNotFound:
		status = 404
	case runtime.CodeValidationError:
		status = 400
	case runtime.CodeDuplicate:
		status = 409
	case runtime.CodeUnauthorized:
		status = 401
	case runtime.CodeRateLimitExceeded:
		status = 429
	}
	return s.error(status, opErr.Code, opErr.Message, opErr.Details)
}

func (s *Surface) error(status int, code, message string, details []validation.FieldError) Response {
	body := ErrorBody{
		Error:   message,
		Code:    code,
		Details: details,
	}
	if s.ids != nil {
		body.RequestID = s.ids.New()
	}
	resp := Response{Status: status, Body: body}
	mergeHeaders(&resp, s.responseHeaders())
	return resp
}

// preflightHeaders builds the full Access-Control-* set for OPTIONS.
func (s *Surface) preflightHeaders() map[string]string {
	h := map[string]string{
		"Access-Control-Allow-Origin": s.cors.Origin,
	}

	methods := s.cors.Methods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	h["Access-Control-Allow-Methods"] = strings.Join(methods, ", ")

	allowed := s.cors.AllowedHeaders
	if len(allowed) == 0 {
		allowed = []string{"Content-Type", "Authorization", "X-API-Key"}
	}
	h["Access-Control-Allow-Headers"] = strings.Join(allowed, ", ")

	if len(s.cors.ExposedHeaders) > 0 {
		h["Access-Control-Expose-Headers"] = strings.Join(s.cors.ExposedHeaders, ", ")
	}
	if s.cors.Credentials {
		h["Access-Control-Allow-Credentials"] = "true"
	}
	if s.cors.MaxAge > 0 {
		h["Access-Control-Max-Age"] = strconv.Itoa(s.cors.MaxAge)
	}

	return h
}

// responseHeaders builds the CORS headers attached to actual responses.
func (s *Surface) responseHeaders() map[string]string {
	if s.cors == nil {
		return nil
	}
	h := map[string]string{
		"Access-Control-Allow-Origin": s.cors.Origin,
	}
	if len(s.cors.ExposedHeaders) > 0 {
		h["Access-Control-Expose-Headers"] = strings.Join(s.cors.ExposedHeaders, ", ")
	}
	if s.cors.Credentials {
		h["Access-Control-Allow-Credentials"] = "true"
	}
	return h
}

func rateHeaders(result ratelimit.Result) map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(result.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(result.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(result.ResetAt.Unix(), 10),
	}
}

// clientKey derives the rate-limit key from caller identity: the key id,
// then the raw credential, then the remote address.
func clientKey(a auth.Result, req Request) string {
	if a.KeyID != "" {
		return a.KeyID
	}
	if a.Key != "" {
		return a.Key
	}
	if req.RemoteAddr != "" {
		return req.RemoteAddr
	}
	return "anonymous"
}

func authMessage(reason string) string {
	switch reason {
	case auth.ReasonMissing:
		return "missing API key"
	case auth.ReasonInvalid:
		return "invalid API key"
	default:
		return "unauthorized"
	}
}

func bodyObject(body any) (map[string]any, bool) {
	if body == nil {
		return map[string]any{}, false
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return map[string]any{}, false
	}
	return obj, true
}

func queryInt(query map[string]string, key string, fallback int) int {
	raw, ok := query[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func mergeHeaders(resp *Response, headers map[string]string) {
	if len(headers) == 0 {
		return
	}
	if resp.Headers == nil {
		resp.Headers = make(map[string]string, len(headers))
	}
	for k, v := range headers {
		if _, exists := resp.Headers[k]; !exists {
			resp.Headers[k] = v
		}
	}
}
