package apibridge

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// RequestDescriptor describes one logical API call. It is immutable for the
// duration of the call, which may span several physical attempts.
type RequestDescriptor struct {
	Method  string
	Path    string
	Body    []byte
	Headers map[string]string

	// Timeout bounds each physical attempt. Zero means the transport's
	// default applies.
	Timeout time.Duration
}

// endpointKey identifies the endpoint for rate-limit bookkeeping. Unlike the
// dedup key it never includes the body: back-pressure applies to the endpoint
// as a whole, not to one particular payload.
func (d *RequestDescriptor) endpointKey() string {
	return d.Method + " " + d.Path
}

// isMutating reports whether the request carries side effects on the server.
// Mutating requests get a CSRF header and body-sensitive dedup keys.
func (d *RequestDescriptor) isMutating() bool {
	switch d.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Response is the raw outcome of one physical HTTP exchange as produced by a
// Transport. Header lookup is case-insensitive via http.Header.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v. Bodies served without a
// JSON content type are still attempted, matching the best-effort contract
// for 2xx responses. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// IsJSON reports whether the response declares a JSON content type.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.Headers.Get("Content-Type")), "application/json")
}
