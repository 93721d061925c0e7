// errors.go
// ---------
// Error normalization: every failure the client can encounter, whether a
// transport error or a non-2xx response, is converted into one *APIError
// value before it reaches a caller. No raw transport errors escape the core.
package apibridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anchorpoint-labs/apibridge/internal/timeutil"
	"github.com/google/uuid"
)

// Error codes for status-0 (transport-level) failures. HTTP failures carry
// either the server-supplied code or a status-derived fallback.
const (
	CodeNetworkError   = "NETWORK_ERROR"
	CodeRequestTimeout = "REQUEST_TIMEOUT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeServerError    = "SERVER_ERROR"
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeValidation     = "VALIDATION_ERROR"
	CodeUnknown        = "UNKNOWN_ERROR"
)

// ErrorKind classifies an APIError for retry policy.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindTimeout
	KindRateLimited
	KindServer
	KindClient
)

// APIError is the single normalized error surfaced to callers. Status is 0
// for transport-level failures (network errors and timeouts).
type APIError struct {
	Status      int
	Code        string
	Message     string
	Detail      string
	FieldErrors map[string][]string
	Headers     http.Header
	// RetryAfter is derived from the Retry-After header; zero when absent
	// or unparsable.
	RetryAfter time.Duration
	Timestamp  time.Time
	RequestID  string

	cause error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes the underlying transport error, if any, for errors.Is.
func (e *APIError) Unwrap() error { return e.cause }

// Kind returns the error's taxonomy class.
func (e *APIError) Kind() ErrorKind {
	switch {
	case e.Status == 0 && e.Code == CodeRequestTimeout:
		return KindTimeout
	case e.Status == 0:
		return KindNetwork
	case e.Status == http.StatusTooManyRequests:
		return KindRateLimited
	case e.Status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// errorEnvelope is the machine-readable error body the API is expected to
// send. Parsing is best-effort: anything unreadable falls back to a
// status-derived message.
type errorEnvelope struct {
	Code        string              `json:"code"`
	Message     string              `json:"message"`
	Detail      string              `json:"detail"`
	FieldErrors map[string][]string `json:"field_errors"`
	Error       struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newTransportError normalizes a failed exchange that produced no response.
// Deadline expiry maps to REQUEST_TIMEOUT; everything else is a generic
// network error. Both are status 0 but the distinction is load-bearing for
// callers and tests.
func newTransportError(d *RequestDescriptor, err error) *APIError {
	apiErr := &APIError{
		Status:    0,
		Code:      CodeNetworkError,
		Message:   fmt.Sprintf("request to %s %s failed: %v", d.Method, d.Path, err),
		Timestamp: time.Now(),
		RequestID: uuid.NewString(),
		cause:     err,
	}
	if errors.Is(err, context.DeadlineExceeded) {
		apiErr.Code = CodeRequestTimeout
		apiErr.Message = fmt.Sprintf("request to %s %s timed out", d.Method, d.Path)
	}
	return apiErr
}

// newStatusError normalizes a completed response with a non-2xx status.
// It must never fail: a malformed body or header degrades to generic
// fields, not to an error.
func newStatusError(d *RequestDescriptor, resp *Response) *APIError {
	apiErr := &APIError{
		Status:     resp.StatusCode,
		Code:       fallbackCode(resp.StatusCode),
		Message:    fallbackMessage(resp.StatusCode),
		Headers:    resp.Headers,
		RetryAfter: timeutil.ParseRetryAfter(resp.Headers.Get("Retry-After")),
		Timestamp:  time.Now(),
		RequestID:  resp.Headers.Get("X-Request-Id"),
	}
	if apiErr.RequestID == "" {
		apiErr.RequestID = uuid.NewString()
	}

	var env errorEnvelope
	if err := json.Unmarshal(resp.Body, &env); err == nil {
		if env.Code == "" {
			env.Code = env.Error.Code
		}
		if env.Message == "" {
			env.Message = env.Error.Message
		}
		if env.Code != "" {
			apiErr.Code = env.Code
		}
		if env.Message != "" {
			apiErr.Message = env.Message
		}
		apiErr.Detail = env.Detail
		apiErr.FieldErrors = env.FieldErrors
	}
	return apiErr
}

func fallbackCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusTooManyRequests:
		return CodeRateLimited
	}
	if status >= 500 {
		return CodeServerError
	}
	return CodeUnknown
}

func fallbackMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("request failed: %s", text)
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// AsAPIError unwraps err into an *APIError. The client only ever returns
// *APIError values, so ok is false solely for foreign errors.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
