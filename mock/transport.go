// Package mock provides a scriptable Transport for tests: each step yields
// a canned response or error, attempts are counted, and prepared
// descriptors are recorded so header construction can be asserted.
package mock

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/anchorpoint-labs/apibridge"
)

// Step describes the outcome of one scripted attempt.
type Step struct {
	Status  int
	Body    []byte
	Headers http.Header
	Err     error
	// Delay is waited out (context-aware) before the outcome is returned.
	Delay time.Duration
}

// Respond builds a step returning an HTTP response.
func Respond(status int, body string) Step {
	return Step{Status: status, Body: []byte(body)}
}

// RespondWithHeaders builds a response step with headers attached.
func RespondWithHeaders(status int, body string, headers http.Header) Step {
	return Step{Status: status, Body: []byte(body), Headers: headers}
}

// Fail builds a step returning a transport error.
func Fail(err error) Step {
	return Step{Err: err}
}

// Transport replays its script one step per Send call; once the script is
// exhausted the last step repeats forever. Safe for concurrent use.
type Transport struct {
	mu       sync.Mutex
	steps    []Step
	calls    int
	requests []*apibridge.RequestDescriptor
}

var _ apibridge.Transport = (*Transport)(nil)

// NewTransport creates a transport replaying the given steps.
func NewTransport(steps ...Step) *Transport {
	return &Transport{steps: steps}
}

// Send implements apibridge.Transport.
func (t *Transport) Send(ctx context.Context, d *apibridge.RequestDescriptor) (*apibridge.Response, error) {
	t.mu.Lock()
	step := Respond(http.StatusOK, "")
	if len(t.steps) > 0 {
		idx := t.calls
		if idx >= len(t.steps) {
			idx = len(t.steps) - 1
		}
		step = t.steps[idx]
	}
	t.calls++
	t.requests = append(t.requests, d)
	t.mu.Unlock()

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if step.Err != nil {
		return nil, step.Err
	}
	headers := step.Headers
	if headers == nil {
		headers = http.Header{}
	}
	return &apibridge.Response{
		StatusCode: step.Status,
		Headers:    headers,
		Body:       step.Body,
	}, nil
}

// Calls returns how many physical attempts were made.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Requests returns the prepared descriptors seen so far, in order.
func (t *Transport) Requests() []*apibridge.RequestDescriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*apibridge.RequestDescriptor, len(t.requests))
	copy(out, t.requests)
	return out
}
