package apibridge

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// stubStep scripts the outcome of one physical attempt.
type stubStep struct {
	status  int
	body    string
	headers http.Header
	err     error
}

// stubTransport replays scripted steps and records every prepared
// descriptor. Once the script is exhausted the last step repeats.
type stubTransport struct {
	mu       sync.Mutex
	steps    []stubStep
	delay    time.Duration
	calls    int
	requests []*RequestDescriptor
}

func newStubTransport(steps ...stubStep) *stubTransport {
	return &stubTransport{steps: steps}
}

func (s *stubTransport) Send(ctx context.Context, d *RequestDescriptor) (*Response, error) {
	s.mu.Lock()
	step := stubStep{status: http.StatusOK}
	if len(s.steps) > 0 {
		idx := s.calls
		if idx >= len(s.steps) {
			idx = len(s.steps) - 1
		}
		step = s.steps[idx]
	}
	s.calls++
	s.requests = append(s.requests, d)
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if step.err != nil {
		return nil, step.err
	}
	headers := step.headers
	if headers == nil {
		headers = http.Header{}
	}
	return &Response{StatusCode: step.status, Headers: headers, Body: []byte(step.body)}, nil
}

func (s *stubTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubTransport) request(i int) *RequestDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

// memStore is a minimal in-package session store for facade tests.
type memStore struct {
	mu      sync.Mutex
	session *Session
}

func (m *memStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}

func (m *memStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// testClientConfig returns a config with delays small enough for fast tests.
func testClientConfig() ClientConfig {
	cfg := DefaultClientConfig("https://admin.example.test")
	cfg.Retry.BaseDelayMs = 1
	cfg.Retry.MaxDelayMs = 5
	cfg.RateLimit.BaseBackoffMs = 2
	cfg.RateLimit.MaxBackoffMs = 10
	return cfg
}
