// client.go
// ---------
// The client.go file contains the core Client struct and its methods.
// This is the single entry point every higher-level API method calls.
//
// A Client composes the request pipeline:
//
//	Deduplicator -> Retry Executor -> Rate-Limit check -> Transport -> Error Normalizer
//
// and attaches session and CSRF state to every physical attempt. Callers
// only ever observe a parsed successful response or one normalized
// *APIError; retries, backoff, and rate-limit waits are invisible to them.
package apibridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultCSRFHeader is the header carrying the CSRF token on mutating
// requests unless overridden with WithCSRFHeaderName.
const DefaultCSRFHeader = "X-CSRF-Token"

// Client is a resilient API client instance. Construct it with NewClient;
// there is deliberately no package-level default instance.
type Client struct {
	cfg       ClientConfig
	transport Transport
	sessions  SessionStore
	csrf      CSRFTokenProvider
	csrfName  string
	tracker   *RateLimitTracker
	executor  *requestExecutor
	dedup     deduplicator
	listener  RateLimitListener
	logger    zerolog.Logger
}

// NewClient creates a Client from a validated configuration and a
// transport. Session storage, CSRF tokens, logging, and rate-limit
// notifications are wired through options; without a session store the
// client issues unauthenticated requests.
func NewClient(cfg ClientConfig, transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("apibridge: transport is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("apibridge: invalid config: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		transport: transport,
		csrfName:  DefaultCSRFHeader,
		logger:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}

	var throttle *rate.Limiter
	if cfg.Throttle.RPS > 0 {
		burst := cfg.Throttle.Burst
		if burst <= 0 {
			burst = 1
		}
		throttle = rate.NewLimiter(rate.Limit(cfg.Throttle.RPS), burst)
	}

	c.tracker = NewRateLimitTracker(cfg.RateLimit, c.logger)
	c.tracker.setListener(c.listener)
	c.executor = newRequestExecutor(cfg.Retry, c.tracker, throttle, c.logger)

	c.logger.Debug().
		Str("base_url", cfg.BaseURL).
		Int("max_retries", cfg.Retry.MaxRetries).
		Msg("API client created")
	return c, nil
}

// Request executes one logical call through the full pipeline. Concurrent
// calls with the same method, path, and (for mutating methods) byte-equal
// body share a single execution and receive the same outcome; late joiners
// inherit the first caller's context.
func (c *Client) Request(ctx context.Context, d *RequestDescriptor) (*Response, error) {
	if d == nil || d.Method == "" || d.Path == "" {
		return nil, fmt.Errorf("apibridge: descriptor requires method and path")
	}
	return c.dedup.call(d, func() (*Response, error) {
		return c.execute(ctx, d)
	})
}

// execute runs the retry loop for one deduplicated execution and applies
// the 401 session-invalidation policy before the error propagates.
func (c *Client) execute(ctx context.Context, d *RequestDescriptor) (*Response, error) {
	resp, apiErr := c.executor.execute(ctx, d, func(ctx context.Context) (*Response, error) {
		return c.transport.Send(ctx, c.prepare(d))
	})
	if apiErr != nil {
		if apiErr.Status == http.StatusUnauthorized {
			c.invalidateSession()
		}
		return nil, apiErr
	}
	return resp, nil
}

// prepare copies the descriptor with standard headers attached. The session
// store is read here, once per physical attempt, so a refresh completed
// mid-retry is picked up by the next attempt. Caller-supplied headers win.
func (c *Client) prepare(d *RequestDescriptor) *RequestDescriptor {
	headers := make(map[string]string, len(d.Headers)+4)
	headers["Content-Type"] = "application/json"
	headers["Accept"] = "application/json"

	if c.sessions != nil {
		s, err := c.sessions.Load()
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to load session, sending request unauthenticated")
		} else if h := s.AuthorizationHeader(); h != "" {
			headers["Authorization"] = h
		}
	}
	if d.isMutating() && c.csrf != nil {
		if token := c.csrf.Token(); token != "" {
			headers[c.csrfName] = token
		}
	}
	for k, v := range d.Headers {
		headers[k] = v
	}

	prepared := *d
	prepared.Headers = headers
	if prepared.Timeout <= 0 {
		prepared.Timeout = c.cfg.DefaultTimeout()
	}
	return &prepared
}

// invalidateSession clears stored credentials after a 401. Sibling
// in-flight calls are unaffected beyond observing the now-empty store on
// their next attempt.
func (c *Client) invalidateSession() {
	if c.sessions == nil {
		return
	}
	if err := c.sessions.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear session after 401")
		return
	}
	c.logger.Info().Msg("Session cleared after 401 response")
}

// SetSession stores a new session, replacing any previous one. Intended for
// login and token-refresh flows, which live outside the core.
func (c *Client) SetSession(s *Session) error {
	if c.sessions == nil {
		return fmt.Errorf("apibridge: no session store configured")
	}
	return c.sessions.Save(s)
}

// ClearSession removes stored credentials, e.g. on logout.
func (c *Client) ClearSession() error {
	if c.sessions == nil {
		return nil
	}
	return c.sessions.Clear()
}

// RateLimitState exposes the current back-pressure state for an endpoint.
func (c *Client) RateLimitState(method, path string) (RateLimitState, bool) {
	d := RequestDescriptor{Method: method, Path: path}
	return c.tracker.State(d.endpointKey())
}

// GetJSON performs a GET and decodes the response body into out (skipped
// when out is nil).
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON performs a POST with in marshaled as the JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// PutJSON performs a PUT with in marshaled as the JSON body.
func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

// DeleteJSON performs a DELETE and decodes the response body into out.
func (c *Client) DeleteJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("apibridge: marshal request body: %w", err)
		}
	}

	resp, err := c.Request(ctx, &RequestDescriptor{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := resp.DecodeJSON(out); err != nil {
		return fmt.Errorf("apibridge: decode response body: %w", err)
	}
	return nil
}
