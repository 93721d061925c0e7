package apibridge

import "github.com/rs/zerolog"

// Option configures a Client during construction.
type Option func(*Client)

// WithLogger sets the structured logger. The default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSessionStore wires credential storage into the client. Without it the
// client issues unauthenticated requests and 401 handling is a no-op.
func WithSessionStore(store SessionStore) Option {
	return func(c *Client) { c.sessions = store }
}

// WithCSRFTokenProvider sets the collaborator supplying CSRF tokens for
// mutating requests.
func WithCSRFTokenProvider(p CSRFTokenProvider) Option {
	return func(c *Client) { c.csrf = p }
}

// WithCSRFHeaderName overrides the header used for the CSRF token.
func WithCSRFHeaderName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.csrfName = name
		}
	}
}

// WithRateLimitListener subscribes to server rate-limit events. The
// listener runs on its own goroutine; the request path never waits on it.
func WithRateLimitListener(l RateLimitListener) Option {
	return func(c *Client) { c.listener = l }
}

// CSRFTokenFunc adapts a plain function into a CSRFTokenProvider.
type CSRFTokenFunc func() string

// Token implements CSRFTokenProvider.
func (f CSRFTokenFunc) Token() string { return f() }
