// interfaces.go
// -------------
// Contracts between the client core and its pluggable collaborators.
// Implementations for real runtimes live under adapters/; a scriptable
// transport for tests lives under mock/.
package apibridge

import "context"

// Transport performs one physical HTTP exchange. Implementations own the
// per-attempt timeout: when the descriptor's Timeout (or the transport
// default) elapses before a response arrives, Send must return an error
// wrapping context.DeadlineExceeded so the core can classify it as a
// timeout rather than a generic network failure.
type Transport interface {
	Send(ctx context.Context, req *RequestDescriptor) (*Response, error)
}

// SessionStore owns credential persistence. All mutation goes through Save
// and Clear; the client only ever reads it to build the Authorization
// header, once per physical attempt. Load returns (nil, nil) when no
// session is stored.
type SessionStore interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// CSRFTokenProvider supplies the token attached to mutating requests.
// The token's issuance and rotation are external concerns; the client
// treats it as an opaque header value. An empty token omits the header.
type CSRFTokenProvider interface {
	Token() string
}

// RateLimitListener receives fire-and-forget notifications whenever the
// server rate-limits an endpoint. It is invoked on its own goroutine and
// must never be waited on by the request path.
type RateLimitListener func(ev RateLimitEvent)
