// rate_limiter.go
// ----------------
// Per-endpoint 429 back-pressure tracking. Each endpoint key ("METHOD path")
// carries a blocked-until deadline and a backoff magnitude that doubles
// across consecutive 429s, capped by configuration. Entries persist for the
// tracker's lifetime so back-pressure is remembered between unrelated calls
// to the same endpoint; any non-429 response clears the entry.
package apibridge

import (
	"context"
	"sync"
	"time"

	"github.com/anchorpoint-labs/apibridge/internal/timeutil"
	"github.com/rs/zerolog"
)

// RateLimitEvent describes one server-side rate limiting occurrence. It is
// delivered to the configured RateLimitListener so UI layers can inform the
// user; delivery is fire-and-forget.
type RateLimitEvent struct {
	Endpoint   string
	RetryAfter time.Duration
}

// RateLimitState is a read-only snapshot of an endpoint's back-pressure
// state, exposed for callers and tests.
type RateLimitState struct {
	BlockedUntil time.Time
	Backoff      time.Duration
}

type rateLimitEntry struct {
	blockedUntil time.Time
	backoff      time.Duration
}

// RateLimitTracker owns the per-endpoint back-pressure map. Only the
// tracker mutates it.
type RateLimitTracker struct {
	mu       sync.Mutex
	entries  map[string]*rateLimitEntry
	cfg      RateLimitConfig
	listener RateLimitListener
	logger   zerolog.Logger
}

// NewRateLimitTracker creates a tracker with the given backoff configuration.
func NewRateLimitTracker(cfg RateLimitConfig, logger zerolog.Logger) *RateLimitTracker {
	return &RateLimitTracker{
		entries: make(map[string]*rateLimitEntry),
		cfg:     cfg,
		logger:  logger.With().Str("component", "RateLimitTracker").Logger(),
	}
}

func (t *RateLimitTracker) setListener(l RateLimitListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = l
}

// checkAndWait blocks until the endpoint's blocked-until deadline has
// passed, or the context is done. The wait does not consume retry budget.
func (t *RateLimitTracker) checkAndWait(ctx context.Context, key string) error {
	t.mu.Lock()
	var wait time.Duration
	if e, ok := t.entries[key]; ok {
		wait = time.Until(e.blockedUntil)
	}
	t.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	t.logger.Debug().
		Str("endpoint", key).
		Dur("wait", wait).
		Msg("Endpoint is rate limited, waiting before next attempt")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// recordLimited updates back-pressure state for a 429 response. The wait is
// taken from the parsed Retry-After value when present, otherwise from the
// endpoint's current backoff; either way it gets ±10% jitter. The backoff
// magnitude then doubles, capped at the configured maximum, and stays
// non-decreasing until a non-429 response clears the entry. Returns the
// applied wait.
func (t *RateLimitTracker) recordLimited(key string, retryAfter time.Duration) time.Duration {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &rateLimitEntry{backoff: t.cfg.BaseBackoff()}
		t.entries[key] = e
	}

	wait := retryAfter
	if wait <= 0 {
		wait = e.backoff
	}
	wait = timeutil.Jitter(wait, 0.1)

	e.blockedUntil = time.Now().Add(wait)
	e.backoff = min(e.backoff*2, t.cfg.MaxBackoff())
	listener := t.listener
	t.mu.Unlock()

	t.logger.Warn().
		Str("endpoint", key).
		Dur("retry_after", wait).
		Msg("Rate limited by server")

	if listener != nil {
		// Notification must never block or delay the retry path.
		go listener(RateLimitEvent{Endpoint: key, RetryAfter: wait})
	}
	return wait
}

// clear resets an endpoint's back-pressure state. Called on any non-429
// response for the endpoint; a no-op when no entry exists.
func (t *RateLimitTracker) clear(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// State returns a snapshot of the endpoint's current back-pressure state.
func (t *RateLimitTracker) State(key string) (RateLimitState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return RateLimitState{}, false
	}
	return RateLimitState{BlockedUntil: e.blockedUntil, Backoff: e.backoff}, true
}
