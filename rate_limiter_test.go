package apibridge

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(baseMs, maxMs int) *RateLimitTracker {
	return NewRateLimitTracker(RateLimitConfig{BaseBackoffMs: baseMs, MaxBackoffMs: maxMs}, zerolog.Nop())
}

func TestRecordLimitedPrefersRetryAfter(t *testing.T) {
	tracker := newTestTracker(1000, 60000)

	wait := tracker.recordLimited("GET /users", 500*time.Millisecond)
	// ±10% jitter around the server-provided value.
	assert.GreaterOrEqual(t, wait, 450*time.Millisecond)
	assert.LessOrEqual(t, wait, 550*time.Millisecond)

	state, ok := tracker.State("GET /users")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(wait), state.BlockedUntil, 50*time.Millisecond)
}

func TestRecordLimitedFallsBackToBackoff(t *testing.T) {
	tracker := newTestTracker(1000, 60000)

	wait := tracker.recordLimited("GET /users", 0)
	assert.GreaterOrEqual(t, wait, 900*time.Millisecond)
	assert.LessOrEqual(t, wait, 1100*time.Millisecond)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	tracker := newTestTracker(40000, 60000)

	tracker.recordLimited("GET /users", time.Millisecond)
	state, ok := tracker.State("GET /users")
	require.True(t, ok)
	first := state.Backoff

	tracker.recordLimited("GET /users", time.Millisecond)
	state, ok = tracker.State("GET /users")
	require.True(t, ok)

	// Non-decreasing across consecutive 429s, capped at the maximum.
	assert.GreaterOrEqual(t, state.Backoff, first)
	assert.Equal(t, 60*time.Second, state.Backoff)
}

func TestBackoffIsPerEndpoint(t *testing.T) {
	tracker := newTestTracker(1000, 60000)

	tracker.recordLimited("GET /users", time.Millisecond)
	tracker.recordLimited("GET /users", time.Millisecond)

	_, ok := tracker.State("GET /roles")
	assert.False(t, ok, "unrelated endpoints must not inherit back-pressure")
}

func TestClearResetsBackoff(t *testing.T) {
	tracker := newTestTracker(1000, 60000)

	tracker.recordLimited("GET /users", time.Millisecond)
	tracker.clear("GET /users")

	_, ok := tracker.State("GET /users")
	assert.False(t, ok)

	// The next 429 starts from the baseline again.
	tracker.recordLimited("GET /users", 0)
	state, ok := tracker.State("GET /users")
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, state.Backoff)
}

func TestCheckAndWaitBlocksUntilDeadline(t *testing.T) {
	tracker := newTestTracker(1000, 60000)
	tracker.recordLimited("GET /users", 40*time.Millisecond)

	start := time.Now()
	require.NoError(t, tracker.checkAndWait(context.Background(), "GET /users"))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	// A second wait after the deadline passes is immediate.
	start = time.Now()
	require.NoError(t, tracker.checkAndWait(context.Background(), "GET /users"))
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestCheckAndWaitHonorsContext(t *testing.T) {
	tracker := newTestTracker(1000, 60000)
	tracker.recordLimited("GET /users", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tracker.checkAndWait(ctx, "GET /users")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCheckAndWaitUnknownEndpointIsImmediate(t *testing.T) {
	tracker := newTestTracker(1000, 60000)
	require.NoError(t, tracker.checkAndWait(context.Background(), "GET /never-seen"))
}

func TestListenerReceivesEvent(t *testing.T) {
	tracker := newTestTracker(1000, 60000)

	events := make(chan RateLimitEvent, 1)
	tracker.setListener(func(ev RateLimitEvent) { events <- ev })

	wait := tracker.recordLimited("GET /users", 2*time.Second)

	select {
	case ev := <-events:
		assert.Equal(t, "GET /users", ev.Endpoint)
		assert.Equal(t, wait, ev.RetryAfter)
	case <-time.After(time.Second):
		t.Fatal("rate limit event was not delivered")
	}
}
