// executor.go
// -----------
// The retry executor drives the bounded attempt loop for one logical call.
// Attempt outcomes are represented as explicit tagged values internally;
// they become error returns only at the public boundary of the client.
package apibridge

import (
	"context"
	"time"

	"github.com/anchorpoint-labs/apibridge/internal/timeutil"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type outcomeClass int

const (
	outcomeOK outcomeClass = iota
	outcomeRetryable
	outcomeRateLimited
	outcomeFatal
)

// attemptOutcome is the classified result of one physical attempt.
type attemptOutcome struct {
	class outcomeClass
	resp  *Response
	err   *APIError
}

// attemptFunc performs one physical attempt. The closure supplied by the
// client rebuilds headers (re-reading the session store) on every call.
type attemptFunc func(ctx context.Context) (*Response, error)

// requestExecutor owns retry policy. It consults the rate-limit tracker and
// the optional client-side throttle before every physical attempt; within
// one logical call attempts are strictly sequential.
type requestExecutor struct {
	cfg      RetryConfig
	tracker  *RateLimitTracker
	throttle *rate.Limiter
	logger   zerolog.Logger
}

func newRequestExecutor(cfg RetryConfig, tracker *RateLimitTracker, throttle *rate.Limiter, logger zerolog.Logger) *requestExecutor {
	return &requestExecutor{
		cfg:      cfg,
		tracker:  tracker,
		throttle: throttle,
		logger:   logger.With().Str("component", "RequestExecutor").Logger(),
	}
}

// execute runs the bounded attempt loop: attempt 0 plus up to MaxRetries
// retries. Non-retryable outcomes terminate after exactly one attempt. A
// 429 records back-pressure and counts as a retryable failure, but its wait
// happens in the next attempt's rate-limit check rather than as an extra
// backoff sleep, so the delay is applied exactly once.
func (e *requestExecutor) execute(ctx context.Context, d *RequestDescriptor, op attemptFunc) (*Response, *APIError) {
	key := d.endpointKey()

	var last *APIError
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := e.tracker.checkAndWait(ctx, key); err != nil {
			return nil, e.canceled(d, err, last)
		}
		if e.throttle != nil {
			if err := e.throttle.Wait(ctx); err != nil {
				return nil, e.canceled(d, err, last)
			}
		}

		e.logger.Debug().
			Str("endpoint", key).
			Int("attempt", attempt+1).
			Msg("Sending request")

		resp, err := op(ctx)
		out := e.classify(ctx, d, resp, err)

		switch out.class {
		case outcomeOK:
			e.tracker.clear(key)
			if attempt > 0 {
				e.logger.Debug().
					Str("endpoint", key).
					Int("attempts", attempt+1).
					Msg("Request succeeded after retries")
			}
			return out.resp, nil

		case outcomeFatal:
			if out.resp != nil {
				e.tracker.clear(key)
			}
			return nil, out.err

		case outcomeRateLimited:
			last = out.err
			wait := e.tracker.recordLimited(key, out.err.RetryAfter)
			if attempt == e.cfg.MaxRetries {
				return nil, last
			}
			e.logger.Warn().
				Str("endpoint", key).
				Dur("wait", wait).
				Int("attempt", attempt+1).
				Int("max_retries", e.cfg.MaxRetries).
				Msg("Rate limited, will retry")

		case outcomeRetryable:
			last = out.err
			if out.resp != nil {
				e.tracker.clear(key)
			}
			if attempt == e.cfg.MaxRetries {
				e.logger.Warn().
					Str("endpoint", key).
					Str("code", last.Code).
					Msg("Max retries reached, giving up")
				return nil, last
			}
			delay := timeutil.Jitter(e.backoffDelay(attempt), 0.1)
			e.logger.Debug().
				Str("endpoint", key).
				Dur("delay", delay).
				Int("attempt", attempt+1).
				Int("max_retries", e.cfg.MaxRetries).
				Err(last).
				Msg("Transient failure, backing off before retry")
			if err := sleepContext(ctx, delay); err != nil {
				return nil, e.canceled(d, err, last)
			}
		}
	}
	// Unreachable: every terminal branch returns inside the loop.
	return nil, last
}

// classify turns a raw attempt result into a tagged outcome.
func (e *requestExecutor) classify(ctx context.Context, d *RequestDescriptor, resp *Response, err error) attemptOutcome {
	if err != nil {
		apiErr := newTransportError(d, err)
		// A dead parent context means the caller is gone; retrying would
		// only burn attempts against a canceled call.
		if ctx.Err() != nil {
			return attemptOutcome{class: outcomeFatal, err: apiErr}
		}
		return attemptOutcome{class: outcomeRetryable, err: apiErr}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return attemptOutcome{class: outcomeOK, resp: resp}
	case resp.StatusCode == 429:
		return attemptOutcome{class: outcomeRateLimited, resp: resp, err: newStatusError(d, resp)}
	case e.isRetryableStatus(resp.StatusCode):
		return attemptOutcome{class: outcomeRetryable, resp: resp, err: newStatusError(d, resp)}
	default:
		return attemptOutcome{class: outcomeFatal, resp: resp, err: newStatusError(d, resp)}
	}
}

func (e *requestExecutor) isRetryableStatus(status int) bool {
	for _, code := range e.cfg.RetryableStatusCodes {
		if status == code {
			return true
		}
	}
	return false
}

// backoffDelay computes base*2^attempt capped at the configured maximum.
func (e *requestExecutor) backoffDelay(attempt int) time.Duration {
	delay := e.cfg.BaseDelay() << attempt
	if delay > e.cfg.MaxDelay() || delay <= 0 {
		delay = e.cfg.MaxDelay()
	}
	return delay
}

// canceled normalizes a context error raised between attempts. When a prior
// attempt already produced a classified error, that error is surfaced
// instead, since it describes the actual failure the caller was waiting out.
func (e *requestExecutor) canceled(d *RequestDescriptor, err error, last *APIError) *APIError {
	if last != nil {
		return last
	}
	return newTransportError(d, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
