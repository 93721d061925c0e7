// Package timeutil provides time parsing helpers shared by the client core:
// Retry-After header parsing and delay jitter.
package timeutil

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter parses a Retry-After header value as either delta-seconds
// or an HTTP-date. It returns 0 when the value is absent, malformed, or in
// the past; it never fails.
func ParseRetryAfter(val string) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}

	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(math.Ceil(secs)) * time.Second
	}

	for _, layout := range []string{time.RFC1123, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, val); err == nil {
			d := time.Until(t)
			if d < 0 {
				return 0
			}
			return d
		}
	}
	return 0
}

// Jitter perturbs d by a uniform factor in [1-frac, 1+frac] to spread
// synchronized retries across clients.
func Jitter(d time.Duration, frac float64) time.Duration {
	if d <= 0 || frac <= 0 {
		return d
	}
	factor := 1 + frac*(rand.Float64()*2-1)
	return time.Duration(float64(d) * factor)
}
