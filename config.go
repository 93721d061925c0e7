// config.go
// ---------
// Client configuration. Delay fields are expressed in milliseconds so the
// structs round-trip cleanly through YAML/JSON config files; accessor
// methods expose them as time.Duration to the rest of the core.
package apibridge

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// RetryConfig controls the bounded retry loop for transient failures.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so an
	// always-failing retryable endpoint costs MaxRetries+1 attempts total.
	MaxRetries int `yaml:"max_retries" json:"max_retries" validate:"min=0,max=10"`
	// BaseDelayMs is the backoff before the first retry; it doubles per
	// attempt up to MaxDelayMs.
	BaseDelayMs int `yaml:"base_delay_ms" json:"base_delay_ms" validate:"min=1"`
	MaxDelayMs  int `yaml:"max_delay_ms" json:"max_delay_ms" validate:"min=1"`
	// RetryableStatusCodes lists HTTP statuses treated as transient.
	// 429 is handled separately by the rate-limit tracker and does not
	// belong here.
	RetryableStatusCodes []int `yaml:"retryable_status_codes" json:"retryable_status_codes"`
}

// DefaultRetryConfig returns the retry defaults: 3 retries, 1s base delay
// doubling up to 30s, retrying 500/502/503/504.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:           3,
		BaseDelayMs:          1000,
		MaxDelayMs:           30000,
		RetryableStatusCodes: []int{500, 502, 503, 504},
	}
}

// BaseDelay returns BaseDelayMs as a duration.
func (c RetryConfig) BaseDelay() time.Duration { return time.Duration(c.BaseDelayMs) * time.Millisecond }

// MaxDelay returns MaxDelayMs as a duration.
func (c RetryConfig) MaxDelay() time.Duration { return time.Duration(c.MaxDelayMs) * time.Millisecond }

// RateLimitConfig controls 429 back-pressure tracking.
type RateLimitConfig struct {
	// BaseBackoffMs seeds an endpoint's backoff on its first 429.
	BaseBackoffMs int `yaml:"base_backoff_ms" json:"base_backoff_ms" validate:"min=1"`
	// MaxBackoffMs caps the doubling across consecutive 429s.
	MaxBackoffMs int `yaml:"max_backoff_ms" json:"max_backoff_ms" validate:"min=1"`
}

// DefaultRateLimitConfig returns the rate-limit defaults: 1s base backoff
// doubling up to 60s.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		BaseBackoffMs: 1000,
		MaxBackoffMs:  60000,
	}
}

// BaseBackoff returns BaseBackoffMs as a duration.
func (c RateLimitConfig) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffMs) * time.Millisecond
}

// MaxBackoff returns MaxBackoffMs as a duration.
func (c RateLimitConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMs) * time.Millisecond
}

// ThrottleConfig enables an optional client-side token bucket consulted
// before every physical attempt. RPS of zero disables throttling.
type ThrottleConfig struct {
	RPS   float64 `yaml:"rps" json:"rps" validate:"min=0"`
	Burst int     `yaml:"burst" json:"burst" validate:"min=0"`
}

// ClientConfig is the full configuration for a Client instance. Construct
// one with DefaultClientConfig and adjust fields, or load it from a file
// with LoadConfigFile.
type ClientConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url" validate:"required,url"`
	// DefaultTimeoutMs bounds each physical attempt unless the descriptor
	// overrides it.
	DefaultTimeoutMs int             `yaml:"default_timeout_ms" json:"default_timeout_ms" validate:"min=1"`
	Retry            RetryConfig     `yaml:"retry" json:"retry"`
	RateLimit        RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Throttle         ThrottleConfig  `yaml:"throttle" json:"throttle"`
	Log              LogConfig       `yaml:"log" json:"log"`
}

// DefaultClientConfig returns a ClientConfig with all defaults applied.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:          baseURL,
		DefaultTimeoutMs: 30000,
		Retry:            DefaultRetryConfig(),
		RateLimit:        DefaultRateLimitConfig(),
		Log:              DefaultLogConfig(),
	}
}

// DefaultTimeout returns DefaultTimeoutMs as a duration.
func (c ClientConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// Validate checks the configuration for structural errors.
func (c *ClientConfig) Validate() error {
	return validator.New().Struct(c)
}
