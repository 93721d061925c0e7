// Package adapters provides production implementations of the apibridge
// core interfaces: an HTTP transport over net/http and session store
// backends (in-memory and SQLite).
package adapters

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/anchorpoint-labs/apibridge"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// HTTPTransportConfig holds construction parameters for HTTPTransport.
type HTTPTransportConfig struct {
	BaseURL string
	// DefaultTimeout bounds attempts whose descriptor carries no timeout.
	DefaultTimeout     time.Duration
	UserAgent          string
	Proxy              string
	InsecureSkipVerify bool
	EnableHTTP2        bool
	// MaxResponseBytes caps how much of a response body is read. Zero
	// means the 10MB default.
	MaxResponseBytes int64

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
}

// DefaultHTTPTransportConfig returns sensible defaults for a JSON API.
func DefaultHTTPTransportConfig(baseURL string) HTTPTransportConfig {
	return HTTPTransportConfig{
		BaseURL:             baseURL,
		DefaultTimeout:      30 * time.Second,
		UserAgent:           "apibridge/1.0",
		EnableHTTP2:         true,
		MaxResponseBytes:    10 * 1024 * 1024,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialTimeout:         30 * time.Second,
		KeepAlive:           30 * time.Second,
	}
}

// HTTPTransport implements apibridge.Transport over net/http. Each attempt
// runs under its own deadline: the descriptor's timeout (or the configured
// default) cancels only that attempt, never the encompassing retry loop.
type HTTPTransport struct {
	client *http.Client
	cfg    HTTPTransportConfig
	logger zerolog.Logger
}

var _ apibridge.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates the transport with a tuned connection pool.
func NewHTTPTransport(cfg HTTPTransportConfig, logger zerolog.Logger) (*HTTPTransport, error) {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = 10 * 1024 * 1024
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
	}

	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
		}
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("adapters: parse proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Info().Str("proxy", cfg.Proxy).Msg("HTTP transport configured with proxy")
	}

	return &HTTPTransport{
		// Per-attempt deadlines come from the request context, so the
		// net/http client-wide timeout stays unset.
		client: &http.Client{Transport: transport},
		cfg:    cfg,
		logger: logger.With().Str("component", "HTTPTransport").Logger(),
	}, nil
}

// Send performs one physical attempt. When the deadline fires before a
// response arrives, the returned error wraps context.DeadlineExceeded and
// the core classifies it as REQUEST_TIMEOUT.
func (t *HTTPTransport) Send(ctx context.Context, d *apibridge.RequestDescriptor) (*apibridge.Response, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = t.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, t.cfg.BaseURL+d.Path, body)
	if err != nil {
		return nil, fmt.Errorf("adapters: build request: %w", err)
	}
	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}
	if t.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Debug().
			Err(err).
			Str("method", d.Method).
			Str("path", d.Path).
			Dur("duration", time.Since(start)).
			Msg("HTTP request failed")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.cfg.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("adapters: read response body: %w", err)
	}

	t.logger.Debug().
		Int("status_code", resp.StatusCode).
		Str("method", d.Method).
		Str("path", d.Path).
		Dur("duration", time.Since(start)).
		Msg("HTTP request completed")

	return &apibridge.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       data,
	}, nil
}
