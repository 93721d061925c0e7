package apibridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig("https://admin.example.test")
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.DefaultTimeout())
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay())
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay())
	assert.ElementsMatch(t, []int{500, 502, 503, 504}, cfg.Retry.RetryableStatusCodes)
	assert.Equal(t, time.Second, cfg.RateLimit.BaseBackoff())
	assert.Equal(t, time.Minute, cfg.RateLimit.MaxBackoff())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultClientConfig("not a url")
	assert.Error(t, cfg.Validate())

	cfg = DefaultClientConfig("https://admin.example.test")
	cfg.Retry.MaxRetries = 99
	assert.Error(t, cfg.Validate())

	cfg = DefaultClientConfig("https://admin.example.test")
	cfg.DefaultTimeoutMs = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://admin.example.test
default_timeout_ms: 5000
retry:
  max_retries: 5
  base_delay_ms: 200
  max_delay_ms: 2000
  retryable_status_codes: [500, 503]
rate_limit:
  base_backoff_ms: 500
  max_backoff_ms: 10000
throttle:
  rps: 20
  burst: 5
`), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://admin.example.test", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.DefaultTimeout())
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, []int{500, 503}, cfg.Retry.RetryableStatusCodes)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.BaseBackoff())
	assert.Equal(t, 20.0, cfg.Throttle.RPS)
}

func TestLoadConfigFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: https://admin.example.test\n"), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.DefaultTimeout())
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"base_url":"https://admin.example.test"}`), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://admin.example.test", cfg.BaseURL)
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "client.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o600))
	_, err = LoadConfigFile(path)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [broken\n"), 0o600))
	_, err = LoadConfigFile(path)
	assert.Error(t, err)
}
