package httpclient

import (
	"fmt"
	"time"
)

// Config configures the HTTP client with timeout, retry, and logging settings.
type Config struct {
	// Timeout is the total request timeout (includes retries, if any).
	// Default: 30s. Must be > 0.
	Timeout time.Duration

	// RetryAttempts is the maximum number of retry attempts (0 = no retries).
	// Generation calls are billed per request, so they MUST use 0: retrying a
	// paid call risks unbounded spend. Free idempotent GETs (image downloads)
	// may enable retries.
	// Default: 0.
	RetryAttempts int

	// RetryBackoff is the initial backoff delay before first retry.
	// Must be > 0 if RetryAttempts > 0.
	RetryBackoff time.Duration

	// MaxBackoff is the maximum backoff delay cap.
	// Must be >= RetryBackoff.
	MaxBackoff time.Duration

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string
}

// DefaultConfig returns a Config with sensible defaults for generation
// calls: bounded timeout, no retries.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		RetryAttempts: 0,
		RetryBackoff:  100 * time.Millisecond,
		MaxBackoff:    10 * time.Second,
		UserAgent:     "anomshot/1.0",
	}
}

// DownloadConfig returns a Config suited to artifact downloads: these are
// free idempotent GETs, so transient failures are retried.
func DownloadConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryAttempts = 3
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0, got %d", c.RetryAttempts)
	}

	if c.RetryAttempts > 0 {
		if c.RetryBackoff <= 0 {
			return fmt.Errorf("retry_backoff must be > 0 when retry_attempts > 0, got %v", c.RetryBackoff)
		}
		if c.MaxBackoff < c.RetryBackoff {
			return fmt.Errorf("max_backoff (%v) must be >= retry_backoff (%v)", c.MaxBackoff, c.RetryBackoff)
		}
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}
