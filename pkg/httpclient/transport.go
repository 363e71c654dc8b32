package httpclient

import (
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// sensitiveParams are query parameter names whose values are redacted from logs.
var sensitiveParams = map[string]bool{
	"api_key": true,
	"apikey":  true,
	"key":     true,
	"token":   true,
	"secret":  true,
}

// sanitizeURL returns a log-safe string form of a URL with sensitive query
// parameter values redacted.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	q := u.Query()
	changed := false
	for name := range q {
		if sensitiveParams[strings.ToLower(name)] {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}

	clone := *u
	clone.RawQuery = q.Encode()
	return clone.String()
}

// loggingTransport wraps an http.RoundTripper to add request logging with
// sanitized URLs, User-Agent injection, and duration tracking.
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
}

func newLoggingTransport(base http.RoundTripper, userAgent string) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, userAgent: userAgent}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()

	logURL := sanitizeURL(req.URL)

	if err != nil {
		slog.Warn("http request failed",
			"method", req.Method,
			"url", logURL,
			"duration_ms", duration,
			"error", err.Error(),
		)
	} else {
		level := slog.LevelDebug
		if resp.StatusCode >= 400 {
			level = slog.LevelWarn
		}
		slog.Log(req.Context(), level, "http request",
			"method", req.Method,
			"url", logURL,
			"status", resp.StatusCode,
			"duration_ms", duration,
		)
	}

	return resp, err
}

// retryTransport wraps an http.RoundTripper to add retry logic with
// exponential backoff and jitter. Only idempotent methods (GET, HEAD,
// OPTIONS) are ever retried: a retried POST to a generation endpoint would
// be billed again.
type retryTransport struct {
	base        http.RoundTripper
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func newRetryTransport(base http.RoundTripper, cfg Config) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{
		base:        base,
		maxAttempts: cfg.RetryAttempts + 1, // attempts include the initial try
		baseBackoff: cfg.RetryBackoff,
		maxBackoff:  cfg.MaxBackoff,
	}
}

// RoundTrip implements http.RoundTripper with retry logic.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !isIdempotentMethod(req.Method) {
		return t.base.RoundTrip(req)
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(t.calculateBackoff(attempt - 1)):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		resp, err := t.base.RoundTrip(req)
		if err == nil && !shouldRetryStatus(resp.StatusCode) {
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		// Only drop the body when another attempt follows; the final
		// response is handed back to the caller unread.
		if attempt < t.maxAttempts && resp != nil && resp.Body != nil {
			resp.Body.Close()
			lastResp = nil
		}

		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}

// calculateBackoff returns the delay before the given retry with
// exponential growth and up to 25% jitter, capped at maxBackoff.
func (t *retryTransport) calculateBackoff(retry int) time.Duration {
	backoff := float64(t.baseBackoff) * math.Pow(2, float64(retry-1))
	if backoff > float64(t.maxBackoff) {
		backoff = float64(t.maxBackoff)
	}
	jitter := rand.Float64() * 0.25 * backoff
	return time.Duration(backoff + jitter)
}

func isIdempotentMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS":
		return true
	default:
		return false
	}
}

// shouldRetryStatus determines if an HTTP status code should trigger a retry.
func shouldRetryStatus(statusCode int) bool {
	switch {
	case statusCode >= 500 && statusCode < 600:
		return true
	case statusCode == http.StatusRequestTimeout:
		return true
	case statusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
