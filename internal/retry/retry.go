// Package retry runs operations with exponential backoff. The challenge gate
// uses Backoff for its reload schedule; the HTTP loader uses WithRetry.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxAttempts    int           // Attempts in total, including the first
	InitialBackoff time.Duration // Wait before the first retry
	MaxBackoff     time.Duration // Cap on any single wait, 0 for none
	Multiplier     float64       // Growth per retry
	Jitter         float64       // Fraction of each backoff randomized, 0 disables
	Rand           func() float64

	// RetryableStatusCodes lists the HTTP statuses worth retrying. Errors
	// carrying any other status fail immediately.
	RetryableStatusCodes []int

	// Sleep waits between attempts. Nil uses a timer. Runs with a fake clock
	// pass their own so backoff does not slow tests.
	Sleep func(ctx context.Context, d time.Duration) error

	// Logger receives attempt logs. Nil uses the global logger.
	Logger *zerolog.Logger
}

// DefaultConfig retries server-side failures and rate limiting three times.
// 403 is absent: a verification page is judged by the challenge gate, not
// retried blindly.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.3,
		Rand:           rand.Float64,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
	}
}

func (c Config) logger() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return &log.Logger
}

func (c Config) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithRetry calls fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is used up. A server's Retry-After is honoured when it asks
// for longer than the computed backoff, up to MaxBackoff.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.logger()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Debug().Int("attempts", attempt+1).Msg("Retry succeeded")
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(err, cfg) {
			logger.Debug().Err(err).Msg("Error is not retryable")
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := Backoff(attempt, cfg)
		var he HTTPError
		if errors.As(err, &he) && he.RetryAfter > wait {
			wait = he.RetryAfter
			if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
				wait = cfg.MaxBackoff
			}
		}
		logger.Debug().
			Int("attempt", attempt+1).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", wait).
			Err(err).
			Msg("Retrying after backoff")
		if err := cfg.sleep(ctx, wait); err != nil {
			return err
		}
	}

	logger.Warn().Int("attempts", cfg.MaxAttempts).Err(lastErr).Msg("Max retry attempts exceeded")
	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// Backoff returns the wait before retry number attempt (zero-based):
// InitialBackoff * Multiplier^attempt, capped at MaxBackoff. With Jitter set,
// the result is spread over [backoff*(1-Jitter), backoff] using cfg.Rand.
func Backoff(attempt int, cfg Config) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if cfg.Jitter > 0 && cfg.Rand != nil {
		backoff -= backoff * math.Min(cfg.Jitter, 1) * cfg.Rand()
	}
	return time.Duration(backoff)
}

func shouldRetry(err error, cfg Config) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	// Errors carrying a status code are retryable only for configured codes
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.GetStatusCode()
		for _, c := range cfg.RetryableStatusCodes {
			if code == c {
				return true
			}
		}
		return false
	}

	if te, ok := err.(interface{ Timeout() bool }); ok && te.Timeout() {
		return true
	}
	if te, ok := err.(interface{ Temporary() bool }); ok {
		return te.Temporary()
	}
	// Network errors without a status are worth another try.
	return true
}

// StatusCoder is an interface for errors that provide an HTTP status code
type StatusCoder interface {
	GetStatusCode() int
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
	// RetryAfter is the server's requested wait, zero when absent.
	RetryAfter time.Duration
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

func (e HTTPError) GetStatusCode() int {
	return e.StatusCode
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, status string, message string) HTTPError {
	return HTTPError{StatusCode: statusCode, Status: status, Message: message}
}

// FromResponse builds an HTTPError from resp, reading its Retry-After header.
func FromResponse(resp *http.Response, now time.Time) HTTPError {
	e := NewHTTPError(resp.StatusCode, resp.Status, "")
	e.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), now)
	return e
}

// ParseRetryAfter reads a Retry-After value in seconds or as an HTTP date.
// Unparseable or past values give zero.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
