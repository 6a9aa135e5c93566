// Package retry wraps outbound calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/observability"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Config holds retry configuration
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// WithMaxRetries returns a copy of c with MaxRetries replaced when n >= 0
func (c Config) WithMaxRetries(n int) Config {
	if n >= 0 {
		c.MaxRetries = n
	}
	return c
}

// ExhaustedError is returned when every attempt failed with a transient error
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// ShouldRetry determines if a status code is transient
func ShouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// IsTransient reports whether a transport error is worth retrying. Timeouts
// and connection level failures are; context cancellation is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// CalculateBackoff calculates exponential backoff duration
func CalculateBackoff(attempt int, config Config) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	return time.Duration(backoff)
}

// Do runs reqFunc until it yields a non-transient outcome. A 2xx response or a
// response with a non-retryable status is returned to the caller as-is.
func Do(ctx context.Context, config Config, logger *observability.Logger, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := reqFunc()

		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !IsTransient(err) {
				return nil, err
			}
			lastErr = err
		} else {
			if !ShouldRetry(resp.StatusCode) {
				return resp, nil
			}
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			if resp.Body != nil {
				resp.Body.Close()
			}
		}

		if attempt == config.MaxRetries {
			break
		}

		backoff := CalculateBackoff(attempt, config)
		if logger != nil {
			logger.Warn().
				Int("attempt", attempt+1).
				Int("max_retries", config.MaxRetries).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Request failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, &ExhaustedError{Attempts: config.MaxRetries + 1, Err: lastErr}
}

// Call runs fn until it succeeds, fails with an error transient rejects, or
// the retries are used up. It serves SDK clients that report failures as
// errors rather than HTTP responses.
func Call(ctx context.Context, config Config, logger *observability.Logger, transient func(error) bool, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !transient(err) {
			return err
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}

		backoff := CalculateBackoff(attempt, config)
		if logger != nil {
			logger.Warn().
				Int("attempt", attempt+1).
				Int("max_retries", config.MaxRetries).
				Dur("backoff", backoff).
				Err(err).
				Msg("Call failed, retrying")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return &ExhaustedError{Attempts: config.MaxRetries + 1, Err: lastErr}
}
