// Package retry retries transient failures of LM provider calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      int
	Multiplier      float64
	// OnRetry, when set, is called before each wait
	OnRetry func(attempt int, err error, wait time.Duration)
}

func DefaultConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxRetries:      3,
		Multiplier:      2.0,
	}
}

// LLMConfig is tuned for chat completion calls, which are slow and rate limited
func LLMConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxRetries:      4,
		Multiplier:      2.0,
	}
}

func (c BackoffConfig) next(interval time.Duration) time.Duration {
	if c.Multiplier <= 1 {
		return interval
	}
	interval = time.Duration(float64(interval) * c.Multiplier)
	if c.MaxInterval > 0 && interval > c.MaxInterval {
		interval = c.MaxInterval
	}
	return interval
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		// NXDOMAIN is definitive
		return !dnsErr.IsNotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func IsRetryableHTTPStatus(statusCode int) bool {
	switch {
	case statusCode == http.StatusTooManyRequests, statusCode == http.StatusRequestTimeout:
		return true
	case statusCode >= 500 && statusCode < 600:
		return true
	default:
		return false
	}
}

// ShouldRetry classifies an attempt. A known status code takes precedence over
// the error, since provider SDKs report HTTP failures as errors carrying a status.
func ShouldRetry(err error, statusCode int) bool {
	if statusCode > 0 {
		return IsRetryableHTTPStatus(statusCode)
	}
	return IsRetryableError(err)
}

func WithBackoff(ctx context.Context, cfg BackoffConfig, fn func() error) error {
	return run(ctx, cfg, func() (int, error) {
		return 0, fn()
	})
}

// WithBackoffHTTP retries fn while it reports a retryable status or error.
// fn returns the HTTP status it observed (0 when no response was received).
func WithBackoffHTTP(ctx context.Context, cfg BackoffConfig, fn func() (int, error)) error {
	return run(ctx, cfg, fn)
}

func run(ctx context.Context, cfg BackoffConfig, fn func() (int, error)) error {
	var lastErr error
	var lastStatus int
	interval := cfg.InitialInterval

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		statusCode, err := fn()
		lastStatus, lastErr = statusCode, err

		if err == nil && (statusCode == 0 || statusCode >= 200 && statusCode < 300) {
			return nil
		}

		if !ShouldRetry(err, statusCode) {
			if err != nil {
				return fmt.Errorf("non-retryable error on attempt %d%s: %w", attempt+1, statusSuffix(statusCode), err)
			}
			return fmt.Errorf("non-retryable status code %d on attempt %d", statusCode, attempt+1)
		}

		if attempt == cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, attemptError(err, statusCode), interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		interval = cfg.next(interval)
	}

	if lastErr != nil {
		return fmt.Errorf("max retries (%d) exceeded%s: %w", cfg.MaxRetries, statusSuffix(lastStatus), lastErr)
	}
	return fmt.Errorf("max retries (%d) exceeded with status code %d", cfg.MaxRetries, lastStatus)
}

func attemptError(err error, statusCode int) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("status code %d", statusCode)
}

func statusSuffix(statusCode int) string {
	if statusCode == 0 {
		return ""
	}
	return fmt.Sprintf(" (status %d)", statusCode)
}
