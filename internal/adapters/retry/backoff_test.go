package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) BackoffConfig {
	return BackoffConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxRetries:      retries,
		Multiplier:      2.0,
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"connection refused", &net.OpError{Err: syscall.ECONNREFUSED}, true},
		{"connection reset", &net.OpError{Err: syscall.ECONNRESET}, true},
		{"broken pipe", &net.OpError{Err: syscall.EPIPE}, true},
		{"network timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, true},
		{"dns not found", &net.DNSError{Err: "no such host", IsNotFound: true}, false},
		{"dns temporary", &net.DNSError{Err: "server misbehaving"}, true},
		{"plain error", errors.New("bad prompt"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableHTTPStatus(tt.status))
		})
	}
}

func TestShouldRetry_StatusWins(t *testing.T) {
	apiErr := errors.New("rate limited")

	assert.True(t, ShouldRetry(apiErr, http.StatusTooManyRequests))
	assert.False(t, ShouldRetry(&net.OpError{Err: syscall.ECONNRESET}, http.StatusBadRequest))
	assert.True(t, ShouldRetry(&net.OpError{Err: syscall.ECONNRESET}, 0))
}

func TestWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithBackoff_RetriesTransient(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Err: syscall.ECONNREFUSED}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_StopsOnPermanent(t *testing.T) {
	permanent := errors.New("invalid api key")
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(3), func() error {
		calls++
		return permanent
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Contains(t, err.Error(), "non-retryable")
	assert.Equal(t, 1, calls)
}

func TestWithBackoff_MaxRetries(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(2), func() error {
		calls++
		return &net.OpError{Err: syscall.ECONNRESET}
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialInterval = time.Second

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- WithBackoff(ctx, cfg, func() error {
			calls++
			return &net.OpError{Err: syscall.ECONNREFUSED}
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("backoff did not observe cancellation")
	}
}

func TestWithBackoff_OnRetry(t *testing.T) {
	cfg := fastConfig(3)
	var attempts []int
	var waits []time.Duration
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		require.Error(t, err)
		attempts = append(attempts, attempt)
		waits = append(waits, wait)
	}

	calls := 0
	err := WithBackoff(context.Background(), cfg, func() error {
		calls++
		if calls <= 3 {
			return &net.OpError{Err: syscall.ECONNRESET}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, waits)
}

func TestWithBackoffHTTP(t *testing.T) {
	t.Run("retries 503 then succeeds", func(t *testing.T) {
		calls := 0
		err := WithBackoffHTTP(context.Background(), fastConfig(3), func() (int, error) {
			calls++
			if calls == 1 {
				return http.StatusServiceUnavailable, nil
			}
			return http.StatusOK, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("retries 429 reported as error", func(t *testing.T) {
		calls := 0
		err := WithBackoffHTTP(context.Background(), fastConfig(3), func() (int, error) {
			calls++
			if calls < 3 {
				return http.StatusTooManyRequests, errors.New("rate limit reached")
			}
			return http.StatusOK, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on 400", func(t *testing.T) {
		calls := 0
		err := WithBackoffHTTP(context.Background(), fastConfig(3), func() (int, error) {
			calls++
			return http.StatusBadRequest, nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-retryable status code 400")
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := WithBackoffHTTP(context.Background(), fastConfig(1), func() (int, error) {
			calls++
			return http.StatusBadGateway, nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status code 502")
		assert.Equal(t, 2, calls)
	})
}

func TestConfigs(t *testing.T) {
	d := DefaultConfig()
	assert.Equal(t, time.Second, d.InitialInterval)
	assert.Equal(t, 3, d.MaxRetries)

	l := LLMConfig()
	assert.Equal(t, 2*time.Second, l.InitialInterval)
	assert.Equal(t, 4, l.MaxRetries)
	assert.Equal(t, 30*time.Second, l.MaxInterval)
}

func TestNextInterval(t *testing.T) {
	cfg := BackoffConfig{MaxInterval: 10 * time.Second, Multiplier: 3}
	assert.Equal(t, 3*time.Second, cfg.next(time.Second))
	assert.Equal(t, 10*time.Second, cfg.next(5*time.Second))

	flat := BackoffConfig{Multiplier: 1}
	assert.Equal(t, time.Second, flat.next(time.Second))
}
