package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("googleai: rate limit exceeded"), true},
		{"http 429", errors.New("request failed with status 429"), true},
		{"server error", errors.New("503 Service Unavailable"), true},
		{"timeout", errors.New("context deadline exceeded: timeout"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"bad request", errors.New("400 invalid argument"), false},
		{"auth failure", errors.New("401 API key not valid"), false},
		{"safety block", errors.New("response blocked by safety settings"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryableError(tt.err))
		})
	}
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	text, err := withRetry(context.Background(), testRetryConfig(), nil, discardLogger(),
		func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversFromTransientError(t *testing.T) {
	calls := 0
	text, err := withRetry(context.Background(), testRetryConfig(), nil, discardLogger(),
		func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("503 unavailable")
			}
			return "recovered", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, calls)
}

func TestWithRetryStopsAtBudget(t *testing.T) {
	calls := 0
	transient := errors.New("timeout talking to backend")
	_, err := withRetry(context.Background(), testRetryConfig(), nil, discardLogger(),
		func(ctx context.Context) (string, error) {
			calls++
			return "", transient
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	// One retry after the first call, per the interactive-latency budget.
	assert.Equal(t, 2, calls)
}

func TestWithRetryDoesNotRetryPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("401 API key not valid")
	_, err := withRetry(context.Background(), testRetryConfig(), nil, discardLogger(),
		func(ctx context.Context) (string, error) {
			calls++
			return "", permanent
		})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonorsContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Hour, // backoff would stall without cancellation
		MaxInterval:     time.Hour,
	}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := withRetry(ctx, cfg, nil, discardLogger(),
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("503 unavailable")
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
