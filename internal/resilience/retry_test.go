package resilience

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastRetry(4), func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastRetry(4), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{Service: "llm", Code: http.StatusTooManyRequests}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDoVal_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(4), func(ctx context.Context) (int, error) {
		calls++
		return 0, &StatusError{Service: "llm", Code: http.StatusUnauthorized}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	cfg := fastRetry(3)
	var retries []int
	cfg.OnRetry = func(attempt int, err error) { retries = append(retries, attempt) }

	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, &StatusError{Service: "llm", Code: http.StatusServiceUnavailable}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := DoVal(ctx, fastRetry(10), func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, &StatusError{Service: "llm", Code: http.StatusTooManyRequests}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_WrapsDoVal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(2), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestStatusErrorClassification(t *testing.T) {
	assert.True(t, IsRateLimited(&StatusError{Code: 429}))
	assert.False(t, IsRateLimited(&StatusError{Code: 500}))

	assert.True(t, IsAuthFailure(&StatusError{Code: 401}))
	assert.True(t, IsAuthFailure(&StatusError{Code: 403}))
	assert.False(t, IsAuthFailure(&StatusError{Code: 404}))

	assert.True(t, IsTransient(&StatusError{Code: 429}))
	assert.True(t, IsTransient(&StatusError{Code: 503}))
	assert.False(t, IsTransient(&StatusError{Code: 400}))
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(syscall.ECONNREFUSED))
	assert.False(t, IsTransient(errors.New("parse failure")))
}

func TestHasStatus_Wrapped(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), &StatusError{Service: "llm", Code: 429})
	assert.True(t, HasStatus(wrapped, 429))
	assert.False(t, HasStatus(wrapped, 500))
}
