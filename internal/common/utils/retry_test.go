package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrichment-gateway/internal/common/errors"
)

func TestExecuteWithRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), FixedRetryConfig(3, time.Millisecond), "op", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_RetriesTransportErrors(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), FixedRetryConfig(3, time.Millisecond), "op", func() error {
		calls++
		if calls < 3 {
			return errors.ConnectionError("refused", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_NonRetryableReturnedAsIs(t *testing.T) {
	calls := 0
	original := errors.ValidationError("bad input")
	err := ExecuteWithRetry(context.Background(), FixedRetryConfig(3, time.Millisecond), "op", func() error {
		calls++
		return original
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Same(t, original, err.(*errors.AppError), "non-retryable errors pass through unwrapped")
}

func TestExecuteWithRetry_ExhaustionWrapsLastCause(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), FixedRetryConfig(3, time.Millisecond), "fetch-results", func() error {
		calls++
		return errors.ConnectionError("refused", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.IsType(err, errors.ErrTypeRetryExhausted))
	assert.Contains(t, err.Error(), "fetch-results")

	appErr := err.(*errors.AppError)
	assert.True(t, errors.IsType(appErr.Cause, errors.ErrTypeConnection))
}

func TestExecuteWithRetry_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	config := FixedRetryConfig(3, time.Second)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := ExecuteWithRetry(ctx, config, "op", func() error {
		calls++
		return errors.ConnectionError("refused", nil)
	})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeCancelled))
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second, "cancellation must cut the wait short")
}

func TestExecuteWithRetry_NilPredicateRetriesEverything(t *testing.T) {
	calls := 0
	config := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1.0}
	err := ExecuteWithRetry(context.Background(), config, "op", func() error {
		calls++
		return errors.ValidationError("anything")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestIsTransportError(t *testing.T) {
	assert.True(t, IsTransportError(errors.ConnectionError("refused", nil)))
	assert.True(t, IsTransportError(errors.InternalError("503", nil)))
	assert.False(t, IsTransportError(errors.ValidationError("bad")))
	assert.False(t, IsTransportError(errors.AuthError("rejected", nil)))
	assert.False(t, IsTransportError(errors.JobFailedError("j", "FAILED")))
}

func TestRetry_SimpleHelper(t *testing.T) {
	calls := 0
	err := Retry(3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.ConnectionError("refused", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
