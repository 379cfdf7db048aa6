package utils

import (
	"context"
	"crypto/rand"
	"time"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
)

// RetryConfig holds configuration for retry operations.
//
// The gateway's outbound calls use a fixed delay between attempts (the
// remote APIs were tuned for that), but the executor also supports
// exponential backoff and jitter for callers that want them.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial attempt)
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries (caps exponential growth)
	MaxDelay time.Duration

	// BackoffFactor is the multiplier applied to the delay after each
	// attempt; 1.0 keeps the delay fixed
	BackoffFactor float64

	// JitterFactor adds randomness to delays (0.0-1.0, where 0.1 = 10% jitter)
	JitterFactor float64

	// RetryableErrors determines which errors should trigger a retry.
	// If nil, all errors are considered retryable.
	RetryableErrors func(error) bool
}

// FixedRetryConfig returns a config that retries with a constant delay.
// Only transport-level failures are retried; 4xx-class errors surface as
// validation/authentication types and are returned immediately.
func FixedRetryConfig(attempts int, delay time.Duration) RetryConfig {
	return RetryConfig{
		MaxAttempts:     attempts,
		InitialDelay:    delay,
		MaxDelay:        delay,
		BackoffFactor:   1.0,
		RetryableErrors: IsTransportError,
	}
}

// IsTransportError reports whether an error represents a transport-level
// fault (connection failure, timeout, retryable 5xx) rather than a
// client/input error that retrying cannot help.
func IsTransportError(err error) bool {
	switch errors.GetType(err) {
	case errors.ErrTypeConnection, errors.ErrTypeInternal:
		return true
	default:
		return false
	}
}

// ExecuteWithRetry invokes fn up to config.MaxAttempts times, waiting
// between attempts. Non-retryable errors are returned as-is after the
// first occurrence. On exhaustion the last failure is wrapped in a
// retry_exhausted error carrying the operation label.
//
// If ctx is cancelled during an inter-attempt wait, the wait terminates
// immediately and a cancelled error is returned.
func ExecuteWithRetry(ctx context.Context, config RetryConfig, operation string, fn func() error) error {
	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err

			if config.RetryableErrors != nil && !config.RetryableErrors(err) {
				return err
			}

			if attempt == config.MaxAttempts {
				break
			}

			logRetry(operation, attempt, config.MaxAttempts, err)
		}

		select {
		case <-ctx.Done():
			return errors.CancelledError(operation, ctx.Err())
		case <-time.After(delay):
			if config.BackoffFactor > 1.0 {
				delay = time.Duration(float64(delay) * config.BackoffFactor)
				if delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			}

			if config.JitterFactor > 0 {
				jitter := time.Duration(float64(delay) * config.JitterFactor)
				delay = delay + time.Duration(randomInt64n(int64(jitter)))
			}
		}
	}

	return errors.RetryExhaustedError(operation, config.MaxAttempts, lastErr)
}

func logRetry(operation string, attempt, max int, err error) {
	logging.Warn("Retrying operation",
		logging.String("operation", operation),
		logging.Int("attempt", attempt),
		logging.Int("max_attempts", max),
		logging.Err(err),
	)
}

// Retry executes fn with simple fixed-delay retry logic and no context.
func Retry(attempts int, delay time.Duration, fn func() error) error {
	config := RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		MaxDelay:      delay,
		BackoffFactor: 1.0,
	}
	return ExecuteWithRetry(context.Background(), config, "operation", fn)
}

// randomInt64n returns a random int64 in the range [0, n), used for
// retry jitter. Falls back to time-based randomness if crypto/rand fails.
func randomInt64n(n int64) int64 {
	if n <= 0 {
		return 0
	}

	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().UnixNano() % n
	}

	val := int64(bytes[0])<<56 | int64(bytes[1])<<48 | int64(bytes[2])<<40 | int64(bytes[3])<<32 |
		int64(bytes[4])<<24 | int64(bytes[5])<<16 | int64(bytes[6])<<8 | int64(bytes[7])

	if val < 0 {
		val = -val
	}

	return val % n
}
