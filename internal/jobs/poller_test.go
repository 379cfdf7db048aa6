package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
)

func testLogger(t *testing.T) logging.Logger {
	t.Helper()
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.ErrorLevel})
	require.NoError(t, err)
	return logger
}

// scriptedStatus returns a StatusFn that walks through the given statuses
// and counts calls.
func scriptedStatus(statuses []string, calls *int) StatusFn {
	return func(ctx context.Context) (string, error) {
		idx := *calls
		*calls++
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		return statuses[idx], nil
	}
}

func fastOpts(attempts int) Options {
	return Options{MaxAttempts: attempts, Interval: time.Millisecond}
}

func TestWaitForCompletion_InProgressThenDone(t *testing.T) {
	poller := NewPoller(testLogger(t))

	statusCalls := 0
	resultCalls := 0
	want := map[string]interface{}{"outcome": "enriched"}

	result, err := poller.WaitForCompletion(context.Background(), "job-1", fastOpts(10),
		scriptedStatus([]string{"IN_PROGRESS", "IN_PROGRESS", "DONE"}, &statusCalls),
		func(ctx context.Context) (map[string]interface{}, error) {
			resultCalls++
			return want, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, want, result)
	assert.Equal(t, 3, statusCalls, "polling should stop on the first terminal status")
	assert.Equal(t, 1, resultCalls, "result must be fetched exactly once")
}

func TestWaitForCompletion_FailedStatusAbortsWithoutFetch(t *testing.T) {
	poller := NewPoller(testLogger(t))

	statusCalls := 0
	resultCalls := 0

	_, err := poller.WaitForCompletion(context.Background(), "job-1", fastOpts(10),
		scriptedStatus([]string{"FAILED"}, &statusCalls),
		func(ctx context.Context) (map[string]interface{}, error) {
			resultCalls++
			return nil, nil
		},
	)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeJobFailed))
	assert.Equal(t, 1, statusCalls)
	assert.Equal(t, 0, resultCalls, "failed jobs must not trigger a result fetch")
}

func TestWaitForCompletion_ExhaustionIsTimeout(t *testing.T) {
	poller := NewPoller(testLogger(t))

	statusCalls := 0
	_, err := poller.WaitForCompletion(context.Background(), "job-1", fastOpts(3),
		scriptedStatus([]string{"IN_PROGRESS"}, &statusCalls),
		func(ctx context.Context) (map[string]interface{}, error) { return nil, nil },
	)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTimeout))
	assert.Equal(t, 3, statusCalls, "exactly MaxAttempts status checks")
}

func TestWaitForCompletion_UnknownStatusFailsFast(t *testing.T) {
	poller := NewPoller(testLogger(t))

	statusCalls := 0
	_, err := poller.WaitForCompletion(context.Background(), "job-1", fastOpts(10),
		scriptedStatus([]string{"QUEUED_WEIRDLY"}, &statusCalls),
		func(ctx context.Context) (map[string]interface{}, error) { return nil, nil },
	)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnexpectedStatus))
	assert.Equal(t, 1, statusCalls)
}

func TestWaitForCompletion_StatusCaseInsensitive(t *testing.T) {
	poller := NewPoller(testLogger(t))

	statusCalls := 0
	result, err := poller.WaitForCompletion(context.Background(), "job-1", fastOpts(10),
		scriptedStatus([]string{"in_progress", " success "}, &statusCalls),
		func(ctx context.Context) (map[string]interface{}, error) {
			return map[string]interface{}{"ok": true}, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ok": true}, result)
}

func TestWaitForCompletion_TransientStatusErrorsTolerated(t *testing.T) {
	poller := NewPoller(testLogger(t))

	calls := 0
	statusFn := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.ConnectionError("status endpoint unreachable", nil)
		}
		return "DONE", nil
	}

	result, err := poller.WaitForCompletion(context.Background(), "job-1", fastOpts(5),
		statusFn,
		func(ctx context.Context) (map[string]interface{}, error) {
			return map[string]interface{}{"ok": true}, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ok": true}, result)
	assert.Equal(t, 2, calls)
}

func TestWaitForCompletion_StatusErrorOnLastAttemptSurfaces(t *testing.T) {
	poller := NewPoller(testLogger(t))

	statusErr := errors.ConnectionError("status endpoint unreachable", nil)
	_, err := poller.WaitForCompletion(context.Background(), "job-1", fastOpts(2),
		func(ctx context.Context) (string, error) { return "", statusErr },
		func(ctx context.Context) (map[string]interface{}, error) { return nil, nil },
	)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}

func TestWaitForCompletion_ContextCancellation(t *testing.T) {
	poller := NewPoller(testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.WaitForCompletion(ctx, "job-1",
		Options{MaxAttempts: 3, Interval: time.Second},
		func(ctx context.Context) (string, error) { return "IN_PROGRESS", nil },
		func(ctx context.Context) (map[string]interface{}, error) { return nil, nil },
	)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeCancelled))
}

func TestWaitForCompletion_RejectsNonPositiveAttempts(t *testing.T) {
	poller := NewPoller(testLogger(t))

	_, err := poller.WaitForCompletion(context.Background(), "job-1",
		Options{MaxAttempts: 0, Interval: time.Millisecond},
		func(ctx context.Context) (string, error) { return "DONE", nil },
		func(ctx context.Context) (map[string]interface{}, error) { return nil, nil },
	)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}
