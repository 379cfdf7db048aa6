// Package jobs implements the polling state machine for asynchronous
// remote jobs and the tiered fetch of their results.
package jobs

import (
	"context"
	"strings"
	"time"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
)

// Job status vocabulary as reported by the backing APIs. Comparisons are
// case-insensitive; anything outside this set aborts the poll.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusSuccess    = "SUCCESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
	StatusError      = "ERROR"
)

// StatusFn reports the job's current status.
type StatusFn func(ctx context.Context) (string, error)

// ResultFn fetches the job's result once it reached a success state.
type ResultFn func(ctx context.Context) (map[string]interface{}, error)

// Options bound a polling loop.
type Options struct {
	// MaxAttempts is the number of status checks before giving up
	MaxAttempts int
	// Interval is the sleep before each status check
	Interval time.Duration
}

// Poller runs bounded wait loops against remote job status endpoints.
type Poller struct {
	logger logging.Logger
}

// NewPoller creates a poller.
func NewPoller(logger logging.Logger) *Poller {
	return &Poller{logger: logger}
}

// WaitForCompletion polls a job until it reaches a terminal state or the
// attempt budget runs out. Each attempt sleeps for opts.Interval, then
// checks the status:
//
//   - an in-progress status consumes the attempt and continues
//   - a success status invokes resultFn exactly once and returns its result
//   - a failure status aborts with a job_failed error, without fetching
//   - any other status aborts with an unexpected_status error
//
// Transient statusFn errors are tolerated and consume the attempt, except
// on the final attempt where the error is surfaced. Exhausting all
// attempts with the job still pending yields a timeout error. Context
// cancellation during a sleep terminates the wait immediately.
func (p *Poller) WaitForCompletion(ctx context.Context, jobID string, opts Options, statusFn StatusFn, resultFn ResultFn) (map[string]interface{}, error) {
	if opts.MaxAttempts <= 0 {
		return nil, errors.ValidationError("poll attempts must be positive")
	}

	log := p.logger.WithFields(logging.String("job_id", jobID))

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, errors.CancelledError("job polling", ctx.Err())
		case <-time.After(opts.Interval):
		}

		status, err := statusFn(ctx)
		if err != nil {
			if attempt == opts.MaxAttempts {
				return nil, err
			}
			log.Warn("Status check failed, will retry",
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", opts.MaxAttempts),
				logging.Err(err),
			)
			continue
		}

		switch normalizeStatus(status) {
		case StatusInProgress:
			log.Debug("Job still in progress", logging.Int("attempt", attempt))

		case StatusSuccess, StatusDone:
			log.Info("Job completed", logging.Int("attempts", attempt))
			return resultFn(ctx)

		case StatusFailed, StatusError:
			log.Warn("Job failed", logging.String("status", status))
			return nil, errors.JobFailedError(jobID, normalizeStatus(status))

		default:
			return nil, errors.UnexpectedStatusError(jobID, status)
		}
	}

	return nil, errors.TimeoutError(jobID, opts.MaxAttempts)
}

func normalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// IsTerminal reports whether a status ends the polling loop.
func IsTerminal(status string) bool {
	switch normalizeStatus(status) {
	case StatusSuccess, StatusDone, StatusFailed, StatusError:
		return true
	default:
		return false
	}
}

// IsInProgress reports whether a status means the job is still running.
func IsInProgress(status string) bool {
	return normalizeStatus(status) == StatusInProgress
}

// IsFailure reports whether a status is a terminal failure.
func IsFailure(status string) bool {
	switch normalizeStatus(status) {
	case StatusFailed, StatusError:
		return true
	default:
		return false
	}
}
