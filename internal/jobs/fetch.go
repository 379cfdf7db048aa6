package jobs

import (
	"context"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
)

// TierOutcome classifies one result-fetch attempt.
type TierOutcome int

const (
	// TierOK means the tier produced a usable payload
	TierOK TierOutcome = iota
	// TierNotReady means the tier answered but the result is not there
	// yet (presigned object missing, job still settling)
	TierNotReady
	// TierError means the tier failed outright
	TierError
)

// TierResult is the tagged outcome of a single fetch tier.
type TierResult struct {
	Outcome TierOutcome
	Payload map[string]interface{}
	Err     error
}

// ResultOK wraps a successful payload.
func ResultOK(payload map[string]interface{}) TierResult {
	return TierResult{Outcome: TierOK, Payload: payload}
}

// ResultNotReady marks the result as not yet available at this tier.
func ResultNotReady() TierResult {
	return TierResult{Outcome: TierNotReady}
}

// ResultError marks the tier as failed.
func ResultError(err error) TierResult {
	return TierResult{Outcome: TierError, Err: err}
}

// Tier is one way of fetching a job's result.
type Tier struct {
	Name  string
	Fetch func(ctx context.Context) TierResult
}

// ValidPayload reports whether a fetched payload is usable. Backends
// signal failure in-band by embedding an "error" key; such payloads are
// rejected regardless of which tier produced them.
func ValidPayload(payload map[string]interface{}) bool {
	if payload == nil {
		return false
	}
	_, hasError := payload["error"]
	return !hasError
}

// FetchTiered tries each tier in order and returns the first valid
// payload. A tier that is not ready, fails, or returns an in-band error
// payload falls through to the next. When every tier is exhausted the
// job's result is reported unavailable.
func FetchTiered(ctx context.Context, logger logging.Logger, jobID string, tiers ...Tier) (map[string]interface{}, error) {
	log := logger.WithFields(logging.String("job_id", jobID))

	for _, tier := range tiers {
		res := tier.Fetch(ctx)

		switch res.Outcome {
		case TierOK:
			if !ValidPayload(res.Payload) {
				log.Warn("Result payload carries an error marker, trying next tier",
					logging.String("tier", tier.Name))
				continue
			}
			log.Debug("Result fetched", logging.String("tier", tier.Name))
			return res.Payload, nil

		case TierNotReady:
			log.Debug("Result not ready at tier", logging.String("tier", tier.Name))

		case TierError:
			log.Warn("Result fetch tier failed, trying next tier",
				logging.String("tier", tier.Name),
				logging.Err(res.Err),
			)
		}
	}

	return nil, errors.ResultUnavailableError(jobID)
}
