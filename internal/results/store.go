// Package results tracks pending result handles for asynchronous jobs.
//
// When a job is submitted against an uploaded file, the backing API hands
// back a presigned result URL alongside the job id. The handle is held
// here until the result is successfully fetched, then removed.
package results

import (
	"context"
	"fmt"
	"time"

	"enrichment-gateway/internal/common/cache"
	"enrichment-gateway/internal/common/errors"
)

// defaultTTL bounds how long an unclaimed handle survives. Jobs complete
// in minutes; a day is generous.
const defaultTTL = 24 * time.Hour

// Entry is the stored handle for one pending job.
type Entry struct {
	JobID  string `json:"job_id"`
	GetURL string `json:"get_url"`
}

// Store maps job ids to their presigned result URLs.
type Store struct {
	backend cache.Cache
	ttl     time.Duration
}

// NewStore creates a store over the given cache backend.
func NewStore(backend cache.Cache) *Store {
	return &Store{backend: backend, ttl: defaultTTL}
}

// NewStoreWithTTL creates a store with an explicit entry lifetime.
func NewStoreWithTTL(backend cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{backend: backend, ttl: ttl}
}

// Save records the presigned result URL for a job.
func (s *Store) Save(ctx context.Context, jobID, getURL string) error {
	if jobID == "" {
		return errors.ValidationError("job id is required")
	}
	if err := s.backend.Set(ctx, s.key(jobID), getURL, s.ttl); err != nil {
		return errors.InternalError("failed to save result handle", err)
	}
	return nil
}

// Find returns the presigned result URL for a job, or a not_found error
// when the job is unknown (never submitted here, already claimed, or
// expired).
func (s *Store) Find(ctx context.Context, jobID string) (string, error) {
	val, ok := s.backend.Get(ctx, s.key(jobID))
	if !ok {
		return "", errors.NotFoundError(fmt.Sprintf("job %s", jobID))
	}

	url, ok := val.(string)
	if !ok || url == "" {
		return "", errors.NotFoundError(fmt.Sprintf("job %s", jobID))
	}
	return url, nil
}

// Remove drops the handle for a job. Removing an absent job is a no-op.
func (s *Store) Remove(ctx context.Context, jobID string) error {
	return s.backend.Delete(ctx, s.key(jobID))
}

func (s *Store) key(jobID string) string {
	return "result:" + jobID
}
