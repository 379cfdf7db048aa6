// Package curation is the client for the data-curation API.
//
// A curation job starts with a presign request that returns the upload
// URL, the job id, and a presigned URL where the finished result will
// appear. Uploading the file starts the job; results are fetched from
// the presigned URL first and from the authenticated results endpoint
// as a fallback.
package curation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
	"enrichment-gateway/internal/contenttype"
	"enrichment-gateway/internal/jobs"
	"enrichment-gateway/internal/results"
	"enrichment-gateway/internal/services/base"
)

const (
	// Scope is the OAuth2 scope requested for curation tokens
	Scope = "environment_authorization"
	// CacheKey identifies this service in the token cache
	CacheKey = "data-curation"
)

// Client talks to the data-curation API.
type Client struct {
	api      *base.Client
	store    *results.Store
	poller   *jobs.Poller
	pollOpts jobs.Options
	logger   logging.Logger
}

// New creates a curation client.
func New(api *base.Client, store *results.Store, poller *jobs.Poller, pollOpts jobs.Options, logger logging.Logger) *Client {
	return &Client{
		api:      api,
		store:    store,
		poller:   poller,
		pollOpts: pollOpts,
		logger:   logger,
	}
}

// Presign asks for a curation slot: an upload URL, the job id, and the
// presigned URL the result will land at. Extra options are passed
// through to the API.
func (c *Client) Presign(ctx context.Context, fileName string, options map[string]interface{}) (base.Presign, error) {
	if fileName == "" {
		return base.Presign{}, errors.ValidationError("file name is required")
	}

	request := map[string]interface{}{}
	for k, v := range options {
		request[k] = v
	}
	request["fileName"] = fileName

	body, err := c.api.PostJSON(ctx, "/presign", request)
	if err != nil {
		return base.Presign{}, err
	}

	payload, err := base.DecodeObject(body)
	if err != nil {
		return base.Presign{}, err
	}

	presign, err := base.ParsePresign(payload)
	if err != nil {
		return base.Presign{}, err
	}
	if presign.JobID == "" {
		return base.Presign{}, errors.InternalError("presign response missing job id", nil)
	}
	return presign, nil
}

// Upload puts the file content to a presigned upload URL. The content
// type must match what the URL was signed for, so it is recovered from
// the URL itself and the file name is only a fallback.
func (c *Client) Upload(ctx context.Context, putURL, fileName string, data []byte) error {
	if len(data) == 0 {
		return errors.ValidationError("file content is empty")
	}

	uploadType := base.ContentTypeFromURL(putURL)
	if uploadType == "" {
		uploadType = contenttype.Detect(data, contenttype.DetectFromFilename(fileName))
	}

	if err := c.api.PresignedPut(ctx, putURL, uploadType, bytes.NewReader(data), int64(len(data))); err != nil {
		return err
	}

	c.logger.Info("File uploaded for curation",
		logging.String("file_name", fileName),
		logging.String("content_type", uploadType),
		logging.Int("size", len(data)),
	)
	return nil
}

// Submit presigns, uploads, and records the result handle. Returns the
// job id; the upload itself starts the job on the remote side.
func (c *Client) Submit(ctx context.Context, fileName string, data []byte, options map[string]interface{}) (string, error) {
	jobID, _, err := c.SubmitWithHandle(ctx, fileName, data, options)
	return jobID, err
}

// SubmitWithHandle is Submit exposing the presigned result URL too, for
// callers that hand the polling handle back to their own clients.
func (c *Client) SubmitWithHandle(ctx context.Context, fileName string, data []byte, options map[string]interface{}) (string, string, error) {
	presign, err := c.Presign(ctx, fileName, options)
	if err != nil {
		return "", "", err
	}

	if err := c.Upload(ctx, presign.PutURL, fileName, data); err != nil {
		return "", "", err
	}

	if presign.GetURL != "" {
		if err := c.store.Save(ctx, presign.JobID, presign.GetURL); err != nil {
			// The authenticated tier still works without the handle
			c.logger.Warn("Failed to record result handle",
				logging.String("job_id", presign.JobID),
				logging.Err(err),
			)
		}
	}

	return presign.JobID, presign.GetURL, nil
}

// StatusPayload fetches a job's raw status response.
func (c *Client) StatusPayload(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, errors.ValidationError("job id is required")
	}
	return c.api.GetJSON(ctx, "/status/"+jobID)
}

// Status fetches a job's current status string.
func (c *Client) Status(ctx context.Context, jobID string) (string, error) {
	payload, err := c.StatusPayload(ctx, jobID)
	if err != nil {
		return "", err
	}

	status, ok := payload["status"].(string)
	if !ok || status == "" {
		return "", errors.InternalError("status response carries no status field", nil)
	}
	return status, nil
}

// Results fetches a job's result through the authenticated endpoint.
func (c *Client) Results(ctx context.Context, jobID string) (map[string]interface{}, error) {
	return c.api.GetJSON(ctx, "/results/"+jobID)
}

// presignedTier fetches the result object from its presigned URL. A
// 404, 403, or 400 means the object has not landed yet, not a fault:
// storage backends differ on which status they use for a missing key.
func (c *Client) presignedTier(getURL string) jobs.Tier {
	return jobs.Tier{
		Name: "presigned",
		Fetch: func(ctx context.Context) jobs.TierResult {
			body, status, err := c.api.PresignedGet(ctx, getURL)
			if err != nil {
				return jobs.ResultError(err)
			}

			switch status {
			case http.StatusNotFound, http.StatusForbidden, http.StatusBadRequest:
				return jobs.ResultNotReady()
			}
			if status < 200 || status >= 300 {
				return jobs.ResultError(errors.InternalError("presigned result fetch failed", nil).
					WithContext("status", status))
			}

			var payload map[string]interface{}
			if err := json.Unmarshal(body, &payload); err != nil {
				return jobs.ResultError(errors.InternalError("presigned result is not valid JSON", err))
			}
			return jobs.ResultOK(payload)
		},
	}
}

// apiTier fetches the result through the authenticated results endpoint.
func (c *Client) apiTier(jobID string) jobs.Tier {
	return jobs.Tier{
		Name: "api",
		Fetch: func(ctx context.Context) jobs.TierResult {
			payload, err := c.Results(ctx, jobID)
			if err != nil {
				return jobs.ResultError(err)
			}
			return jobs.ResultOK(payload)
		},
	}
}

// FetchResult retrieves a finished job's result: the presigned URL from
// the result store first, the authenticated endpoint second. On success
// the stored handle is removed; an unknown job id falls back to the
// authenticated tier alone.
func (c *Client) FetchResult(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, errors.ValidationError("job id is required")
	}

	tiers := []jobs.Tier{}
	getURL, err := c.store.Find(ctx, jobID)
	if err == nil {
		tiers = append(tiers, c.presignedTier(getURL))
	}
	tiers = append(tiers, c.apiTier(jobID))

	payload, err := jobs.FetchTiered(ctx, c.logger, jobID, tiers...)
	if err != nil {
		return nil, err
	}

	if rmErr := c.store.Remove(ctx, jobID); rmErr != nil {
		c.logger.Warn("Failed to remove result handle",
			logging.String("job_id", jobID),
			logging.Err(rmErr),
		)
	}
	return payload, nil
}

// HasPendingResult reports whether a result handle exists for the job.
func (c *Client) HasPendingResult(ctx context.Context, jobID string) bool {
	_, err := c.store.Find(ctx, jobID)
	return err == nil
}

// ProcessAndWait runs the full curation flow: submit the file, poll the
// status endpoint until the job finishes, then fetch the result.
func (c *Client) ProcessAndWait(ctx context.Context, fileName string, data []byte, options map[string]interface{}) (map[string]interface{}, error) {
	jobID, err := c.Submit(ctx, fileName, data, options)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx, jobID)
}

// Wait polls an already-submitted job until completion and fetches its
// result.
func (c *Client) Wait(ctx context.Context, jobID string) (map[string]interface{}, error) {
	statusFn := func(ctx context.Context) (string, error) {
		return c.Status(ctx, jobID)
	}
	resultFn := func(ctx context.Context) (map[string]interface{}, error) {
		return c.FetchResult(ctx, jobID)
	}
	return c.poller.WaitForCompletion(ctx, jobID, c.pollOpts, statusFn, resultFn)
}
