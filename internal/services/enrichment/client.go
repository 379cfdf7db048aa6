// Package enrichment is the client for the content-enrichment API.
//
// Enrichment jobs are submitted against previously uploaded objects and
// report progress through their results endpoint: the payload carries an
// inProgress flag and a status alongside the (eventual) enrichment
// output.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
	"enrichment-gateway/internal/jobs"
	"enrichment-gateway/internal/services/base"
)

const (
	// Scope is the OAuth2 scope requested for enrichment tokens
	Scope = "environment_authorization"
	// CacheKey identifies this service in the token cache
	CacheKey = "context-enrichment"
)

// ProcessRequest describes one content-processing submission.
type ProcessRequest struct {
	ObjectKey          string
	Actions            []string
	Metadata           map[string]string
	DeleteAfterSeconds int
}

// Client talks to the content-enrichment API.
type Client struct {
	api      *base.Client
	poller   *jobs.Poller
	pollOpts jobs.Options
	logger   logging.Logger
}

// New creates an enrichment client.
func New(api *base.Client, poller *jobs.Poller, pollOpts jobs.Options, logger logging.Logger) *Client {
	return &Client{
		api:      api,
		poller:   poller,
		pollOpts: pollOpts,
		logger:   logger,
	}
}

// AvailableActions lists the processing actions the service offers.
func (c *Client) AvailableActions(ctx context.Context) (interface{}, error) {
	body, err := c.api.DoAuthenticated(ctx, "GET", "/content/process/actions", nil, "")
	if err != nil {
		return nil, err
	}

	var actions interface{}
	if err := json.Unmarshal(body, &actions); err != nil {
		return nil, errors.InternalError("failed to decode available actions", err)
	}
	return actions, nil
}

// PresignUpload requests a presigned upload slot for content of the
// given type. The response carries the upload URL and the object key a
// processing request refers to.
func (c *Client) PresignUpload(ctx context.Context, contentType string) (base.Presign, error) {
	path := "/files/upload/presigned-url?contentType=" + url.QueryEscape(contentType)

	body, err := c.api.DoAuthenticated(ctx, "GET", path, nil, "")
	if err != nil {
		return base.Presign{}, err
	}

	payload, err := base.DecodeObject(body)
	if err != nil {
		return base.Presign{}, err
	}
	return base.ParsePresign(payload)
}

// Upload presigns a slot and uploads the content to it, returning the
// presign handle whose object key the processing request needs.
func (c *Client) Upload(ctx context.Context, data []byte, contentType string) (base.Presign, error) {
	presign, err := c.PresignUpload(ctx, contentType)
	if err != nil {
		return base.Presign{}, err
	}

	// Upload with the type the URL was signed for, or the slot rejects it
	uploadType := base.ContentTypeFromURL(presign.PutURL)
	if uploadType == "" {
		uploadType = contentType
	}

	if err := c.api.PresignedPut(ctx, presign.PutURL, uploadType, bytes.NewReader(data), int64(len(data))); err != nil {
		return base.Presign{}, err
	}

	c.logger.Info("Content uploaded for enrichment",
		logging.String("object_key", presign.ObjectKey),
		logging.String("content_type", uploadType),
		logging.Int("size", len(data)),
	)
	return presign, nil
}

// Process submits an enrichment job against an uploaded object and
// returns the job id.
func (c *Client) Process(ctx context.Context, req ProcessRequest) (string, error) {
	if req.ObjectKey == "" {
		return "", errors.ValidationError("object key is required")
	}

	payload := map[string]interface{}{
		"objectKeys": []string{req.ObjectKey},
	}
	if len(req.Actions) > 0 {
		payload["actions"] = req.Actions
	}
	if len(req.Metadata) > 0 {
		payload["kSimilarMetadata"] = []map[string]string{req.Metadata}
	}
	if req.DeleteAfterSeconds > 0 {
		payload["deleteAfterSeconds"] = req.DeleteAfterSeconds
	}

	body, err := c.api.PostJSON(ctx, "/content/process", payload)
	if err != nil {
		return "", err
	}

	jobID, err := base.ExtractJobID(body)
	if err != nil {
		return "", err
	}

	c.logger.Info("Enrichment job submitted",
		logging.String("job_id", jobID),
		logging.String("object_key", req.ObjectKey),
	)
	return jobID, nil
}

// Results fetches the current results payload for a job. While the job
// runs the payload reports inProgress=true; afterwards it carries the
// enrichment output.
func (c *Client) Results(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, errors.ValidationError("job id is required")
	}
	return c.api.GetJSON(ctx, "/content/process/"+jobID+"/results")
}

// Submit uploads content and starts a processing job with the given
// actions, returning the job id without waiting.
func (c *Client) Submit(ctx context.Context, data []byte, contentType string, actions []string) (string, error) {
	presign, err := c.Upload(ctx, data, contentType)
	if err != nil {
		return "", err
	}
	return c.Process(ctx, ProcessRequest{ObjectKey: presign.ObjectKey, Actions: actions})
}

// ProcessAndWait runs the full flow: upload, submit, poll the results
// endpoint until the job finishes, and return the final payload.
func (c *Client) ProcessAndWait(ctx context.Context, data []byte, contentType string, actions []string) (map[string]interface{}, error) {
	jobID, err := c.Submit(ctx, data, contentType, actions)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx, jobID)
}

// Wait polls an already-submitted job until completion. The results
// endpoint doubles as the status endpoint, so the final poll's payload
// is reused as the result instead of fetching again.
func (c *Client) Wait(ctx context.Context, jobID string) (map[string]interface{}, error) {
	var mu sync.Mutex
	var lastPayload map[string]interface{}

	statusFn := func(ctx context.Context) (string, error) {
		payload, err := c.Results(ctx, jobID)
		if err != nil {
			return "", err
		}

		mu.Lock()
		lastPayload = payload
		mu.Unlock()

		return deriveStatus(payload), nil
	}

	resultFn := func(ctx context.Context) (map[string]interface{}, error) {
		mu.Lock()
		payload := lastPayload
		mu.Unlock()

		if !jobs.ValidPayload(payload) {
			return nil, errors.ResultUnavailableError(jobID)
		}
		return payload, nil
	}

	return c.poller.WaitForCompletion(ctx, jobID, c.pollOpts, statusFn, resultFn)
}

// deriveStatus maps a results payload onto the job status vocabulary.
// A payload without an inProgress flag is treated as still running; a
// finished payload without a status is out of contract and aborts the
// poll.
func deriveStatus(payload map[string]interface{}) string {
	inProgress, ok := payload["inProgress"].(bool)
	if !ok || inProgress {
		return jobs.StatusInProgress
	}
	if status, ok := payload["status"].(string); ok && status != "" {
		return status
	}
	return "UNKNOWN"
}
