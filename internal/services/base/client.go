// Package base provides the shared HTTP plumbing for the backing API
// clients: bearer-token acquisition, retry and circuit breaker wrapping,
// response classification, and presigned upload/download.
package base

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"enrichment-gateway/internal/circuitbreaker"
	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
	"enrichment-gateway/internal/common/utils"
	"enrichment-gateway/internal/token"
)

// Client carries everything a service client needs for outbound calls.
type Client struct {
	httpClient *http.Client
	tokens     token.Source
	svc        token.ServiceConfig
	scope      string
	cacheKey   string
	retry      utils.RetryConfig
	breaker    *circuitbreaker.Breaker
	logger     logging.Logger
}

// Config configures a base client.
type Config struct {
	Service    token.ServiceConfig
	Scope      string
	CacheKey   string
	Retry      utils.RetryConfig
	HTTPClient *http.Client
}

// NewClient creates the shared client for one backing service. The retry
// predicate is widened so token requests that failed on transport also
// get retried; a rejected credential still fails immediately.
func NewClient(cfg Config, tokens token.Source, logger logging.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = utils.FixedRetryConfig(3, time.Second)
	}
	retry.RetryableErrors = retryable

	return &Client{
		httpClient: httpClient,
		tokens:     tokens,
		svc:        cfg.Service,
		scope:      cfg.Scope,
		cacheKey:   cfg.CacheKey,
		retry:      retry,
		breaker:    circuitbreaker.New(cfg.CacheKey, circuitbreaker.APIConfig, logger),
		logger:     logger,
	}
}

// retryable widens the transport predicate to cover token requests that
// failed on the wire. An auth failure without a transport cause (bad
// credentials, rejected token) is final.
func retryable(err error) bool {
	if utils.IsTransportError(err) {
		return true
	}
	if errors.IsType(err, errors.ErrTypeAuth) {
		appErr, ok := err.(*errors.AppError)
		return ok && appErr.Cause != nil && utils.IsTransportError(appErr.Cause)
	}
	return false
}

// BaseURL returns the service's API base URL.
func (c *Client) BaseURL() string {
	return c.svc.APIBaseURL
}

// URL joins path onto the service's API base URL.
func (c *Client) URL(path string) string {
	return strings.TrimRight(c.svc.APIBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// InvalidateToken drops the cached token for this service.
func (c *Client) InvalidateToken() {
	c.tokens.Invalidate(c.cacheKey)
}

// GetJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, path string) (map[string]interface{}, error) {
	body, err := c.DoAuthenticated(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeObject(body)
}

// PostJSON performs an authenticated POST with a JSON body and returns
// the raw response body. Callers decode it themselves because some
// endpoints answer with a bare string rather than an object.
func (c *Client) PostJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, errors.InternalError("failed to encode request body", err)
		}
	}
	return c.DoAuthenticated(ctx, http.MethodPost, path, body, "application/json")
}

// DoAuthenticated performs one authenticated request with retry and
// circuit breaker protection and returns the response body.
func (c *Client) DoAuthenticated(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	reqURL := c.URL(path)
	operation := fmt.Sprintf("%s %s %s", c.cacheKey, method, path)

	var respBody []byte
	err := utils.ExecuteWithRetry(ctx, c.retry, operation, func() error {
		return c.breakerExec(ctx, func() error {
			tok, err := c.tokens.AccessToken(ctx, c.svc, c.scope, c.cacheKey)
			if err != nil {
				return err
			}

			var reader io.Reader
			if body != nil {
				reader = bytes.NewReader(body)
			}

			req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
			if err != nil {
				return errors.InternalError("failed to create request", err)
			}
			req.Header.Set("Authorization", "Bearer "+tok)
			req.Header.Set("Accept", "application/json")
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return errors.ConnectionError(fmt.Sprintf("request to %s failed", reqURL), err)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return errors.ConnectionError("failed to read response body", err)
			}

			if err := c.classify(resp.StatusCode, data); err != nil {
				return err
			}

			respBody = data
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// breakerExec runs fn through the circuit breaker, translating an open
// circuit into a retryable connection error.
func (c *Client) breakerExec(ctx context.Context, fn func() error) error {
	err := c.breaker.Execute(ctx, fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.ConnectionError(fmt.Sprintf("circuit breaker %s open", c.breaker.Name()), err)
	}
	return err
}

// classify maps a non-2xx response to the error taxonomy. A 401 also
// invalidates the cached token so the next attempt authenticates fresh.
func (c *Client) classify(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil

	case status == http.StatusUnauthorized:
		c.InvalidateToken()
		c.logger.Warn("Remote rejected bearer token, cache invalidated",
			logging.String("service", c.cacheKey))
		return errors.AuthError(fmt.Sprintf("remote returned 401: %s", truncate(body)), nil)

	case status == http.StatusNotFound:
		return errors.NotFoundError("remote resource")

	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return errors.InternalError(fmt.Sprintf("remote returned status %d: %s", status, truncate(body)), nil)

	default:
		return errors.ValidationError(fmt.Sprintf("remote returned status %d: %s", status, truncate(body)))
	}
}

// PresignedPut uploads content to a presigned URL. Presigned requests
// carry no Authorization header; the signature in the URL is the auth.
func (c *Client) PresignedPut(ctx context.Context, presignedURL, contentType string, content io.Reader, length int64) error {
	operation := fmt.Sprintf("%s presigned upload", c.cacheKey)

	// Streams cannot be replayed, so buffer once up front for retries
	data, err := io.ReadAll(content)
	if err != nil {
		return errors.InternalError("failed to read upload content", err)
	}
	if length >= 0 && int64(len(data)) != length {
		length = int64(len(data))
	}

	return utils.ExecuteWithRetry(ctx, c.retry, operation, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
		if err != nil {
			return errors.InternalError("failed to create upload request", err)
		}
		req.ContentLength = int64(len(data))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.ConnectionError("presigned upload failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode >= 500 {
				return errors.InternalError(fmt.Sprintf("presigned upload returned status %d: %s", resp.StatusCode, truncate(body)), nil)
			}
			return errors.ValidationError(fmt.Sprintf("presigned upload returned status %d: %s", resp.StatusCode, truncate(body)))
		}
		return nil
	})
}

// PresignedGet fetches a presigned URL without auth and returns the body
// and status code. Transport failures are returned as connection errors;
// HTTP status interpretation is left to the caller because a missing
// object means "not ready" in the result-fetch flow, not a fault.
func (c *Client) PresignedGet(ctx context.Context, presignedURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return nil, 0, errors.InternalError("failed to create download request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.ConnectionError("presigned download failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.ConnectionError("failed to read download body", err)
	}
	return body, resp.StatusCode, nil
}

// decodeObject parses a JSON object response.
func decodeObject(body []byte) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.InternalError("failed to decode response body", err)
	}
	return result, nil
}

// DecodeObject is the exported variant for service clients working with
// raw bodies.
func DecodeObject(body []byte) (map[string]interface{}, error) {
	return decodeObject(body)
}

func truncate(body []byte) string {
	const max = 256
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
