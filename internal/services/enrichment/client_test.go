package enrichment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
	"enrichment-gateway/internal/common/utils"
	"enrichment-gateway/internal/jobs"
	"enrichment-gateway/internal/services/base"
	"enrichment-gateway/internal/token"
)

func testLogger(t *testing.T) logging.Logger {
	t.Helper()
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.ErrorLevel})
	require.NoError(t, err)
	return logger
}

type staticTokens struct{}

func (staticTokens) AccessToken(ctx context.Context, svc token.ServiceConfig, scope, cacheKey string) (string, error) {
	return "test-token", nil
}
func (staticTokens) Invalidate(cacheKey string) {}

func newClient(t *testing.T, apiURL string) *Client {
	t.Helper()
	logger := testLogger(t)
	api := base.NewClient(base.Config{
		Service:  token.ServiceConfig{APIBaseURL: apiURL},
		Scope:    Scope,
		CacheKey: CacheKey,
		Retry:    utils.FixedRetryConfig(2, time.Millisecond),
	}, staticTokens{}, logger)

	return New(api, jobs.NewPoller(logger), jobs.Options{MaxAttempts: 10, Interval: time.Millisecond}, logger)
}

func TestAvailableActions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/process/actions", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]string{"SUMMARISE", "TRANSLATE"})
	}))
	defer srv.Close()

	actions, err := newClient(t, srv.URL).AvailableActions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"SUMMARISE", "TRANSLATE"}, actions)
}

func TestPresignUpload_QueryAndKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/upload/presigned-url", r.URL.Path)
		require.Equal(t, "application/pdf", r.URL.Query().Get("contentType"))
		json.NewEncoder(w).Encode(map[string]string{
			"presignedUrl": "https://bucket/put?sig=1",
			"objectKey":    "uploads/abc",
		})
	}))
	defer srv.Close()

	presign, err := newClient(t, srv.URL).PresignUpload(context.Background(), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/put?sig=1", presign.PutURL)
	assert.Equal(t, "uploads/abc", presign.ObjectKey)
}

func TestProcess_BodyShapeAndJobID(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/process", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"processingId": "job-42"})
	}))
	defer srv.Close()

	jobID, err := newClient(t, srv.URL).Process(context.Background(), ProcessRequest{
		ObjectKey: "uploads/abc",
		Actions:   []string{"SUMMARISE"},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
	assert.Equal(t, []interface{}{"uploads/abc"}, gotBody["objectKeys"])
	assert.Equal(t, []interface{}{"SUMMARISE"}, gotBody["actions"])
}

func TestProcess_RequiresObjectKey(t *testing.T) {
	_, err := newClient(t, "http://unused").Process(context.Background(), ProcessRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestUpload_PresignsThenPuts(t *testing.T) {
	var uploadedType, uploadedBody string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/files/upload/presigned-url", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"presignedUrl": srv.URL + "/bucket/key?sig=abc&content-type=text%2Fplain",
			"objectKey":    "uploads/key",
		})
	})
	mux.HandleFunc("/bucket/key", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		uploadedType = r.Header.Get("Content-Type")
		buf, _ := io.ReadAll(r.Body)
		uploadedBody = string(buf)
	})

	presign, err := newClient(t, srv.URL).Upload(context.Background(), []byte("hello"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "uploads/key", presign.ObjectKey)
	assert.Equal(t, "text/plain", uploadedType)
	assert.Equal(t, "hello", uploadedBody)
}

func TestProcessAndWait_PollsResultsUntilDone(t *testing.T) {
	var resultCalls int64
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/files/upload/presigned-url", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"presignedUrl": srv.URL + "/bucket/key",
			"objectKey":    "uploads/key",
		})
	})
	mux.HandleFunc("/bucket/key", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/content/process", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"jobId": "job-1"})
	})
	mux.HandleFunc("/content/process/job-1/results", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&resultCalls, 1)
		if n < 3 {
			json.NewEncoder(w).Encode(map[string]interface{}{"inProgress": true})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"inProgress": false,
			"status":     "SUCCESS",
			"entities":   []string{"acme"},
		})
	})

	result, err := newClient(t, srv.URL).ProcessAndWait(context.Background(),
		[]byte("content"), "text/plain", []string{"SUMMARISE"})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", result["status"])
	assert.Equal(t, []interface{}{"acme"}, result["entities"])
	assert.Equal(t, int64(3), atomic.LoadInt64(&resultCalls),
		"the final results payload should be reused, not refetched")
}

func TestWait_JobFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"inProgress": false, "status": "FAILED"})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Wait(context.Background(), "job-1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeJobFailed))
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, jobs.StatusInProgress, deriveStatus(map[string]interface{}{"inProgress": true}))
	assert.Equal(t, jobs.StatusInProgress, deriveStatus(map[string]interface{}{"entities": []string{}}),
		"a payload without the inProgress flag is treated as still running")
	assert.Equal(t, "SUCCESS", deriveStatus(map[string]interface{}{"inProgress": false, "status": "SUCCESS"}))
	assert.Equal(t, "UNKNOWN", deriveStatus(map[string]interface{}{"inProgress": false}),
		"a finished payload without a status is out of contract")
}

func TestResults_RequiresJobID(t *testing.T) {
	_, err := newClient(t, "http://unused").Results(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}
