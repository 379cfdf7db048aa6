package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/jobs"
)

// curationOptions collects the curation form options passed through to
// the presign request.
func curationOptions(r *http.Request) map[string]interface{} {
	jsonSchema := r.FormValue("jsonSchema")
	if jsonSchema == "" {
		jsonSchema = "MDAST"
	}

	return map[string]interface{}{
		"normalization": formBool(r, "normalization"),
		"chunking":      formBool(r, "chunking"),
		"embedding":     formBool(r, "embedding"),
		"json_schema":   jsonSchema,
	}
}

// CurationProcess runs the full curation flow synchronously: upload the
// file, wait for the job, return the result.
func (h *Handlers) CurationProcess(w http.ResponseWriter, r *http.Request) {
	data, header, err := h.readUpload(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.curation.ProcessAndWait(r.Context(), header.Filename, data, curationOptions(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// CurationUpload submits a curation job and returns immediately with
// the job id and result handle; callers poll for the result.
func (h *Handlers) CurationUpload(w http.ResponseWriter, r *http.Request) {
	data, header, err := h.readUpload(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	jobID, getURL, err := h.curation.SubmitWithHandle(r.Context(), header.Filename, data, curationOptions(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"jobId":  jobID,
		"getUrl": getURL,
		"status": "UPLOADED",
	})
}

// CurationStatus proxies a job's status response.
func (h *Handlers) CurationStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	payload, err := h.curation.StatusPayload(r.Context(), jobID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, payload)
}

// CurationPollResults is the non-blocking result check for jobs
// submitted through CurationUpload. Unknown jobs are 404; a finished
// job returns its result; anything else reports progress.
func (h *Handlers) CurationPollResults(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	ctx := r.Context()

	if !h.curation.HasPendingResult(ctx, jobID) {
		h.respondError(w, r, errors.NotFoundError("job "+jobID))
		return
	}

	status, err := h.curation.Status(ctx, jobID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	switch {
	case jobs.IsInProgress(status):
		h.respondJSON(w, http.StatusOK, map[string]string{
			"jobId":  jobID,
			"status": "PENDING",
		})

	case jobs.IsFailure(status):
		h.respondError(w, r, errors.JobFailedError(jobID, status))

	case jobs.IsTerminal(status):
		result, err := h.curation.FetchResult(ctx, jobID)
		if err != nil {
			if errors.IsType(err, errors.ErrTypeResultUnavailable) {
				// Finished but the result object has not landed yet
				h.respondJSON(w, http.StatusOK, map[string]string{
					"jobId":  jobID,
					"status": "DONE",
				})
				return
			}
			h.respondError(w, r, err)
			return
		}
		h.respondJSON(w, http.StatusOK, result)

	default:
		h.respondError(w, r, errors.UnexpectedStatusError(jobID, status))
	}
}
