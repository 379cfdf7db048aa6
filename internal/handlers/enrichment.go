package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"enrichment-gateway/internal/contenttype"
)

// AvailableActions proxies the enrichment actions listing.
func (h *Handlers) AvailableActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.enrichment.AvailableActions(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, actions)
}

// EnrichmentUpload uploads a file, starts a processing job with the
// requested actions, and returns the job id without waiting.
func (h *Handlers) EnrichmentUpload(w http.ResponseWriter, r *http.Request) {
	data, header, err := h.readUpload(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	jobID, err := h.enrichment.Submit(r.Context(), data, uploadContentType(data, header), formValues(r, "actions"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"jobId": jobID})
}

// EnrichmentProcess uploads a file, starts a processing job, blocks
// until it finishes, and returns the final result.
func (h *Handlers) EnrichmentProcess(w http.ResponseWriter, r *http.Request) {
	data, header, err := h.readUpload(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.enrichment.ProcessAndWait(r.Context(), data, uploadContentType(data, header), formValues(r, "actions"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// EnrichmentResults returns the current results payload for a job
// without waiting.
func (h *Handlers) EnrichmentResults(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	result, err := h.enrichment.Results(r.Context(), jobID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// uploadContentType resolves the type of an uploaded file from its
// part header, file name, and content, in that order of preference.
func uploadContentType(data []byte, header *multipart.FileHeader) string {
	declared := header.Header.Get("Content-Type")
	if declared == "" {
		declared = contenttype.DetectFromFilename(header.Filename)
	}
	return contenttype.Detect(data, declared)
}
