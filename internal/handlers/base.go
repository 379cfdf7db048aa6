// Package handlers implements the gateway's HTTP surface.
package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
	"enrichment-gateway/internal/services/curation"
	"enrichment-gateway/internal/services/enrichment"
)

// maxUploadSize caps file uploads at 5 GiB, matching the presigned
// storage limit.
const maxUploadSize = 5 << 30

// memoryThreshold is how much of a multipart body is held in memory
// before spilling to disk.
const memoryThreshold = 32 << 20

// Handlers holds the gateway's HTTP handlers and their dependencies.
type Handlers struct {
	enrichment *enrichment.Client
	curation   *curation.Client
	logger     logging.Logger
}

// New creates the handler set.
func New(enrichmentClient *enrichment.Client, curationClient *curation.Client, logger logging.Logger) *Handlers {
	return &Handlers{
		enrichment: enrichmentClient,
		curation:   curationClient,
		logger:     logger,
	}
}

// respondJSON writes a JSON response.
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error("Failed to encode response", err)
		}
	}
}

// respondError maps an error onto its HTTP status and writes the error
// body.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)

	body := map[string]interface{}{
		"error": map[string]interface{}{
			"type":    string(errors.GetType(err)),
			"message": err.Error(),
		},
	}

	if status >= 500 {
		h.logger.Error("Request failed", err, logging.String("path", r.URL.Path))
	} else {
		h.logger.Warn("Request rejected",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Err(err),
		)
	}

	h.respondJSON(w, status, body)
}

// readUpload extracts the uploaded file from a multipart request and
// enforces the size cap.
func (h *Handlers) readUpload(r *http.Request) ([]byte, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(memoryThreshold); err != nil {
		return nil, nil, errors.ValidationError("invalid multipart request: " + err.Error())
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errors.ValidationError("missing file field")
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		return nil, nil, errors.PayloadTooLargeError("file exceeds the 5GiB upload limit")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, errors.InternalError("failed to read uploaded file", err)
	}
	if len(data) == 0 {
		return nil, nil, errors.ValidationError("uploaded file is empty")
	}

	return data, header, nil
}

// formValues returns all values of a repeatable multipart field,
// splitting comma-separated entries for convenience.
func formValues(r *http.Request, field string) []string {
	if r.MultipartForm == nil {
		return nil
	}

	var out []string
	for _, raw := range r.MultipartForm.Value[field] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// formBool reads a boolean multipart field, defaulting to false.
func formBool(r *http.Request, field string) bool {
	val, err := strconv.ParseBool(r.FormValue(field))
	return err == nil && val
}
