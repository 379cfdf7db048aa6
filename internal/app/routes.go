package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"enrichment-gateway/internal/common/logging"
	"enrichment-gateway/internal/handlers"
	"enrichment-gateway/internal/middleware"
)

// Router builds the gateway's route table.
func Router(h *handlers.Handlers, logger logging.Logger) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	ctx := r.PathPrefix("/context").Subrouter()
	ctx.HandleFunc("/available_actions", h.AvailableActions).Methods(http.MethodGet)
	ctx.HandleFunc("/upload", h.EnrichmentUpload).Methods(http.MethodPost)
	ctx.HandleFunc("/process", h.EnrichmentProcess).Methods(http.MethodPost)
	ctx.HandleFunc("/results/{jobId}", h.EnrichmentResults).Methods(http.MethodGet)

	cur := r.PathPrefix("/data-curation").Subrouter()
	cur.HandleFunc("/process", h.CurationProcess).Methods(http.MethodPost)
	cur.HandleFunc("/upload", h.CurationUpload).Methods(http.MethodPost)
	cur.HandleFunc("/status/{jobId}", h.CurationStatus).Methods(http.MethodGet)
	cur.HandleFunc("/poll_results/{jobId}", h.CurationPollResults).Methods(http.MethodGet)

	return r
}
