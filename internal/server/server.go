// Package server wraps the HTTP server with sane timeouts and graceful
// shutdown.
package server

import (
	"context"
	"net/http"
	"time"

	"enrichment-gateway/internal/common/logging"
)

// Server is the gateway's HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// New creates a server on the given port. Write timeout is generous
// because the synchronous endpoints hold the connection open for the
// whole poll.
func New(port string, handler http.Handler, logger logging.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Server starting", logging.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Server shutting down")
	return s.httpServer.Shutdown(ctx)
}
