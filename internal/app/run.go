package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enrichment-gateway/internal/common/logging"
	"enrichment-gateway/internal/config"
	"enrichment-gateway/internal/server"
)

// Run loads configuration, assembles the gateway, and serves until a
// termination signal arrives.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewZapLogger(logging.LogConfig{
		Level: logging.ParseLevel(cfg.LogLevel),
	})
	if err != nil {
		return err
	}
	logging.SetGlobalLogger(logger)

	application, err := New(cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Port, Router(application.Handlers, logger), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Signal received, shutting down", logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown did not complete cleanly", err)
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}
