// Command server loads INPUT_PATH once, publishes the default report to the
// Kafka sink when configured, and serves reports over HTTP. Each
// GET /v1/report reruns the analysis over the loaded observations with
// optional per-request parameter overrides.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/covid-mortality-etl/internal/app"
	"github.com/couchcryptid/covid-mortality-etl/internal/config"
	"github.com/couchcryptid/covid-mortality-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	a, err := app.New(cfg, logger, metrics, false)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	p := a.Pipeline

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Load observations and publish the default report to Kafka when
	// configured. /readyz answers 503 until the load succeeds.
	go func() {
		_, err := p.Run(ctx)
		switch {
		case err == nil:
		case p.CheckReadiness(ctx) != nil:
			logger.Error("initial load failed", "error", err)
			stop()
		default:
			logger.Warn("initial report incomplete", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		logger.Error("sink close error", "error", err)
	}

	logger.Info("shutdown complete")
}
