// Command report runs one analysis over INPUT_PATH and writes the report to
// OUTPUT_DIR and any configured sinks. It exits 2 when the national series is
// too short to fit, after the upstream tables have been written, and 1 on any
// other failure, including a sink that could not be written.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/covid-mortality-etl/internal/app"
	"github.com/couchcryptid/covid-mortality-etl/internal/config"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/couchcryptid/covid-mortality-etl/internal/observability"
	"github.com/couchcryptid/covid-mortality-etl/internal/pipeline"
)

const exitInsufficientData = 2

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	a, err := app.New(cfg, logger, metrics, true)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := a.Pipeline.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Error("sink close error", "error", err)
	}

	code := exitCode(runErr)
	switch code {
	case 0:
		logger.Info("report written", "output_dir", cfg.OutputDir, "generated_at", report.GeneratedAt)
	case exitInsufficientData:
		logger.Error("report written without projection", "error", runErr, "output_dir", cfg.OutputDir)
	default:
		logger.Error("report failed", "error", runErr)
	}
	return code
}

// exitCode maps a run error to the process status. A failed sink outranks an
// insufficient fit since some output may be missing.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pipeline.ErrPublish):
		return 1
	case errors.Is(err, domain.ErrInsufficientFitData):
		return exitInsufficientData
	default:
		return 1
	}
}
