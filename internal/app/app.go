// Package app wires configuration into a ready-to-run pipeline.
package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/csvexport"
	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/csvsource"
	kafkaadapter "github.com/couchcryptid/covid-mortality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/covid-mortality-etl/internal/config"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/couchcryptid/covid-mortality-etl/internal/observability"
	"github.com/couchcryptid/covid-mortality-etl/internal/pipeline"
)

// App holds the wired pipeline and the resources to release on shutdown.
type App struct {
	Pipeline *pipeline.Pipeline
	closers  []func() error
}

// New builds the source, boundary resolver and publishers described by cfg.
// File sinks are wired only when withFileSinks is set.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, withFileSinks bool) (*App, error) {
	a := &App{}

	resolver, err := newResolver(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	var publishers []pipeline.Publisher
	if withFileSinks {
		publishers = append(publishers, csvexport.NewWriter(cfg.OutputDir, logger))
		if cfg.XLSXEnabled {
			publishers = append(publishers, xlsx.NewWriter(filepath.Join(cfg.OutputDir, xlsx.DefaultFileName), logger))
		}
	}
	if cfg.KafkaEnabled() {
		w := kafkaadapter.NewWriter(cfg, logger)
		publishers = append(publishers, w)
		a.closers = append(a.closers, w.Close)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	a.Pipeline = pipeline.New(NewSource(cfg, logger), resolver, publishers, cfg.Analysis, logger, metrics)
	return a, nil
}

// NewSource picks the loader by file extension: .xlsx workbooks or CSV.
func NewSource(cfg *config.Config, logger *slog.Logger) pipeline.Source {
	if strings.EqualFold(filepath.Ext(cfg.InputPath), ".xlsx") {
		return xlsx.NewSource(cfg.InputPath, cfg.Columns, logger)
	}
	return csvsource.NewSource(cfg.InputPath, cfg.Columns, logger)
}

// newResolver returns nil when Mapbox is disabled. A nil resolver yields
// choropleth entries without boundaries.
func newResolver(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (domain.BoundaryResolver, error) {
	if !cfg.MapboxEnabled {
		metrics.BoundaryEnabled.Set(0)
		logger.Info("mapbox boundary lookups disabled")
		return nil, nil
	}
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	cached, err := mapbox.NewCachedResolver(client, cfg.MapboxCacheSize, metrics)
	if err != nil {
		return nil, err
	}
	metrics.BoundaryEnabled.Set(1)
	logger.Info("mapbox boundary lookups enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return cached, nil
}

// Close releases sink connections.
func (a *App) Close(_ context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
