package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/couchcryptid/covid-mortality-etl/internal/observability"
)

// Source reads the full observation table.
type Source interface {
	Load(ctx context.Context) ([]domain.Observation, error)
}

// Publisher delivers a finished report to one destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, report domain.Report) error
}

// ErrPublish marks a run in which at least one publisher failed. It is
// reported alongside a fit error when both occur.
var ErrPublish = errors.New("publish report")

const (
	loadAttempts   = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

const (
	outcomeSuccess          = "success"
	outcomeInsufficientData = "insufficient_data"
	outcomeError            = "error"
)

// Pipeline orchestrates the load-analyze-publish cycle. Loaded observations
// are kept read-only so later analyses with different parameters reuse them.
type Pipeline struct {
	source     Source
	resolver   domain.BoundaryResolver
	publishers []Publisher
	params     domain.Params
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool

	mu           sync.RWMutex
	observations []domain.Observation
}

// New creates a Pipeline. resolver may be nil, in which case choropleth
// entries carry no boundary.
func New(source Source, resolver domain.BoundaryResolver, publishers []Publisher, params domain.Params, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:     source,
		resolver:   resolver,
		publishers: publishers,
		params:     params,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once observations have been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("observations have not been loaded yet")
	}
	return nil
}

// Params returns the run parameters the pipeline was built with.
func (p *Pipeline) Params() domain.Params {
	return p.params
}

// Load reads the source, retrying transient failures with exponential
// backoff, and caches the result.
func (p *Pipeline) Load(ctx context.Context) error {
	backoff := initialBackoff

	var err error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		var obs []domain.Observation
		obs, err = p.source.Load(ctx)
		if err == nil {
			p.mu.Lock()
			p.observations = obs
			p.mu.Unlock()
			p.metrics.ObservationsLoaded.Add(float64(len(obs)))
			p.ready.Store(true)
			p.logger.Info("observations loaded", "rows", len(obs))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("load observations failed", "error", err, "attempt", attempt)
		if attempt == loadAttempts || !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("load observations: %w", err)
}

// Analyze runs the analysis over the loaded observations with params.
// On insufficient fit data the returned report is still populated.
func (p *Pipeline) Analyze(ctx context.Context, params domain.Params) (domain.Report, error) {
	start := time.Now()

	p.mu.RLock()
	obs := p.observations
	p.mu.RUnlock()

	report, err := domain.Analyze(ctx, obs, params, p.resolver, p.logger)
	p.record(report, err)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	return report, err
}

func (p *Pipeline) record(report domain.Report, err error) {
	p.metrics.Regions.Set(float64(report.Stats.Regions))
	p.metrics.FilledCells.Add(float64(report.Stats.FilledCells))
	p.metrics.Anomalies.Add(float64(len(report.Anomalies)))
	p.metrics.UndefinedCFR.Set(float64(len(report.CFR.Undefined)))

	switch {
	case err == nil:
		p.metrics.Runs.WithLabelValues(outcomeSuccess).Inc()
	case errors.Is(err, domain.ErrInsufficientFitData):
		p.metrics.FitFailures.Inc()
		p.metrics.Runs.WithLabelValues(outcomeInsufficientData).Inc()
	default:
		if report.FitError != "" {
			p.metrics.FitFailures.Inc()
		}
		p.metrics.Runs.WithLabelValues(outcomeError).Inc()
	}
}

// Run loads the source, analyzes it with the pipeline's params and publishes
// the report to every publisher. A report whose fit failed for lack of data
// is still published; the fit error is returned alongside any publish errors,
// which match ErrPublish.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	p.logger.Info("pipeline started",
		"fit_start", p.params.FitStart.Format(time.DateOnly),
		"degree", p.params.Degree,
		"horizon", p.params.Horizon,
		"publishers", len(p.publishers),
	)

	if err := p.Load(ctx); err != nil {
		p.metrics.Runs.WithLabelValues(outcomeError).Inc()
		return domain.Report{}, err
	}

	report, err := p.Analyze(ctx, p.params)
	if err != nil && !errors.Is(err, domain.ErrInsufficientFitData) {
		return report, err
	}
	if err != nil {
		p.logger.Warn("projection skipped", "error", err)
	}

	pubErr := p.publish(ctx, report)
	p.logger.Info("pipeline finished",
		"regions", report.Stats.Regions,
		"days", report.Stats.Days,
		"anomalies", len(report.Anomalies),
		"projected", report.Projection != nil,
	)
	return report, errors.Join(err, pubErr)
}

func (p *Pipeline) publish(ctx context.Context, report domain.Report) error {
	var errs []error
	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, report); err != nil {
			p.logger.Error("publish report failed", "sink", pub.Name(), "error", err)
			p.metrics.ReportsPublished.WithLabelValues(pub.Name(), outcomeError).Inc()
			errs = append(errs, fmt.Errorf("publish to %s: %w", pub.Name(), err))
			continue
		}
		p.metrics.ReportsPublished.WithLabelValues(pub.Name(), outcomeSuccess).Inc()
		p.logger.Debug("report published", "sink", pub.Name())
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPublish, errors.Join(errs...))
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
