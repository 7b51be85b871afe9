package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the report pipeline.
type Metrics struct {
	ObservationsLoaded prometheus.Counter
	Regions            prometheus.Gauge
	FilledCells        prometheus.Counter
	Anomalies          prometheus.Counter
	UndefinedCFR       prometheus.Gauge
	FitFailures        prometheus.Counter
	ReportsPublished   *prometheus.CounterVec // labels: sink, outcome={success,error}

	// Run metrics.
	Runs        *prometheus.CounterVec // labels: outcome={success,insufficient_data,error}
	RunDuration prometheus.Histogram

	// Boundary lookup metrics.
	BoundaryRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	BoundaryCache       *prometheus.CounterVec // labels: result={hit,miss}
	BoundaryAPIDuration prometheus.Histogram
	BoundaryEnabled     prometheus.Gauge
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		ObservationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_loaded_total",
			Help:      help("Total observation rows read from the source."),
		}),
		Regions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions",
			Help:      help("Regions present in the most recent run."),
		}),
		FilledCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filled_cells_total",
			Help:      help("Cumulative death cells filled by completion."),
		}),
		Anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monotonicity_anomalies_total",
			Help:      help("Decreases found in completed cumulative series."),
		}),
		UndefinedCFR: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cfr_undefined_regions",
			Help:      help("Regions without a defined case fatality ratio in the most recent run."),
		}),
		FitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fit_failures_total",
			Help:      help("Curve fits that could not run or were singular."),
		}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      help("Report publications by sink and outcome."),
		}, []string{"sink", "outcome"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      help("Pipeline runs by outcome."),
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete load-analyze-publish cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BoundaryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_requests_total",
			Help:      help("Boundary API requests by outcome."),
		}, []string{"outcome"}),
		BoundaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_cache_total",
			Help:      help("Boundary cache lookups by result."),
		}, []string{"result"}),
		BoundaryAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "boundary_api_duration_seconds",
			Help:      help("Mapbox API request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		BoundaryEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boundary_enabled",
			Help:      help("1 when boundary lookups are enabled, 0 otherwise."),
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.ObservationsLoaded,
		m.Regions,
		m.FilledCells,
		m.Anomalies,
		m.UndefinedCFR,
		m.FitFailures,
		m.ReportsPublished,
		m.Runs,
		m.RunDuration,
		m.BoundaryRequests,
		m.BoundaryCache,
		m.BoundaryAPIDuration,
		m.BoundaryEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
