package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// RunStats counts the data-level conditions met during a run.
type RunStats struct {
	Observations int `json:"observations"`
	Regions      int `json:"regions"`
	Days         int `json:"days"`
	FilledCells  int `json:"filled_cells"`
	EmptyRegions int `json:"empty_regions"`
}

// Analyze runs the full analysis over observations: completion, differencing,
// national aggregation, totals, CFR, choropleth join, fit and projection.
//
// A fit that cannot run for lack of data does not discard upstream results:
// the returned report is complete except for Projection, FitError is set, and
// the error wraps ErrInsufficientFitData. Other errors abort the run.
func Analyze(ctx context.Context, observations []Observation, params Params, resolver BoundaryResolver, logger *slog.Logger) (Report, error) {
	if err := params.Validate(); err != nil {
		return Report{}, err
	}

	g := NewGrid(observations)
	report := Report{
		GeneratedAt: clock.Now().UTC(),
		Params:      params,
		Regions:     g.Regions(),
		Stats: RunStats{
			Observations: len(observations),
			Regions:      len(g.Regions()),
			Days:         g.Days(),
		},
	}

	increments := make([]Increments, 0, len(g.Regions()))
	for _, region := range g.Regions() {
		series := g.Complete(region, MeasureDeaths, params.ZeroPolicy)
		filled := g.FilledCells(region, MeasureDeaths, params.ZeroPolicy)
		report.Stats.FilledCells += filled
		if filled == g.Days() {
			report.Stats.EmptyRegions++
			logger.Debug("region has no usable death reports", "region", region)
		}
		report.Cumulative = append(report.Cumulative, series)

		inc, anomalies := Differentiate(series, params.Monotonicity)
		for _, a := range anomalies {
			logger.Warn("cumulative deaths decreased",
				"region", a.Region,
				"date", a.Date.Format(dateLayout),
				"previous", a.Previous,
				"current", a.Current,
			)
		}
		report.Anomalies = append(report.Anomalies, anomalies...)
		increments = append(increments, inc)
	}

	national, err := SumNational(increments)
	if err != nil {
		return Report{}, fmt.Errorf("aggregate national series: %w", err)
	}
	report.National = national
	report.Totals = SummarizeNational(g, params.ZeroPolicy)

	report.CFR = ComputeCFR(g)
	if len(report.CFR.Undefined) > 0 {
		logger.Info("regions without a defined CFR", "regions", report.CFR.Undefined)
	}
	report.Choropleth = BuildChoropleth(ctx, report.CFR, resolver, params.ExcludedRegions, logger)

	model, err := FitPolynomial(national, params.Window(), params.Degree)
	if err != nil {
		report.FitError = err.Error()
		if errors.Is(err, ErrInsufficientFitData) {
			return report, err
		}
		return report, fmt.Errorf("fit national series: %w", err)
	}

	projection, err := Project(model, national.Last(), params.Horizon, params.ClampProjection)
	if err != nil {
		return report, fmt.Errorf("project national series: %w", err)
	}
	report.Projection = &projection
	return report, nil
}
