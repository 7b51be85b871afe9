package domain

import (
	"fmt"
	"math"
	"time"
)

// DefaultHorizon is the number of days projected past the last observation.
const DefaultHorizon = 14

// Project evaluates model on the horizon days immediately after last. Values
// are neither rounded nor clamped unless clamp is set, in which case negative
// predictions become 0.
func Project(model *Polynomial, last time.Time, horizon int, clamp bool) (ProjectionSet, error) {
	if horizon < 0 {
		return ProjectionSet{}, fmt.Errorf("%w: %d", ErrInvalidHorizon, horizon)
	}
	if model == nil {
		return ProjectionSet{}, fmt.Errorf("project: nil model")
	}
	if last.IsZero() {
		return ProjectionSet{}, fmt.Errorf("project: no observed dates")
	}

	points := make([]ProjectedDeaths, horizon)
	start := Day(last)
	for i := range points {
		d := start.AddDate(0, 0, i+1)
		v := model.Predict(d)
		if clamp {
			v = math.Max(v, 0)
		}
		points[i] = ProjectedDeaths{Date: d, Deaths: v}
	}
	return ProjectionSet{Points: points}, nil
}
