package domain

import (
	"fmt"
	"time"
)

// DefaultFitStart is the first day admitted into the curve fit. Earlier days
// are sparse single-digit counts that would dominate the low-order terms.
var DefaultFitStart = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

// Params configures one analysis run.
type Params struct {
	FitStart        time.Time          `json:"fit_start,omitempty"`
	Degree          int                `json:"degree"`
	Horizon         int                `json:"horizon"`
	ZeroPolicy      ZeroPolicy         `json:"zero_policy"`
	Monotonicity    MonotonicityPolicy `json:"monotonicity"`
	ClampProjection bool               `json:"clamp_projection"`
	ExcludedRegions []string           `json:"excluded_regions,omitempty"`
}

// DefaultParams reproduces the reference report.
func DefaultParams() Params {
	return Params{
		FitStart:        DefaultFitStart,
		Degree:          DefaultDegree,
		Horizon:         DefaultHorizon,
		ZeroPolicy:      ZeroAsMissing,
		Monotonicity:    PassThrough,
		ExcludedRegions: append([]string(nil), DefaultExcludedRegions...),
	}
}

// Window returns the fit window described by p.
func (p Params) Window() FitWindow {
	return FitWindow{Start: p.FitStart}
}

// Validate rejects params no run could use.
func (p Params) Validate() error {
	if p.Degree < 0 {
		return fmt.Errorf("%w: degree must be >= 0, got %d", ErrInvalidParams, p.Degree)
	}
	if p.Horizon < 0 {
		return fmt.Errorf("%w: horizon must be >= 0, got %d", ErrInvalidParams, p.Horizon)
	}
	return nil
}
