package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFitData means the fit window holds fewer distinct dates
	// than the polynomial has coefficients.
	ErrInsufficientFitData = errors.New("insufficient data to fit")

	// ErrSingularFit means the design matrix could not be solved.
	ErrSingularFit = errors.New("singular fit")

	// ErrMisalignedSeries means region series do not share one date axis.
	ErrMisalignedSeries = errors.New("misaligned series")

	ErrInvalidHorizon = errors.New("invalid projection horizon")
	ErrInvalidParams  = errors.New("invalid analysis params")
)

// FitError describes a fit that was refused for lack of data.
type FitError struct {
	Points   int
	Required int
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s: %d distinct dates in window, need at least %d", ErrInsufficientFitData, e.Points, e.Required)
}

func (e *FitError) Unwrap() error {
	return ErrInsufficientFitData
}
