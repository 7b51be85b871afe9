package domain

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// DefaultDegree is the polynomial degree used for the national death curve.
const DefaultDegree = 5

// FitWindow restricts fitting to days on or after Start. A zero Start admits
// the whole series.
type FitWindow struct {
	Start time.Time `json:"start,omitempty"`
}

// Contains reports whether d falls inside the window.
func (w FitWindow) Contains(d time.Time) bool {
	return w.Start.IsZero() || !Day(d).Before(Day(w.Start))
}

// Polynomial is a fitted least-squares polynomial in days since the Unix
// epoch. The predictor is centred and scaled internally; callers only see
// dates and ordinals.
type Polynomial struct {
	coef   []float64 // ascending powers of the scaled predictor
	center float64
	scale  float64
	window FitWindow
	points int
}

// Degree returns the polynomial degree.
func (p *Polynomial) Degree() int { return len(p.coef) - 1 }

// Window returns the window the model was fit over.
func (p *Polynomial) Window() FitWindow { return p.window }

// Points returns how many observations the fit used.
func (p *Polynomial) Points() int { return p.points }

// Predict evaluates the model on a calendar date.
func (p *Polynomial) Predict(d time.Time) float64 {
	return p.PredictOrdinal(DaysSinceEpoch(d))
}

// PredictOrdinal evaluates the model at x days since the Unix epoch.
func (p *Polynomial) PredictOrdinal(x float64) float64 {
	z := (x - p.center) / p.scale
	var y float64
	for i := len(p.coef) - 1; i >= 0; i-- {
		y = y*z + p.coef[i]
	}
	return y
}

// FitPolynomial fits daily deaths against date by ordinary least squares over
// the points inside window. It refuses to fit, rather than lowering the
// degree, when the window holds fewer distinct dates than coefficients.
func FitPolynomial(series NationalDailySeries, window FitWindow, degree int) (*Polynomial, error) {
	if degree < 0 {
		return nil, fmt.Errorf("%w: degree %d", ErrInvalidParams, degree)
	}
	required := degree + 1

	var xs, ys []float64
	distinct := make(map[time.Time]struct{})
	for _, p := range series.Points {
		if !window.Contains(p.Date) {
			continue
		}
		xs = append(xs, DaysSinceEpoch(p.Date))
		ys = append(ys, float64(p.Deaths))
		distinct[Day(p.Date)] = struct{}{}
	}
	if len(distinct) < required {
		return nil, &FitError{Points: len(distinct), Required: required}
	}

	center, scale := normalization(xs)
	design := mat.NewDense(len(xs), required, nil)
	for i, x := range xs {
		z := (x - center) / scale
		v := 1.0
		for j := 0; j < required; j++ {
			design.Set(i, j, v)
			v *= z
		}
	}

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(len(ys), ys)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularFit, err)
	}

	coef := make([]float64, required)
	for j := range coef {
		coef[j] = beta.AtVec(j)
		if math.IsNaN(coef[j]) || math.IsInf(coef[j], 0) {
			return nil, fmt.Errorf("%w: coefficient %d is %v", ErrSingularFit, j, coef[j])
		}
	}

	return &Polynomial{
		coef:   coef,
		center: center,
		scale:  scale,
		window: window,
		points: len(xs),
	}, nil
}

// normalization maps xs onto roughly [-1, 1].
func normalization(xs []float64) (center, scale float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	center = (lo + hi) / 2
	scale = (hi - lo) / 2
	if scale == 0 {
		scale = 1
	}
	return center, scale
}
