package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nationalFrom builds a national series starting at dayN(1) from f(t), t = 0..n-1.
func nationalFrom(n int, f func(t int64) int64) NationalDailySeries {
	points := make([]DailyDeaths, n)
	for i := range points {
		points[i] = DailyDeaths{Date: dayN(i + 1), Deaths: f(int64(i))}
	}
	return NationalDailySeries{Points: points}
}

func TestFitPolynomial_RecoversExactPolynomial(t *testing.T) {
	quadratic := func(t int64) int64 { return 2 + 3*t + t*t }
	series := nationalFrom(30, quadratic)

	model, err := FitPolynomial(series, FitWindow{}, DefaultDegree)
	require.NoError(t, err)
	assert.Equal(t, 5, model.Degree())
	assert.Equal(t, 30, model.Points())

	for i, p := range series.Points {
		assert.InDelta(t, float64(p.Deaths), model.Predict(p.Date), 1e-6, "day %d", i)
	}

	// Extrapolation follows the same curve.
	future := dayN(35)
	assert.InDelta(t, float64(quadratic(34)), model.Predict(future), 1e-4)
}

func TestFitPolynomial_PredictOrdinalMatchesPredict(t *testing.T) {
	series := nationalFrom(12, func(t int64) int64 { return 10 * t })
	model, err := FitPolynomial(series, FitWindow{}, 1)
	require.NoError(t, err)

	d := dayN(20)
	assert.InDelta(t, model.Predict(d), model.PredictOrdinal(DaysSinceEpoch(d)), 1e-9)
	assert.InDelta(t, 190.0, model.Predict(d), 1e-6)
}

func TestFitPolynomial_InsufficientData(t *testing.T) {
	series := nationalFrom(4, func(t int64) int64 { return t })

	model, err := FitPolynomial(series, FitWindow{}, DefaultDegree)

	assert.Nil(t, model)
	require.ErrorIs(t, err, ErrInsufficientFitData)

	var fe *FitError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 4, fe.Points)
	assert.Equal(t, 6, fe.Required)
}

func TestFitPolynomial_WindowExcludesEarlyDays(t *testing.T) {
	series := nationalFrom(10, func(t int64) int64 { return t * t })

	tests := []struct {
		name    string
		start   int
		wantErr bool
	}{
		{"window keeps six days", 5, false},
		{"window keeps five days", 6, true},
		{"window after last day", 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := FitPolynomial(series, FitWindow{Start: dayN(tt.start)}, DefaultDegree)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInsufficientFitData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 6, model.Points())
			assert.Equal(t, dayN(tt.start), model.Window().Start)
		})
	}
}

func TestFitPolynomial_AlternativeDegree(t *testing.T) {
	series := nationalFrom(3, func(t int64) int64 { return 4 + 2*t })

	model, err := FitPolynomial(series, FitWindow{}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, model.Predict(dayN(5)), 1e-6)

	_, err = FitPolynomial(series, FitWindow{}, 3)
	require.ErrorIs(t, err, ErrInsufficientFitData)
}

func TestFitPolynomial_NegativeDegree(t *testing.T) {
	_, err := FitPolynomial(nationalFrom(10, func(t int64) int64 { return t }), FitWindow{}, -1)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestFitWindow_Contains(t *testing.T) {
	w := FitWindow{Start: dayN(3)}
	assert.False(t, w.Contains(dayN(2)))
	assert.True(t, w.Contains(dayN(3)))
	assert.True(t, w.Contains(dayN(4)))
	assert.True(t, FitWindow{}.Contains(dayN(1)))
}

func TestDaysSinceEpoch(t *testing.T) {
	assert.Equal(t, 0.0, DaysSinceEpoch(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 18353.0, DaysSinceEpoch(baseDay))
}
