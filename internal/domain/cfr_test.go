package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCFR(t *testing.T) {
	obs := []Observation{
		// Maxima come from different days.
		{Date: dayN(1), Region: "NY", Cases: count(200), Deaths: count(5)},
		{Date: dayN(2), Region: "NY", Cases: count(150), Deaths: count(10)},
		{Date: dayN(1), Region: "VT", Cases: count(0), Deaths: count(0)},
		{Date: dayN(2), Region: "WY", Deaths: count(1)},
		{Date: dayN(1), Region: "CA", Cases: count(40)},
	}

	res := ComputeCFR(NewGrid(obs))

	require.Len(t, res.Defined, 2)
	assert.Equal(t, RegionCFR{Region: "CA", MaxDeaths: 0, MaxCases: 40, CFR: 0}, res.Defined[0])
	assert.Equal(t, RegionCFR{Region: "NY", MaxDeaths: 10, MaxCases: 200, CFR: 0.05}, res.Defined[1])
	assert.Equal(t, []string{"VT", "WY"}, res.Undefined)
}

func TestSummarizeNational(t *testing.T) {
	obs := []Observation{
		{Date: dayN(1), Region: "A", Cases: count(10), Hospitalizations: count(2), Deaths: count(1)},
		{Date: dayN(3), Region: "A", Cases: count(30), Deaths: count(3)},
		{Date: dayN(2), Region: "B", Cases: count(5), Hospitalizations: count(1)},
	}

	totals := SummarizeNational(NewGrid(obs), ZeroAsMissing)

	require.Len(t, totals, 3)
	assert.Equal(t, NationalTotals{Date: dayN(1), Cases: 10, Hospitalizations: 2, Deaths: 1}, totals[0])
	assert.Equal(t, NationalTotals{Date: dayN(2), Cases: 15, Hospitalizations: 3, Deaths: 1}, totals[1])
	assert.Equal(t, NationalTotals{Date: dayN(3), Cases: 35, Hospitalizations: 3, Deaths: 3}, totals[2])
}

// --- mock resolver ---

type mockResolver struct {
	boundaries map[string]*Boundary
	err        error
	calls      []string
}

func (m *mockResolver) Boundary(_ context.Context, region string) (*Boundary, error) {
	m.calls = append(m.calls, region)
	if m.err != nil {
		return nil, m.err
	}
	return m.boundaries[region], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildChoropleth(t *testing.T) {
	cfr := CFRResult{
		Defined: []RegionCFR{
			{Region: "Alaska", CFR: 0.01},
			{Region: "New York", CFR: 0.07},
			{Region: "PR", CFR: 0.04},
			{Region: "Texas", CFR: 0.02},
		},
		Undefined: []string{"Guam"},
	}
	ny := &Boundary{Region: "New York", Center: [2]float64{-75.5, 42.9}}

	t.Run("excludes named regions and joins boundaries", func(t *testing.T) {
		res := &mockResolver{boundaries: map[string]*Boundary{"New York": ny}}

		entries := BuildChoropleth(context.Background(), cfr, res, DefaultExcludedRegions, discardLogger())

		require.Len(t, entries, 2)
		assert.Equal(t, "New York", entries[0].Region)
		assert.Equal(t, ny, entries[0].Boundary)
		assert.Equal(t, "Texas", entries[1].Region)
		assert.Nil(t, entries[1].Boundary)
		assert.Equal(t, []string{"New York", "Texas"}, res.calls)
	})

	t.Run("nil resolver", func(t *testing.T) {
		entries := BuildChoropleth(context.Background(), cfr, nil, nil, discardLogger())
		require.Len(t, entries, 4)
		for _, e := range entries {
			assert.Nil(t, e.Boundary)
		}
	})

	t.Run("lookup error degrades gracefully", func(t *testing.T) {
		res := &mockResolver{err: errors.New("rate limited")}

		entries := BuildChoropleth(context.Background(), cfr, res, []string{"alaska", "pr"}, discardLogger())

		require.Len(t, entries, 2)
		assert.Equal(t, 0.07, entries[0].CFR)
		assert.Nil(t, entries[0].Boundary)
	})
}
