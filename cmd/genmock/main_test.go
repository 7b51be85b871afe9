package main

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/covid-mortality-etl/internal/config"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOptions = options{
	start:    time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC),
	days:     60,
	gapRate:  0.1,
	zeroRate: 0.02,
}

func TestGenerate_Deterministic(t *testing.T) {
	a := generate(defaultRegions, testOptions, rand.New(rand.NewPCG(3, 4)))
	b := generate(defaultRegions, testOptions, rand.New(rand.NewPCG(3, 4)))
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
	assert.Less(t, len(a), len(defaultRegions)*testOptions.days)
}

func TestGenerate_RoundTripsThroughLoader(t *testing.T) {
	obs := generate(defaultRegions[:2], testOptions, rand.New(rand.NewPCG(1, 2)))
	path := filepath.Join(t.TempDir(), "daily.csv")
	require.NoError(t, writeCSV(path, obs))

	cols := config.Columns{Date: "date", Region: "state", Cases: "positive", Hospitalizations: "hospitalized", Deaths: "death"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loaded, err := csvsource.NewSource(path, cols, logger).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, obs, loaded)

	report, err := domain.Analyze(context.Background(), loaded, domain.DefaultParams(), nil, logger)
	require.NoError(t, err)
	assert.Len(t, report.National.Points, testOptions.days)
}
