package csvexport

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(n int) time.Time {
	return time.Date(2020, time.April, n, 0, 0, 0, 0, time.UTC)
}

func testReport() domain.Report {
	return domain.Report{
		National: domain.NationalDailySeries{Points: []domain.DailyDeaths{
			{Date: day(1), Deaths: 12},
			{Date: day(2), Deaths: 15},
		}},
		Projection: &domain.ProjectionSet{Points: []domain.ProjectedDeaths{{Date: day(3), Deaths: 16.25}}},
		CFR: domain.CFRResult{Defined: []domain.RegionCFR{
			{Region: "AK", MaxDeaths: 1, MaxCases: 50, CFR: 0.02},
			{Region: "NY", MaxDeaths: 27, MaxCases: 300, CFR: 0.09},
		}},
		Choropleth: []domain.ChoroplethEntry{{Region: "NY", CFR: 0.09, Boundary: &domain.Boundary{
			Region:  "NY",
			Polygon: [][2]float64{{-79.5, 40.5}, {-71.8, 40.5}, {-71.8, 45}, {-79.5, 40.5}},
			Center:  [2]float64{-75.5, 42.9},
		}}},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriter_Publish(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "report")
	w := NewWriter(dir, discardLogger())

	require.NoError(t, w.Publish(context.Background(), testReport()))

	for _, name := range []string{"national_daily", "national_totals", "cfr", "choropleth", "anomalies", "region_cumulative"} {
		assert.FileExists(t, filepath.Join(dir, name+".csv"))
	}

	assert.Equal(t, [][]string{
		{"date", "deaths", "source"},
		{"2020-04-01", "12", "observed"},
		{"2020-04-02", "15", "observed"},
		{"2020-04-03", "16.25", "projected"},
	}, readCSV(t, filepath.Join(dir, "national_daily.csv")))

	assert.Equal(t, [][]string{
		{"region", "max_deaths", "max_cases", "cfr"},
		{"AK", "1", "50", "0.02"},
		{"NY", "27", "300", "0.09"},
	}, readCSV(t, filepath.Join(dir, "cfr.csv")))

	assert.Equal(t, [][]string{
		{"region", "cfr", "lon", "lat", "geometry"},
		{"NY", "0.09", "-75.5", "42.9", `{"type":"Polygon","coordinates":[[[-79.5,40.5],[-71.8,40.5],[-71.8,45],[-79.5,40.5]]]}`},
	}, readCSV(t, filepath.Join(dir, "choropleth.csv")))

	assert.Equal(t, [][]string{{"region", "date", "previous", "current"}}, readCSV(t, filepath.Join(dir, "anomalies.csv")))
}

func TestWriter_PublishOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, discardLogger())

	require.NoError(t, w.Publish(context.Background(), testReport()))
	r := testReport()
	r.Projection = nil
	require.NoError(t, w.Publish(context.Background(), r))

	assert.Len(t, readCSV(t, filepath.Join(dir, "national_daily.csv")), 3)
}

func TestWriter_WithBOM(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, discardLogger(), WithBOM())

	require.NoError(t, w.Publish(context.Background(), testReport()))

	data, err := os.ReadFile(filepath.Join(dir, "cfr.csv"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
}

func TestWriter_Name(t *testing.T) {
	assert.Equal(t, "csv", NewWriter(t.TempDir(), discardLogger()).Name())
}
