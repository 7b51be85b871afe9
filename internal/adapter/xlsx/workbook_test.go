package xlsx

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/config"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(n int) time.Time {
	return time.Date(2020, time.April, n, 0, 0, 0, 0, time.UTC)
}

func TestWriter_Publish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", DefaultFileName)
	w := NewWriter(path, discardLogger())

	report := domain.Report{
		Params: domain.DefaultParams(),
		National: domain.NationalDailySeries{Points: []domain.DailyDeaths{
			{Date: day(1), Deaths: 12},
		}},
		Projection: &domain.ProjectionSet{Points: []domain.ProjectedDeaths{{Date: day(2), Deaths: 13.5}}},
		Choropleth: []domain.ChoroplethEntry{{Region: "WA", CFR: 0.04, Boundary: &domain.Boundary{
			Region:  "WA",
			Polygon: [][2]float64{{-124.8, 45.5}, {-116.9, 45.5}, {-116.9, 49}, {-124.8, 45.5}},
			Center:  [2]float64{-120.5, 47.4},
		}}},
	}
	require.NoError(t, w.Publish(context.Background(), report))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t,
		[]string{"national_daily", "national_totals", "cfr", "choropleth", "anomalies", "region_cumulative", "summary"},
		f.GetSheetList())

	rows, err := f.GetRows("national_daily")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"date", "deaths", "source"},
		{"2020-04-01", "12", "observed"},
		{"2020-04-02", "13.5", "projected"},
	}, rows)

	geometry, err := f.GetCellValue("choropleth", "E2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Polygon","coordinates":[[[-124.8,45.5],[-116.9,45.5],[-116.9,49],[-124.8,45.5]]]}`, geometry)

	degree, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "5", degree)
}

func TestWriter_Name(t *testing.T) {
	assert.Equal(t, "xlsx", NewWriter("report.xlsx", discardLogger()).Name())
}

func writeInputWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSource_Load(t *testing.T) {
	path := writeInputWorkbook(t, [][]any{
		{"date", "state", "positive", "hospitalized", "death"},
		{"20200401", "NY", 83712, nil, 1941},
		{"20200402", "NY", 92381, 20817, 2373},
	})

	cols := config.Columns{Date: "date", Region: "state", Cases: "positive", Hospitalizations: "hospitalized", Deaths: "death"}
	obs, err := NewSource(path, cols, discardLogger()).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, obs, 2)
	assert.Equal(t, day(1), obs[0].Date)
	assert.Nil(t, obs[0].Hospitalizations)
	require.NotNil(t, obs[1].Deaths)
	assert.Equal(t, int64(2373), *obs[1].Deaths)
}

func TestSource_MissingFile(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "nope.xlsx"), config.Columns{}, discardLogger()).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open workbook")
}
