// Package csvsource loads observations from a CSV table with one row per
// (date, region).
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/config"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
)

// Accepted date layouts, tried in order.
var dateLayouts = []string{"2006-01-02", "20060102"}

// Source reads observations from a CSV file.
type Source struct {
	path    string
	columns config.Columns
	logger  *slog.Logger
}

// NewSource creates a Source for the file at path using the column names in cols.
func NewSource(path string, cols config.Columns, logger *slog.Logger) *Source {
	return &Source{path: path, columns: cols, logger: logger}
}

// Load reads and parses the whole file.
func (s *Source) Load(ctx context.Context) ([]domain.Observation, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	obs, err := Decode(ctx, f, s.columns, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return obs, nil
}

type columnIndex struct {
	date, region, cases, hosp, deaths int
}

// Decode parses a CSV stream. See DecodeRows for the column rules.
func Decode(ctx context.Context, r io.Reader, cols config.Columns, logger *slog.Logger) ([]domain.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return DecodeRows(ctx, rows, cols, logger)
}

// DecodeRows parses a table whose first row is the header. The header locates
// the configured columns; the date and region columns are required, measure
// columns are optional and read as missing when absent. Rows without a region
// are skipped. Line numbers in errors are 1-based and count the header.
func DecodeRows(ctx context.Context, rows [][]string, cols config.Columns, logger *slog.Logger) ([]domain.Observation, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty input: missing header row")
	}

	idx, err := locate(rows[0], cols)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Observation, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := i + 2

		o, ok, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			logger.Warn("skipping row without region", "line", line)
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func locate(header []string, cols config.Columns) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	find := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}

	idx := columnIndex{
		date:   find(cols.Date),
		region: find(cols.Region),
		cases:  find(cols.Cases),
		hosp:   find(cols.Hospitalizations),
		deaths: find(cols.Deaths),
	}
	if idx.date < 0 {
		return idx, fmt.Errorf("missing date column %q", cols.Date)
	}
	if idx.region < 0 {
		return idx, fmt.Errorf("missing region column %q", cols.Region)
	}
	return idx, nil
}

func parseRow(row []string, idx columnIndex) (domain.Observation, bool, error) {
	region := field(row, idx.region)
	if region == "" {
		return domain.Observation{}, false, nil
	}

	date, err := ParseDate(field(row, idx.date))
	if err != nil {
		return domain.Observation{}, false, err
	}

	o := domain.Observation{Date: date, Region: region}
	if o.Cases, err = parseCount(field(row, idx.cases)); err != nil {
		return o, false, fmt.Errorf("cases: %w", err)
	}
	if o.Hospitalizations, err = parseCount(field(row, idx.hosp)); err != nil {
		return o, false, fmt.Errorf("hospitalizations: %w", err)
	}
	if o.Deaths, err = parseCount(field(row, idx.deaths)); err != nil {
		return o, false, fmt.Errorf("deaths: %w", err)
	}
	return o, true, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseDate accepts YYYY-MM-DD and YYYYMMDD.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseCount reads a non-negative cumulative counter. Empty cells and NaN are
// missing; integral floats such as "12.0" are accepted.
func parseCount(s string) (*int64, error) {
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return nil, nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		switch {
		case ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0):
			return nil, fmt.Errorf("invalid count %q", s)
		case f < 0:
			return nil, fmt.Errorf("negative count %q", s)
		case f >= math.MaxInt64:
			return nil, fmt.Errorf("count out of range %q", s)
		}
		v = int64(f)
	}
	if v < 0 {
		return nil, fmt.Errorf("negative count %d", v)
	}
	return &v, nil
}
