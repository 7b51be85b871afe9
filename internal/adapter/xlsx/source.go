package xlsx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/covid-mortality-etl/internal/config"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Source reads observations from the first sheet of a workbook.
type Source struct {
	path    string
	columns config.Columns
	logger  *slog.Logger
}

// NewSource creates a Source for the workbook at path.
func NewSource(path string, cols config.Columns, logger *slog.Logger) *Source {
	return &Source{path: path, columns: cols, logger: logger}
}

// Load reads the first sheet and decodes it with the same column rules as
// CSV input.
func (s *Source) Load(ctx context.Context) ([]domain.Observation, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", s.path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: read sheet %s: %w", s.path, sheets[0], err)
	}

	obs, err := csvsource.DecodeRows(ctx, rows, s.columns, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return obs, nil
}
