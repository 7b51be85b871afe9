// Package xlsx reads observation tables from and writes reports to Excel
// workbooks.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/tables"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// DefaultFileName is the workbook written into the output directory.
const DefaultFileName = "report.xlsx"

// Writer saves every report table as a sheet of one workbook.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a Writer saving to path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "xlsx" }

// Publish builds the workbook and saves it, replacing any existing file.
func (w *Writer) Publish(ctx context.Context, report domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables.Build(report) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeSheet(f, i, t); err != nil {
			return fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}
	if err := writeSummary(f, report); err != nil {
		return fmt.Errorf("sheet summary: %w", err)
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	w.logger.Debug("workbook written", "path", w.path)
	return nil
}

func writeSheet(f *excelize.File, index int, t tables.Table) error {
	// A new file starts with Sheet1, which becomes the first table.
	if index == 0 {
		if err := f.SetSheetName("Sheet1", t.Name); err != nil {
			return err
		}
	} else if _, err := f.NewSheet(t.Name); err != nil {
		return err
	}

	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return err
		}
	}
	return f.SetPanes(t.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummary(f *excelize.File, r domain.Report) error {
	const sheet = "summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{
		{"generated_at", r.GeneratedAt.Format(time.RFC3339)},
		{"fit_start", r.Params.FitStart.Format(time.DateOnly)},
		{"degree", r.Params.Degree},
		{"horizon", r.Params.Horizon},
		{"zero_policy", r.Params.ZeroPolicy.String()},
		{"monotonicity", r.Params.Monotonicity.String()},
		{"observations", r.Stats.Observations},
		{"regions", r.Stats.Regions},
		{"days", r.Stats.Days},
		{"filled_cells", r.Stats.FilledCells},
		{"empty_regions", r.Stats.EmptyRegions},
		{"fit_error", r.FitError},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
