// Package csvexport writes report tables as CSV files for downstream
// rendering.
package csvexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/covid-mortality-etl/internal/adapter/tables"
	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
)

// Writer writes one CSV file per report table into a directory.
type Writer struct {
	dir       string
	bomPrefix bool
	logger    *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithBOM prefixes every file with a UTF-8 byte order mark so spreadsheet
// tools detect the encoding.
func WithBOM() Option {
	return func(w *Writer) { w.bomPrefix = true }
}

// NewWriter creates a Writer targeting dir.
func NewWriter(dir string, logger *slog.Logger, opts ...Option) *Writer {
	w := &Writer{dir: dir, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "csv" }

// Publish writes every table of report, replacing existing files.
func (w *Writer) Publish(ctx context.Context, report domain.Report) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, t := range tables.Build(report) {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(w.dir, t.Name+".csv")
		if err := w.writeTable(path, t); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		w.logger.Debug("csv table written", "path", path, "rows", len(t.Rows))
	}
	return nil
}

func (w *Writer) writeTable(path string, t tables.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if w.bomPrefix {
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.Header))
	for i, row := range t.Rows {
		for j, cell := range row {
			record[j] = tables.FormatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
