package writer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/go-scripts/benchscrape/internal/types"
)

const sheetName = "Datasets"

// XLSXWriter buffers records in a workbook that is saved on Close
type XLSXWriter struct {
	file   *excelize.File
	path   string
	sheet  string
	schema types.Schema
	next   int
	mu     sync.Mutex
}

// NewXLSX creates a workbook at path. In appendMode an existing workbook is
// opened and rows are added after its last row.
func NewXLSX(path string, schema types.Schema, appendMode bool) (*XLSXWriter, error) {
	if appendMode {
		if _, err := os.Stat(path); err == nil {
			return openXLSX(path, schema)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	w := &XLSXWriter{file: f, path: path, sheet: sheetName, schema: schema, next: 1}
	if err := w.writeRow(schema.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return w, nil
}

func openXLSX(path string, schema types.Schema) (*XLSXWriter, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	w := &XLSXWriter{file: f, path: path, sheet: sheet, schema: schema, next: len(rows) + 1}
	if len(rows) == 0 {
		if err := w.writeRow(schema.Columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	return w, nil
}

func (w *XLSXWriter) writeRow(values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &row); err != nil {
		return err
	}
	w.next++
	return nil
}

// Write appends one row to the sheet
func (w *XLSXWriter) Write(r types.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeRow(r.Row(w.schema)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// Close saves the workbook
func (w *XLSXWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.SaveAs(w.path); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to save %s: %w", w.path, err)
	}
	return w.file.Close()
}
