package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/go-scripts/benchscrape/internal/types"
)

// CSVWriter writes records as comma separated rows
type CSVWriter struct {
	file   *os.File
	csv    *csv.Writer
	schema types.Schema
	rows   int
	mu     sync.Mutex
}

// NewCSV opens path for writing. Without appendMode the file is truncated.
func NewCSV(path string, schema types.Schema, appendMode bool) (*CSVWriter, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	w := &CSVWriter{file: file, csv: csv.NewWriter(file), schema: schema}
	if info.Size() == 0 {
		if err := w.csv.Write(schema.Columns); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	return w, nil
}

// Write emits one row and flushes it so a crash keeps every finished row
func (w *CSVWriter) Write(r types.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write(r.Row(w.schema)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush row: %w", err)
	}
	w.rows++
	return nil
}

// Rows returns the number of records written by this writer
func (w *CSVWriter) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Close flushes and closes the file
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
