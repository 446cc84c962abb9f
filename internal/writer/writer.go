// Package writer serialises extracted records into tabular files with a
// fixed column header.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-scripts/benchscrape/internal/config"
	"github.com/go-scripts/benchscrape/internal/types"
)

// Writer emits records as rows. Every row carries exactly the schema's
// columns, unresolved fields as "".
type Writer interface {
	Write(types.Record) error
	Close() error
}

// New creates the writer for format at path, creating parent directories.
// In append mode existing rows are kept and the header is only written to a
// new or empty file.
func New(path string, schema types.Schema, format string, appendMode bool) (Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	switch format {
	case config.FormatCSV, "":
		return NewCSV(path, schema, appendMode)
	case config.FormatXLSX:
		return NewXLSX(path, schema, appendMode)
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", config.ErrInvalid, format)
	}
}
