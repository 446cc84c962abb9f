package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/go-scripts/benchscrape/internal/config"
	"github.com/go-scripts/benchscrape/internal/types"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSchemas(t *testing.T) {
	assert.Len(t, PwcSchema.Columns, 16)
	assert.Len(t, HfSchema.Columns, 27)
	assert.True(t, HfSchema.Has("num_train_examples"))
	assert.False(t, PwcSchema.Has("num_train_examples"))
}

func TestCSVSchemaStability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csv", "out.csv")

	w, err := New(path, HfSchema, config.FormatCSV, false)
	require.NoError(t, err)

	partial := types.Record{"benchmark_name": "squad", "modality": "Text"}
	extra := types.Record{"benchmark_name": "glue", "not_a_column": "dropped"}
	require.NoError(t, w.Write(partial))
	require.NoError(t, w.Write(extra))
	require.NoError(t, w.Write(types.NewRecord(HfSchema)))
	require.NoError(t, w.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, HfSchema.Columns, rows[0])
	for _, row := range rows {
		assert.Len(t, row, len(HfSchema.Columns))
	}
	assert.Equal(t, "squad", rows[1][0])
	assert.Equal(t, "Text", rows[1][1])
	assert.Equal(t, "", rows[1][2])
	assert.NotContains(t, rows[2], "dropped")
}

func TestCSVOverwriteAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	record := types.Record{"dataset_name": "ImageNet"}

	for range 2 {
		w, err := NewCSV(path, PwcSchema, false)
		require.NoError(t, err)
		require.NoError(t, w.Write(record))
		assert.Equal(t, 1, w.Rows())
		require.NoError(t, w.Close())
	}
	assert.Len(t, readCSV(t, path), 2)

	w, err := NewCSV(path, PwcSchema, true)
	require.NoError(t, err)
	require.NoError(t, w.Write(types.Record{"dataset_name": "COCO"}))
	require.NoError(t, w.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "COCO", rows[2][1])
}

func TestCSVAppendToNewFileWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.csv")
	w, err := NewCSV(path, PwcSchema, true)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, PwcSchema.Columns, rows[0])
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlsx", "out.xlsx")

	w, err := New(path, PwcSchema, config.FormatXLSX, false)
	require.NoError(t, err)
	require.NoError(t, w.Write(types.Record{"dataset_name": "ImageNet", "modalities": "Images"}))
	require.NoError(t, w.Close())

	w, err = New(path, PwcSchema, config.FormatXLSX, true)
	require.NoError(t, err)
	require.NoError(t, w.Write(types.Record{"dataset_name": "COCO"}))
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, PwcSchema.Columns, rows[0])
	assert.Equal(t, "ImageNet", rows[1][1])
	assert.Equal(t, "Images", rows[1][5])
	assert.Equal(t, "COCO", rows[2][1])
}

func TestNewUnknownFormat(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "out.json"), PwcSchema, "json", false)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
