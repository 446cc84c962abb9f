package progress

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/benchscrape/internal/types"
)

func TestVisitedSet(t *testing.T) {
	assert.Equal(t, "processed_areas", VisitedSet(types.LevelArea))
	assert.Equal(t, "processed_subtasks", VisitedSet(types.LevelSubtask))
	assert.Equal(t, "processed_datasets", VisitedSet(types.LevelDataset))
}

func TestOpenMissingFileInitialises(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	l, err := Open(path, PwcSets()...)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	for _, s := range PwcSets() {
		assert.Zero(t, l.Count(s))
	}
	assert.NoFileExists(t, path)
}

func TestMarkPersistsAndResumes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.json")

	l, err := Open(path, PwcSets()...)
	require.NoError(t, err)
	require.NoError(t, l.Mark("processed_areas", "https://x/area/a"))
	require.NoError(t, l.Mark("processed_areas", "https://x/area/b"))
	require.NoError(t, l.Mark("processed_areas", "https://x/area/a"))
	require.NoError(t, l.Mark(SetDownloaded, "https://x/dataset/d"))

	reopened, err := Open(path, PwcSets()...)
	require.NoError(t, err)
	assert.True(t, reopened.Has("processed_areas", "https://x/area/a"))
	assert.False(t, reopened.Has("processed_areas", "https://x/area/c"))
	assert.Equal(t, 1, reopened.Count(SetDownloaded))

	// Sets are stored in insertion order without duplicates
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string][]string
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, []string{"https://x/area/a", "https://x/area/b"}, onDisk["processed_areas"])

	// No temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenToleratesOlderFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	legacy := map[string]any{
		"processed_files": []string{"a.html", "b.html"},
		"count":           2,
	}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	l, err := Open(path, SetFiles)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Count(SetFiles))
	assert.Equal(t, []string{SetFiles}, l.Sets())

	l2, err := Open(path, PwcSets()...)
	require.NoError(t, err)
	assert.Zero(t, l2.Count("processed_tasks"))
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestInMemoryLedgerNeverWrites(t *testing.T) {
	l := New(HfSets()...)
	require.NoError(t, l.Mark(SetDownloaded, "https://x"))
	assert.True(t, l.Has(SetDownloaded, "https://x"))
	assert.Empty(t, l.Path())
}

func TestConcurrentMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	l, err := Open(path, HfSets()...)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Mark(SetDownloaded, "https://x/"+string(rune('a'+i))))
		}(i)
	}
	wg.Wait()

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 20, reopened.Count(SetDownloaded))
}

func TestTracker(t *testing.T) {
	var out bytes.Buffer
	tr := NewTracker(&out)
	tr.SetTotal(4)

	tr.Done("a.html", true)
	tr.Done("b.html", false)
	assert.InDelta(t, 0.5, tr.Percent(), 0.001)

	processed, failed := tr.Counts()
	assert.Equal(t, 2, processed)
	assert.Equal(t, 1, failed)
	assert.Contains(t, out.String(), "2/4 b.html")

	tr.Finish()
	assert.True(t, bytes.HasSuffix(out.Bytes(), []byte("\n")))
}

func TestTrackerWithoutTotal(t *testing.T) {
	tr := NewTracker(nil)
	tr.Done("a", true)
	assert.Zero(t, tr.Percent())
}
