// Package progress keeps the durable record of crawl and extraction work.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-scripts/benchscrape/internal/types"
)

// Well-known ledger sets
const (
	SetDownloaded = "downloaded_datasets"
	SetFiles      = "processed_files"
)

// VisitedSet returns the ledger set recording visited nodes of a level,
// e.g. processed_areas
func VisitedSet(level types.Level) string {
	return "processed_" + level.Plural()
}

// Ledger is a set of append-only URL lists persisted as one JSON document.
// Every Mark rewrites the whole file through a temp file and a rename so a
// crash leaves either the old or the new ledger on disk, never a torn one.
type Ledger struct {
	path  string
	sets  map[string][]string
	index map[string]map[string]bool
	mu    sync.Mutex
}

// New returns an empty ledger that is never written to disk
func New(sets ...string) *Ledger {
	l := &Ledger{
		sets:  make(map[string][]string),
		index: make(map[string]map[string]bool),
	}
	for _, s := range sets {
		l.ensure(s)
	}
	return l
}

// Open loads the ledger at path, or initialises an empty one when the file
// does not exist yet. The named sets are always present, even when an older
// file lacks them.
func Open(path string, sets ...string) (*Ledger, error) {
	l := New(sets...)
	l.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}

	for name, msg := range raw {
		var urls []string
		// Non-list entries such as a stored count are ignored
		if err := json.Unmarshal(msg, &urls); err != nil {
			continue
		}
		l.ensure(name)
		for _, u := range urls {
			l.add(name, u)
		}
	}
	return l, nil
}

// PwcSets lists the sets of the benchmark-catalog crawl ledger
func PwcSets() []string {
	return []string{
		VisitedSet(types.LevelArea),
		VisitedSet(types.LevelSubtask),
		VisitedSet(types.LevelTask),
		VisitedSet(types.LevelDataset),
		SetDownloaded,
	}
}

// HfSets lists the sets of the dataset-catalog crawl ledger
func HfSets() []string {
	return []string{VisitedSet(types.LevelDataset), SetDownloaded}
}

func (l *Ledger) ensure(set string) {
	if _, ok := l.index[set]; !ok {
		l.index[set] = make(map[string]bool)
		l.sets[set] = make([]string, 0)
	}
}

func (l *Ledger) add(set, url string) bool {
	if l.index[set][url] {
		return false
	}
	l.index[set][url] = true
	l.sets[set] = append(l.sets[set], url)
	return true
}

// Path returns the backing file, empty for in-memory ledgers
func (l *Ledger) Path() string {
	return l.path
}

// Has reports whether url is recorded in set
func (l *Ledger) Has(set, url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index[set][url]
}

// Mark records url in set and persists the ledger. Marking a URL twice is
// a no-op.
func (l *Ledger) Mark(set, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensure(set)
	if !l.add(set, url) {
		return nil
	}
	return l.saveLocked()
}

// Count returns the number of URLs in set
func (l *Ledger) Count(set string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sets[set])
}

// Sets returns the set names in lexical order
func (l *Ledger) Sets() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.sets))
	for name := range l.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Ledger) saveLocked() error {
	if l.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(l.sets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
