package crawler

import (
	"sync"

	"github.com/go-scripts/benchscrape/internal/types"
)

// EventKind identifies what happened to a node
type EventKind int

const (
	EventDiscovered EventKind = iota
	EventFetched
	EventStored
	EventSkipped
	EventFailed
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventDiscovered:
		return "discovered"
	case EventFetched:
		return "fetched"
	case EventStored:
		return "stored"
	case EventSkipped:
		return "skipped"
	case EventFailed:
		return "failed"
	case EventDone:
		return "done"
	}
	return "unknown"
}

// Event reports progress of a crawl
type Event struct {
	Kind  EventKind
	Level types.Level
	Name  string
	URL   string
	Key   string
	Err   error
}

// Observer receives the events of a run. Calls are serialised.
type Observer func(Event)

// Stats summarises a run
type Stats struct {
	Discovered int
	Fetched    int
	Stored     int
	Skipped    int
	Failed     int
}

// tally counts events and forwards them to the observer one at a time
type tally struct {
	mu       sync.Mutex
	stats    Stats
	observer Observer
}

func (t *tally) emit(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Kind {
	case EventDiscovered:
		t.stats.Discovered++
	case EventFetched:
		t.stats.Fetched++
	case EventStored:
		t.stats.Stored++
	case EventSkipped:
		t.stats.Skipped++
	case EventFailed:
		t.stats.Failed++
	}
	if t.observer != nil {
		t.observer(e)
	}
}

func (t *tally) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
