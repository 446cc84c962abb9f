package main

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"

	"github.com/go-scripts/benchscrape/internal/crawler"
)

// spinnerObserver shows the node being worked on and running counters
type spinnerObserver struct {
	spinner *spinner.Spinner
	title   string
	stats   crawler.Stats
	current string
}

func newSpinnerObserver(w io.Writer, title string) *spinnerObserver {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Prefix = " "
	o := &spinnerObserver{spinner: s, title: title}
	s.Suffix = o.suffix()
	return o
}

func (o *spinnerObserver) Start() { o.spinner.Start() }
func (o *spinnerObserver) Stop()  { o.spinner.Stop() }

// Observe is a crawler.Observer. The runners serialise calls, the spinner
// lock guards against its own redraw goroutine.
func (o *spinnerObserver) Observe(e crawler.Event) {
	switch e.Kind {
	case crawler.EventDiscovered:
		o.stats.Discovered++
	case crawler.EventFetched:
		o.stats.Fetched++
		o.current = e.URL
	case crawler.EventStored:
		o.stats.Stored++
		o.current = e.URL
	case crawler.EventSkipped:
		o.stats.Skipped++
	case crawler.EventFailed:
		o.stats.Failed++
	case crawler.EventDone:
		o.current = ""
	}

	o.spinner.Lock()
	o.spinner.Suffix = o.suffix()
	o.spinner.Unlock()
}

func (o *spinnerObserver) suffix() string {
	s := fmt.Sprintf(" %s: %d stored, %d skipped, %d failed, %d discovered",
		o.title, o.stats.Stored, o.stats.Skipped, o.stats.Failed, o.stats.Discovered)
	if o.current != "" {
		s += " | " + o.current
	}
	return s
}
