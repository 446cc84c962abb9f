package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// Tracker renders a single progress bar for a batch of pages
type Tracker struct {
	bar       progress.Model
	out       io.Writer
	total     int
	processed int
	failed    int
	mu        sync.Mutex
}

// NewTracker creates a Tracker drawing to out; a nil out disables drawing
func NewTracker(out io.Writer) *Tracker {
	return &Tracker{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		out: out,
	}
}

// SetTotal sets the number of pages to process
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
}

// Done records one finished page; ok=false counts it as failed
func (t *Tracker) Done(name string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	if !ok {
		t.failed++
	}

	if t.out != nil && t.total > 0 {
		fmt.Fprintf(t.out, "\r%s %d/%d %s",
			t.bar.ViewAs(t.percentLocked()),
			t.processed,
			t.total,
			name)
	}
}

// Finish terminates the progress line
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.out != nil && t.total > 0 {
		fmt.Fprintln(t.out)
	}
}

// Percent returns the current progress as a fraction in [0, 1]
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percentLocked()
}

func (t *Tracker) percentLocked() float64 {
	if t.total == 0 {
		return 0
	}
	return min(float64(t.processed)/float64(t.total), 1)
}

// Counts returns processed and failed page counts
func (t *Tracker) Counts() (processed, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed, t.failed
}
