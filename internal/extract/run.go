package extract

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/benchscrape/internal/pagestore"
	"github.com/go-scripts/benchscrape/internal/progress"
	"github.com/go-scripts/benchscrape/internal/types"
	"github.com/go-scripts/benchscrape/internal/writer"
)

// Extractor turns one page into one record of its schema
type Extractor interface {
	Schema() types.Schema
	// ID identifies the resource of a page; pages sharing an ID are
	// extracted once
	ID(p *Page) string
	// Accept reports whether the page describes a resource at all
	Accept(p *Page) (ok bool, reason string)
	// Extract fills r, which holds every schema column
	Extract(p *Page, r types.Record)
}

// Options tune a Run
type Options struct {
	// MinPageBytes skips smaller pages, which are usually error pages
	MinPageBytes int
	// Ledger, when set, skips keys recorded in progress.SetFiles and
	// records every key handled
	Ledger  *progress.Ledger
	Tracker *progress.Tracker
}

// Stats summarises a Run
type Stats struct {
	Pages     int
	Written   int
	Skipped   int
	Failed    int
	Resumed   int
	Recovered int
}

// Safe runs ex over p, recovering from panics. The record keeps every field
// resolved before a panic; recovered reports whether one happened.
func Safe(ex Extractor, p *Page, logger *log.Logger) (r types.Record, recovered bool) {
	r = types.NewRecord(ex.Schema())
	defer func() {
		if v := recover(); v != nil {
			logger.Error("Extraction failed, keeping partial record",
				"page", p.Key, "panic", v, "stack", string(debug.Stack()))
			recovered = true
		}
	}()
	ex.Extract(p, r)
	return r, false
}

// Run extracts every page of store in key order and writes one row per
// accepted page
func Run(ctx context.Context, store pagestore.Store, ex Extractor, w writer.Writer, opts Options, logger *log.Logger) (Stats, error) {
	var stats Stats

	keys, err := store.Keys()
	if err != nil {
		return stats, err
	}
	logger.Info("Found pages", "count", len(keys))
	if opts.Tracker != nil {
		opts.Tracker.SetTotal(len(keys))
		defer opts.Tracker.Finish()
	}

	seen := make(map[string]bool)
	done := func(key string, ok bool) error {
		if opts.Tracker != nil {
			opts.Tracker.Done(key, ok)
		}
		if opts.Ledger == nil {
			return nil
		}
		if err := opts.Ledger.Mark(progress.SetFiles, key); err != nil {
			return fmt.Errorf("save extraction progress: %w", err)
		}
		return nil
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Pages++

		if opts.Ledger != nil && opts.Ledger.Has(progress.SetFiles, key) {
			logger.Debug("Skipping already processed page", "page", key)
			stats.Resumed++
			if opts.Tracker != nil {
				opts.Tracker.Done(key, true)
			}
			continue
		}

		body, err := store.Get(key)
		if err != nil {
			// Not marked so the page is retried next run
			logger.Error("Failed to read page", "page", key, "err", err)
			stats.Failed++
			if opts.Tracker != nil {
				opts.Tracker.Done(key, false)
			}
			continue
		}

		if len(body) < opts.MinPageBytes {
			logger.Warn("Page too small, probably an error page", "page", key, "bytes", len(body))
			stats.Skipped++
			if err := done(key, true); err != nil {
				return stats, err
			}
			continue
		}

		page, err := NewPage(key, body)
		if err != nil {
			logger.Error("Failed to parse page", "page", key, "err", err)
			stats.Failed++
			if err := done(key, false); err != nil {
				return stats, err
			}
			continue
		}

		if ok, reason := ex.Accept(page); !ok {
			logger.Info("Skipping page", "page", key, "reason", reason)
			stats.Skipped++
			if err := done(key, true); err != nil {
				return stats, err
			}
			continue
		}

		id := ex.ID(page)
		if seen[id] {
			logger.Info("Skipping duplicate resource", "page", key, "id", id)
			stats.Skipped++
			if err := done(key, true); err != nil {
				return stats, err
			}
			continue
		}
		seen[id] = true

		record, recovered := Safe(ex, page, logger)
		if recovered {
			stats.Recovered++
		}
		if err := w.Write(record); err != nil {
			return stats, err
		}
		stats.Written++
		if err := done(key, !recovered); err != nil {
			return stats, err
		}
	}

	logger.Info("Extraction finished",
		"pages", stats.Pages, "written", stats.Written, "skipped", stats.Skipped,
		"failed", stats.Failed, "resumed", stats.Resumed)
	return stats, nil
}
