package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/go-scripts/benchscrape/internal/config"
	"github.com/go-scripts/benchscrape/internal/crawler"
	"github.com/go-scripts/benchscrape/internal/extract"
	"github.com/go-scripts/benchscrape/internal/fetch"
	"github.com/go-scripts/benchscrape/internal/pagestore"
	"github.com/go-scripts/benchscrape/internal/progress"
	"github.com/go-scripts/benchscrape/internal/writer"
	"github.com/go-scripts/benchscrape/ui"
)

func ledgerSets(pipeline string) []string {
	if pipeline == config.HuggingFace {
		return progress.HfSets()
	}
	return progress.PwcSets()
}

func pipelineTitle(pipeline string) string {
	if pipeline == config.HuggingFace {
		return "Hugging Face datasets"
	}
	return "Papers With Code datasets"
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// CrawlCmd downloads the pages of one catalog
type CrawlCmd struct {
	Pipeline  string    `arg:"" enum:"pwc,hf" help:"Pipeline to run: pwc or hf."`
	Overrides Overrides `embed:""`
}

type runFunc func(ctx context.Context, observer crawler.Observer) (crawler.Stats, error)

func (c *CrawlCmd) Run(g *Globals) error {
	cfg, level, err := g.load(c.Pipeline, c.Overrides)
	if err != nil {
		return err
	}
	store, err := pagestore.NewDiskStore(cfg.OutputDirectory)
	if err != nil {
		return err
	}
	out, closeLog, err := g.logOutput(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(out, level)

	ledger, err := progress.Open(cfg.LedgerFile, ledgerSets(c.Pipeline)...)
	if err != nil {
		return err
	}
	fetcher, err := fetch.New(cfg, logger.WithPrefix("fetch"))
	if err != nil {
		return err
	}
	if b, ok := fetcher.(*fetch.BrowserFetcher); ok {
		defer b.Close()
	}

	logger.Info("Starting crawl", "pipeline", c.Pipeline, "start", cfg.StartURL,
		"store", cfg.OutputDirectory, "ledger", ledger.Path())

	run := func(ctx context.Context, observer crawler.Observer) (crawler.Stats, error) {
		frontier := logger.WithPrefix("frontier")
		if c.Pipeline == config.HuggingFace {
			return crawler.NewHfRunner(cfg, fetcher, store, ledger, frontier, observer).Run(ctx)
		}
		return crawler.NewPwcRunner(cfg, fetcher, store, ledger, frontier, observer).Run(ctx)
	}

	ctx, stop := signalContext()
	defer stop()

	stats, err := g.observe(ctx, pipelineTitle(c.Pipeline), run)
	printCrawlStats(os.Stdout, c.Pipeline, stats)
	if errors.Is(err, context.Canceled) {
		logger.Warn("Crawl interrupted, progress saved", "ledger", ledger.Path())
		return nil
	}
	return err
}

// observe runs fn with the progress display selected on the command line
func (g *Globals) observe(ctx context.Context, title string, fn runFunc) (crawler.Stats, error) {
	switch g.Progress {
	case "tui":
		return runDashboard(ctx, title, fn)
	case "spinner":
		s := newSpinnerObserver(os.Stderr, title)
		s.Start()
		defer s.Stop()
		return fn(ctx, s.Observe)
	default:
		return fn(ctx, nil)
	}
}

func runDashboard(ctx context.Context, title string, fn runFunc) (crawler.Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewDashboard(title, cancel), tea.WithAltScreen())

	type result struct {
		stats crawler.Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := fn(ctx, func(e crawler.Event) { p.Send(ui.EventMsg(e)) })
		p.Send(ui.DoneMsg{Stats: stats, Err: err})
		done <- result{stats, err}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return crawler.Stats{}, fmt.Errorf("run dashboard: %w", err)
	}
	// The dashboard only quits once the run is over
	res := <-done
	return res.stats, res.err
}

// ExtractCmd turns stored pages into a table
type ExtractCmd struct {
	Pipeline  string    `arg:"" enum:"pwc,hf" help:"Pipeline to run: pwc or hf."`
	Overrides Overrides `embed:""`
}

func (c *ExtractCmd) Run(g *Globals) (err error) {
	cfg, level, err := g.load(c.Pipeline, c.Overrides)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, level).WithPrefix("extract")

	store, err := pagestore.NewDiskStore(cfg.OutputDirectory)
	if err != nil {
		return err
	}

	var ex extract.Extractor = extract.NewPwcExtractor(cfg.BaseURL, logger)
	if c.Pipeline == config.HuggingFace {
		ex = extract.NewHfExtractor(cfg.BaseURL, logger)
	}

	// Without append mode the table is rewritten, so every page is extracted
	var ledger *progress.Ledger
	if cfg.Append && cfg.ExtractLedgerFile != "" {
		if ledger, err = progress.Open(cfg.ExtractLedgerFile, progress.SetFiles); err != nil {
			return err
		}
	}

	w, err := writer.New(cfg.OutputFilename, ex.Schema(), cfg.Format, cfg.Append)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", cfg.OutputFilename, cerr))
		}
	}()

	opts := extract.Options{MinPageBytes: cfg.MinPageBytes, Ledger: ledger}
	if g.Progress != "none" {
		opts.Tracker = progress.NewTracker(os.Stdout)
	}

	ctx, stop := signalContext()
	defer stop()

	logger.Info("Starting extraction", "pipeline", c.Pipeline, "store", cfg.OutputDirectory, "output", cfg.OutputFilename)
	stats, err := extract.Run(ctx, store, ex, w, opts, logger)
	printExtractStats(os.Stdout, c.Pipeline, cfg.OutputFilename, stats)
	if errors.Is(err, context.Canceled) {
		logger.Warn("Extraction interrupted")
		return nil
	}
	return err
}

// StatusCmd reports what earlier runs recorded
type StatusCmd struct {
	Pipeline  string    `arg:"" enum:"pwc,hf" help:"Pipeline to inspect: pwc or hf."`
	Overrides Overrides `embed:""`
}

func (c *StatusCmd) Run(g *Globals) error {
	cfg, _, err := g.load(c.Pipeline, c.Overrides)
	if err != nil {
		return err
	}
	return writeStatus(os.Stdout, c.Pipeline, cfg)
}

func writeStatus(w io.Writer, pipeline string, cfg config.Config) error {
	ledger, err := progress.Open(cfg.LedgerFile, ledgerSets(pipeline)...)
	if err != nil {
		return err
	}

	t := newTable(w, pipelineTitle(pipeline))
	t.AppendHeader(table.Row{"Source", "Entry", "Count"})
	for _, set := range ledger.Sets() {
		t.AppendRow(table.Row{ledger.Path(), set, ledger.Count(set)})
	}

	if cfg.ExtractLedgerFile != "" {
		extracted, err := progress.Open(cfg.ExtractLedgerFile, progress.SetFiles)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{extracted.Path(), progress.SetFiles, extracted.Count(progress.SetFiles)})
	}

	pages := 0
	if _, err := os.Stat(cfg.OutputDirectory); err == nil {
		store, err := pagestore.NewDiskStore(cfg.OutputDirectory)
		if err != nil {
			return err
		}
		keys, err := store.Keys()
		if err != nil {
			return err
		}
		pages = len(keys)
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{cfg.OutputDirectory, "stored pages", pages})
	t.Render()
	return nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

func printCrawlStats(w io.Writer, pipeline string, s crawler.Stats) {
	t := newTable(w, pipelineTitle(pipeline)+" crawl")
	t.AppendHeader(table.Row{"Discovered", "Fetched", "Stored", "Skipped", "Failed"})
	t.AppendRow(table.Row{s.Discovered, s.Fetched, s.Stored, s.Skipped, s.Failed})
	t.Render()
}

func printExtractStats(w io.Writer, pipeline, output string, s extract.Stats) {
	t := newTable(w, pipelineTitle(pipeline)+" extraction")
	t.AppendHeader(table.Row{"Pages", "Written", "Skipped", "Failed", "Resumed", "Recovered"})
	t.AppendRow(table.Row{s.Pages, s.Written, s.Skipped, s.Failed, s.Resumed, s.Recovered})
	t.SetCaption("Output: %s", output)
	t.Render()
}
