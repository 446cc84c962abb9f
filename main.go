package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/benchscrape/internal/config"
)

// Globals are the flags shared by every command
type Globals struct {
	Config   string `help:"Path to the YAML configuration file." default:"benchscrape.yaml" type:"path"`
	LogLevel string `help:"Log level, overrides the configuration file." enum:",debug,info,warn,error" default:""`
	Progress string `help:"Progress display." enum:"spinner,tui,none" default:"spinner"`
}

// Overrides replace single configuration values for one run
type Overrides struct {
	BaseURL         string        `help:"Catalog base URL." name:"base-url"`
	StartURL        string        `help:"First page to crawl." name:"start-url"`
	PageCount       int           `help:"Listing pages to read."`
	WorkerCount     int           `help:"Concurrent downloads." short:"c"`
	RequestDelay    time.Duration `help:"Minimum delay between requests."`
	RequestTimeout  time.Duration `help:"Timeout of one request."`
	MaxRetries      int           `help:"Attempts per page."`
	OutputDirectory string        `help:"Directory holding stored pages." short:"o"`
	OutputFilename  string        `help:"Tabular output file."`
	Format          string        `help:"Tabular output format." enum:",csv,xlsx" default:""`
	Append          bool          `help:"Append to the tabular output and skip pages extracted before."`
	RenderJS        bool          `help:"Render pages with headless Chrome." name:"render-js"`
}

// Apply returns cfg with every set override applied
func (o Overrides) Apply(cfg config.Config) config.Config {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	if o.StartURL != "" {
		cfg.StartURL = o.StartURL
	}
	if o.PageCount > 0 {
		cfg.PageCount = o.PageCount
	}
	if o.WorkerCount > 0 {
		cfg.WorkerCount = o.WorkerCount
	}
	if o.RequestDelay > 0 {
		cfg.RequestDelay = o.RequestDelay
	}
	if o.RequestTimeout > 0 {
		cfg.RequestTimeout = o.RequestTimeout
	}
	if o.MaxRetries > 0 {
		cfg.MaxRetries = o.MaxRetries
	}
	if o.OutputDirectory != "" {
		cfg.OutputDirectory = o.OutputDirectory
	}
	if o.OutputFilename != "" {
		cfg.OutputFilename = o.OutputFilename
	}
	if o.Format != "" {
		cfg.Format = o.Format
	}
	cfg.Append = cfg.Append || o.Append
	cfg.RenderJS = cfg.RenderJS || o.RenderJS
	return cfg
}

// CLI is the command line of benchscrape
type CLI struct {
	Globals

	Crawl   CrawlCmd   `cmd:"" help:"Download catalog pages into the page store."`
	Extract ExtractCmd `cmd:"" help:"Extract one record per stored page into a table."`
	Status  StatusCmd  `cmd:"" help:"Show crawl and extraction progress."`
}

// load resolves the configuration of a pipeline and the log level
func (g *Globals) load(pipeline string, o Overrides) (config.Config, log.Level, error) {
	cfg, fileLevel, err := config.Load(g.Config, pipeline)
	if err != nil {
		return config.Config{}, 0, err
	}
	cfg = o.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, 0, err
	}

	name := g.LogLevel
	if name == "" {
		name = fileLevel
	}
	if name == "" {
		name = "info"
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return config.Config{}, 0, fmt.Errorf("%w: log level %q", config.ErrInvalid, name)
	}
	return cfg, level, nil
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
		Prefix:          "benchscrape",
	})
}

// logOutput returns where logs go: stderr, or a file below the output
// directory while the dashboard owns the terminal
func (g *Globals) logOutput(cfg config.Config) (io.Writer, func(), error) {
	if g.Progress != "tui" {
		return os.Stderr, func() {}, nil
	}
	path := filepath.Join(cfg.OutputDirectory, "benchscrape.log")
	if err := os.MkdirAll(cfg.OutputDirectory, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("benchscrape"),
		kong.Description("Crawl benchmark and dataset catalogs and extract one record per dataset."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		log.Error("Command failed", "err", err)
		os.Exit(1)
	}
}
