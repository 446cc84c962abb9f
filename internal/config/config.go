// Package config holds the settings of the two scraping pipelines.
//
// Defaults mirror the constants the scrapers were first tuned with; a YAML file
// can override any of them per pipeline and command-line flags override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Pipeline names
const (
	PapersWithCode = "pwc"
	HuggingFace    = "hf"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrInvalid is returned by Validate for unusable settings
var ErrInvalid = errors.New("invalid configuration")

var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Cache-Control":             "max-age=0",
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds the settings of one pipeline
type Config struct {
	Pipeline          string            `yaml:"-"`
	BaseURL           string            `yaml:"base_url"`
	StartURL          string            `yaml:"start_url"`
	PageCount         int               `yaml:"page_count"`
	WorkerCount       int               `yaml:"worker_count"`
	RequestDelay      time.Duration     `yaml:"request_delay"`
	RequestJitter     time.Duration     `yaml:"request_jitter"`
	DownloadDelay     time.Duration     `yaml:"download_delay"`
	RequestTimeout    time.Duration     `yaml:"request_timeout"`
	MaxRetries        int               `yaml:"max_retries"`
	OutputDirectory   string            `yaml:"output_directory"`
	OutputFilename    string            `yaml:"output_filename"`
	LedgerFile        string            `yaml:"ledger_file"`
	ExtractLedgerFile string            `yaml:"extract_ledger_file"`
	UserAgent         string            `yaml:"user_agent"`
	Headers           map[string]string `yaml:"headers"`
	RenderJS          bool              `yaml:"render_js"`
	RenderWait        time.Duration     `yaml:"render_wait"`
	Format            string            `yaml:"format"`
	Append            bool              `yaml:"append"`
	NameLimit         int               `yaml:"name_limit"`
	DirNameLimit      int               `yaml:"dir_name_limit"`
	MinPageBytes      int               `yaml:"min_page_bytes"`
}

// File is the on-disk configuration document
type File struct {
	LogLevel       string `yaml:"log_level"`
	PapersWithCode Config `yaml:"paperswithcode"`
	HuggingFace    Config `yaml:"huggingface"`
}

// Default returns the built-in settings for a pipeline
func Default(pipeline string) (Config, error) {
	switch pipeline {
	case PapersWithCode:
		return Config{
			Pipeline:          PapersWithCode,
			BaseURL:           "https://paperswithcode.com",
			StartURL:          "https://paperswithcode.com/sota",
			WorkerCount:       1,
			RequestDelay:      time.Second,
			RequestJitter:     2 * time.Second,
			RequestTimeout:    30 * time.Second,
			MaxRetries:        1,
			OutputDirectory:   "paperswithcode",
			OutputFilename:    "csv/paperswithcode_datasets.csv",
			LedgerFile:        "pwc_scraper_progress.json",
			ExtractLedgerFile: "pwc_extraction_progress.json",
			Format:            FormatCSV,
			NameLimit:         50,
			DirNameLimit:      30,
		}.WithDefaults(), nil
	case HuggingFace:
		return Config{
			Pipeline:        HuggingFace,
			BaseURL:         "https://huggingface.co",
			StartURL:        "https://huggingface.co/datasets",
			PageCount:       20,
			WorkerCount:     10,
			RequestDelay:    time.Second,
			RequestTimeout:  30 * time.Second,
			MaxRetries:      3,
			OutputDirectory: "huggingface",
			OutputFilename:  "csv/huggingface_datasets_comprehensive.csv",
			LedgerFile:      "hf_scraper_progress.json",
			Format:          FormatCSV,
			NameLimit:       100,
			MinPageBytes:    5000,
		}.WithDefaults(), nil
	}
	return Config{}, fmt.Errorf("%w: unknown pipeline %q", ErrInvalid, pipeline)
}

// WithDefaults returns a copy with zero-value fields filled in
func (c Config) WithDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Headers == nil {
		c.Headers = make(map[string]string, len(defaultHeaders))
		for k, v := range defaultHeaders {
			c.Headers[k] = v
		}
	}
	if c.Format == "" {
		c.Format = FormatCSV
	}
	if c.NameLimit <= 0 {
		c.NameLimit = 50
	}
	if c.DirNameLimit <= 0 {
		c.DirNameLimit = 30
	}
	return c
}

// Validate reports settings the pipelines cannot run with
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "" || c.StartURL == "":
		return fmt.Errorf("%w: base_url and start_url are required", ErrInvalid)
	case c.OutputDirectory == "":
		return fmt.Errorf("%w: output_directory is required", ErrInvalid)
	case c.OutputFilename == "":
		return fmt.Errorf("%w: output_filename is required", ErrInvalid)
	case c.PageCount < 0 || c.WorkerCount < 0 || c.MaxRetries < 0:
		return fmt.Errorf("%w: counts must not be negative", ErrInvalid)
	case c.RequestDelay < 0 || c.RequestJitter < 0 || c.DownloadDelay < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrInvalid)
	case c.Format != FormatCSV && c.Format != FormatXLSX:
		return fmt.Errorf("%w: unknown format %q", ErrInvalid, c.Format)
	}
	return nil
}

// Load reads the configuration for pipeline, layering path over the defaults.
// A missing file is not an error.
func Load(path, pipeline string) (Config, string, error) {
	cfg, err := Default(pipeline)
	if err != nil {
		return Config{}, "", err
	}
	if path == "" {
		return cfg, "", nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, "", nil
	}
	if err != nil {
		return Config{}, "", fmt.Errorf("read config %s: %w", path, err)
	}

	// Decode over the defaults so the file only needs the keys it changes.
	file := File{PapersWithCode: cfg, HuggingFace: cfg}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, "", fmt.Errorf("parse config %s: %w", path, err)
	}

	out := file.PapersWithCode
	if pipeline == HuggingFace {
		out = file.HuggingFace
	}
	out.Pipeline = pipeline
	return out.WithDefaults(), file.LogLevel, nil
}
