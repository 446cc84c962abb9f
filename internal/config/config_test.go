package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	pwc, err := Default(PapersWithCode)
	require.NoError(t, err)
	assert.Equal(t, "https://paperswithcode.com/sota", pwc.StartURL)
	assert.Equal(t, 1, pwc.MaxRetries)
	assert.Equal(t, 30*time.Second, pwc.RequestTimeout)
	assert.Equal(t, "paperswithcode", pwc.OutputDirectory)
	assert.NotEmpty(t, pwc.Headers["Accept"])
	assert.NoError(t, pwc.Validate())

	hf, err := Default(HuggingFace)
	require.NoError(t, err)
	assert.Equal(t, 20, hf.PageCount)
	assert.Equal(t, 10, hf.WorkerCount)
	assert.Equal(t, 3, hf.MaxRetries)
	assert.Equal(t, 5000, hf.MinPageBytes)
	assert.NoError(t, hf.Validate())

	_, err = Default("nope")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	base, err := Default(PapersWithCode)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing output directory", func(c *Config) { c.OutputDirectory = "" }},
		{"missing output file", func(c *Config) { c.OutputFilename = "" }},
		{"negative workers", func(c *Config) { c.WorkerCount = -1 }},
		{"negative delay", func(c *Config) { c.RequestDelay = -time.Second }},
		{"unknown format", func(c *Config) { c.Format = "parquet" }},
		{"missing start url", func(c *Config) { c.StartURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
log_level: debug
huggingface:
  page_count: 2
  worker_count: 4
  request_delay: 250ms
  format: xlsx
  headers:
    X-Test: yes
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, level, err := Load(path, HuggingFace)
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
	assert.Equal(t, HuggingFace, cfg.Pipeline)
	assert.Equal(t, 2, cfg.PageCount)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestDelay)
	assert.Equal(t, FormatXLSX, cfg.Format)
	assert.Equal(t, "yes", cfg.Headers["X-Test"])
	// Untouched keys keep their defaults.
	assert.Equal(t, "huggingface", cfg.OutputDirectory)
	assert.Equal(t, 3, cfg.MaxRetries)

	pwc, _, err := Load(path, PapersWithCode)
	require.NoError(t, err)
	assert.Equal(t, "paperswithcode", pwc.OutputDirectory)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, level, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), PapersWithCode)
	require.NoError(t, err)
	assert.Empty(t, level)
	assert.Equal(t, "https://paperswithcode.com", cfg.BaseURL)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("huggingface: [unclosed"), 0o644))

	_, _, err := Load(path, HuggingFace)
	assert.Error(t, err)
}
