// Package fetch retrieves page bodies over plain HTTP or through a headless browser.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"

	"github.com/go-scripts/benchscrape/internal/config"
)

var (
	// ErrNotFound marks a resource the server reports as missing.
	// It is a definitive answer and is never retried.
	ErrNotFound = errors.New("resource not found")
	// ErrEmptyBody marks a successful response without content
	ErrEmptyBody = errors.New("empty response body")
)

// Fetcher returns the body of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// New returns the fetcher selected by the configuration
func New(cfg config.Config, logger *log.Logger) (Fetcher, error) {
	if cfg.RenderJS {
		return NewBrowserFetcher(cfg, logger)
	}
	return NewHTTPFetcher(cfg, logger), nil
}

// HTTPFetcher fetches pages with a browser-like header set and a fixed
// number of attempts, sleeping linearly longer between attempts.
type HTTPFetcher struct {
	client     *resty.Client
	maxRetries int
	retryDelay time.Duration
	logger     *log.Logger
	wait       func(ctx context.Context, d time.Duration) error
}

// NewHTTPFetcher creates an HTTPFetcher from the pipeline configuration
func NewHTTPFetcher(cfg config.Config, logger *log.Logger) *HTTPFetcher {
	client := resty.New()
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeaders(cfg.Headers)
	client.SetHeader("User-Agent", cfg.UserAgent)

	return &HTTPFetcher{
		client:     client,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RequestDelay,
		logger:     logger,
		wait:       Sleep,
	}
}

// Fetch downloads url, retrying transport failures and unexpected statuses
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	attempts := max(f.maxRetries, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := f.get(ctx, url)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		f.logger.Warn("Fetch failed, retrying", "url", url, "attempt", attempt, "max_retries", attempts, "err", err)
		if err := f.wait(ctx, f.retryDelay*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}

	if attempts > 1 {
		return nil, fmt.Errorf("fetch %s after %d attempts: %w", url, attempts, lastErr)
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	f.logger.Debug("Downloading", "url", url)

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return nil, ErrNotFound
	case code < 200 || code >= 300:
		return nil, fmt.Errorf("unexpected status %d", code)
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
