package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"github.com/go-scripts/benchscrape/internal/config"
)

// BrowserFetcher renders pages in headless Chrome before returning their HTML.
// Use it when listing pages build their links client-side.
type BrowserFetcher struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
	wait          time.Duration
	logger        *log.Logger
}

// NewBrowserFetcher starts a shared browser for all fetches
func NewBrowserFetcher(cfg config.Config, logger *log.Logger) (*BrowserFetcher, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so a missing Chrome fails at startup.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &BrowserFetcher{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       cfg.RequestTimeout,
		wait:          cfg.RenderWait,
		logger:        logger,
	}, nil
}

// Close shuts the browser down
func (b *BrowserFetcher) Close() {
	b.browserCancel()
	b.allocCancel()
}

// Fetch opens url in a new tab and returns the rendered document
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(tabCtx, b.timeout)
	defer timeoutCancel()

	// Tie the tab to the caller's context as well.
	stop := context.AfterFunc(ctx, timeoutCancel)
	defer stop()

	b.logger.Debug("Rendering", "url", url)

	resp, err := chromedp.RunResponse(timeoutCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if resp != nil && resp.Status == http.StatusNotFound {
		return nil, ErrNotFound
	}

	tasks := []chromedp.Action{chromedp.WaitReady("body")}
	if b.wait > 0 {
		tasks = append(tasks, chromedp.Sleep(b.wait))
	}

	var pageHTML string
	tasks = append(tasks, chromedp.OuterHTML("html", &pageHTML))
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}

	if pageHTML == "" {
		return nil, ErrEmptyBody
	}
	return []byte(pageHTML), nil
}
