package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-scripts/benchscrape/internal/config"
	"github.com/go-scripts/benchscrape/internal/fetch"
	"github.com/go-scripts/benchscrape/internal/pagestore"
	"github.com/go-scripts/benchscrape/internal/progress"
	"github.com/go-scripts/benchscrape/internal/queue"
	"github.com/go-scripts/benchscrape/internal/types"
)

// Well-known datasets crawled when the listing yields nothing
var popularDatasets = []string{
	"squad", "glue", "super_glue", "imdb", "wmt16", "cnn_dailymail", "common_voice",
	"xnli", "multi_nli", "sst2", "mnli", "cola", "rte", "wnli", "qnli", "mrpc", "stsb",
	"boolq", "record", "multirc", "wic", "copa", "wsc", "cb", "race", "drop", "newsqa",
	"natural_questions", "triviaqa", "hotpotqa", "squad_v2", "xquad", "mlqa", "tydiqa",
	"piqa", "winogrande", "hellaswag", "commonsense_qa", "arc", "openbookqa", "sciq",
	"ai2_arc", "adversarial_qa", "quoref", "quail", "quartz", "cosmos_qa", "dream",
}

const datasetsPath = "/datasets/"

// datasetLink names a catalog link by its repository path, e.g. openai/gsm8k
func datasetLink(href string) (Link, bool) {
	if !strings.HasPrefix(href, datasetsPath) || strings.HasPrefix(href, datasetsPath+"viewer/") {
		return Link{}, false
	}
	name := strings.Trim(strings.TrimPrefix(href, datasetsPath), "/")
	if name == "" {
		return Link{}, false
	}
	return Link{Name: name, Href: href}, true
}

// cardLinks returns a strategy taking the first dataset link of each card
func cardLinks(query string) LinkStrategy {
	return LinkFunc(query, func(doc *goquery.Document) []Link {
		var links []Link
		doc.Find(query).Each(func(_ int, card *goquery.Selection) {
			card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				l, ok := datasetLink(a.AttrOr("href", ""))
				if ok {
					links = append(links, l)
				}
				return !ok
			})
		})
		return links
	})
}

func anyDatasetLinks(doc *goquery.Document) []Link {
	var links []Link
	doc.Find(`a[href*="/datasets/"]`).Each(func(_ int, a *goquery.Selection) {
		if l, ok := datasetLink(a.AttrOr("href", "")); ok {
			links = append(links, l)
		}
	})
	return links
}

// HfExpander returns the expander reading dataset links off a listing page
func HfExpander(baseURL string) *Expander {
	return &Expander{
		Level:   types.LevelDataset,
		BaseURL: baseURL,
		Strategies: []LinkStrategy{
			cardLinks(".dataset-card"),
			cardLinks("article"),
			cardLinks(`div[class*="card"]`),
			cardLinks(`div[class*="dataset"]`),
			LinkFunc("dataset links", anyDatasetLinks),
		},
	}
}

// HfRunner pages through the dataset listing and downloads every dataset
// page with a bounded pool of workers
type HfRunner struct {
	cfg        config.Config
	fetcher    fetch.Fetcher
	store      pagestore.Store
	downloader *pagestore.Downloader
	ledger     *progress.Ledger
	pacer      *fetch.Pacer
	listing    *Expander
	logger     *log.Logger
	events     *tally
}

// NewHfRunner creates a runner storing pages in store and recording progress
// in ledger
func NewHfRunner(cfg config.Config, fetcher fetch.Fetcher, store pagestore.Store, ledger *progress.Ledger, logger *log.Logger, observer Observer) *HfRunner {
	return &HfRunner{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		downloader: pagestore.NewDownloader(fetcher, store, logger),
		ledger:     ledger,
		pacer:      fetch.NewPacer(cfg.RequestDelay, cfg.RequestJitter, 1),
		listing:    HfExpander(cfg.BaseURL),
		logger:     logger,
		events:     &tally{observer: observer},
	}
}

// Discover reads up to page_count listing pages and returns the datasets
// found, stopping at the first empty page after the first one
func (r *HfRunner) Discover(ctx context.Context) ([]*types.Node, error) {
	found := queue.New(func(n *types.Node) string { return n.URL })

	for page := 1; page <= r.cfg.PageCount; page++ {
		if err := r.pacer.Wait(ctx); err != nil {
			return found.Drain(), err
		}

		listing := &types.Node{
			Name:  fmt.Sprintf("page %d", page),
			URL:   fmt.Sprintf("%s?p=%d", r.cfg.StartURL, page),
			Level: types.LevelListing,
		}
		r.logger.Info("Fetching listing page", "page", page, "url", listing.URL)
		body, err := r.fetcher.Fetch(ctx, listing.URL)
		if err != nil {
			if ctx.Err() != nil {
				return found.Drain(), ctx.Err()
			}
			r.logger.Error("Failed to fetch listing page", "page", page, "err", err)
			r.events.emit(Event{Kind: EventFailed, Level: listing.Level, Name: listing.Name, URL: listing.URL, Err: err})
			continue
		}
		r.events.emit(Event{Kind: EventFetched, Level: listing.Level, Name: listing.Name, URL: listing.URL})

		// Kept for inspecting selector drift; the extractor skips them
		if err := r.store.Put(pagestore.HfListingKey(page), body); err != nil {
			r.logger.Warn("Failed to keep listing page", "page", page, "err", err)
		}

		children := r.listing.Expand(listing, body, nil)
		added := 0
		for _, c := range children {
			if found.Add(c) {
				added++
				r.events.emit(Event{Kind: EventDiscovered, Level: c.Level, Name: c.Name, URL: c.URL})
			}
		}
		r.logger.Info("Found datasets", "page", page, "count", len(children), "new", added, "total", found.Len())
		if len(children) == 0 && page > 1 {
			r.logger.Info("No more datasets, stopping", "page", page)
			break
		}
	}

	nodes := found.Drain()
	if len(nodes) == 0 {
		r.logger.Warn("Listing yielded no datasets, using popular datasets")
		for _, name := range popularDatasets {
			nodes = append(nodes, &types.Node{
				Name:  name,
				URL:   strings.TrimRight(r.cfg.BaseURL, "/") + datasetsPath + name,
				Level: types.LevelDataset,
			})
		}
	}
	return nodes, nil
}

type download struct {
	node    *types.Node
	key     string
	skipped bool
	err     error
}

// Run discovers datasets and downloads the ones not recorded in the ledger
func (r *HfRunner) Run(ctx context.Context) (Stats, error) {
	nodes, err := r.Discover(ctx)
	if err != nil {
		return r.events.snapshot(), err
	}
	r.logger.Info("Downloading dataset pages", "count", len(nodes), "workers", r.cfg.WorkerCount)

	results := make(chan download)
	drained := make(chan error, 1)
	go func() { drained <- r.drain(results) }()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.WorkerCount, 1))

	set := progress.VisitedSet(types.LevelDataset)
	for _, n := range nodes {
		if gctx.Err() != nil {
			break
		}
		if r.ledger.Has(set, n.URL) {
			r.events.emit(Event{Kind: EventSkipped, Level: n.Level, Name: n.Name, URL: n.URL})
			continue
		}
		g.Go(func() error {
			key := pagestore.HfKey(n.Name, r.cfg.NameLimit)
			skipped, err := r.downloader.Save(gctx, key, n.URL)
			if !skipped && err == nil {
				if err := fetch.Sleep(gctx, r.cfg.DownloadDelay); err != nil {
					return err
				}
			}
			select {
			case results <- download{node: n, key: key, skipped: skipped, err: err}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err = g.Wait()
	close(results)
	if drainErr := <-drained; drainErr != nil {
		return r.events.snapshot(), drainErr
	}
	if err != nil {
		return r.events.snapshot(), err
	}
	if err := ctx.Err(); err != nil {
		return r.events.snapshot(), err
	}

	stats := r.events.snapshot()
	r.events.emit(Event{Kind: EventDone})
	r.logger.Info("Crawl finished", "stored", stats.Stored, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

// drain is the only writer of the ledger while workers run. It keeps
// consuming after a save failure so that no worker blocks.
func (r *HfRunner) drain(results <-chan download) error {
	var first error
	set := progress.VisitedSet(types.LevelDataset)
	for res := range results {
		n := res.node
		var sets []string
		switch {
		case errors.Is(res.err, fetch.ErrNotFound):
			r.logger.Warn("Dataset page not found", "name", n.Name, "url", n.URL)
			r.events.emit(Event{Kind: EventFailed, Level: n.Level, Name: n.Name, URL: n.URL, Key: res.key, Err: res.err})
			sets = []string{set}
		case res.err != nil:
			r.logger.Error("Failed to download dataset page", "name", n.Name, "url", n.URL, "err", res.err)
			r.events.emit(Event{Kind: EventFailed, Level: n.Level, Name: n.Name, URL: n.URL, Key: res.key, Err: res.err})
		case res.skipped:
			r.events.emit(Event{Kind: EventSkipped, Level: n.Level, Name: n.Name, URL: n.URL, Key: res.key})
			sets = []string{set, progress.SetDownloaded}
		default:
			r.events.emit(Event{Kind: EventStored, Level: n.Level, Name: n.Name, URL: n.URL, Key: res.key})
			sets = []string{set, progress.SetDownloaded}
		}

		for _, s := range sets {
			if err := r.ledger.Mark(s, n.URL); err != nil && first == nil {
				first = fmt.Errorf("save crawl progress: %w", err)
			}
		}
	}
	return first
}
