package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/benchscrape/internal/config"
	"github.com/go-scripts/benchscrape/internal/fetch"
	"github.com/go-scripts/benchscrape/internal/pagestore"
	"github.com/go-scripts/benchscrape/internal/progress"
	"github.com/go-scripts/benchscrape/internal/types"
)

// Research areas used when the index page lists none
var pwcAreas = []string{
	"computer-vision",
	"natural-language-processing",
	"medical",
	"methodology",
	"graphs",
	"audio",
	"reinforcement-learning",
	"time-series",
	"robotics",
	"playing-games",
	"reasoning",
	"adversarial",
	"speech",
	"generative-models",
	"multimodal",
	"recommender-systems",
}

func areaFallback() []Link {
	links := make([]Link, len(pwcAreas))
	for i, slug := range pwcAreas {
		links[i] = Link{Href: "/area/" + slug}
	}
	return links
}

// sectionAreas reads the titled area sections of the index page
func sectionAreas(doc *goquery.Document) []Link {
	var links []Link
	doc.Find("h4.task-section-title").Each(func(_ int, h *goquery.Selection) {
		a := h.Parent().Find(`a[href^="/area/"]`).First()
		if href, ok := a.Attr("href"); ok {
			links = append(links, Link{Name: h.Text(), Href: href})
		}
	})
	return links
}

// datasetSection reads the dataset links between the Datasets heading and
// the next h2
func datasetSection(doc *goquery.Document) []Link {
	var links []Link
	doc.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		id, _ := h.Attr("id")
		if id != "datasets" && strings.TrimSpace(h.Text()) != "Datasets" {
			return true
		}
		section := h.NextUntil("h2")
		links = anchorLinks(section.Filter(`a[href^="/dataset/"]`).AddSelection(section.Find(`a[href^="/dataset/"]`)))
		return false
	})
	return links
}

// PwcExpanders returns the expanders of the benchmark-catalog hierarchy,
// keyed by the level they produce
func PwcExpanders(baseURL string) map[types.Level]*Expander {
	return map[types.Level]*Expander{
		types.LevelArea: {
			Level:   types.LevelArea,
			BaseURL: baseURL,
			Strategies: []LinkStrategy{
				LinkFunc("area sections", sectionAreas),
				Anchors(`a[href^="/area/"]`),
			},
			Fallback:        areaFallback(),
			FallbackOnError: true,
		},
		types.LevelSubtask: {
			Level:   types.LevelSubtask,
			BaseURL: baseURL,
			Strategies: []LinkStrategy{
				Anchors(`div.sota-all-tasks a[href^="/task/"]`),
				Anchors(`div.card a[href^="/task/"]`),
				Anchors(`a[href^="/task/"]`),
			},
			Synthesize: true,
		},
		// Subtask pages already are task pages, so tasks pass through
		types.LevelTask: {
			Level:      types.LevelTask,
			BaseURL:    baseURL,
			Synthesize: true,
		},
		types.LevelDataset: {
			Level:   types.LevelDataset,
			BaseURL: baseURL,
			Strategies: []LinkStrategy{
				LinkFunc("datasets section", datasetSection),
				Anchors(`a[href^="/dataset/"]`),
				Anchors(`div.dataset-card a[href*="/dataset/"]`),
			},
			Synthesize: true,
		},
	}
}

// PwcRunner walks areas, subtasks, tasks and datasets depth first and stores
// every dataset page
type PwcRunner struct {
	cfg        config.Config
	fetcher    fetch.Fetcher
	store      pagestore.Store
	downloader *pagestore.Downloader
	ledger     *progress.Ledger
	pacer      *fetch.Pacer
	expanders  map[types.Level]*Expander
	logger     *log.Logger
	events     *tally
}

// NewPwcRunner creates a runner storing pages in store and recording
// progress in ledger
func NewPwcRunner(cfg config.Config, fetcher fetch.Fetcher, store pagestore.Store, ledger *progress.Ledger, logger *log.Logger, observer Observer) *PwcRunner {
	return &PwcRunner{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		downloader: pagestore.NewDownloader(fetcher, store, logger),
		ledger:     ledger,
		pacer:      fetch.NewPacer(cfg.RequestDelay, cfg.RequestJitter, 1),
		expanders:  PwcExpanders(cfg.BaseURL),
		logger:     logger,
		events:     &tally{observer: observer},
	}
}

// Run crawls from the configured start page. It returns early only when ctx
// is done or the ledger cannot be saved.
func (r *PwcRunner) Run(ctx context.Context) (Stats, error) {
	root := &types.Node{Name: "Index", URL: r.cfg.StartURL, Level: types.LevelListing}

	body, err := r.fetch(ctx, root)
	if err != nil && ctx.Err() != nil {
		return r.events.snapshot(), ctx.Err()
	}
	if err != nil {
		r.logger.Warn("Index page unavailable, using known areas", "url", root.URL, "err", err)
	}

	areas := r.expanders[types.LevelArea].Expand(root, body, err)
	r.logger.Info("Found areas", "count", len(areas))
	for _, area := range areas {
		r.events.emit(Event{Kind: EventDiscovered, Level: area.Level, Name: area.Name, URL: area.URL})
	}

	for _, area := range areas {
		if _, err := r.visit(ctx, area, nil); err != nil {
			return r.events.snapshot(), err
		}
	}

	stats := r.events.snapshot()
	r.events.emit(Event{Kind: EventDone})
	r.logger.Info("Crawl finished", "stored", stats.Stored, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

func (r *PwcRunner) fetch(ctx context.Context, n *types.Node) ([]byte, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("Fetching "+n.Level.String(), "name", n.Name, "url", n.URL)
	body, err := r.fetcher.Fetch(ctx, n.URL)
	if err != nil {
		return nil, err
	}
	r.events.emit(Event{Kind: EventFetched, Level: n.Level, Name: n.Name, URL: n.URL})
	return body, nil
}

func (r *PwcRunner) mark(n *types.Node, sets ...string) error {
	for _, set := range sets {
		if err := r.ledger.Mark(set, n.URL); err != nil {
			return fmt.Errorf("save crawl progress: %w", err)
		}
	}
	return nil
}

// visit processes n and its subtree. parentBody is reused by synthetic
// nodes, which share their parent's URL. A node is recorded in the ledger
// only when its whole subtree was handled, so a transient failure anywhere
// below it is retried by the next run.
func (r *PwcRunner) visit(ctx context.Context, n *types.Node, parentBody []byte) (complete bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	set := progress.VisitedSet(n.Level)
	if r.ledger.Has(set, n.URL) {
		r.logger.Debug("Skipping processed "+n.Level.String(), "name", n.Name)
		r.events.emit(Event{Kind: EventSkipped, Level: n.Level, Name: n.Name, URL: n.URL})
		return true, nil
	}

	if n.Level == types.LevelDataset {
		return r.storePage(ctx, n)
	}

	body := parentBody
	if !n.Synthetic {
		body, err = r.fetch(ctx, n)
	}
	switch {
	case err != nil && ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, fetch.ErrNotFound):
		r.logger.Warn("Page not found", "level", n.Level, "name", n.Name, "url", n.URL)
		r.events.emit(Event{Kind: EventFailed, Level: n.Level, Name: n.Name, URL: n.URL, Err: err})
		return true, r.mark(n, set)
	case err != nil:
		r.logger.Error("Failed to fetch page", "level", n.Level, "name", n.Name, "url", n.URL, "err", err)
		r.events.emit(Event{Kind: EventFailed, Level: n.Level, Name: n.Name, URL: n.URL, Err: err})
		return false, nil
	}

	children := r.expanders[n.Level+1].Expand(n, body, nil)
	r.logger.Info("Found "+(n.Level+1).Plural(), "parent", n.Name, "count", len(children))
	for _, c := range children {
		r.events.emit(Event{Kind: EventDiscovered, Level: c.Level, Name: c.Name, URL: c.URL})
	}

	complete = true
	for _, c := range children {
		ok, err := r.visit(ctx, c, body)
		if err != nil {
			return false, err
		}
		complete = complete && ok
	}
	if !complete {
		r.logger.Warn("Incomplete "+n.Level.String()+", will retry next run", "name", n.Name)
		return false, nil
	}
	return true, r.mark(n, set)
}

func (r *PwcRunner) storePage(ctx context.Context, n *types.Node) (bool, error) {
	key := pagestore.PwcKey(n, r.cfg.NameLimit, r.cfg.DirNameLimit)

	var skipped bool
	var err error
	if n.Synthetic {
		skipped, err = r.downloader.SavePlaceholder(key, n)
	} else {
		if !r.store.Exists(key) {
			if err := r.pacer.Wait(ctx); err != nil {
				return false, err
			}
		}
		skipped, err = r.downloader.Save(ctx, key, n.URL)
	}

	switch {
	case err != nil && ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, fetch.ErrNotFound):
		r.logger.Warn("Dataset page not found", "path", strings.Join(n.Lineage(), " > "), "url", n.URL)
		r.events.emit(Event{Kind: EventFailed, Level: n.Level, Name: n.Name, URL: n.URL, Key: key, Err: err})
		return true, r.mark(n, progress.VisitedSet(n.Level))
	case err != nil:
		r.logger.Error("Failed to store dataset page", "path", strings.Join(n.Lineage(), " > "), "url", n.URL, "err", err)
		r.events.emit(Event{Kind: EventFailed, Level: n.Level, Name: n.Name, URL: n.URL, Key: key, Err: err})
		return false, nil
	}

	kind := EventStored
	if skipped {
		kind = EventSkipped
	}
	r.events.emit(Event{Kind: kind, Level: n.Level, Name: n.Name, URL: n.URL, Key: key})
	return true, r.mark(n, progress.SetDownloaded, progress.VisitedSet(n.Level))
}
