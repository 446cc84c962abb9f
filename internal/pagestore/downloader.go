package pagestore

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/benchscrape/internal/fetch"
	"github.com/go-scripts/benchscrape/internal/types"
)

// Downloader fetches pages into a Store, skipping keys already present
type Downloader struct {
	fetcher fetch.Fetcher
	store   Store
	logger  *log.Logger
}

// NewDownloader returns a Downloader writing to store
func NewDownloader(fetcher fetch.Fetcher, store Store, logger *log.Logger) *Downloader {
	return &Downloader{fetcher: fetcher, store: store, logger: logger}
}

// Save stores the page at url under key. When the key already exists no
// request is made and skipped is true.
func (d *Downloader) Save(ctx context.Context, key, url string) (skipped bool, err error) {
	if d.store.Exists(key) {
		d.logger.Debug("Page already stored", "key", key)
		return true, nil
	}

	body, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return false, fmt.Errorf("fetch %s: %w", url, fetch.ErrEmptyBody)
	}

	if err := d.store.Put(key, body); err != nil {
		return false, err
	}
	d.logger.Info("Saved page", "key", key)
	return false, nil
}

var placeholderTmpl = template.Must(template.New("placeholder").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Name}} | Papers With Code</title>
<meta name="dataset" content="{{.Name}}">
{{range .Lineage}}<meta name="{{.Level}}" content="{{.Name}}">
{{end}}<meta property="og:url" content="{{.URL}}">
<meta name="synthetic" content="true">
</head>
<body>
<h1>{{.Name}}</h1>
<div class="dataset-description">
<p>Placeholder for a task without discoverable datasets.</p>
{{range .Lineage}}<p>{{.Level}}: {{.Name}}</p>
{{end}}<p>URL: <a href="{{.URL}}">{{.URL}}</a></p>
</div>
</body>
</html>
`))

type lineageEntry struct {
	Level string
	Name  string
}

// SavePlaceholder stores a generated page describing a synthetic node
// instead of fetching anything.
func (d *Downloader) SavePlaceholder(key string, n *types.Node) (skipped bool, err error) {
	if d.store.Exists(key) {
		return true, nil
	}

	var lineage []lineageEntry
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		lineage = append([]lineageEntry{{Level: cur.Level.String(), Name: cur.Name}}, lineage...)
	}

	var buf bytes.Buffer
	err = placeholderTmpl.Execute(&buf, struct {
		Name    string
		URL     string
		Lineage []lineageEntry
	}{n.Name, n.URL, lineage})
	if err != nil {
		return false, fmt.Errorf("render placeholder: %w", err)
	}

	if err := d.store.Put(key, buf.Bytes()); err != nil {
		return false, err
	}
	d.logger.Info("Saved placeholder page", "key", key)
	return false, nil
}
