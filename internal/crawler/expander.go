// Package crawler discovers the resources of a catalog hierarchy and stores
// their pages.
package crawler

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/go-scripts/benchscrape/internal/queue"
	"github.com/go-scripts/benchscrape/internal/types"
)

// Link is a candidate child found on a page. Name may be empty.
type Link struct {
	Name string
	Href string
}

// LinkStrategy is one structural query over a page
type LinkStrategy interface {
	Name() string
	Links(doc *goquery.Document) []Link
}

type linkFunc struct {
	name string
	fn   func(doc *goquery.Document) []Link
}

func (f linkFunc) Name() string                       { return f.name }
func (f linkFunc) Links(doc *goquery.Document) []Link { return f.fn(doc) }

// LinkFunc wraps fn as a named strategy
func LinkFunc(name string, fn func(doc *goquery.Document) []Link) LinkStrategy {
	return linkFunc{name: name, fn: fn}
}

// Anchors returns a strategy collecting every element matched by query
// with its text as name
func Anchors(query string) LinkStrategy {
	return LinkFunc(query, func(doc *goquery.Document) []Link {
		return anchorLinks(doc.Find(query))
	})
}

func anchorLinks(sel *goquery.Selection) []Link {
	var links []Link
	sel.Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			links = append(links, Link{Name: a.Text(), Href: href})
		}
	})
	return links
}

// Expander turns a fetched parent page into child nodes of one level
type Expander struct {
	Level   types.Level
	BaseURL string
	// Strategies are tried in order; the first one yielding links wins
	Strategies []LinkStrategy
	// Fallback is used when no strategy yields anything
	Fallback []Link
	// FallbackOnError also uses Fallback when the parent could not be fetched
	FallbackOnError bool
	// Synthesize yields one synthetic child standing for the parent when
	// nothing else was found
	Synthesize bool
}

// Expand returns the children of parent found in body, deduplicated by URL
// in discovery order. A failed fetch yields no children.
func (e *Expander) Expand(parent *types.Node, body []byte, fetchErr error) []*types.Node {
	if fetchErr != nil {
		if e.FallbackOnError {
			return e.nodes(parent, e.Fallback)
		}
		return nil
	}

	var links []Link
	if len(e.Strategies) > 0 {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err == nil {
			for _, s := range e.Strategies {
				if links = s.Links(doc); len(links) > 0 {
					break
				}
			}
		}
	}

	if children := e.nodes(parent, links); len(children) > 0 {
		return children
	}
	if children := e.nodes(parent, e.Fallback); len(children) > 0 {
		return children
	}
	if e.Synthesize && parent != nil {
		return []*types.Node{{
			Name:      parent.Name,
			URL:       parent.URL,
			Level:     e.Level,
			Parent:    parent,
			Synthetic: true,
		}}
	}
	return nil
}

func (e *Expander) nodes(parent *types.Node, links []Link) []*types.Node {
	q := queue.New(func(n *types.Node) string { return n.URL })
	for _, l := range links {
		u, ok := resolve(e.BaseURL, l.Href)
		if !ok {
			continue
		}
		name := strings.Join(strings.Fields(l.Name), " ")
		if name == "" {
			name = NameFromURL(u)
		}
		q.Add(&types.Node{Name: name, URL: u, Level: e.Level, Parent: parent})
	}
	return q.Drain()
}

// resolve makes href absolute against base and drops its fragment
func resolve(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	u, err := b.Parse(href)
	if err != nil {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

var titleCase = cases.Title(language.English)

// NameFromURL derives a display name from the last path segment of rawURL,
// e.g. .../area/computer-vision becomes "Computer Vision"
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" || seg == "" {
		return u.Host
	}
	return titleCase.String(strings.NewReplacer("-", " ", "_", " ").Replace(seg))
}
