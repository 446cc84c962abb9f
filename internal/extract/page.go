// Package extract turns stored catalog pages into flat records.
//
// Every field is resolved by an ordered cascade of strategies; the first
// strategy yielding a value wins. The keyword and override tables are tuned
// to pages observed on the two catalogs and are known to be approximate.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/go-scripts/benchscrape/internal/pagestore"
)

// Page is one parsed stored page
type Page struct {
	Key  string
	Body []byte
	Doc  *goquery.Document
}

// NewPage parses body, which was stored under key
func NewPage(key string, body []byte) (*Page, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return &Page{Key: key, Body: body, Doc: goquery.NewDocumentFromNode(root)}, nil
}

// FileName returns the base name of the page key without extension
func (p *Page) FileName() string {
	return pagestore.NameFromKey(p.Key)
}

// Title returns the cleaned document title
func (p *Page) Title() string {
	return CleanText(p.Doc.Find("title").First().Text())
}

// Meta returns the content of <meta name="...">
func (p *Page) Meta(name string) string {
	v, _ := p.Doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return strings.TrimSpace(v)
}

// MetaProperty returns the content of <meta property="...">
func (p *Page) MetaProperty(property string) string {
	v, _ := p.Doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return strings.TrimSpace(v)
}

// Text returns the cleaned text of the first element matching selector
func (p *Page) Text(selector string) string {
	return CleanText(p.Doc.Find(selector).First().Text())
}

// Attr returns an attribute of the first element matching selector
func (p *Page) Attr(selector, attr string) string {
	v, _ := p.Doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

// JSONLD decodes every application/ld+json block into objects. Arrays and
// @graph containers are flattened. Blocks that fail to decode are reported
// in errs and otherwise ignored.
func (p *Page) JSONLD() (objects []map[string]any, errs []error) {
	p.Doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			errs = append(errs, fmt.Errorf("json-ld block %d: %w", i, err))
			return
		}
		objects = append(objects, flattenLD(v)...)
	})
	return objects, errs
}

func flattenLD(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			return flattenLD(graph)
		}
		return []map[string]any{t}
	case []any:
		var out []map[string]any
		for _, item := range t {
			out = append(out, flattenLD(item)...)
		}
		return out
	}
	return nil
}

var (
	lineBreaks = regexp.MustCompile(`[\n\t\r]+`)
	spaces     = regexp.MustCompile(`\s+`)
)

// CleanText collapses whitespace and trims
func CleanText(s string) string {
	s = lineBreaks.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// texts returns the cleaned, non-empty, de-duplicated texts of a selection
func texts(s *goquery.Selection) []string {
	var out []string
	seen := make(map[string]bool)
	s.Each(func(_ int, el *goquery.Selection) {
		t := CleanText(el.Text())
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	})
	return out
}
