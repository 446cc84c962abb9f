package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/benchscrape/internal/types"
	"github.com/go-scripts/benchscrape/internal/writer"
)

// PwcExtractor reads benchmark-catalog dataset pages
type PwcExtractor struct {
	baseURL     string
	logger      *log.Logger
	name        Cascade
	canonical   Cascade
	description Cascade
	sourceURL   Cascade
}

// NewPwcExtractor creates an extractor for pages of the catalog at baseURL
func NewPwcExtractor(baseURL string, logger *log.Logger) *PwcExtractor {
	baseURL = strings.TrimRight(baseURL, "/")
	return &PwcExtractor{
		baseURL:   baseURL,
		logger:    logger,
		name:      NameCascade("h1.paper-title", "h1"),
		canonical: CanonicalURLCascade(baseURL, "/dataset/"),
		description: Cascade{
			Func("meta description", func(p *Page) string { return p.Meta("description") }),
			Func("dataset description", func(p *Page) string { return p.Text("div.dataset-description") }),
			Func("paper abstract", func(p *Page) string { return p.Text("div.paper-abstract p") }),
		},
		sourceURL: Cascade{
			Func("description source", func(p *Page) string { return p.Attr("span.description-source a", "href") }),
			Func("external link", func(p *Page) string {
				var found string
				p.Doc.Find(`a[href^="http"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
					href, _ := a.Attr("href")
					if strings.Contains(href, "github.com") || strings.Contains(href, "data") {
						found = href
						return false
					}
					return true
				})
				return found
			}),
		},
	}
}

func (e *PwcExtractor) Schema() types.Schema {
	return writer.PwcSchema
}

// ID is the file name with its legacy pwc_ prefix removed
func (e *PwcExtractor) ID(p *Page) string {
	return strings.TrimPrefix(p.FileName(), "pwc_")
}

// Accept reports whether p looks like a dataset page
func (e *PwcExtractor) Accept(p *Page) (bool, string) {
	if strings.Contains(strings.ToLower(p.Title()), "dataset") ||
		p.Doc.Find("div.dataset-header").Length() > 0 ||
		p.Doc.Find("div.dataset-description").Length() > 0 {
		return true, ""
	}
	return false, "not a dataset page"
}

var licenseHeading = regexp.MustCompile(`^License`)

// headedLinks returns the link texts of the section introduced by an h4
// with exactly heading as text
func headedLinks(p *Page, heading string) []string {
	var out []string
	p.Doc.Find("h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if CleanText(h.Text()) != heading {
			return true
		}
		out = texts(h.Parent().Find("a"))
		return false
	})
	return out
}

// Extract fills r from p. Fields are resolved in dependency order so that a
// failure part way keeps everything resolved before it.
func (e *PwcExtractor) Extract(p *Page, r types.Record) {
	r["dataset_id"] = e.ID(p)

	name, via := e.name.Resolve(p)
	r["dataset_name"] = name
	e.logger.Debug("Resolved name", "page", p.Key, "name", name, "strategy", via)

	r["pwc_url"] = e.canonical.Value(p)

	description := CleanText(e.description.Value(p))
	r["description"] = description
	r["source_url"] = e.sourceURL.Value(p)

	if lic := p.Text("div.license"); lic != "" {
		r["license"] = strings.TrimSpace(licenseHeading.ReplaceAllString(lic, ""))
	}

	tasks := texts(p.Doc.Find(`a[href^="/task/"]`))
	r["associated_tasks"] = strings.Join(tasks, ", ")

	var benchmarks []string
	seen := make(map[string]bool)
	p.Doc.Find(`a[href^="/sota/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		slug := strings.TrimPrefix(href, "/sota/")
		if slug != "" && !seen[slug] {
			seen[slug] = true
			benchmarks = append(benchmarks, slug)
		}
	})
	r["benchmark_urls"] = strings.Join(benchmarks, ", ")

	if paper := p.Doc.Find("a.badge-paper").First(); paper.Length() > 0 {
		r["paper_title"] = CleanText(paper.Text())
		href, _ := paper.Attr("href")
		r["paper_url"] = absolute(e.baseURL, href)
	}

	r["dataset_size"] = ExampleCount(description)
	r["dataset_splits"] = Splits(description)
	r["num_classes"] = NumClasses(description)
	r["year_published"] = Year(description)

	modality := Cascade{
		Func("modalities section", func(p *Page) string { return strings.Join(headedLinks(p, "Modalities"), ", ") }),
		Func("modality badges", func(p *Page) string { return strings.Join(texts(p.Doc.Find("span.badge-modality")), ", ") }),
		Func("description keywords", func(*Page) string { return DescriptionModality(name+" "+description, false) }),
		Func("task keywords", func(*Page) string { return TaskModalities(r["associated_tasks"]) }),
		Func("name override", func(*Page) string { return NameModality(name) }),
	}
	r["modalities"] = modality.Value(p)

	languages := Cascade{
		Func("languages section", func(p *Page) string { return strings.Join(headedLinks(p, "Languages"), ", ") }),
		Func("language badges", func(p *Page) string { return strings.Join(texts(p.Doc.Find("span.badge-language")), ", ") }),
		Func("name override", func(*Page) string { return NameLanguages(name) }),
		Func("text modality", func(*Page) string {
			if strings.Contains(r["modalities"], "Text") {
				return "English"
			}
			return ""
		}),
	}
	r["languages"] = languages.Value(p)
}
