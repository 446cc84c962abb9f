package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/benchscrape/internal/pagestore"
	"github.com/go-scripts/benchscrape/internal/types"
	"github.com/go-scripts/benchscrape/internal/writer"
)

var (
	repoSlash      = regexp.MustCompile(`\s*/\s*`)
	repoID         = regexp.MustCompile(`^[\w.\-]+(?:/[\w.\-]+)?$`)
	summarySection = regexp.MustCompile(`(?s)Dataset Summary\s*\n\s*\n(.*?)(?:\n\s*\n\s*\n\s*\n\s*\n\s*\t\t\S|\z)`)
	countPattern   = regexp.MustCompile(`(\d+(?:,\d+)*)`)
	dataFormat     = regexp.MustCompile(`(?i)Data Format[:\s]*([^.]+)`)
)

// hfPrefixes are the file name prefixes of stored dataset pages
var hfPrefixes = []string{"huggingface_debug_", "huggingface_"}

// HfExtractor reads dataset-catalog pages
type HfExtractor struct {
	baseURL   string
	logger    *log.Logger
	name      Cascade
	canonical Cascade
}

// NewHfExtractor creates an extractor for pages of the catalog at baseURL
func NewHfExtractor(baseURL string, logger *log.Logger) *HfExtractor {
	baseURL = strings.TrimRight(baseURL, "/")
	e := &HfExtractor{baseURL: baseURL, logger: logger}
	e.name = append(NameCascade("h1")[:2:2],
		Func("file name", e.ID),
		Const("unknown", Unknown),
	)
	e.canonical = CanonicalURLCascade(baseURL, "/datasets/")[:2]
	return e
}

func (e *HfExtractor) Schema() types.Schema {
	return writer.HfSchema
}

// ID is the dataset name encoded in the file name
func (e *HfExtractor) ID(p *Page) string {
	name := p.FileName()
	for _, prefix := range hfPrefixes {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

// fallbackLink builds the dataset URL from the page name when it reads as a
// repository ID such as "openai / gsm8k". Otherwise the file ID is used,
// which is approximate: key sanitising turned the "/" of owner/name into "_".
func (e *HfExtractor) fallbackLink(p *Page, name string) string {
	id := repoSlash.ReplaceAllString(strings.TrimSpace(name), "/")
	if name == Unknown || !repoID.MatchString(id) {
		id = e.ID(p)
	}
	return fmt.Sprintf("%s/datasets/%s", e.baseURL, id)
}

// Accept rejects stored listing pages
func (e *HfExtractor) Accept(p *Page) (bool, string) {
	if strings.HasPrefix(p.FileName(), pagestore.HfListingPrefix) {
		return false, "listing page"
	}
	return true, ""
}

// ldStrings reads a JSON-LD value that may be a string or a list of strings
func ldStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		if s, ok := t["@id"].(string); ok {
			return []string{s}
		}
		if s, ok := t["url"].(string); ok {
			return []string{s}
		}
	}
	return nil
}

func ldFirst(v any) string {
	if s := ldStrings(v); len(s) > 0 {
		return strings.TrimSpace(s[0])
	}
	return ""
}

// applyJSONLD copies structured metadata into r and returns the raw
// description of the first object that has one
func (e *HfExtractor) applyJSONLD(p *Page, r types.Record) string {
	objects, errs := p.JSONLD()
	for _, err := range errs {
		e.logger.Error("Failed to parse JSON-LD", "page", p.Key, "err", err)
	}

	var description string
	for _, obj := range objects {
		if description == "" {
			description = ldFirst(obj["description"])
		}
		for _, kw := range ldStrings(obj["keywords"]) {
			if id, ok := strings.CutPrefix(kw, "arxiv:"); ok {
				r.SetIfEmpty("paper_link", "https://arxiv.org/abs/"+id)
				break
			}
		}
		if lic := ldFirst(obj["license"]); lic != "" {
			r.SetIfEmpty("license_details", lic)
		}
		// sameAs points at the primary reference and beats an arXiv keyword
		if same := ldFirst(obj["sameAs"]); same != "" {
			r["paper_link"] = same
		}
		if modified := ldFirst(obj["dateModified"]); modified != "" {
			r.SetIfEmpty("last_updated", modified)
		}
	}
	return description
}

func htmlSummary(p *Page) string {
	var summary string
	p.Doc.Find("h1, h2, h3, h4, p, strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), "Dataset Summary") {
			return true
		}
		summary = CleanText(s.Next().Text())
		return summary == ""
	})
	return summary
}

func countIn(s *goquery.Selection) string {
	if m := countPattern.FindString(s.First().Text()); m != "" {
		return strings.ReplaceAll(m, ",", "")
	}
	return ""
}

// Extract fills r from p. A page without any description still gets its
// name, link and page-level statistics.
func (e *HfExtractor) Extract(p *Page, r types.Record) {
	name, via := e.name.Resolve(p)
	r["benchmark_name"] = name
	e.logger.Debug("Resolved name", "page", p.Key, "name", name, "strategy", via)

	r["dataset_link"] = e.canonical.Value(p)
	if r["dataset_link"] == "" {
		r["dataset_link"] = e.fallbackLink(p, name)
	}

	ldDescription := e.applyJSONLD(p, r)
	summary := Cascade{
		Func("json-ld summary", func(*Page) string { return firstGroup(summarySection, ldDescription) }),
		Func("json-ld description", func(*Page) string { return ldDescription }),
		Func("meta description", func(p *Page) string { return p.Meta("description") }),
		Func("og:description", func(p *Page) string { return p.MetaProperty("og:description") }),
		Func("summary heading", htmlSummary),
	}
	description := CleanText(summary.Value(p))

	if description != "" {
		r["modality"] = DescriptionModality(name+" "+description, true)
		r["domain"] = Domain(description)
		r["task_type"] = TaskType(description)
		r["languages"] = Languages(description)
		r["dataset_size"] = StorageSize(description)

		counts := SplitCounts(description)
		r["num_train_examples"] = counts.Train
		r["num_val_examples"] = counts.Val
		r["num_test_examples"] = counts.Test

		notes := DescriptionNotes(description)
		r["sota_performance"] = notes.SOTA
		r["ethical_considerations"] = notes.Ethics
		r["preprocessing_notes"] = notes.Preprocessing
		r["hardware_requirements"] = notes.Hardware
		r["training_time"] = notes.TrainingTime
	}

	r["downloads"] = countIn(p.Doc.Find(`span:contains("downloads")`))
	r["citation_count"] = countIn(p.Doc.Find(`span:contains("citations")`))

	if f := p.Doc.Find(`div:contains("Data Format")`).Last(); f.Length() > 0 {
		r["data_format"] = CleanText(firstGroup(dataFormat, CleanText(f.Text())))
	}

	similar := texts(p.Doc.Find(`section:contains("Similar Datasets") a[href*="/datasets/"]`))
	r["similar_benchmarks"] = strings.Join(similar[:min(len(similar), 5)], ", ")

	p.Doc.Find(`a[href*="github.com"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		lower := strings.ToLower(href)
		for _, hint := range []string{"example", "code", "implementation"} {
			if strings.Contains(lower, hint) {
				r["example_code_link"] = href
				return false
			}
		}
		return true
	})

	r["sota_model"] = p.Text(`div:contains("State-of-the-Art") strong, div:contains("SOTA") strong`)

	var tags []string
	p.Doc.Find(`div[class*="dataset-card"] span[class*="tag"]`).Each(func(_ int, s *goquery.Selection) {
		tags = append(tags, strings.ToLower(CleanText(s.Text())))
	})
	if t := TagTaskType(tags); t != "" {
		r["task_type"] = t
	}

	r["output_type"] = OutputType(r["task_type"])
	r.SetIfEmpty("modality", TaskTypeModality(r["task_type"]))
	r.SetIfEmpty("evaluation_metrics", Metrics(r["task_type"]))
	r.SetIfEmpty("model_architectures", Architectures(r["task_type"]))
}
