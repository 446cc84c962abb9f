package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Unknown is the display name of pages whose name cannot be resolved
const Unknown = "Unknown"

var titleSeparators = []string{" | ", " · ", " — ", " – "}

// TitleName returns the part of the title before the first separator
func TitleName(p *Page) string {
	title := p.Title()
	cut := len(title)
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(title[:cut])
}

// NameCascade resolves a display name: the title, then the given headings,
// then Unknown
func NameCascade(headings ...string) Cascade {
	c := Cascade{Func("title", TitleName)}
	for _, h := range headings {
		c = append(c, Func("heading "+h, func(p *Page) string { return p.Text(h) }))
	}
	return append(c, Const("unknown", Unknown))
}

var (
	nonWord    = regexp.MustCompile(`[^\w]`)
	dashRuns   = regexp.MustCompile(`-+`)
	datasetSfx = regexp.MustCompile(`(?i)\s+dataset$`)
)

// Slug lowercases name and joins its words with dashes
func Slug(name string) string {
	s := nonWord.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(dashRuns.ReplaceAllString(s, "-"), "-")
}

func absolute(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// CanonicalURLCascade resolves the canonical URL of a resource page whose
// URLs live under base+segment, e.g. "https://paperswithcode.com" and
// "/dataset/".
func CanonicalURLCascade(base, segment string) Cascade {
	firstLink := func(sel *goquery.Selection) string {
		var found string
		sel.EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if strings.Contains(href, segment) {
				found = absolute(base, href)
				return false
			}
			return true
		})
		return found
	}

	return Cascade{
		Func("og:url", func(p *Page) string { return p.MetaProperty("og:url") }),
		Func("canonical", func(p *Page) string { return p.Attr(`link[rel="canonical"]`, "href") }),
		Func("breadcrumb", func(p *Page) string {
			return firstLink(p.Doc.Find("ol.breadcrumb li a, .general-breadcrumb a"))
		}),
		Func("anchor", func(p *Page) string { return firstLink(p.Doc.Find("a[href]")) }),
		Func("title slug", func(p *Page) string {
			// Only titles of the form "<name> | <site>" carry a usable name
			if TitleName(p) == p.Title() {
				return ""
			}
			slug := Slug(datasetSfx.ReplaceAllString(TitleName(p), ""))
			if slug == "" {
				return ""
			}
			return strings.TrimRight(base, "/") + segment + slug
		}),
		Func("filename slug", func(p *Page) string {
			name := p.FileName()
			if name == "" {
				return ""
			}
			return strings.TrimRight(base, "/") + segment + name
		}),
	}
}

var (
	yearPattern    = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	classesPattern = regexp.MustCompile(`(?i)(\d+)\s+(?:classes|categories|labels)`)
	sizePattern    = regexp.MustCompile(`(\d+[KkMmBb]?\s+(?:images|examples|samples|instances|records|rows|documents|sentences|paragraphs|texts))`)
	splitsPattern  = regexp.MustCompile(`(?i)((?:train|training|validation|val|test|testing|split).*?(?:\d+[KkMm]?|[\d,]+).*?(?:samples|examples|images))`)
	bytesPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(GB|MB|KB|TB)\b`)

	trainPattern = regexp.MustCompile(`(?i)train(?:ing)?\s*(?:set|split)?:?\s*(\d+(?:,\d+)*)\s*(?:examples|samples|instances|rows|records)`)
	valPattern   = regexp.MustCompile(`(?i)(?:val(?:idation)?|dev(?:elopment)?)\s*(?:set|split)?:?\s*(\d+(?:,\d+)*)\s*(?:examples|samples|instances|rows|records)`)
	testPattern  = regexp.MustCompile(`(?i)test(?:ing)?\s*(?:set|split)?:?\s*(\d+(?:,\d+)*)\s*(?:examples|samples|instances|rows|records)`)
	totalPattern = regexp.MustCompile(`(?i)(?:total|contains|consists of)?\s*(\d+(?:,\d+)*)\s*(?:examples|samples|instances|rows|records)`)
)

// Counts holds example counts found in free text
type Counts struct {
	Train, Val, Test string
}

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// SplitCounts finds train, validation and test example counts in text.
// Each pattern runs independently; thousands separators are removed. When
// no split is found a total count is reported as Train.
func SplitCounts(text string) Counts {
	c := Counts{
		Train: strings.ReplaceAll(firstGroup(trainPattern, text), ",", ""),
		Val:   strings.ReplaceAll(firstGroup(valPattern, text), ",", ""),
		Test:  strings.ReplaceAll(firstGroup(testPattern, text), ",", ""),
	}
	if c.Train == "" && c.Val == "" && c.Test == "" {
		c.Train = strings.ReplaceAll(firstGroup(totalPattern, text), ",", "")
	}
	return c
}

// StorageSize lists every "<n> GB"-like size in text
func StorageSize(text string) string {
	var sizes []string
	for _, m := range bytesPattern.FindAllStringSubmatch(text, -1) {
		sizes = append(sizes, m[1]+" "+strings.ToUpper(m[2]))
	}
	return strings.Join(sizes, ", ")
}

// Year returns the first plausible publication year in text
func Year(text string) string {
	return firstGroup(yearPattern, text)
}

// NumClasses returns the class count mentioned in text
func NumClasses(text string) string {
	return firstGroup(classesPattern, text)
}

// ExampleCount returns a "<n> images"-like size mention
func ExampleCount(text string) string {
	return firstGroup(sizePattern, text)
}

// Splits returns the first phrase describing a split with its size
func Splits(text string) string {
	return firstGroup(splitsPattern, text)
}
