package scrape

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// bodySelectors is the ordered list of structural containers searched for
// the main content block. The document itself is the final fallback.
var bodySelectors = []string{
	".field--name-field-body",
	".field--name-body",
	"article",
	"main",
}

var (
	metaLabelRe = regexp.MustCompile(`(?i)^(Medvirkende|Instruktør|Original titel|Sprog|Aldersgrænse|Længde)\s*:`)
	blankLineRe = regexp.MustCompile(`\n+`)
	slugDateRe  = regexp.MustCompile(`\d{1,2}-\d{1,2}(-\d{2,4})?`)
	slugSepRe   = regexp.MustCompile(`[-_]+`)
)

const synopsisWordLimit = 160

// Extractor holds the site-specific extraction policy: the generic brand
// name excluded from title candidates, the synopsis boilerplate blacklist,
// and the base URL used to absolutize relative hrefs. One instance is
// shared across requests, so it holds no per-call state.
type Extractor struct {
	brand     string
	blacklist []string
	base      *url.URL
}

func NewExtractor(baseURL string, brand string, blacklist []string) *Extractor {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}
	return &Extractor{
		brand:     brand,
		blacklist: blacklist,
		base:      base,
	}
}

// AbsURL resolves href against the configured base. Unparseable input is
// returned unchanged.
func (e *Extractor) AbsURL(href string) string {
	if e.base == nil {
		return href
	}
	u, err := e.base.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}

// Title resolves a page title through an ordered fallback chain; the first
// non-empty candidate that is not the site's generic brand name wins.
// Listing-style pages frequently set the brand name as og:title, which is
// why every strategy is subject to the exclusion.
func (e *Extractor) Title(doc *goquery.Document, pageURL string) string {
	strategies := []func(*goquery.Document) string{
		metaContent(`meta[property="og:title"]`),
		metaContent(`meta[name="twitter:title"]`),
		e.jsonLDName,
		func(d *goquery.Document) string {
			return strings.TrimSpace(d.Find("h1, h2").First().Text())
		},
		func(d *goquery.Document) string {
			return strings.TrimSpace(d.Find("title").First().Text())
		},
	}

	for _, strategy := range strategies {
		if v := strategy(doc); v != "" && !strings.EqualFold(v, e.brand) {
			return v
		}
	}
	return e.titleFromURL(pageURL)
}

func metaContent(selector string) func(*goquery.Document) string {
	return func(d *goquery.Document) string {
		content, _ := d.Find(selector).First().Attr("content")
		return strings.TrimSpace(content)
	}
}

// jsonLDName takes the first usable "name" field found in any JSON-LD
// block, looking through list entries as well. Brand-named candidates are
// skipped in place so later entries and later script blocks still get a
// chance; malformed JSON is skipped.
func (e *Extractor) jsonLDName(d *goquery.Document) string {
	var name string
	d.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var parsed any
		if err := json.Unmarshal([]byte(s.Text()), &parsed); err != nil {
			return true
		}
		switch v := parsed.(type) {
		case []any:
			for _, entry := range v {
				if obj, ok := entry.(map[string]any); ok {
					if n := stringField(obj, "name"); n != "" && !strings.EqualFold(n, e.brand) {
						name = n
						return false
					}
				}
			}
		case map[string]any:
			if n := stringField(v, "name"); n != "" && !strings.EqualFold(n, e.brand) {
				name = n
				return false
			}
		}
		return true
	})
	return name
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// titleFromURL derives a display title from the last non-empty URL path
// segment: date-like tokens stripped, separators replaced by spaces, each
// word capitalized. "Titel" when nothing usable remains. The Caser is
// built per call; it is stateful and not safe to share across goroutines.
func (e *Extractor) titleFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "Titel"
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	seg := segments[len(segments)-1]
	seg = slugDateRe.ReplaceAllString(seg, "")
	slug := normalizeSpace(slugSepRe.ReplaceAllString(seg, " "))
	if slug == "" {
		return "Titel"
	}
	return cases.Title(language.Danish).String(slug)
}

// BodyBlock locates the main content container so that paragraph and image
// searches exclude navigation and footer text.
func (e *Extractor) BodyBlock(doc *goquery.Document) *goquery.Selection {
	for _, sel := range bodySelectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			return node
		}
	}
	return doc.Selection
}

// Image returns the first image inside the body block, falling back to the
// first image anywhere under article/main/document. "" when none is found.
func (e *Extractor) Image(doc *goquery.Document) string {
	img := e.BodyBlock(doc).Find("img").First()
	if img.Length() == 0 {
		img = doc.Find("article img, main img, img").First()
	}
	src, ok := img.Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return ""
	}
	return e.AbsURL(strings.TrimSpace(src))
}

// CleanSynopsis strips site boilerplate and structured metadata lines from
// raw prose, then truncates to the word limit with an ellipsis.
func (e *Extractor) CleanSynopsis(text string) string {
	if text == "" {
		return ""
	}

	var kept []string
	for _, line := range blankLineRe.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" || e.blacklisted(line) || metaLabelRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.TrimSpace(strings.Join(kept, "\n\n"))
	words := strings.Fields(out)
	if len(words) > synopsisWordLimit {
		out = strings.Join(words[:synopsisWordLimit], " ") + "…"
	}
	return out
}

func (e *Extractor) blacklisted(line string) bool {
	for _, phrase := range e.blacklist {
		if strings.EqualFold(phrase, line) {
			return true
		}
	}
	return false
}

// paragraphsIn collects the normalized text of each paragraph under sel.
func paragraphsIn(sel *goquery.Selection) []string {
	var out []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := normalizeSpace(p.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}
