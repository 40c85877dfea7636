package scrape

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
)

var (
	timeAnywhereRe = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	proseDateRe    = regexp.MustCompile(`(?i)(\d{1,2})\.\s*(\p{L}+)(?:\s*(?:kl\.?)\s*)?(\d{1,2}:\d{2})`)
)

// ItemDetail is everything recoverable from one film/event detail page.
// Times are the bare HH:MM tokens found anywhere on the page; Datetimes are
// full "YYYY-MM-DD HH:MM" stamps parsed from prose like "25. nov kl. 19:15".
type ItemDetail struct {
	Title     string
	Synopsis  string
	Image     string
	Times     []string
	Datetimes []string
}

// DetailFetcher resolves one item detail page per call; memoization across
// calls is the aggregator's responsibility.
type DetailFetcher struct {
	fetcher *Fetcher
	extract *Extractor
	now     func() time.Time
}

func NewDetailFetcher(fetcher *Fetcher, extract *Extractor) *DetailFetcher {
	return &DetailFetcher{fetcher: fetcher, extract: extract, now: time.Now}
}

func (d *DetailFetcher) Run(ctx context.Context, url string) (ItemDetail, error) {
	if err := ctx.Err(); err != nil {
		return ItemDetail{}, err
	}

	doc := d.fetcher.Document(ctx, url)
	defer d.fetcher.Throttle()

	ps := paragraphsIn(d.extract.BodyBlock(doc))
	if len(ps) > 6 {
		ps = ps[:6]
	}
	synopsis := d.extract.CleanSynopsis(strings.Join(ps, "\n\n"))
	if synopsis == "" {
		synopsis = d.readabilitySynopsis(doc, url)
	}

	textAll := normalizeSpace(doc.Text())

	var datetimes []string
	year := d.now().Year()
	for _, m := range proseDateRe.FindAllStringSubmatch(textAll, -1) {
		day, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		mon, ok := monthsShort[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		iso := isoDate(year, mon, day)
		if iso == "" {
			continue
		}
		datetimes = append(datetimes, iso+" "+m[3])
	}

	return ItemDetail{
		Title:     d.extract.Title(doc, url),
		Synopsis:  synopsis,
		Image:     d.extract.Image(doc),
		Times:     uniqueSorted(timeAnywhereRe.FindAllString(textAll, -1)),
		Datetimes: uniqueSorted(datetimes),
	}, nil
}

// readabilitySynopsis is the last-resort strategy for pages whose paragraph
// structure the body-block heuristic cannot see.
func (d *DetailFetcher) readabilitySynopsis(doc *goquery.Document, url string) string {
	raw, err := doc.Html()
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(raw), nil)
	if err != nil {
		slog.Debug("Readability fallback failed", "url", url, "error", err)
		return ""
	}
	return d.extract.CleanSynopsis(article.TextContent)
}
