package scrape

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PlaceholderTime marks a screening entry whose source carried a date but
// no time of day; the aggregator backfills it from the item's detail page.
const PlaceholderTime = "00:00"

const (
	// Item and series URL path patterns on the origin site.
	FilmPathPattern   = "/cinemateket/biograf/alle-film/film/"
	EventPathPattern  = "/cinemateket/biograf/events/event/"
	SeriesPathPattern = "/cinemateket/biograf/filmserier/serie/"
)

const itemAnchorSelector = `a[href*="` + FilmPathPattern + `"], a[href*="` + EventPathPattern + `"]`

// ScreeningEntry is one scheduled showing recovered from a calendar page.
// Href is "" when no matching anchor could be resolved.
type ScreeningEntry struct {
	Time  string
	Title string
	Href  string
}

// DayBlock groups the entries under one detected day header.
type DayBlock struct {
	Label   string
	Entries []ScreeningEntry
}

// CalendarSource is implemented by both calendar-parsing strategies. The
// origin site has used materially different calendar markup across
// revisions, so the strategy is selected by configuration rather than
// guessed.
type CalendarSource interface {
	Days(ctx context.Context) []DayBlock
}

var (
	timeTokenRe    = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	dateFragmentRe = regexp.MustCompile(`\d{1,2}\.\s*\p{L}+`)
	datePartRe     = regexp.MustCompile(`(\d{1,2})\.\s*(\p{L}+)`)
	chunkSplitRe   = regexp.MustCompile(`[,\x{2013}-]+`)
)

// DayHeaderCalendar parses a dedicated calendar page whose visual day/time
// structure survives only in DOM text order.
type DayHeaderCalendar struct {
	fetcher     *Fetcher
	extract     *Extractor
	calendarURL string
}

func NewDayHeaderCalendar(fetcher *Fetcher, extract *Extractor, calendarURL string) *DayHeaderCalendar {
	return &DayHeaderCalendar{fetcher: fetcher, extract: extract, calendarURL: calendarURL}
}

func (c *DayHeaderCalendar) Days(ctx context.Context) []DayBlock {
	doc := c.fetcher.Document(ctx, c.calendarURL)
	blocks := scanDayBlocks(textNodes(doc), anchorResolver(doc, c.extract))
	if len(blocks) == 0 {
		slog.Info("No day headers detected on calendar page", "url", c.calendarURL)
	}
	return blocks
}

// textNodes flattens a document into its ordered sequence of non-empty
// text nodes, excluding script and style content.
func textNodes(doc *goquery.Document) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return out
}

// anchorResolver maps a recovered screening title back to an item href:
// exact anchor-text match first, then the first anchor pointing at a film
// or event detail path.
func anchorResolver(doc *goquery.Document, extract *Extractor) func(title string) string {
	type anchorRef struct {
		text string
		href string
	}
	var anchors []anchorRef
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		anchors = append(anchors, anchorRef{
			text: strings.TrimSpace(a.Text()),
			href: extract.AbsURL(href),
		})
	})

	return func(title string) string {
		for _, a := range anchors {
			if a.text == title {
				return a.href
			}
		}
		for _, a := range anchors {
			if strings.Contains(a.href, FilmPathPattern) || strings.Contains(a.href, EventPathPattern) {
				return a.href
			}
		}
		return ""
	}
}

type scanState int

const (
	stateOutsideEntry scanState = iota
	stateSeekingTitle
)

// scanDayBlocks partitions the token stream at day headers, then runs a
// small state machine inside each chunk: a HH:MM token opens an entry and
// the next token is consumed as its title. Everything else is skipped.
func scanDayBlocks(tokens []string, resolve func(title string) string) []DayBlock {
	var headerIdx []int
	for i, tok := range tokens {
		if dayLabelRe.MatchString(tok) {
			headerIdx = append(headerIdx, i)
		}
	}

	var blocks []DayBlock
	for h, start := range headerIdx {
		end := len(tokens)
		if h+1 < len(headerIdx) {
			end = headerIdx[h+1]
		}

		block := DayBlock{Label: tokens[start]}
		state := stateOutsideEntry
		var pendingTime string
		for i := start + 1; i < end; i++ {
			tok := tokens[i]
			switch state {
			case stateOutsideEntry:
				if timeTokenRe.MatchString(tok) {
					pendingTime = tok
					state = stateSeekingTitle
				}
			case stateSeekingTitle:
				// tokens are pre-trimmed and non-empty, so this one is the title
				block.Entries = append(block.Entries, ScreeningEntry{
					Time:  pendingTime,
					Title: tok,
					Href:  resolve(tok),
				})
				state = stateOutsideEntry
			}
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// ListingCalendar derives pseudo-days from the generic "alle film" listing,
// scanning each item card's ancestor text for date fragments. Exact
// screening times are absent on that page, so every entry carries the
// placeholder time for later backfill.
type ListingCalendar struct {
	fetcher    *Fetcher
	extract    *Extractor
	allow      *Allowlist
	listingURL string
	now        func() time.Time
}

func NewListingCalendar(fetcher *Fetcher, extract *Extractor, allow *Allowlist, listingURL string) *ListingCalendar {
	return &ListingCalendar{
		fetcher:    fetcher,
		extract:    extract,
		allow:      allow,
		listingURL: listingURL,
		now:        time.Now,
	}
}

func (c *ListingCalendar) Days(ctx context.Context) []DayBlock {
	doc := c.fetcher.Document(ctx, c.listingURL)
	return c.daysFromDoc(doc)
}

func (c *ListingCalendar) daysFromDoc(doc *goquery.Document) []DayBlock {
	year := c.now().Year()
	dayMap := make(map[string][]ScreeningEntry)

	doc.Find(itemAnchorSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := c.extract.AbsURL(href)
		if !c.allow.Allows(abs) {
			return
		}
		title := strings.TrimSpace(a.Text())

		dateText := ""
		el := a.Parent()
		for hops := 0; hops < 5 && el.Length() > 0; hops++ {
			txt := normalizeSpace(el.Text())
			if dateFragmentRe.MatchString(txt) {
				dateText = txt
				break
			}
			el = el.Parent()
		}

		for _, iso := range parseDateChunks(dateText, year) {
			dayMap[iso] = append(dayMap[iso], ScreeningEntry{
				Time:  PlaceholderTime,
				Title: title,
				Href:  abs,
			})
		}
	})

	isos := make([]string, 0, len(dayMap))
	for iso := range dayMap {
		isos = append(isos, iso)
	}
	sort.Strings(isos)

	blocks := make([]DayBlock, 0, len(isos))
	for _, iso := range isos {
		blocks = append(blocks, DayBlock{Label: WeekdayLabel(iso), Entries: dayMap[iso]})
	}
	return blocks
}

// parseDateChunks resolves comma/dash-separated date fragments such as
// "25. nov, 28. nov" into ISO dates in the given year. Unparseable and
// invalid fragments are dropped.
func parseDateChunks(text string, year int) []string {
	var out []string
	for _, part := range chunkSplitRe.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := datePartRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		day, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		mon, ok := monthsShort[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		if iso := isoDate(year, mon, day); iso != "" {
			out = append(out, iso)
		}
	}
	return out
}
