package scrape

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	seriesAnchorSelector = `a[href*="` + SeriesPathPattern + `"]`
	pageAnchorSelector   = `a[href*="?page="]`
)

// SeriesMeta is the deduplicated metadata of one curated series. Banner is
// "" when the series page has no usable image.
type SeriesMeta struct {
	Intro  string
	Banner string
}

// SeriesRegistry is the bidirectional view produced by one crawl: item href
// to series display name, and series display name to metadata. Unmapped
// hrefs get a sentinel series at join time; the sentinel is never stored
// here.
type SeriesRegistry struct {
	ByHref map[string]string
	Meta   map[string]SeriesMeta
}

// RegistryBuilder crawls the series index, the broad listings and, for
// items the index did not map, the items' own breadcrumb links. A single
// series' or item's failure never aborts the whole crawl.
type RegistryBuilder struct {
	fetcher        *Fetcher
	extract        *Extractor
	allow          *Allowlist
	seriesIndexURL string
	listingURLs    []string
}

func NewRegistryBuilder(fetcher *Fetcher, extract *Extractor, allow *Allowlist,
	seriesIndexURL string, listingURLs []string) *RegistryBuilder {
	return &RegistryBuilder{
		fetcher:        fetcher,
		extract:        extract,
		allow:          allow,
		seriesIndexURL: seriesIndexURL,
		listingURLs:    listingURLs,
	}
}

func (b *RegistryBuilder) Build(ctx context.Context) *SeriesRegistry {
	reg := &SeriesRegistry{
		ByHref: make(map[string]string),
		Meta:   make(map[string]SeriesMeta),
	}

	b.harvestSeriesIndex(ctx, reg)

	// Broad item lists feed the breadcrumb fallback, which also covers the
	// case of the series index yielding no mappings at all.
	allItems := make(map[string]bool)
	for _, listURL := range b.listingURLs {
		for href := range b.collectPagedItems(ctx, listURL, stripQuery(listURL)) {
			allItems[href] = true
		}
	}
	b.harvestBreadcrumbs(ctx, reg, allItems)

	slog.Info("Series registry built", "items", len(reg.ByHref), "series", len(reg.Meta))
	return reg
}

// harvestSeriesIndex walks every series page linked from the index,
// recording its metadata and claiming its member items.
func (b *RegistryBuilder) harvestSeriesIndex(ctx context.Context, reg *SeriesRegistry) {
	idx := b.fetcher.Document(ctx, b.seriesIndexURL)

	seen := make(map[string]bool)
	var seriesURLs []string
	idx.Find(seriesAnchorSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		seriesURL := b.extract.AbsURL(href)
		if seriesURL == "" || seen[seriesURL] {
			return
		}
		seen[seriesURL] = true
		seriesURLs = append(seriesURLs, seriesURL)
	})

	for _, seriesURL := range seriesURLs {
		if ctx.Err() != nil {
			return
		}
		name, meta := b.fetchSeriesMeta(ctx, seriesURL)
		reg.Meta[name] = meta
		members := b.collectPagedItems(ctx, seriesURL, stripQuery(seriesURL))
		for href := range members {
			reg.ByHref[href] = name
		}
		slog.Debug("Series harvested", "series", name, "members", len(members), "url", seriesURL)
		b.fetcher.Throttle()
	}
}

// fetchSeriesMeta resolves a series page into its display name, cleaned
// intro (first 4 paragraphs of the body block) and banner image.
func (b *RegistryBuilder) fetchSeriesMeta(ctx context.Context, seriesURL string) (string, SeriesMeta) {
	doc := b.fetcher.Document(ctx, seriesURL)

	name := strings.TrimSpace(b.extract.Title(doc, seriesURL))
	if name == "" {
		name = "Serie"
	}

	intro := ""
	if ps := paragraphsIn(b.extract.BodyBlock(doc)); len(ps) > 0 {
		if len(ps) > 4 {
			ps = ps[:4]
		}
		intro = b.extract.CleanSynopsis(strings.Join(ps, "\n\n"))
	}

	return name, SeriesMeta{Intro: intro, Banner: b.extract.Image(doc)}
}

// collectPagedItems gathers every allowlisted film/event detail href
// reachable from startURL, following ?page= pagination links bounded to
// rootPrefix.
func (b *RegistryBuilder) collectPagedItems(ctx context.Context, startURL string, rootPrefix string) map[string]bool {
	found := make(map[string]bool)
	visited := make(map[string]bool)
	queue := []string{startURL}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return found
		}
		pageURL := queue[0]
		queue = queue[1:]
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		doc := b.fetcher.Document(ctx, pageURL)
		doc.Find(itemAnchorSelector).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			abs := b.extract.AbsURL(href)
			if b.allow.Allows(abs) {
				found[abs] = true
			}
		})
		doc.Find(pageAnchorSelector).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			abs := b.extract.AbsURL(href)
			if strings.HasPrefix(abs, rootPrefix) && !visited[abs] {
				queue = append(queue, abs)
			}
		})
		b.fetcher.Throttle()
	}
	return found
}

// harvestBreadcrumbs maps the remaining items through the "belongs to
// series" breadcrumb link on their own detail pages. Series metadata is
// resolved once per series page.
func (b *RegistryBuilder) harvestBreadcrumbs(ctx context.Context, reg *SeriesRegistry, items map[string]bool) {
	nameBySeriesURL := make(map[string]string)

	hrefs := make([]string, 0, len(items))
	for href := range items {
		hrefs = append(hrefs, href)
	}
	sort.Strings(hrefs)

	for _, href := range hrefs {
		if ctx.Err() != nil {
			return
		}
		if !b.allow.Allows(href) {
			continue
		}
		if _, mapped := reg.ByHref[href]; mapped {
			continue
		}

		doc := b.fetcher.Document(ctx, href)
		crumb := doc.Find(seriesAnchorSelector).First()
		if crumb.Length() == 0 {
			b.fetcher.Throttle()
			continue
		}
		crumbHref, _ := crumb.Attr("href")
		seriesURL := b.extract.AbsURL(crumbHref)

		name, ok := nameBySeriesURL[seriesURL]
		if !ok {
			var meta SeriesMeta
			name, meta = b.fetchSeriesMeta(ctx, seriesURL)
			if _, exists := reg.Meta[name]; !exists {
				reg.Meta[name] = meta
			}
			nameBySeriesURL[seriesURL] = name
		}
		reg.ByHref[href] = name
		b.fetcher.Throttle()
	}
}

func stripQuery(rawurl string) string {
	if i := strings.Index(rawurl, "?"); i >= 0 {
		return rawurl[:i]
	}
	return rawurl
}
