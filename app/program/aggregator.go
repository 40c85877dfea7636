package program

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Brogede16/cinemateket-print-program/app/scrape"
)

// ErrInvalidScope reports an unknown mode or a range request missing one
// of its bounds.
var ErrInvalidScope = errors.New("mode must be 'all' or 'range'; range requires 'from' and 'to'")

// maxDateSentinel sorts items and groups without any screening date last.
const maxDateSentinel = "9999-99-99 99:99"

var trailingParenRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// canonicalTitle normalizes a display title for dedup inside a series:
// trailing parentheticals such as "(Q&A)" removed, whitespace collapsed,
// lowercased.
func canonicalTitle(raw string) string {
	t := trailingParenRe.ReplaceAllString(strings.TrimSpace(raw), "")
	return strings.ToLower(strings.Join(strings.Fields(t), " "))
}

type itemAccum struct {
	canon    string
	url      string
	title    string
	image    string
	synopsis string
	dates    map[string]bool
}

func (it *itemAccum) addDates(dates []string) {
	for _, d := range dates {
		if d != "" {
			it.dates[d] = true
		}
	}
}

// fill takes image and synopsis from a later detail fetch when the first
// one came up empty.
func (it *itemAccum) fill(det scrape.ItemDetail) {
	if it.image == "" && det.Image != "" {
		it.image = det.Image
	}
	if it.synopsis == "" && det.Synopsis != "" {
		it.synopsis = det.Synopsis
	}
}

type groupAccum struct {
	intro  string
	banner string
	order  []string
	items  map[string]*itemAccum
}

func (g *groupAccum) findCanon(canon string) *itemAccum {
	for _, href := range g.order {
		if g.items[href].canon == canon {
			return g.items[href]
		}
	}
	return nil
}

func (g *groupAccum) add(href string, item *itemAccum) {
	g.items[href] = item
	g.order = append(g.order, href)
}

// Aggregator joins calendar entries, the series registry and per-item
// detail fetches into the grouped, sorted, deduplicated schedule. All state
// is owned by a single Build call; nothing persists across runs.
type Aggregator struct {
	calendar CalendarSource
	registry RegistrySource
	details  DetailSource
	allow    *scrape.Allowlist
	now      func() time.Time
}

func NewAggregator(calendar CalendarSource, registry RegistrySource,
	details DetailSource, allow *scrape.Allowlist) *Aggregator {
	return &Aggregator{
		calendar: calendar,
		registry: registry,
		details:  details,
		allow:    allow,
		now:      time.Now,
	}
}

func (a *Aggregator) Build(ctx context.Context, mode, from, to string) (*Response, error) {
	switch mode {
	case "", ModeAll:
		mode = ModeAll
	case ModeRange:
		if from == "" || to == "" {
			return nil, ErrInvalidScope
		}
	default:
		return nil, ErrInvalidScope
	}
	now := a.now()
	today := now.Format("2006-01-02")
	if from == "" {
		from = today
	}

	inScope := func(iso string) bool {
		if mode == ModeAll {
			return iso >= today
		}
		return from <= iso && iso <= to
	}

	reg := a.registry.Build(ctx)
	days := a.calendar.Days(ctx)
	year := now.Year()

	groups := make(map[string]*groupAccum)
	ensureGroup := func(name string) *groupAccum {
		g, ok := groups[name]
		if !ok {
			meta := reg.Meta[name]
			g = &groupAccum{intro: meta.Intro, banner: meta.Banner, items: make(map[string]*itemAccum)}
			groups[name] = g
		}
		return g
	}

	// At most one detail fetch per unique href per run.
	type detailResult struct {
		det scrape.ItemDetail
		err error
	}
	memo := make(map[string]*detailResult)
	fetchDetail := func(href string) (scrape.ItemDetail, error) {
		if r, ok := memo[href]; ok {
			return r.det, r.err
		}
		det, err := a.details.Run(ctx, href)
		memo[href] = &detailResult{det: det, err: err}
		return det, err
	}

	for _, day := range days {
		iso := scrape.IsoFromLabel(day.Label, year)
		if iso == "" {
			slog.Debug("Unparseable day label skipped", "label", day.Label)
			continue
		}
		if !inScope(iso) {
			continue
		}

		for _, entry := range day.Entries {
			if entry.Href == "" || !a.allow.Allows(entry.Href) {
				continue
			}

			seriesName := reg.ByHref[entry.Href]
			if seriesName == "" {
				seriesName = NoSeriesName
			}
			group := ensureGroup(seriesName)

			det, err := fetchDetail(entry.Href)
			if err != nil {
				// One broken upstream page never aborts the schedule; the
				// entry degrades to a placeholder built from the calendar.
				slog.Warn("Item detail degraded to placeholder", "url", entry.Href, "error", err)
				det = scrape.ItemDetail{Title: entry.Title}
			}

			title := det.Title
			if title == "" {
				title = entry.Title
			}
			if title == "" {
				title = "Titel"
			}
			canon := canonicalTitle(title)
			newDates := entryDates(iso, entry.Time, det)

			if item := group.findCanon(canon); item != nil {
				item.fill(det)
				item.addDates(newDates)
				continue
			}
			item := &itemAccum{
				canon:    canon,
				url:      entry.Href,
				title:    title,
				image:    det.Image,
				synopsis: det.Synopsis,
				dates:    make(map[string]bool),
			}
			item.addDates(newDates)
			group.add(entry.Href, item)
		}
	}

	a.sweepRegistry(ctx, reg, groups, ensureGroup, fetchDetail, inScope)

	return a.render(now, mode, from, to, groups), nil
}

// sweepRegistry folds in registry items that never appeared on the
// calendar but whose own detail pages carry in-scope datetimes.
func (a *Aggregator) sweepRegistry(ctx context.Context, reg *scrape.SeriesRegistry,
	groups map[string]*groupAccum, ensureGroup func(string) *groupAccum,
	fetchDetail func(string) (scrape.ItemDetail, error), inScope func(string) bool) {

	hrefs := make([]string, 0, len(reg.ByHref))
	for href := range reg.ByHref {
		hrefs = append(hrefs, href)
	}
	sort.Strings(hrefs)

	for _, href := range hrefs {
		if ctx.Err() != nil {
			return
		}
		seriesName := reg.ByHref[href]

		det, err := fetchDetail(href)
		if err != nil {
			slog.Warn("Registry sweep fetch failed", "url", href, "error", err)
			continue
		}

		title := det.Title
		if title == "" {
			title = "Titel"
		}
		canon := canonicalTitle(title)

		valid := make([]string, 0, len(det.Datetimes))
		for _, dt := range det.Datetimes {
			if len(dt) >= 10 && inScope(dt[:10]) {
				valid = append(valid, dt)
			}
		}

		if group, ok := groups[seriesName]; ok {
			if item := group.findCanon(canon); item != nil {
				item.fill(det)
				item.addDates(valid)
				continue
			}
		}
		if len(valid) == 0 {
			continue
		}

		group := ensureGroup(seriesName)
		item := &itemAccum{
			canon:    canon,
			url:      href,
			title:    title,
			image:    det.Image,
			synopsis: det.Synopsis,
			dates:    make(map[string]bool),
		}
		item.addDates(valid)
		group.add(href, item)
	}
}

// entryDates reconciles a single calendar entry with the item's detail
// data: a placeholder entry fans the day out across the item's known show
// times (or its own dated stamps of that day) instead of recording the
// placeholder literally.
func entryDates(iso, timeOfDay string, det scrape.ItemDetail) []string {
	if timeOfDay != scrape.PlaceholderTime {
		return []string{iso + " " + timeOfDay}
	}
	if len(det.Times) > 0 {
		out := make([]string, 0, len(det.Times))
		for _, tm := range det.Times {
			out = append(out, iso+" "+tm)
		}
		return out
	}
	var out []string
	for _, dt := range det.Datetimes {
		if strings.HasPrefix(dt, iso) {
			out = append(out, dt)
		}
	}
	return out
}

func (a *Aggregator) render(now time.Time, mode, from, to string, groups map[string]*groupAccum) *Response {
	var series []*SeriesGroup
	for name, g := range groups {
		items := make([]*AggregatedItem, 0, len(g.items))
		for _, href := range g.order {
			acc := g.items[href]
			dates := make([]string, 0, len(acc.dates))
			for d := range acc.dates {
				dates = append(dates, d)
			}
			sort.Strings(dates)
			items = append(items, &AggregatedItem{
				URL:      acc.url,
				Title:    acc.title,
				Image:    acc.image,
				Synopsis: acc.synopsis,
				Dates:    dates,
			})
		}
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			return firstDate(items[i]) < firstDate(items[j])
		})
		series = append(series, &SeriesGroup{
			Name:   name,
			Intro:  g.intro,
			Banner: g.banner,
			Items:  items,
		})
	}

	sort.Slice(series, func(i, j int) bool {
		di, dj := firstDate(series[i].Items[0]), firstDate(series[j].Items[0])
		if di != dj {
			return di < dj
		}
		return series[i].Name < series[j].Name
	})
	if series == nil {
		series = []*SeriesGroup{}
	}

	return &Response{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Scope:       Scope{Mode: mode, From: from, To: to},
		Series:      series,
	}
}

func firstDate(item *AggregatedItem) string {
	if len(item.Dates) == 0 {
		return maxDateSentinel
	}
	return item.Dates[0]
}
