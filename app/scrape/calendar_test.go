package scrape

import (
	"testing"
	"time"
)

func TestScanDayBlocks(t *testing.T) {
	tokens := []string{
		"Menu", "Cinemateket",
		"Mandag 3. marts",
		"16:45", "Stalker",
		"19:15", "Solaris",
		"Tirsdag 4. marts",
		"Køb billet",
		"20:00", "Spejlet",
		"Footer",
	}
	resolve := func(title string) string {
		return "https://www.dfi.dk/cinemateket/biograf/alle-film/film/" + title
	}

	blocks := scanDayBlocks(tokens, resolve)
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 day blocks, got %d", len(blocks))
	}

	if blocks[0].Label != "Mandag 3. marts" {
		t.Errorf("Expected first label 'Mandag 3. marts', got %q", blocks[0].Label)
	}
	if len(blocks[0].Entries) != 2 {
		t.Fatalf("Expected 2 entries on first day, got %d", len(blocks[0].Entries))
	}
	if blocks[0].Entries[0].Time != "16:45" || blocks[0].Entries[0].Title != "Stalker" {
		t.Errorf("Unexpected first entry: %+v", blocks[0].Entries[0])
	}
	if blocks[0].Entries[0].Href != "https://www.dfi.dk/cinemateket/biograf/alle-film/film/Stalker" {
		t.Errorf("Unexpected resolved href: %q", blocks[0].Entries[0].Href)
	}

	if len(blocks[1].Entries) != 1 {
		t.Fatalf("Expected 1 entry on second day, got %d", len(blocks[1].Entries))
	}
	if blocks[1].Entries[0].Title != "Spejlet" {
		t.Errorf("Expected non-time tokens before the entry to be skipped, got %+v", blocks[1].Entries[0])
	}
}

func TestScanDayBlocksNoHeaders(t *testing.T) {
	tokens := []string{"16:45", "Stalker", "19:15"}
	blocks := scanDayBlocks(tokens, func(string) string { return "" })
	if len(blocks) != 0 {
		t.Errorf("Expected no blocks without day headers, got %d", len(blocks))
	}
}

func TestScanDayBlocksTrailingTime(t *testing.T) {
	tokens := []string{"Mandag 3. marts", "16:45"}
	blocks := scanDayBlocks(tokens, func(string) string { return "" })
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(blocks))
	}
	if len(blocks[0].Entries) != 0 {
		t.Errorf("Expected a time token with no following title to be dropped, got %+v", blocks[0].Entries)
	}
}

func TestTextNodesSkipsScriptAndStyle(t *testing.T) {
	doc := docFromHTML(t, `<html><head>
		<style>.x { color: red }</style>
		<script>var hidden = "19:15";</script>
	</head><body>
		<div>Mandag 3. marts</div>
		<span> 16:45 </span><a href="/f">Stalker</a>
	</body></html>`)

	tokens := textNodes(doc)
	expected := []string{"Mandag 3. marts", "16:45", "Stalker"}
	if len(tokens) != len(expected) {
		t.Fatalf("Expected tokens %v, got %v", expected, tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("Expected token %q at index %d, got %q", expected[i], i, tokens[i])
		}
	}
}

func TestAnchorResolver(t *testing.T) {
	doc := docFromHTML(t, `<html><body>
		<a href="/cinemateket/biograf/alle-film/film/solaris">Solaris</a>
		<a href="/cinemateket/biograf/alle-film/film/stalker">Stalker</a>
	</body></html>`)
	resolve := anchorResolver(doc, testExtractor())

	if got := resolve("Stalker"); got != "https://www.dfi.dk/cinemateket/biograf/alle-film/film/stalker" {
		t.Errorf("Expected exact-text match, got %q", got)
	}
	if got := resolve("Ukendt titel"); got != "https://www.dfi.dk/cinemateket/biograf/alle-film/film/solaris" {
		t.Errorf("Expected first item anchor as fallback, got %q", got)
	}
}

func TestParseDateChunks(t *testing.T) {
	tests := []struct {
		text     string
		expected []string
	}{
		{"25. nov, 28. nov", []string{"2025-11-25", "2025-11-28"}},
		{"3. marts", []string{"2025-03-03"}},
		{"Vises 1. jan – 2. feb", []string{"2025-01-01", "2025-02-02"}},
		{"31. feb", nil},
		{"ingen datoer her", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := parseDateChunks(tt.text, 2025)
		if len(got) != len(tt.expected) {
			t.Errorf("parseDateChunks(%q): expected %v, got %v", tt.text, tt.expected, got)
			continue
		}
		for i := range tt.expected {
			if got[i] != tt.expected[i] {
				t.Errorf("parseDateChunks(%q)[%d]: expected %q, got %q", tt.text, i, tt.expected[i], got[i])
			}
		}
	}
}

func TestListingCalendarDaysFromDoc(t *testing.T) {
	doc := docFromHTML(t, `<html><body>
		<div class="card">
			<a href="/cinemateket/biograf/alle-film/film/stalker">Stalker</a>
			<span>Vises 10. jun, 12. jun</span>
		</div>
		<div class="card">
			<a href="/cinemateket/biograf/events/event/fest">Filmfest</a>
			<span>11. juni</span>
		</div>
		<div class="card">
			<a href="/om-dfi/andet">Uden for scope</a>
			<span>11. juni</span>
		</div>
	</body></html>`)

	cal := NewListingCalendar(nil, testExtractor(), NewAllowlist([]string{"www.dfi.dk"}, []string{"/cinemateket/"}), "")
	cal.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	blocks := cal.daysFromDoc(doc)
	if len(blocks) != 3 {
		t.Fatalf("Expected 3 day blocks, got %d: %+v", len(blocks), blocks)
	}

	if blocks[0].Label != "Tirsdag 10. juni" {
		t.Errorf("Expected first block 'Tirsdag 10. juni', got %q", blocks[0].Label)
	}
	if len(blocks[0].Entries) != 1 || blocks[0].Entries[0].Title != "Stalker" {
		t.Errorf("Unexpected entries on first day: %+v", blocks[0].Entries)
	}
	if blocks[0].Entries[0].Time != PlaceholderTime {
		t.Errorf("Expected placeholder time on listing entries, got %q", blocks[0].Entries[0].Time)
	}

	if blocks[1].Label != "Onsdag 11. juni" {
		t.Errorf("Expected second block 'Onsdag 11. juni', got %q", blocks[1].Label)
	}
	if len(blocks[1].Entries) != 1 || blocks[1].Entries[0].Title != "Filmfest" {
		t.Errorf("Expected out-of-scope anchor to be excluded, got %+v", blocks[1].Entries)
	}

	if blocks[2].Label != "Torsdag 12. juni" {
		t.Errorf("Expected third block 'Torsdag 12. juni', got %q", blocks[2].Label)
	}
}
