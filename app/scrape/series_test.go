package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func seriesTestSite(t *testing.T) (*httptest.Server, *Extractor, *Allowlist) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/cinemateket/biograf/filmserier", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/cinemateket/biograf/filmserier/serie/tarkovskij">Tarkovskij</a>
			<a href="/cinemateket/biograf/filmserier/serie/tarkovskij">Tarkovskij igen</a>
		</body></html>`))
	})
	mux.HandleFunc("/cinemateket/biograf/filmserier/serie/tarkovskij", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(`<html><body>
				<a href="/cinemateket/biograf/alle-film/film/spejlet">Spejlet</a>
			</body></html>`))
			return
		}
		w.Write([]byte(`<html><head><meta property="og:title" content="Tarkovskij"></head><body>
			<article>
				<img src="/media/tarkovskij.jpg">
				<p>Sæsonen er viet til Andrej Tarkovskij.</p>
			</article>
			<a href="/cinemateket/biograf/alle-film/film/stalker">Stalker</a>
			<a href="/cinemateket/biograf/alle-film/film/solaris">Solaris</a>
			<a href="/cinemateket/biograf/filmserier/serie/tarkovskij?page=1">Næste side</a>
		</body></html>`))
	})
	mux.HandleFunc("/cinemateket/biograf/alle-film", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/cinemateket/biograf/alle-film/film/stalker">Stalker</a>
			<a href="/cinemateket/biograf/alle-film/film/offret">Offret</a>
		</body></html>`))
	})
	mux.HandleFunc("/cinemateket/biograf/alle-film/film/offret", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<nav><a href="/cinemateket/biograf/filmserier/serie/bergman-og-tarkovskij">Bergman og Tarkovskij</a></nav>
			<h1>Offret</h1>
		</body></html>`))
	})
	mux.HandleFunc("/cinemateket/biograf/filmserier/serie/bergman-og-tarkovskij", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta property="og:title" content="Bergman og Tarkovskij"></head>
			<body><article><p>To mestre side om side.</p></article></body></html>`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	extract := NewExtractor(srv.URL, "Cinemateket", nil)
	allow := NewAllowlist([]string{u.Host}, []string{"/cinemateket/"})
	return srv, extract, allow
}

func TestRegistryBuild(t *testing.T) {
	srv, extract, allow := seriesTestSite(t)

	b := NewRegistryBuilder(
		NewFetcher(5*time.Second, 0, "test-agent"),
		extract, allow,
		srv.URL+"/cinemateket/biograf/filmserier",
		[]string{srv.URL + "/cinemateket/biograf/alle-film"},
	)
	reg := b.Build(context.Background())

	wantMembers := map[string]string{
		srv.URL + "/cinemateket/biograf/alle-film/film/stalker": "Tarkovskij",
		srv.URL + "/cinemateket/biograf/alle-film/film/solaris": "Tarkovskij",
		srv.URL + "/cinemateket/biograf/alle-film/film/spejlet": "Tarkovskij",
		srv.URL + "/cinemateket/biograf/alle-film/film/offret":  "Bergman og Tarkovskij",
	}
	for href, series := range wantMembers {
		if got := reg.ByHref[href]; got != series {
			t.Errorf("Expected %q mapped to series %q, got %q", href, series, got)
		}
	}
	if len(reg.ByHref) != len(wantMembers) {
		t.Errorf("Expected %d mapped items, got %d: %v", len(wantMembers), len(reg.ByHref), reg.ByHref)
	}

	meta, ok := reg.Meta["Tarkovskij"]
	if !ok {
		t.Fatal("Expected metadata for series 'Tarkovskij'")
	}
	if meta.Intro != "Sæsonen er viet til Andrej Tarkovskij." {
		t.Errorf("Unexpected series intro: %q", meta.Intro)
	}
	if meta.Banner != srv.URL+"/media/tarkovskij.jpg" {
		t.Errorf("Unexpected series banner: %q", meta.Banner)
	}

	if _, ok := reg.Meta["Bergman og Tarkovskij"]; !ok {
		t.Error("Expected breadcrumb-discovered series metadata to be recorded")
	}
}

func TestRegistryBuildCancelled(t *testing.T) {
	srv, extract, allow := seriesTestSite(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewRegistryBuilder(
		NewFetcher(5*time.Second, 0, "test-agent"),
		extract, allow,
		srv.URL+"/cinemateket/biograf/filmserier",
		[]string{srv.URL + "/cinemateket/biograf/alle-film"},
	)
	reg := b.Build(ctx)

	if len(reg.ByHref) != 0 {
		t.Errorf("Expected no mappings under a cancelled context, got %v", reg.ByHref)
	}
}

func TestStripQuery(t *testing.T) {
	if got := stripQuery("https://x.dk/a?page=2"); got != "https://x.dk/a" {
		t.Errorf("Expected query stripped, got %q", got)
	}
	if got := stripQuery("https://x.dk/a"); got != "https://x.dk/a" {
		t.Errorf("Expected URL unchanged, got %q", got)
	}
}
