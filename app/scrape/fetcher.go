package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"
)

const (
	fetchAttempts  = 3
	backoffStep    = 400 * time.Millisecond
	acceptLanguage = "da-DK,da;q=0.9,en;q=0.8"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// IsTransientStatus reports whether an upstream status code is worth
// retrying. The proxy shares this set.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// LinearBackoff sleeps 0.4s, 0.8s, ... between attempts. No jitter.
func LinearBackoff(n uint, _ error, _ *retry.Config) time.Duration {
	return time.Duration(n+1) * backoffStep
}

// Fetcher retrieves origin pages as parsed documents. HTTP-level failure is
// never surfaced as an error: callers get the best document obtainable from
// the last response body, which may be empty.
type Fetcher struct {
	client    *http.Client
	userAgent string
	delay     time.Duration
}

func NewFetcher(timeout time.Duration, delay time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
		delay:     delay,
	}
}

// Document fetches url with bounded retries on transient upstream failure.
// A non-200 final response still yields a parsed document; callers must
// treat an empty document as "no data".
func (f *Fetcher) Document(ctx context.Context, rawurl string) *goquery.Document {
	var lastBody []byte

	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept-Language", acceptLanguage)
		req.Header.Set("Accept", acceptHeader)

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		lastBody = body

		if IsTransientStatus(resp.StatusCode) {
			return fmt.Errorf("transient upstream status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			slog.Warn("Non-200 upstream response", "url", rawurl, "status", resp.StatusCode)
		}
		return nil
	},
		retry.Attempts(fetchAttempts),
		retry.DelayType(LinearBackoff),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		slog.Warn("Fetch retries exhausted", "url", rawurl, "error", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(lastBody))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

// Throttle pauses for the configured inter-request delay. Crawl loops call
// it between successive upstream fetches to bound the request rate against
// the origin site.
func (f *Fetcher) Throttle() {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}
