package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/Brogede16/cinemateket-print-program/app/scrape"
)

// Failure classes surfaced as distinct HTTP status codes. Silently
// proceeding past an allowlist or redirect violation would defeat the
// security boundary, so these are hard errors, unlike the scraper's
// best-effort degradation.
var (
	ErrForbidden    = errors.New("target not allowlisted")
	ErrRedirectLoop = errors.New("redirect hop limit exceeded")
	ErrUpstream     = errors.New("upstream fetch failed")
)

const (
	maxRedirectHops = 3
	fetchAttempts   = 3
)

// Result is the upstream response passed through to the client. Cached is
// true when it was served without an upstream call.
type Result struct {
	Status      int
	Body        []byte
	ContentType string
	Cached      bool
}

// Proxy is the restricted passthrough fetch: allowlist validation before
// any network I/O, bounded TTL caching of 200 responses, and per-hop
// re-validation of redirects.
type Proxy struct {
	client    *http.Client
	allow     *scrape.Allowlist
	cache     *Cache
	userAgent string
}

func NewProxy(allow *scrape.Allowlist, cache *Cache, timeout time.Duration, userAgent string) *Proxy {
	return &Proxy{
		// redirects are followed manually so every hop passes the allowlist
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		allow:     allow,
		cache:     cache,
		userAgent: userAgent,
	}
}

func (p *Proxy) Fetch(ctx context.Context, rawurl string) (*Result, error) {
	if !p.allow.Allows(rawurl) {
		return nil, ErrForbidden
	}

	if body, contentType, ok := p.cache.Get(rawurl); ok {
		return &Result{Status: http.StatusOK, Body: body, ContentType: contentType, Cached: true}, nil
	}

	current := rawurl
	for hop := 0; hop <= maxRedirectHops; hop++ {
		status, header, body, err := p.get(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		if isRedirect(status) {
			location := header.Get("Location")
			if location == "" {
				return &Result{Status: status, Body: body, ContentType: header.Get("Content-Type")}, nil
			}
			target, err := resolveLocation(current, location)
			if err != nil || !p.allow.Allows(target) {
				slog.Warn("Redirect target rejected", "from", current, "location", location)
				return nil, ErrForbidden
			}
			current = target
			continue
		}

		contentType := header.Get("Content-Type")
		if status == http.StatusOK {
			p.cache.Set(rawurl, body, contentType)
		}
		return &Result{Status: status, Body: body, ContentType: contentType}, nil
	}

	return nil, ErrRedirectLoop
}

// get performs a single logical GET with bounded retry on the transient
// status set, returning the final response even when it is non-2xx.
func (p *Proxy) get(ctx context.Context, rawurl string) (int, http.Header, []byte, error) {
	var (
		status int
		header http.Header
		body   []byte
		got    bool
	)

	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		req.Header.Set("User-Agent", p.userAgent)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		status, header, body, got = resp.StatusCode, resp.Header, b, true

		if scrape.IsTransientStatus(resp.StatusCode) {
			return fmt.Errorf("transient upstream status %d", resp.StatusCode)
		}
		return nil
	},
		retry.Attempts(fetchAttempts),
		retry.DelayType(scrape.LinearBackoff),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)

	if !got {
		return 0, nil, nil, err
	}
	// a transient final status is passed through rather than failed
	return status, header, body, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveLocation(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u, err := b.Parse(location)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
