package scrape

import (
	"net/url"
	"strings"
)

// Allowlist is the fixed set of host + path-prefix combinations the system
// is permitted to fetch from, shared by the scraper and the proxy.
type Allowlist struct {
	hosts    map[string]bool
	prefixes []string
}

func NewAllowlist(hosts []string, prefixes []string) *Allowlist {
	hostSet := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h != "" {
			hostSet[h] = true
		}
	}
	return &Allowlist{hosts: hostSet, prefixes: prefixes}
}

func (a *Allowlist) Allows(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !a.hosts[u.Host] {
		return false
	}
	for _, p := range a.prefixes {
		if strings.HasPrefix(u.Path, p) {
			return true
		}
	}
	return false
}
