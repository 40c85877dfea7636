package cfg

import (
	"cmp"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server configuration
	Port      string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	StaticDir string `long:"static-dir" env:"STATIC_DIR" default:"./web" description:"Directory containing the static front-end"`

	// Upstream site configuration
	BaseUrl          string `long:"base-url" env:"BASE_URL" default:"https://www.dfi.dk" description:"Origin site base URL"`
	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; CinemateketPrint/3.1; +https://www.dfi.dk/)" description:"User agent string for upstream requests"`
	UpstreamTimeout  int    `long:"upstream-timeout" env:"UPSTREAM_TIMEOUT" default:"25" description:"Upstream request timeout in seconds"`
	ScrapeDelayMs    int    `long:"scrape-delay-ms" env:"SCRAPE_DELAY_MS" default:"120" description:"Delay between successive upstream fetches in milliseconds"`
	CalendarStrategy string `long:"calendar-strategy" env:"CALENDAR_STRATEGY" default:"listing" choice:"listing" choice:"dayheader" description:"Calendar parsing strategy"`

	// Allowlist configuration
	AllowedHosts        string `long:"allowed-hosts" env:"ALLOWED_HOSTS" default:"www.dfi.dk,dfi.dk" description:"Comma-separated allowlisted upstream hosts"`
	AllowedPathPrefixes string `long:"allowed-path-prefixes" env:"ALLOWED_PATH_PREFIXES" default:"/cinemateket/" description:"Comma-separated allowlisted upstream path prefixes"`

	// Proxy configuration
	CacheTTL     int `long:"cache-ttl" env:"CACHE_TTL" default:"300" description:"Proxy cache TTL in seconds"`
	CacheMaxSize int `long:"cache-max-size" env:"CACHE_MAX_SIZE" default:"256" description:"Maximum number of proxy cache entries"`
	RateLimitRPM int `long:"rate-limit-rpm" env:"RATE_LIMIT_RPM" default:"60" description:"Proxy requests per client per minute"`

	// Extraction policy
	ScrapeConfig string `long:"scrape-config" env:"SCRAPE_CONFIG" description:"Optional YAML file overriding the scrape policy (hosts, prefixes, blacklist)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Europe/Copenhagen" description:"Timezone for schedule dates"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// defaultBlacklist lists the origin site's boilerplate phrases dropped from
// synopses, matched line-by-line and case-insensitively.
var defaultBlacklist = []string{
	"Gør dit lærred lidt bredere",
	"Filmtaget",
	"Se alle",
	"Læs mere",
	"Køb billetter",
	"Relaterede programmer",
	"Cinemateket",
	"Dansk film under åben himmel",
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:                raw.Port,
		StaticDir:           raw.StaticDir,
		BaseUrl:             strings.TrimRight(raw.BaseUrl, "/"),
		UserAgent:           raw.UserAgent,
		UpstreamTimeout:     raw.UpstreamTimeout,
		ScrapeDelayMs:       raw.ScrapeDelayMs,
		CalendarStrategy:    raw.CalendarStrategy,
		AllowedHosts:        splitList(raw.AllowedHosts),
		AllowedPathPrefixes: splitList(raw.AllowedPathPrefixes),
		CacheTTL:            raw.CacheTTL,
		CacheMaxSize:        raw.CacheMaxSize,
		RateLimitRPM:        raw.RateLimitRPM,
		Brand:               "Cinemateket",
		SynopsisBlacklist:   defaultBlacklist,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if raw.ScrapeConfig != "" {
		if err := applyScrapePolicy(cfg, raw.ScrapeConfig); err != nil {
			return nil, fmt.Errorf("failed to load scrape policy %s: %w", raw.ScrapeConfig, err)
		}
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyScrapePolicy(cfg *Cfg, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var policy ScrapePolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	if len(policy.Hosts) > 0 {
		cfg.AllowedHosts = policy.Hosts
	}
	if len(policy.PathPrefixes) > 0 {
		cfg.AllowedPathPrefixes = policy.PathPrefixes
	}
	if policy.Brand != "" {
		cfg.Brand = policy.Brand
	}
	if len(policy.Blacklist) > 0 {
		cfg.SynopsisBlacklist = policy.Blacklist
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Origin page URLs derived from the configured base.

func (c *Cfg) CalendarURL() string {
	return c.BaseUrl + "/cinemateket/biograf/alle-film"
}

func (c *Cfg) SeriesIndexURL() string {
	return c.BaseUrl + "/cinemateket/biograf/filmserier"
}

func (c *Cfg) EventsIndexURL() string {
	return c.BaseUrl + "/cinemateket/biograf/events"
}
