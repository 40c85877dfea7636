package cfg

type Cfg struct {
	// HTTP server configuration
	Port      string
	StaticDir string

	// Upstream site configuration
	BaseUrl          string
	UserAgent        string
	UpstreamTimeout  int // seconds
	ScrapeDelayMs    int
	CalendarStrategy string

	// Allowlist configuration
	AllowedHosts        []string
	AllowedPathPrefixes []string

	// Proxy configuration
	CacheTTL     int // seconds
	CacheMaxSize int
	RateLimitRPM int

	// Extraction policy
	Brand             string
	SynopsisBlacklist []string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// ScrapePolicy is the optional YAML override for the extraction and
// allowlist policy data.
type ScrapePolicy struct {
	Hosts        []string `yaml:"hosts"`
	PathPrefixes []string `yaml:"path_prefixes"`
	Brand        string   `yaml:"brand"`
	Blacklist    []string `yaml:"blacklist"`
}
