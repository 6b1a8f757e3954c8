package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "imagefinder"

	// DefaultServer is the crawl service the client talks to.
	DefaultServer = "http://localhost:3000"

	// DefaultInactivityTimeout aborts a search when no new result has
	// arrived for this long.
	DefaultInactivityTimeout = 17500 * time.Millisecond

	// DefaultDepth is the recursion depth used when recursion is enabled.
	DefaultDepth = 1

	// DefaultListenAddress is where the crawl service listens.
	DefaultListenAddress = ":3000"

	// DefaultMaxPages bounds the pages crawled for one request.
	DefaultMaxPages = 100

	// DefaultMaxDepth caps the recursion depth a client may request.
	DefaultMaxDepth = 10

	// DefaultWorkers is the number of pages fetched concurrently.
	DefaultWorkers = 8

	// DefaultCrawlDelay is the smallest delay between requests to one site.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultMaxCrawlDelay caps the adaptive delay between requests.
	DefaultMaxCrawlDelay = 5 * time.Second

	// DefaultFetchTimeout limits one page fetch.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultUserAgent identifies the crawler to the sites it visits.
	DefaultUserAgent = "imagefinder/1.0 (+https://github.com/nao1215/imagefinder)"

	// DefaultMaxBodySize limits how much of a page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultCacheTTL is how long a crawled page stays fresh in the cache.
	DefaultCacheTTL = time.Hour

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all options of the client and the crawl service.
type Config struct {
	// Server is the base URL of the crawl service.
	Server string `yaml:"server,omitempty" envconfig:"SERVER"`

	// InactivityTimeout is the liveness budget of a search.
	InactivityTimeout time.Duration `yaml:"inactivityTimeout,omitempty" envconfig:"INACTIVITY_TIMEOUT"`

	// Recursive makes the service follow same-site links.
	Recursive bool `yaml:"recursive,omitempty" envconfig:"RECURSIVE"`

	// Depth bounds recursion.
	Depth int `yaml:"depth,omitempty" envconfig:"DEPTH"`

	// ProxyAddress routes client requests through a proxy, for example
	// "socks5://127.0.0.1:9050". Empty means direct.
	ProxyAddress string `yaml:"proxy,omitempty" envconfig:"PROXY"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose,omitempty" envconfig:"VERBOSE"`

	// JSONReport writes the final result as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool `yaml:"-" ignored:"true"`

	// MarkdownReport writes the final result as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool `yaml:"-" ignored:"true"`

	// ReportFile is the output file of the final report. Empty means stdout.
	ReportFile string `yaml:"-" ignored:"true"`

	// ConfigFilePath is the configuration file that was loaded, if any.
	ConfigFilePath string `yaml:"-" ignored:"true"`

	// Serve holds the crawl service settings.
	Serve ServeConfig `yaml:"serve,omitempty" envconfig:"SERVE"`

	// Sites holds per-site crawl settings from the configuration file.
	Sites File `yaml:",inline" ignored:"true"`
}

// ServeConfig holds the settings of the crawl service.
type ServeConfig struct {
	// ListenAddress is the HTTP listen address.
	ListenAddress string `yaml:"listen,omitempty" envconfig:"LISTEN"`

	// MaxPages bounds the pages crawled for one request.
	MaxPages int `yaml:"maxPages,omitempty" envconfig:"MAX_PAGES"`

	// MaxDepth caps the recursion depth a client may request. Zero means
	// no cap.
	MaxDepth int `yaml:"maxDepth,omitempty" envconfig:"MAX_DEPTH"`

	// AllowedOrigins enables CORS for these browser origins. "*" allows
	// any origin.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty" envconfig:"ALLOWED_ORIGINS"`

	// Workers is the number of concurrent page fetches.
	Workers int `yaml:"workers,omitempty" envconfig:"WORKERS"`

	// CrawlDelay is the smallest delay between requests to one site.
	CrawlDelay time.Duration `yaml:"crawlDelay,omitempty" envconfig:"CRAWL_DELAY"`

	// MaxCrawlDelay caps the adaptive delay.
	MaxCrawlDelay time.Duration `yaml:"maxCrawlDelay,omitempty" envconfig:"MAX_CRAWL_DELAY"`

	// FetchTimeout limits one page fetch.
	FetchTimeout time.Duration `yaml:"fetchTimeout,omitempty" envconfig:"FETCH_TIMEOUT"`

	// UserAgent is sent with every page request.
	UserAgent string `yaml:"userAgent,omitempty" envconfig:"USER_AGENT"`

	// MaxBodySize limits how many bytes of a page are read.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty" envconfig:"MAX_BODY_SIZE"`

	// Cache enables the SQLite crawl cache.
	Cache bool `yaml:"cache,omitempty" envconfig:"CACHE"`

	// CacheDir is the directory of the crawl cache database.
	CacheDir string `yaml:"cacheDir,omitempty" envconfig:"CACHE_DIR"`

	// CacheTTL is how long a cached page is reused.
	CacheTTL time.Duration `yaml:"cacheTTL,omitempty" envconfig:"CACHE_TTL"`

	// Tor starts an embedded Tor daemon and crawls through it.
	Tor bool `yaml:"tor,omitempty" envconfig:"TOR"`

	// TorProxyAddress crawls through an external SOCKS5 proxy in
	// "host:port" form. Empty means direct unless Tor is set.
	TorProxyAddress string `yaml:"torProxy,omitempty" envconfig:"TOR_PROXY"`

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration `yaml:"torStartupTimeout,omitempty" envconfig:"TOR_STARTUP_TIMEOUT"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Server:            DefaultServer,
		InactivityTimeout: DefaultInactivityTimeout,
		Depth:             DefaultDepth,
		Serve:             NewServeConfig(),
		Sites:             File{Sites: make(map[string]SiteConfig)},
	}
}

// NewServeConfig returns the crawl service defaults.
func NewServeConfig() ServeConfig {
	return ServeConfig{
		ListenAddress:     DefaultListenAddress,
		MaxPages:          DefaultMaxPages,
		MaxDepth:          DefaultMaxDepth,
		Workers:           DefaultWorkers,
		CrawlDelay:        DefaultCrawlDelay,
		MaxCrawlDelay:     DefaultMaxCrawlDelay,
		FetchTimeout:      DefaultFetchTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		CacheDir:          XDGCacheDir(),
		CacheTTL:          DefaultCacheTTL,
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// XDGConfigDir returns the XDG config directory for imagefinder.
// On Linux: ~/.config/imagefinder
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for imagefinder.
// On Linux: ~/.cache/imagefinder
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the client settings and returns the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServer
	}

	if c.InactivityTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Depth < 0 {
		return ErrInvalidDepth
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// Validate checks the crawl service settings.
func (s ServeConfig) Validate() error {
	if s.ListenAddress == "" {
		return ErrInvalidListenAddress
	}

	if s.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if s.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	for _, origin := range s.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return ErrInvalidOrigin
		}
	}

	if s.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if s.CrawlDelay < 0 || s.MaxCrawlDelay < s.CrawlDelay {
		return ErrInvalidCrawlDelay
	}

	if s.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if s.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if s.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}

	if s.Tor && s.TorProxyAddress != "" {
		return ErrConflictingEgress
	}

	return nil
}
