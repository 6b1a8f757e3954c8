package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/imagefinder/internal/config"
	"github.com/nao1215/imagefinder/internal/metrics"
	"github.com/nao1215/imagefinder/internal/model"
)

// Spider defaults.
const (
	DefaultMaxPages = 100
	DefaultWorkers  = 8
)

// Request describes one crawl.
type Request struct {
	// URL is the page the crawl starts from.
	URL string

	// Recursive follows same-host links when true. Otherwise only URL is
	// visited.
	Recursive bool

	// Depth is the number of link levels followed from URL.
	Depth int
}

// PageResult is the outcome of visiting one page. A result is produced for
// every visited page, including pages that failed to load.
type PageResult struct {
	URL    string
	Level  int
	Images []model.Item
	Status int
	Cached bool
	Err    error
}

// Record returns the result as a wire record: the page URL mapped to its
// level and images.
func (p PageResult) Record() model.Record {
	images := make(map[string]model.Item, len(p.Images))
	for _, item := range p.Images {
		images[item.LocationURL] = item
	}
	return model.Record{
		p.URL: model.GroupPayload{
			Level:  model.DepthLevel(p.Level),
			Images: images,
		},
	}
}

// Stats summarizes a finished crawl.
type Stats struct {
	Pages  int
	Failed int
	Cached int
	Images int
}

// Page is what a Cache stores per URL.
type Page struct {
	URL       string
	Images    []model.Item
	Links     []string
	FetchedAt time.Time
}

// Cache keeps the outcome of earlier visits. Implementations decide how
// long an entry stays fresh.
type Cache interface {
	Get(ctx context.Context, pageURL string) (*Page, bool, error)
	Put(ctx context.Context, page *Page) error
}

// Spider crawls the pages of one site breadth first and reports the images
// of each page as soon as it is visited.
//
// A Spider holds no per-crawl state and may run several crawls at once.
type Spider struct {
	fetcher  *Fetcher
	maxPages int
	workers  int
	minDelay time.Duration
	maxDelay time.Duration
	cache    Cache
	sites    *config.File
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the maximum number of pages visited per crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithWorkers sets how many pages are fetched concurrently.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		s.workers = n
	}
}

// WithDelayBounds sets the range of the adaptive delay between requests.
func WithDelayBounds(minDelay, maxDelay time.Duration) SpiderOption {
	return func(s *Spider) {
		s.minDelay = minDelay
		s.maxDelay = maxDelay
	}
}

// WithCache reuses earlier visits from c.
func WithCache(c Cache) SpiderOption {
	return func(s *Spider) {
		s.cache = c
	}
}

// WithSites applies per-site depth limits and URL patterns from cf.
func WithSites(cf *config.File) SpiderOption {
	return func(s *Spider) {
		s.sites = cf
	}
}

// WithMetrics records crawl activity to m.
func WithMetrics(m *metrics.Metrics) SpiderOption {
	return func(s *Spider) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that loads pages with fetcher.
func NewSpider(fetcher *Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  fetcher,
		maxPages: DefaultMaxPages,
		workers:  DefaultWorkers,
		minDelay: DefaultMinDelay,
		maxDelay: DefaultMaxDelay,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// Crawl visits req.URL and, when recursive, the same-host pages it links to
// up to req.Depth levels away. emit is called once per visited page, never
// concurrently. An error from emit stops the crawl and is returned.
func (s *Spider) Crawl(ctx context.Context, req Request, emit func(PageResult) error) (Stats, error) {
	start, err := NormalizeStartURL(req.URL)
	if err != nil {
		return Stats{}, err
	}
	u, _ := url.Parse(start)

	site := config.SiteConfig{}
	if s.sites != nil {
		site = s.sites.GetSiteConfig(u.Hostname())
	}

	maxDepth := 0
	if req.Recursive {
		maxDepth = max(req.Depth, 0)
		if site.Depth > 0 && site.Depth < maxDepth {
			maxDepth = site.Depth
		}
	}

	c := &crawl{
		spider:   s,
		site:     site,
		maxDepth: maxDepth,
		visited:  make(map[string]struct{}),
		delay:    NewAdaptiveDelay(s.minDelay, s.maxDelay),
		emit:     emit,
	}

	done := s.metrics.CrawlStarted()
	defer done()

	s.logger.Info("crawl started", slog.String("url", start), slog.Int("depth", maxDepth))

	c.claim(start, true)
	level := []string{start}
	for depth := 0; len(level) > 0; depth++ {
		next, err := c.runLevel(ctx, level, depth)
		if err != nil {
			return c.stats, err
		}
		level = next
	}

	s.logger.Info("crawl finished",
		slog.String("url", start),
		slog.Int("pages", c.stats.Pages),
		slog.Int("failed", c.stats.Failed),
		slog.Int("images", c.stats.Images),
	)
	return c.stats, nil
}

// crawl is the state of one Crawl call.
type crawl struct {
	spider   *Spider
	site     config.SiteConfig
	maxDepth int
	delay    *AdaptiveDelay

	mu      sync.Mutex
	visited map[string]struct{}

	emitMu sync.Mutex
	stats  Stats
	emit   func(PageResult) error
}

// runLevel visits every URL of one depth and returns the URLs of the next.
func (c *crawl) runLevel(ctx context.Context, urls []string, depth int) ([]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.spider.workers)

	var (
		nextMu sync.Mutex
		next   []string
	)

	for _, pageURL := range urls {
		g.Go(func() error {
			result, links := c.visit(gctx, pageURL, depth)
			if err := c.report(result); err != nil {
				return err
			}
			if depth >= c.maxDepth {
				return nil
			}
			for _, link := range links {
				if c.claim(link, false) {
					nextMu.Lock()
					next = append(next, link)
					nextMu.Unlock()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(next)
	return next, nil
}

// claim reserves pageURL for a visit. It fails for URLs already claimed,
// URLs filtered by the site patterns, and once the page limit is reached.
func (c *crawl) claim(pageURL string, start bool) bool {
	if !start && !shouldCrawl(pageURL, c.site.IgnorePatterns, c.site.FollowPatterns) {
		return false
	}

	key := normalizeURL(pageURL)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.visited[key]; ok {
		return false
	}
	if c.spider.maxPages > 0 && len(c.visited) >= c.spider.maxPages {
		return false
	}
	c.visited[key] = struct{}{}
	return true
}

// report passes result to the emit callback, one call at a time.
func (c *crawl) report(result PageResult) error {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.stats.Pages++
	c.stats.Images += len(result.Images)
	if result.Err != nil {
		c.stats.Failed++
	}
	if result.Cached {
		c.stats.Cached++
	}

	if c.emit == nil {
		return nil
	}
	return c.emit(result)
}

// visit loads one page from the cache or the network.
func (c *crawl) visit(ctx context.Context, pageURL string, depth int) (PageResult, []string) {
	s := c.spider
	result := PageResult{URL: pageURL, Level: depth, Images: []model.Item{}}

	if page, ok := c.cached(ctx, pageURL); ok {
		s.metrics.RecordPage(metrics.ResultCached, 0)
		result.Images = page.Images
		result.Cached = true
		return result, page.Links
	}

	if err := c.delay.Wait(ctx); err != nil {
		s.metrics.RecordPage(metrics.ResultSkipped, 0)
		result.Err = err
		return result, nil
	}

	resp, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			result.Status = se.Code
			var elapsed time.Duration
			if resp != nil {
				elapsed = resp.Elapsed
			}
			s.metrics.RecordPage(metrics.ResultStatusError, elapsed)
			s.metrics.SetCrawlDelay(c.delay.Backoff())
		} else {
			s.metrics.RecordPage(metrics.ResultError, 0)
		}
		s.logger.Warn("failed to fetch page", slog.String("url", pageURL), slog.Any("error", err))
		result.Err = err
		return result, nil
	}

	result.Status = resp.StatusCode
	s.metrics.RecordPage(metrics.ResultOK, resp.Elapsed)
	s.metrics.SetCrawlDelay(c.delay.Observe(resp.Elapsed))

	if !isHTML(resp.ContentType) {
		return result, nil
	}

	parser, err := NewParser(pageURL)
	if err != nil {
		result.Err = err
		return result, nil
	}
	parsed, err := parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		s.logger.Warn("failed to parse page", slog.String("url", pageURL), slog.Any("error", err))
		result.Err = err
		return result, nil
	}

	result.Images = parsed.Images
	for _, item := range parsed.Images {
		s.metrics.RecordImages(item.Kind().String(), 1)
	}
	s.logger.Debug("page crawled",
		slog.String("url", pageURL),
		slog.Int("depth", depth),
		slog.Int("images", len(parsed.Images)),
		slog.Int("links", len(parsed.Links)),
		slog.Duration("elapsed", resp.Elapsed),
	)

	if s.cache != nil {
		page := &Page{URL: pageURL, Images: parsed.Images, Links: parsed.Links, FetchedAt: time.Now()}
		if err := s.cache.Put(ctx, page); err != nil {
			s.logger.Warn("failed to cache page", slog.String("url", pageURL), slog.Any("error", err))
		}
	}
	return result, parsed.Links
}

func (c *crawl) cached(ctx context.Context, pageURL string) (*Page, bool) {
	if c.spider.cache == nil {
		return nil, false
	}
	page, ok, err := c.spider.cache.Get(ctx, pageURL)
	if err != nil {
		c.spider.logger.Warn("failed to read crawl cache", slog.String("url", pageURL), slog.Any("error", err))
		return nil, false
	}
	return page, ok
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// NormalizeStartURL validates raw as an absolute http(s) URL and returns it
// without fragment and with "/" for an empty path.
func NormalizeStartURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	u.Scheme = scheme
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// normalizeURL returns the key under which a page is deduplicated.
// Fragment, letter case of scheme and host, and a trailing slash do not
// make two pages different.
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""

	return u.String()
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func shouldCrawl(targetURL string, ignorePatterns, followPatterns []string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(followPatterns) == 0 {
		return true
	}
	for _, pattern := range followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
