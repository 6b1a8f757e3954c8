package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nao1215/imagefinder/internal/config"
)

// Fetcher defaults.
const (
	DefaultUserAgent   = "Mozilla/5.0 (compatible; imagefinder)"
	DefaultMaxBodySize = 5 * 1024 * 1024
	DefaultRetryMax    = 2
	DefaultTimeout     = 30 * time.Second
)

// Response is a fetched page.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Elapsed     time.Duration
}

// Fetcher downloads pages with retries on transient failures.
type Fetcher struct {
	client      *retryablehttp.Client
	userAgent   string
	maxBodySize int64
	timeout     time.Duration
	sites       *config.File
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the underlying client, typically one whose transport
// goes through a proxy.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client.HTTPClient = c
	}
}

// WithRetryMax sets how many times a failed request is retried.
func WithRetryMax(n int) FetcherOption {
	return func(f *Fetcher) {
		f.client.RetryMax = n
	}
}

// WithRetryWait sets the backoff bounds between retries.
func WithRetryWait(minWait, maxWait time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.RetryWaitMin = minWait
		f.client.RetryWaitMax = maxWait
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize limits how much of a page is read.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithSiteHeaders applies per-site headers and cookies from cf.
func WithSiteHeaders(cf *config.File) FetcherOption {
	return func(f *Fetcher) {
		f.sites = cf
	}
}

// WithFetchLogger logs retries to logger.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.client.Logger = logger
		}
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = DefaultRetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	// Return the last response when retries run out so its status is seen.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	f := &Fetcher{
		client:      rc,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.timeout > 0 {
		hc := *f.client.HTTPClient
		hc.Timeout = f.timeout
		f.client.HTTPClient = &hc
	}
	return f
}

// Fetch downloads pageURL. A non-2xx answer returns the response together
// with a *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	f.setHeaders(req)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	out := &Response{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Elapsed:     time.Since(start),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &StatusError{Code: resp.StatusCode}
	}
	return out, nil
}

func (f *Fetcher) setHeaders(req *retryablehttp.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	if f.sites == nil {
		return
	}
	site := f.sites.GetSiteConfig(req.URL.Hostname())
	for k, v := range site.Headers {
		req.Header.Set(k, v)
	}
	if site.Cookie != "" {
		req.Header.Set("Cookie", site.Cookie)
	}
}
