package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultPath is the search endpoint of the crawl service.
	DefaultPath = "/main"

	// DefaultMaxErrorBody is the largest body read from a failed response.
	DefaultMaxErrorBody = 64 * 1024

	// DefaultReadSize is the buffer size of one body read.
	DefaultReadSize = 32 * 1024

	// DefaultUserAgent identifies the client to the service.
	DefaultUserAgent = "imagefinder"
)

// Query holds the search parameters sent to the service.
type Query struct {
	// URL is the page to crawl.
	URL string

	// Recursive enables following links.
	Recursive bool

	// Depth bounds recursion.
	Depth int
}

// Values encodes the query parameters the service expects.
func (q Query) Values() url.Values {
	return url.Values{
		"url":             {q.URL},
		"recursive":       {strconv.FormatBool(q.Recursive)},
		"recursiveLevels": {strconv.Itoa(q.Depth)},
	}
}

// Client streams search responses from the crawl service.
type Client struct {
	resty        *resty.Client
	path         string
	maxErrorBody int64
	readSize     int
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPath overrides the search endpoint path.
func WithPath(path string) Option {
	return func(c *Client) {
		c.path = path
	}
}

// WithMaxErrorBody limits how much of a failed response body is kept.
func WithMaxErrorBody(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxErrorBody = n
		}
	}
}

// WithReadSize sets the size of each body read.
func WithReadSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithProxy routes requests through proxyURL, for example
// "socks5://127.0.0.1:9050".
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		if proxyURL != "" {
			c.resty.SetProxy(proxyURL)
		}
	}
}

// WithTransport replaces the HTTP round tripper, for example one that
// dials through Tor.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.resty.SetTransport(rt)
		}
	}
}

// NewClient creates a Client for the service at baseURL.
//
// The client sets no overall timeout: a stream stays open as long as the
// service keeps it open, and inactivity is policed by the caller.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServer, baseURL)
	}

	c := &Client{
		resty: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("User-Agent", DefaultUserAgent).
			SetRetryCount(0),
		path:         DefaultPath,
		maxErrorBody: DefaultMaxErrorBody,
		readSize:     DefaultReadSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Stream sends q and returns a channel of events. The channel is closed
// after the Terminal or Failure event, or when ctx is cancelled.
func (c *Client) Stream(ctx context.Context, q Query) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		c.stream(ctx, q, events)
	}()
	return events
}

func (c *Client) stream(ctx context.Context, q Query, events chan<- Event) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "application/x-ndjson").
		SetQueryParamsFromValues(q.Values()).
		Post(c.path)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		send(ctx, events, Failure{Err: fmt.Errorf("%w: %w", ErrRequest, err)})
		return
	}

	body := resp.RawBody()
	if body == nil {
		body = http.NoBody
	}
	defer body.Close()

	code := resp.StatusCode()
	terminal := Terminal{Status: code, StatusText: statusText(code, resp.Status())}

	if code != http.StatusOK {
		data, err := io.ReadAll(io.LimitReader(body, c.maxErrorBody))
		if err != nil {
			c.logger.Debug("failed to read error body", "status", code, "error", err)
		}
		terminal.Body = string(data)
		send(ctx, events, terminal)
		return
	}

	var (
		text strings.Builder
		buf  = make([]byte, c.readSize)
	)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			text.Write(buf[:n])
			if !send(ctx, events, Delivery{Text: text.String()}) {
				return
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			send(ctx, events, Failure{Err: fmt.Errorf("%w: %w", ErrStream, err)})
			return
		}
	}

	c.logger.Debug("response stream finished", "bytes", text.Len())
	send(ctx, events, terminal)
}

// send delivers ev unless ctx is done first.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// statusText extracts the reason phrase from a status line such as
// "500 Internal Server Error".
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}
