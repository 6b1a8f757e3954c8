package search

import (
	"fmt"
	"net/url"

	"github.com/nao1215/imagefinder/internal/transport"
)

// WarnDepth is the deepest recursion that does not trigger a warning.
const WarnDepth = 2

// Request is what the user asked to search.
type Request struct {
	// URL is the page to start from.
	URL string

	// Recursive enables following same-site links.
	Recursive bool

	// Depth bounds recursion.
	Depth int
}

// Validate checks the request before it is sent.
func (r Request) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, r.URL)
	}
	if r.Depth < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeDepth, r.Depth)
	}
	return nil
}

// Warnings returns soft warnings about the request. A deep recursion is
// allowed but can take a long time.
func (r Request) Warnings() []string {
	var out []string
	if r.Recursive && r.Depth > WarnDepth {
		out = append(out, fmt.Sprintf(
			"recursion depth %d is above %d, the search may take a long time", r.Depth, WarnDepth))
	}
	return out
}

// Query converts the request to transport parameters.
func (r Request) Query() transport.Query {
	return transport.Query{
		URL:       r.URL,
		Recursive: r.Recursive,
		Depth:     r.Depth,
	}
}
