package crawler

import (
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/imagefinder/internal/model"
)

// imageExtensions are the path extensions accepted as images.
var imageExtensions = map[string]struct{}{
	".apng": {}, ".avif": {}, ".bmp": {}, ".gif": {}, ".ico": {},
	".jpeg": {}, ".jpg": {}, ".png": {}, ".svg": {}, ".webp": {},
}

// Parser extracts page links and image references from HTML.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains what a page contributes to a crawl.
type ParseResult struct {
	// Title is the page title from <title> tag.
	Title string

	// Links are absolute http(s) links to pages on the same host, without
	// fragment, in document order and without duplicates.
	Links []string

	// Images are the images referenced by <img src> and by <link href>,
	// in document order and without duplicates.
	Images []model.Item
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts links and images.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	root, err := html.Parse(content)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	result := &ParseResult{
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		Links:  make([]string, 0),
		Images: make([]model.Item, 0),
	}

	seenLinks := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		link := p.resolveURL(s.AttrOr("href", ""))
		if link == "" || !p.isSameHost(link) {
			return
		}
		if _, ok := seenLinks[link]; ok {
			return
		}
		seenLinks[link] = struct{}{}
		result.Links = append(result.Links, link)
	})

	seenImages := make(map[string]struct{})
	add := func(src string, icon bool) {
		if strings.HasPrefix(strings.TrimSpace(src), "data:") || !IsImageURL(src) {
			return
		}
		resolved := p.resolveURL(src)
		if resolved == "" {
			return
		}
		if _, ok := seenImages[resolved]; ok {
			return
		}
		seenImages[resolved] = struct{}{}

		kind := model.KindFromURL(resolved)
		if icon && kind == model.KindOrdinary {
			kind = model.KindFavicon
		}
		result.Images = append(result.Images, model.NewItem(resolved, kind))
	}

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", ""), false)
	})
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		add(s.AttrOr("href", ""), strings.Contains(rel, "icon"))
	})

	return result, nil
}

// resolveURL resolves href against the base URL. It returns "" for
// non-http(s) targets and anything that does not parse.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

func (p *Parser) isSameHost(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, p.baseURL.Host)
}

// IsImageURL reports whether the path of raw ends in a known image
// extension. Query and fragment are ignored.
func IsImageURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}
