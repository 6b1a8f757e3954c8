// Package crawler finds the images of a web site.
//
// # Architecture
//
// The Spider visits pages breadth first, one depth level at a time, with a
// bounded pool of workers. Only links to the same host are followed. Every
// visited page yields a PageResult, so a caller streaming results sees
// progress even when pages fail to load.
//
// # Components
//
//   - Spider: coordinates a crawl and enforces depth and page limits
//   - Fetcher: downloads pages, retrying transient failures
//   - Parser: extracts same-host links and image references from HTML
//   - AdaptiveDelay: spaces requests according to server response times
//
// # Politeness
//
// Requests to a site are spaced by an adaptive delay between 500ms and 5s.
// The delay follows the average of the last five response times and doubles
// when the server rejects a request.
//
// # Usage
//
//	spider := crawler.NewSpider(crawler.NewFetcher(), crawler.WithWorkers(4))
//	stats, err := spider.Crawl(ctx, crawler.Request{URL: "https://example.com", Recursive: true, Depth: 1},
//		func(p crawler.PageResult) error { return enc.Encode(p.Record()) })
package crawler
