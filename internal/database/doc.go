// Package database provides the SQLite crawl cache of the crawl service.
//
// The CrawlDB stores:
//   - the images and links found on each page, with the time of the fetch
//   - one summary row per finished crawl
//
// It implements crawler.Cache: a page fetched less than the configured TTL
// ago is served from the database instead of the network.
package database
