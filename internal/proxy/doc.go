// Package proxy selects how the crawl service reaches the web.
//
// Pages are fetched directly, through an external SOCKS5 proxy, or through
// an embedded Tor daemon started with tornago. Open picks the mode from the
// serve configuration and hands out an *http.Client for the fetcher.
package proxy
