// Package main provides the entry point for the imagefinder CLI.
//
// imagefinder asks a crawl service for the images of a website and shows
// them, grouped by page, while the crawl is still running. The same binary
// also runs the crawl service.
//
// Usage:
//
//	imagefinder search https://example.com
//	imagefinder serve --listen :3000
//
// See --help for all available options.
package main

func main() {
	Execute()
}
