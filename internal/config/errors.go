package config

import "errors"

// Configuration validation errors returned by Validate.
var (
	// ErrInvalidServer is returned when the crawl service URL is not an
	// absolute http or https URL.
	ErrInvalidServer = errors.New("invalid server: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDepth is returned when the recursion depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidListenAddress is returned when the listen address is empty.
	ErrInvalidListenAddress = errors.New("invalid listen address: must not be empty")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidOrigin is returned when an allowed CORS origin is neither
	// "*" nor an http or https origin.
	ErrInvalidOrigin = errors.New("invalid allowed origin: must be \"*\" or start with http:// or https://")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative or
	// above the maximum delay.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative and not above the maximum delay")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be non-negative")

	// ErrConflictingEgress is returned when both the embedded Tor daemon
	// and an external proxy are configured.
	ErrConflictingEgress = errors.New("conflicting egress: --tor and --tor-proxy cannot be used together")
)
