package transport

import "errors"

var (
	// ErrInvalidServer is returned when the service base URL is unusable.
	ErrInvalidServer = errors.New("invalid service URL")

	// ErrRequest is returned when the request could not be sent.
	ErrRequest = errors.New("search request failed")

	// ErrStream is returned when the response stream broke while reading.
	ErrStream = errors.New("response stream interrupted")
)
