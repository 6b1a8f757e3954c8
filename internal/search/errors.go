package search

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when the target is not an absolute
	// http or https URL.
	ErrInvalidURL = errors.New("invalid target URL")

	// ErrNegativeDepth is returned when the recursion depth is below zero.
	ErrNegativeDepth = errors.New("recursion depth must not be negative")

	// ErrTimeout is returned when the stream was inactive for the whole
	// liveness budget.
	ErrTimeout = errors.New("request timed out")

	// ErrBadStatus is returned, wrapped in a *StatusError, when the service
	// answered with a non-success status.
	ErrBadStatus = errors.New("unexpected response status")

	// ErrNetwork is returned when the transport failed.
	ErrNetwork = errors.New("network error")

	// ErrNoResults is returned when the stream completed without any item.
	ErrNoResults = errors.New("no images found")

	// ErrAlreadyStarted is returned when Run is called twice.
	ErrAlreadyStarted = errors.New("operation already started")
)

// StatusError carries the failed response of the service.
type StatusError struct {
	Code       int
	StatusText string
	Body       string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrBadStatus, e.Code, e.StatusText)
}

// Unwrap returns ErrBadStatus.
func (e *StatusError) Unwrap() error {
	return ErrBadStatus
}
