package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidURL is returned when a crawl starts from a URL that is not
	// an absolute http or https URL.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrStatus is wrapped by StatusError.
	ErrStatus = errors.New("unexpected status")
)

// StatusError is returned when a page answered with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrStatus, e.Code, http.StatusText(e.Code))
}

// Unwrap returns ErrStatus.
func (e *StatusError) Unwrap() error {
	return ErrStatus
}
