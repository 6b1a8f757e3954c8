package transport

import "net/http"

// Event is one notification from a response stream. It is one of Delivery,
// Terminal or Failure.
type Event interface {
	event()
}

// Delivery carries the cumulative response text received so far.
type Delivery struct {
	Text string
}

// Terminal reports the end of the response.
type Terminal struct {
	// Status is the HTTP status code.
	Status int

	// StatusText is the reason phrase.
	StatusText string

	// Body is the response body for non-success statuses, possibly
	// truncated. It is empty for successful responses.
	Body string
}

// Failure reports a network-level error. No event follows it.
type Failure struct {
	Err error
}

func (Delivery) event() {}
func (Terminal) event() {}
func (Failure) event()  {}

// OK reports whether the response status is the success code.
func (t Terminal) OK() bool {
	return t.Status == http.StatusOK
}
