// Package search drives one streaming search operation from request to
// terminal outcome.
//
// An Operation owns everything the stream touches: the decoder offset, the
// aggregate store, the publisher and the liveness supervisor. Run is a
// single-goroutine event loop. It waits for transport events, the
// supervisor deadline, or cancellation, and runs the delivery pipeline
// synchronously for each delivery. An operation ends in exactly one
// terminal state and tells the presenter about it once.
//
// A Session allows one operation at a time. Starting a new search cancels
// and discards the previous one.
package search
