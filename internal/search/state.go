package search

import "fmt"

// State is the lifecycle state of an Operation.
type State int

const (
	// Pending means Run has not been called.
	Pending State = iota
	// Streaming means the request is in flight.
	Streaming
	// Completed means the stream ended with results.
	Completed
	// NoResults means the stream ended without any item.
	NoResults
	// TimedOut means the liveness deadline expired.
	TimedOut
	// BadStatus means the service answered with a non-success status.
	BadStatus
	// NetworkError means the transport failed.
	NetworkError
	// Cancelled means the operation was abandoned.
	Cancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case NoResults:
		return "no_results"
	case TimedOut:
		return "timed_out"
	case BadStatus:
		return "bad_status"
	case NetworkError:
		return "network_error"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition can happen.
func (s State) IsTerminal() bool {
	return s >= Completed
}

// canTransition reports whether from may move to to.
func canTransition(from, to State) bool {
	switch from {
	case Pending:
		return to == Streaming || to == Cancelled
	case Streaming:
		return to.IsTerminal()
	default:
		return false
	}
}
