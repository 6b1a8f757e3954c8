package liveness

import "fmt"

// State is the supervisor state.
type State int

const (
	// Idle means no deadline is pending.
	Idle State = iota
	// Armed means the inactivity deadline is running.
	Armed
	// Expired means the deadline passed. It is terminal.
	Expired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Armed:
		return "ARMED"
	case Expired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event drives supervisor transitions.
type Event int

const (
	// EventStart arms the deadline when an operation begins.
	EventStart Event = iota
	// EventActivity re-arms the deadline after a merge that changed the store.
	EventActivity
	// EventComplete disarms on clean stream completion.
	EventComplete
	// EventReset disarms on an explicit operation reset.
	EventReset
	// EventDeadline reports that the inactivity budget elapsed.
	EventDeadline
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventActivity:
		return "activity"
	case EventComplete:
		return "complete"
	case EventReset:
		return "reset"
	case EventDeadline:
		return "deadline"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Next returns the state that follows s on e, and whether the deadline
// timer must be (re)armed. Events that do not apply leave the state as is.
func Next(s State, e Event) (State, bool) {
	switch s {
	case Idle:
		if e == EventStart {
			return Armed, true
		}
		return Idle, false
	case Armed:
		switch e {
		case EventStart, EventActivity:
			return Armed, true
		case EventComplete, EventReset:
			return Idle, false
		case EventDeadline:
			return Expired, false
		}
		return Armed, false
	default:
		return s, false
	}
}
