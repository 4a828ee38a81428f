package engine

// State is the lifecycle phase of one account session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateBackfilling
	StateListening
	StateStopping
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateBackfilling:
		return "backfilling"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// validNext is the session lifecycle: the happy path runs Disconnected →
// Connecting → Backfilling → Listening → Stopping → Disconnected; Errored is
// terminal and reachable from any active phase; a stop request can land in
// any active phase too.
var validNext = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateBackfilling, StateStopping, StateErrored},
	StateBackfilling:  {StateListening, StateStopping, StateErrored},
	StateListening:    {StateStopping, StateErrored},
	StateStopping:     {StateDisconnected},
	StateErrored:      nil,
}

// ValidTransition reports whether a session may move from one state to another.
func ValidTransition(from, to State) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}
