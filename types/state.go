package types

// State represents the lifecycle state of a presence session.
//
// States follow a defined progression during normal operation:
//
//	StateIdle → StateActive → StateIdle
//
// StateDenied is terminal for the current subject; StateClosed is terminal for the session.
type State int

const (
	// StateIdle indicates no heartbeat is being emitted.
	StateIdle State = iota

	// StateActive indicates the heartbeat loop is running for the subject.
	StateActive

	// StateDenied indicates the store rejected the subject's writes or subscriptions.
	StateDenied

	// StateClosed indicates the session was disposed.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateActive:
		return "Active"
	case StateDenied:
		return "Denied"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
