package types

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Environment reports the host's lifecycle: visibility and connectivity.
//
// Callbacks receive the new value and are invoked only on transitions.
type Environment interface {
	Clock

	IsForeground() bool
	IsOnline() bool

	OnForegroundChange(cb func(foreground bool)) Unsubscribe
	OnOnlineChange(cb func(online bool)) Unsubscribe
}
