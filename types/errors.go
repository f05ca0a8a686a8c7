package types

import (
	"errors"
	"strings"
)

// Sentinel errors for the medy library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).
//
// Error Naming Convention:
//   - Use descriptive names with Err prefix
//   - Group by component (Session, Emitter, Watcher, Tracker)
//   - Use consistent messages across similar error types

// Session errors - Public API errors returned by Session.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPresenceStoreRequired is returned when the presence store is nil.
	ErrPresenceStoreRequired = errors.New("presence store is required")

	// ErrRequestFeedRequired is returned when the request feed is nil.
	ErrRequestFeedRequired = errors.New("request feed is required")

	// ErrEnvironmentRequired is returned when the environment is nil.
	ErrEnvironmentRequired = errors.New("environment is required")

	// ErrAlreadyOpen is returned when Open is called on a session bound to a subject.
	ErrAlreadyOpen = errors.New("session already open")

	// ErrNotOpen is returned when an operation requires an open session.
	ErrNotOpen = errors.New("session not open")

	// ErrSessionClosed is returned when the session has been disposed.
	ErrSessionClosed = errors.New("session closed")

	// ErrNoSubjectID is returned when a subject ID is required but empty.
	ErrNoSubjectID = errors.New("subject ID not set")
)

// Store errors - Returned by PresenceStore and RequestFeed implementations.
var (
	// ErrPermissionDenied indicates the store refused a write or subscription.
	// It is terminal for the subject: callers stop emitting instead of retrying.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConnectivity indicates a transport issue; callers retry on the next cycle.
	ErrConnectivity = errors.New("connectivity issue")

	// ErrMalformedPayload indicates a change event or row that could not be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Component lifecycle errors.
var (
	// ErrEmitterAlreadyStarted is returned when Start is called on a running emitter.
	ErrEmitterAlreadyStarted = errors.New("heartbeat emitter already started")

	// ErrEmitterNotStarted is returned when Stop is called on an idle emitter.
	ErrEmitterNotStarted = errors.New("heartbeat emitter not started")

	// ErrWatcherNotStarted is returned when an operation requires a started watcher.
	ErrWatcherNotStarted = errors.New("presence watcher not started")

	// ErrTrackerNotStarted is returned when an operation requires a started tracker.
	ErrTrackerNotStarted = errors.New("request tracker not started")

	// ErrSubscribeFailed is returned when a change-feed subscription cannot be created.
	ErrSubscribeFailed = errors.New("subscription failed")
)

// IsPermissionDenied reports whether err is, or looks like, an authorization failure.
//
// Besides the sentinel it recognizes the messages produced by NATS and SQL
// backends so that store adapters that forget to wrap still classify correctly.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermissionDenied) {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "permissions violation") ||
		strings.Contains(msg, "authorization violation") ||
		strings.Contains(msg, "permission denied")
}
