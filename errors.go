package medy

import "github.com/piperia-salata-create/Medy-App-sub001/types"

// Sentinel errors returned by the Session and the stores.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrPresenceStoreRequired is returned when the presence store is nil.
	ErrPresenceStoreRequired = types.ErrPresenceStoreRequired

	// ErrRequestFeedRequired is returned when the request feed is nil.
	ErrRequestFeedRequired = types.ErrRequestFeedRequired

	// ErrEnvironmentRequired is returned when the environment is nil.
	ErrEnvironmentRequired = types.ErrEnvironmentRequired

	// ErrAlreadyOpen is returned when Open is called on an open session.
	ErrAlreadyOpen = types.ErrAlreadyOpen

	// ErrNotOpen is returned by operations that need an open session.
	ErrNotOpen = types.ErrNotOpen

	// ErrSessionClosed is returned once the session has been closed.
	ErrSessionClosed = types.ErrSessionClosed

	// ErrNoSubjectID is returned when an empty subject ID is supplied.
	ErrNoSubjectID = types.ErrNoSubjectID

	// ErrPermissionDenied is returned when the store rejects the subject.
	ErrPermissionDenied = types.ErrPermissionDenied

	// ErrConnectivity wraps transient transport failures.
	ErrConnectivity = types.ErrConnectivity

	// ErrMalformedPayload is returned for records that cannot be decoded.
	ErrMalformedPayload = types.ErrMalformedPayload

	// ErrSubscribeFailed is returned when a change feed cannot be opened.
	ErrSubscribeFailed = types.ErrSubscribeFailed
)

// IsPermissionDenied reports whether err is an authorization failure.
func IsPermissionDenied(err error) bool {
	return types.IsPermissionDenied(err)
}
