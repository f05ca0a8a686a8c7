package medy

import "github.com/piperia-salata-create/Medy-App-sub001/types"

// Re-export types from the internal types package.
//
// Internal packages depend on `types` rather than on the root package, which
// keeps the import graph acyclic while users still write medy.State,
// medy.Recipient and so on.
type (
	State           = types.State
	PresenceRecord  = types.PresenceRecord
	PresenceState   = types.PresenceState
	PresenceChange  = types.PresenceChange
	DutyState       = types.DutyState
	AssertResult    = types.AssertResult
	HeartbeatResult = types.HeartbeatResult
	Request         = types.Request
	RequestStatus   = types.RequestStatus
	Recipient       = types.Recipient
	RecipientStatus = types.RecipientStatus
	Unsubscribe     = types.Unsubscribe
)

// Re-export interfaces from the internal types package for convenience.
type (
	PresenceStore    = types.PresenceStore
	RequestFeed      = types.RequestFeed
	Environment      = types.Environment
	Clock            = types.Clock
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export State constants from the internal types package.
const (
	StateIdle   = types.StateIdle
	StateActive = types.StateActive
	StateDenied = types.StateDenied
	StateClosed = types.StateClosed
)

// Re-export status constants from the internal types package.
const (
	RecipientPending   = types.RecipientPending
	RecipientAccepted  = types.RecipientAccepted
	RecipientRejected  = types.RecipientRejected
	RecipientCancelled = types.RecipientCancelled

	RequestPending   = types.RequestPending
	RequestAccepted  = types.RequestAccepted
	RequestCancelled = types.RequestCancelled
	RequestCompleted = types.RequestCompleted
)
