package types

import "context"

// Hooks defines callbacks for Session lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines
// so a slow hook never stalls the heartbeat or reconciliation loops. Hooks
// receive the session's lifecycle context which is cancelled when the session closes.
//
// Hook execution behavior:
//   - Hooks run concurrently and may not complete before Close() returns
//   - Hook errors are logged but don't fail session operations
//
// Example:
//
//	hooks := &medy.Hooks{
//	    OnRequestsChanged: func(ctx context.Context, subjectID string, list []*medy.Recipient) error {
//	        return ui.Render(list)
//	    },
//	}
type Hooks struct {
	// OnDutyChanged is called when the mirrored duty flag of the subject flips.
	OnDutyChanged func(ctx context.Context, subjectID string, isOnDuty bool) error

	// OnRequestsChanged is called with the new stabilized list whenever it changes.
	OnRequestsChanged func(ctx context.Context, subjectID string, list []*Recipient) error

	// OnStateChanged is called when the session state transitions.
	OnStateChanged func(ctx context.Context, from, to State) error

	// OnError is called when a terminal or otherwise notable error occurs.
	OnError func(ctx context.Context, err error) error
}
