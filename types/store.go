package types

import (
	"context"
	"time"
)

// Unsubscribe tears down a subscription. Implementations must be idempotent.
type Unsubscribe func()

// PresenceStore is the external store holding presence records.
type PresenceStore interface {
	// ReadDuty returns the subject's declared duty flag, or nil when no record exists.
	ReadDuty(ctx context.Context, subjectID string) (*DutyState, error)

	// AssertAlive refreshes the record's timestamp to at and keeps duty true,
	// but only when the stored duty equals expectedCurrentDuty. Otherwise the
	// record is left untouched and the result has Applied=false.
	//
	// Returns an error wrapping ErrPermissionDenied when the caller may not write.
	AssertAlive(ctx context.Context, subjectID string, expectedCurrentDuty bool, at time.Time) (AssertResult, error)

	// Subscribe delivers change events for the subject's record until unsubscribed.
	Subscribe(ctx context.Context, subjectID string, onChange func(PresenceChange)) (Unsubscribe, error)
}

// RequestFeed is the external source of incoming request rows.
type RequestFeed interface {
	// FetchCandidates returns the subject's recipient rows that have not been
	// responded to yet. Time-based eligibility is re-validated by the caller.
	FetchCandidates(ctx context.Context, subjectID string, now time.Time) ([]*Recipient, error)

	// Subscribe invokes onSignal whenever one of the subject's recipient rows changes.
	Subscribe(ctx context.Context, subjectID string, onSignal func()) (Unsubscribe, error)
}
