package types

import "time"

// PresenceRecord is the stored presence of a subject (a pharmacy).
//
// IsOnDuty is the declared state. Freshness is derived at read time from
// LastTouchedAt and is never stored. A zero LastTouchedAt means the timestamp is absent.
type PresenceRecord struct {
	SubjectID     string    `json:"subjectId"`
	IsOnDuty      bool      `json:"isOnDuty"`
	LastTouchedAt time.Time `json:"lastTouchedAt,omitzero"`
}

// DutyState is the result of reading a subject's declared duty flag.
type DutyState struct {
	SubjectID string
	IsOnDuty  bool
}

// AssertResult is the outcome of a conditional heartbeat write.
type AssertResult struct {
	// IsOnDuty is the duty flag as stored after the call.
	IsOnDuty bool

	// Applied is false when the stored duty differed from the expected value
	// and the store left the record untouched.
	Applied bool

	// TouchedAt is the timestamp written when Applied is true.
	TouchedAt time.Time
}

// PresenceChange is a single change-feed event for a presence record.
//
// Nil fields were absent from the payload and must not overwrite local state.
type PresenceChange struct {
	SubjectID     string
	IsOnDuty      *bool
	LastTouchedAt *time.Time

	// Deleted reports that the record was removed from the store.
	Deleted bool
}

// IsEmpty reports whether the change carries nothing to apply.
func (c PresenceChange) IsEmpty() bool {
	return !c.Deleted && c.IsOnDuty == nil && c.LastTouchedAt == nil
}

// PresenceState is the locally mirrored presence of the watched subject.
type PresenceState struct {
	SubjectID     string
	IsOnDuty      bool
	LastTouchedAt time.Time
}

// Record converts the mirror into a PresenceRecord.
func (s PresenceState) Record() PresenceRecord {
	return PresenceRecord(s)
}

// HeartbeatSource tells where a HeartbeatResult came from.
type HeartbeatSource string

const (
	// HeartbeatSourceTick is a periodic or immediate heartbeat write.
	HeartbeatSourceTick HeartbeatSource = "tick"

	// HeartbeatSourceRefresh is the duty read performed on wake.
	HeartbeatSourceRefresh HeartbeatSource = "refresh"
)

// HeartbeatResult is published by the heartbeat emitter after a successful store call.
type HeartbeatResult struct {
	SubjectID string
	IsOnDuty  bool

	// TouchedAt is zero when the call did not refresh the timestamp.
	TouchedAt time.Time
	Source    HeartbeatSource
}
