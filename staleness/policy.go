package staleness

import (
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

const (
	// HeartbeatInterval is the period between heartbeat writes.
	HeartbeatInterval = 15 * time.Second

	// Threshold is the maximum heartbeat age before declared state is no longer trusted.
	Threshold = 3 * HeartbeatInterval
)

// IsFresh reports whether a locally asserted timestamp is still fresh.
//
// An absent (zero) timestamp is treated as fresh: the caller is about to assert
// it for the first time. Use IsObservedFresh for records read from the store.
func IsFresh(lastTouchedAt, now time.Time, threshold time.Duration) bool {
	if lastTouchedAt.IsZero() {
		return true
	}

	return now.Sub(lastTouchedAt) <= threshold
}

// IsObservedFresh reports whether a remote-observed timestamp is still fresh.
//
// An absent timestamp means the record was never touched and is stale.
func IsObservedFresh(lastTouchedAt, now time.Time, threshold time.Duration) bool {
	if lastTouchedAt.IsZero() {
		return false
	}

	return now.Sub(lastTouchedAt) <= threshold
}

// IsEffectivelyOnDuty reports whether the record is on duty and fresh at now.
func IsEffectivelyOnDuty(rec types.PresenceRecord, now time.Time, threshold time.Duration) bool {
	return rec.IsOnDuty && IsObservedFresh(rec.LastTouchedAt, now, threshold)
}

// Age returns how long ago the timestamp was touched, or 0 when it is absent
// or lies in the future.
func Age(lastTouchedAt, now time.Time) time.Duration {
	if lastTouchedAt.IsZero() {
		return 0
	}

	age := now.Sub(lastTouchedAt)
	if age < 0 {
		return 0
	}

	return age
}
