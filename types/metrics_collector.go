package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	SessionMetrics
	HeartbeatMetrics
	PresenceMetrics
	ReconcileMetrics
	DebounceMetrics
}

// SessionMetrics defines metrics for session-level operations.
type SessionMetrics interface {
	// RecordStateTransition records a session state transition.
	RecordStateTransition(from, to State)
}

// HeartbeatMetrics defines metrics for heartbeat ticks.
type HeartbeatMetrics interface {
	// RecordHeartbeat records the outcome of one heartbeat tick.
	//
	// Parameters:
	//   - subjectID: The subject the tick was for
	//   - outcome: Tick outcome ("success", "conditional_noop", "failure", "denied", "skipped_*")
	RecordHeartbeat(subjectID string, outcome string)
}

// PresenceMetrics defines metrics for the presence watcher.
type PresenceMetrics interface {
	// RecordPresenceEvent records an event applied to (or dropped by) the presence mirror.
	//
	// Parameters:
	//   - kind: Event kind ("feed", "heartbeat", "resync", "dropped")
	RecordPresenceEvent(kind string)
}

// ReconcileMetrics defines metrics for request reconciliation.
type ReconcileMetrics interface {
	// RecordReconcile records one reconciliation pass.
	//
	// Parameters:
	//   - duration: Time taken by fetch and reconcile in seconds
	//   - size: Number of entries in the resulting list
	//   - changed: Whether the list changed observably
	RecordReconcile(duration float64, size int, changed bool)

	// RecordRefetchFailure records a failed candidate fetch.
	RecordRefetchFailure()
}

// DebounceMetrics defines metrics for debounced refreshers.
type DebounceMetrics interface {
	// RecordDebounceCoalesced records a schedule call absorbed into a pending window.
	//
	// Parameters:
	//   - name: Refresher name ("requests", "connection")
	RecordDebounceCoalesced(name string)
}
