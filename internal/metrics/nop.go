package metrics

import "github.com/piperia-salata-create/Medy-App-sub001/types"

// NopMetrics discards every measurement.
//
// It is the default collector for sessions and components created without
// WithMetrics.
type NopMetrics struct{}

var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a collector that records nothing.
//
// Example:
//
//	sess, _ := medy.NewSession(cfg, store, feed, env, medy.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// SessionMetrics implementation

func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State) {}

// HeartbeatMetrics implementation

func (n *NopMetrics) RecordHeartbeat(_ /* subjectID */, _ /* outcome */ string) {}

// PresenceMetrics implementation

func (n *NopMetrics) RecordPresenceEvent(_ /* kind */ string) {}

// ReconcileMetrics implementation

func (n *NopMetrics) RecordReconcile(_ /* duration */ float64, _ /* size */ int, _ /* changed */ bool) {}

func (n *NopMetrics) RecordRefetchFailure() {}

// DebounceMetrics implementation

func (n *NopMetrics) RecordDebounceCoalesced(_ /* name */ string) {}
