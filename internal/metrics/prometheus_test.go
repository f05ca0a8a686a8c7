package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

func TestPrometheusCollector_LazyRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPrometheus(reg, "test")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families)
}

func TestPrometheusCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordStateTransition(types.StateIdle, types.StateActive)
	p.RecordHeartbeat("pharmacy-1", "success")
	p.RecordHeartbeat("pharmacy-1", "success")
	p.RecordHeartbeat("pharmacy-1", "skipped_offline")
	p.RecordPresenceEvent("heartbeat")
	p.RecordReconcile(0.004, 3, true)
	p.RecordReconcile(0.002, 3, false)
	p.RecordRefetchFailure()
	p.RecordDebounceCoalesced("requests")

	require.InDelta(t, 1, testutil.ToFloat64(p.stateTransitions.WithLabelValues("Idle", "Active")), 0)
	require.InDelta(t, float64(types.StateActive), testutil.ToFloat64(p.currentState), 0)
	require.InDelta(t, 2, testutil.ToFloat64(p.heartbeats.WithLabelValues("success")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.heartbeats.WithLabelValues("skipped_offline")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.presenceEvents.WithLabelValues("heartbeat")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.reconcilePasses.WithLabelValues("true")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.reconcilePasses.WithLabelValues("false")), 0)
	require.InDelta(t, 3, testutil.ToFloat64(p.listSize), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.refetchFailures), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.coalesced.WithLabelValues("requests")), 0)
}

func TestNewPrometheus_Defaults(t *testing.T) {
	p := NewPrometheus(nil, "")
	require.Equal(t, "medy", p.namespace)
	require.Equal(t, prometheus.DefaultRegisterer, p.reg)
}
