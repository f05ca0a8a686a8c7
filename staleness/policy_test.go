package staleness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

func TestConstants(t *testing.T) {
	require.Equal(t, 15*time.Second, HeartbeatInterval)
	require.Equal(t, 45*time.Second, Threshold)
}

func TestIsFresh(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("absent timestamp is fresh for local assertion", func(t *testing.T) {
		require.True(t, IsFresh(time.Time{}, now, Threshold))
	})

	t.Run("zero age is fresh", func(t *testing.T) {
		require.True(t, IsFresh(now, now, Threshold))
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		require.True(t, IsFresh(now.Add(-45_000*time.Millisecond), now, Threshold))
		require.False(t, IsFresh(now.Add(-45_001*time.Millisecond), now, Threshold))
	})

	t.Run("monotonically stale past the threshold", func(t *testing.T) {
		last := now.Add(-time.Hour)
		for delta := 45_001; delta <= 200_000; delta += 7_919 {
			require.False(t, IsFresh(last, last.Add(time.Duration(delta)*time.Millisecond), Threshold), "delta=%d", delta)
		}
	})

	t.Run("future timestamp is fresh", func(t *testing.T) {
		require.True(t, IsFresh(now.Add(time.Second), now, Threshold))
	})
}

func TestIsObservedFresh(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	require.False(t, IsObservedFresh(time.Time{}, now, Threshold))
	require.True(t, IsObservedFresh(now, now, Threshold))
	require.True(t, IsObservedFresh(now.Add(-30*time.Second), now, Threshold))
	require.False(t, IsObservedFresh(now.Add(-46*time.Second), now, Threshold))
}

func TestIsEffectivelyOnDuty(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("on duty but stale is effectively off duty", func(t *testing.T) {
		rec := types.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: true, LastTouchedAt: now.Add(-60 * time.Second)}
		require.False(t, IsFresh(rec.LastTouchedAt, now, Threshold))
		require.False(t, IsEffectivelyOnDuty(rec, now, Threshold))
	})

	t.Run("on duty and fresh", func(t *testing.T) {
		rec := types.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: true, LastTouchedAt: now.Add(-10 * time.Second)}
		require.True(t, IsEffectivelyOnDuty(rec, now, Threshold))
	})

	t.Run("off duty and fresh", func(t *testing.T) {
		rec := types.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: false, LastTouchedAt: now}
		require.False(t, IsEffectivelyOnDuty(rec, now, Threshold))
	})

	t.Run("never touched", func(t *testing.T) {
		rec := types.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: true}
		require.False(t, IsEffectivelyOnDuty(rec, now, Threshold))
	})
}

func TestAge(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	require.Equal(t, time.Duration(0), Age(time.Time{}, now))
	require.Equal(t, time.Duration(0), Age(now.Add(time.Second), now))
	require.Equal(t, 12*time.Second, Age(now.Add(-12*time.Second), now))
}
