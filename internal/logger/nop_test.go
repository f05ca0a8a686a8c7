package logger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

func TestNopLogger(t *testing.T) {
	var l types.Logger = NewNop()

	require.NotPanics(t, func() {
		l.Debug("presence resynced", "subject", "pharmacy-1")
		l.Info("session opened")
		l.Warn("heartbeat failed", "error", nil)
		l.Error("feed subscribe failed")
		l.Fatal("never exits")
	})
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()

	rec.Warn("heartbeat failed", "subject", "pharmacy-1", "attempt", 2)
	rec.Warn("heartbeat failed", "subject", "pharmacy-1")
	rec.Info("session opened")

	require.True(t, rec.Has(LevelWarn, "heartbeat failed"))
	require.False(t, rec.Has(LevelError, "heartbeat failed"))
	require.Equal(t, 2, rec.Count(LevelWarn, "heartbeat failed"))

	entries := rec.Entries()
	require.Len(t, entries, 3)

	v, ok := entries[0].Field("attempt")
	require.True(t, ok)
	require.Equal(t, 2, v)

	_, ok = entries[2].Field("subject")
	require.False(t, ok)

	rec.Reset()
	require.Empty(t, rec.Entries())
}
