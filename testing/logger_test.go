package testing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatEntry(t *testing.T) {
	tests := []struct {
		name string
		kv   []any
		want string
	}{
		{"no fields", nil, "heartbeat failed"},
		{"pairs", []any{"subject", "pharmacy-1", "error", errors.New("timeout")}, "heartbeat failed subject=pharmacy-1 error=timeout"},
		{"dangling key", []any{"subject"}, "heartbeat failed subject=<missing>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, formatEntry("heartbeat failed", tt.kv))
		})
	}
}

func TestNewTestLogger_DropsAfterCleanup(t *testing.T) {
	var logger *testLogger
	t.Run("inner", func(t *testing.T) {
		logger = NewTestLogger(t).(*testLogger)
		logger.Info("session opened", "subject", "pharmacy-1")
		require.False(t, logger.done.Load())
	})

	require.True(t, logger.done.Load())
	require.NotPanics(t, func() {
		logger.Warn("heartbeat failed", "subject", "pharmacy-1")
		logger.Fatal("late entry")
	})
}
