package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("errors.Is works correctly", func(t *testing.T) {
		require.True(t, errors.Is(ErrEmitterAlreadyStarted, ErrEmitterAlreadyStarted))
		require.False(t, errors.Is(ErrEmitterAlreadyStarted, ErrEmitterNotStarted))

		wrapped := fmt.Errorf("assert alive for pharmacy-1: %w", ErrPermissionDenied)
		require.True(t, errors.Is(wrapped, ErrPermissionDenied))
	})

	t.Run("all errors are distinct", func(t *testing.T) {
		allErrors := []error{
			ErrInvalidConfig,
			ErrPresenceStoreRequired,
			ErrRequestFeedRequired,
			ErrEnvironmentRequired,
			ErrAlreadyOpen,
			ErrNotOpen,
			ErrSessionClosed,
			ErrNoSubjectID,
			ErrPermissionDenied,
			ErrConnectivity,
			ErrMalformedPayload,
			ErrEmitterAlreadyStarted,
			ErrEmitterNotStarted,
			ErrWatcherNotStarted,
			ErrTrackerNotStarted,
			ErrSubscribeFailed,
		}

		for i, a := range allErrors {
			for j, b := range allErrors {
				if i != j {
					require.False(t, errors.Is(a, b), "%v should not match %v", a, b)
				}
			}
		}
	})
}

func TestIsPermissionDenied(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrPermissionDenied, true},
		{"wrapped sentinel", fmt.Errorf("subscribe: %w", ErrPermissionDenied), true},
		{"nats permissions violation", errors.New("nats: permissions violation for publish to \"$KV.x\""), true},
		{"nats authorization", errors.New("nats: Authorization Violation"), true},
		{"transport", errors.New("nats: timeout"), false},
		{"connectivity", ErrConnectivity, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsPermissionDenied(tt.err))
		})
	}
}
