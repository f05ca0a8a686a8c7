// Package natsutil classifies NATS and JetStream errors into the library's sentinels.
//
// It lives under internal so the types package stays free of NATS imports.
package natsutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// IsConnectivityError reports whether err is caused by the connection rather
// than by the request: timeouts, no servers, disconnects and the like.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	return errors.Is(err, types.ErrConnectivity) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, jetstream.ErrNoHeartbeat) ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout")
}

// IsPermissionError reports whether the server rejected the operation for
// lack of permission.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, nats.ErrPermissionViolation) ||
		errors.Is(err, nats.ErrAuthorization) ||
		errors.Is(err, nats.ErrAuthExpired) ||
		errors.Is(err, nats.ErrAuthRevoked) ||
		types.IsPermissionDenied(err)
}

// IsRevisionConflict reports whether a KV update lost a compare-and-set race.
func IsRevisionConflict(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}

	return false
}

// Classify wraps err with ErrPermissionDenied or ErrConnectivity when it falls
// into one of those classes, so callers can match with errors.Is. Other errors
// are returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsPermissionError(err) && !errors.Is(err, types.ErrPermissionDenied):
		return fmt.Errorf("%w: %w", types.ErrPermissionDenied, err)
	case IsConnectivityError(err) && !errors.Is(err, types.ErrConnectivity):
		return fmt.Errorf("%w: %w", types.ErrConnectivity, err)
	default:
		return err
	}
}
