// Package kvutil opens the JetStream key-value buckets used by the NATS store.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultMaxAttempts is used when EnsureKVBucketWithRetry is given a non-positive attempt count.
const DefaultMaxAttempts = 3

// EnsureKVBucketWithRetry creates the bucket, or opens it when another client
// created it first.
//
// Several sessions typically start against a fresh server at once, so a
// create can race with a concurrent create. Failed attempts are retried with
// a doubling delay starting at 10ms.
//
// Parameters:
//   - ctx: Bounds the whole operation, retries included
//   - js: JetStream handle
//   - config: Bucket configuration
//   - maxAttempts: Attempts before giving up (DefaultMaxAttempts if <= 0)
//
// Returns:
//   - jetstream.KeyValue: Ready bucket handle
//   - error: Last failure, wrapped, after all attempts
//
// Example:
//
//	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
//	    Bucket:  "medy-presence",
//	    History: 1,
//	}, 3)
func EnsureKVBucketWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	maxAttempts int,
) (jetstream.KeyValue, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	delay := 10 * time.Millisecond

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		kv, err := js.CreateKeyValue(ctx, config)
		if err == nil {
			return kv, nil
		}

		lastErr = err
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, openErr := js.KeyValue(ctx, config.Bucket)
			if openErr == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("open existing bucket: %w", openErr)
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", config.Bucket, ctx.Err())
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ensure bucket %s: %w", config.Bucket, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("ensure bucket %s after %d attempts: %w", config.Bucket, maxAttempts, lastErr)
}
