// Package testing provides test utilities for the medy presence library.
//
// This package offers helpers for setting up test environments: an embedded
// NATS server for the JetStream KV store adapters and an in-memory store that
// implements both PresenceStore and RequestFeed with fault injection. It follows
// Go's convention of providing testing utilities in a dedicated package
// (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - MemoryStore: In-memory PresenceStore, with FeedView for RequestFeed
//   - NewTestLogger: Logger writing through testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    medytest "github.com/piperia-salata-create/Medy-App-sub001/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    store := medytest.NewMemoryStore()
//	    store.SetDuty("pharmacy-1", true)
//	    // Use store as PresenceStore and store.FeedView() as RequestFeed
//	}
package testing
