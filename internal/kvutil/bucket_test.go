package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	medytest "github.com/piperia-salata-create/Medy-App-sub001/testing"
)

func TestEnsureKVBucketWithRetry_Concurrent(t *testing.T) {
	_, nc := medytest.StartEmbeddedNATS(t)
	js := medytest.NewJetStream(t, nc)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	const sessions = 8
	cfg := jetstream.KeyValueConfig{Bucket: "medy-presence", History: 1, Storage: jetstream.MemoryStorage}

	var wg sync.WaitGroup
	errs := make([]error, sessions)
	kvs := make([]jetstream.KeyValue, sessions)

	for i := range sessions {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			kvs[idx], errs[idx] = EnsureKVBucketWithRetry(ctx, js, cfg, 5)
		}(i)
	}
	wg.Wait()

	for i := range sessions {
		require.NoError(t, errs[i], "session %d", i)
		require.Equal(t, "medy-presence", kvs[i].Bucket())
	}

	// Every handle points at the same bucket.
	_, err := kvs[0].Put(ctx, "pharmacy-1", []byte(`{"isOnDuty":true}`))
	require.NoError(t, err)

	entry, err := kvs[sessions-1].Get(ctx, "pharmacy-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"isOnDuty":true}`, string(entry.Value()))
}

func TestEnsureKVBucketWithRetry_ExistingBucket(t *testing.T) {
	_, nc := medytest.StartEmbeddedNATS(t)
	js := medytest.NewJetStream(t, nc)
	medytest.CreateJetStreamKV(t, nc, "medy-recipients")

	kv, err := EnsureKVBucketWithRetry(t.Context(), js, jetstream.KeyValueConfig{
		Bucket:  "medy-recipients",
		Storage: jetstream.MemoryStorage,
	}, 0)
	require.NoError(t, err)
	require.Equal(t, "medy-recipients", kv.Bucket())
}

func TestEnsureKVBucketWithRetry_CancelledContext(t *testing.T) {
	_, nc := medytest.StartEmbeddedNATS(t)
	js := medytest.NewJetStream(t, nc)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: "never"}, 3)
	require.ErrorIs(t, err, context.Canceled)
}
