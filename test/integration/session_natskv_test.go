package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/piperia-salata-create/Medy-App-sub001"
	"github.com/piperia-salata-create/Medy-App-sub001/environment"
	"github.com/piperia-salata-create/Medy-App-sub001/internal/logger"
	"github.com/piperia-salata-create/Medy-App-sub001/store/natskv"
	medytest "github.com/piperia-salata-create/Medy-App-sub001/testing"
)

func openNATSStore(t *testing.T) (*natskv.Store, func()) {
	t.Helper()

	srv, nc := medytest.StartEmbeddedNATS(t)
	js := medytest.NewJetStream(t, nc)

	buckets := natskv.DefaultBuckets()
	buckets.Storage = jetstream.MemoryStorage

	st, err := natskv.Open(t.Context(), js, buckets)
	require.NoError(t, err)

	return st, srv.Shutdown
}

// TestNATSKV_HeartbeatFollowsDuty verifies the heartbeat touches the KV record
// only while the owner keeps the pharmacy on duty.
func TestNATSKV_HeartbeatFollowsDuty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	st, _ := openNATSStore(t)
	require.NoError(t, st.PutPresence(ctx, medy.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: true}))

	sess := newSession(t, medy.TestConfig(), st, st.Feed(), environment.NewManual(true, true))

	t.Log("Opening session for an on-duty pharmacy...")
	require.NoError(t, sess.Open(ctx, "pharmacy-1"))
	requireState(t, sess, medy.StateActive)

	t.Log("Waiting for the heartbeat to reach the mirror...")
	require.Eventually(t, sess.IsReachable, waitFor, tick)
	first := sess.Presence().LastTouchedAt
	require.Eventually(t, func() bool {
		return sess.Presence().LastTouchedAt.After(first)
	}, waitFor, tick, "heartbeat should keep advancing the timestamp")

	t.Log("Owner toggles the pharmacy off duty...")
	require.NoError(t, st.PutPresence(ctx, medy.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: false}))
	requireState(t, sess, medy.StateIdle)
	require.False(t, sess.IsReachable())

	// Several intervals pass without any write.
	idleAt := sess.Presence().LastTouchedAt
	time.Sleep(4 * medy.TestConfig().HeartbeatInterval)
	duty, err := st.ReadDuty(ctx, "pharmacy-1")
	require.NoError(t, err)
	require.False(t, duty.IsOnDuty)
	require.Equal(t, idleAt, sess.Presence().LastTouchedAt)

	t.Log("Owner toggles the pharmacy back on duty...")
	require.NoError(t, st.PutPresence(ctx, medy.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: true}))
	requireState(t, sess, medy.StateActive)
	require.Eventually(t, sess.IsReachable, waitFor, tick)
}

// TestNATSKV_RequestsFollowFeed verifies recipient rows added and removed in
// the bucket are reflected in the reconciled list.
func TestNATSKV_RequestsFollowFeed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	st, _ := openNATSStore(t)
	feed := st.Feed()
	now := time.Now()

	require.NoError(t, feed.PutRecipient(ctx, pendingRecipient("pharmacy-1", "rc-1", "req-1", now.Add(-time.Minute))))

	sess := newSession(t, medy.TestConfig(), st, feed, environment.NewManual(true, true))
	require.NoError(t, sess.Open(ctx, "pharmacy-1"))

	require.Eventually(t, func() bool {
		return len(sess.Requests()) == 1
	}, waitFor, tick)

	t.Log("Adding a newer request and one for another pharmacy...")
	require.NoError(t, feed.PutRecipient(ctx, pendingRecipient("pharmacy-1", "rc-2", "req-2", now)))
	require.NoError(t, feed.PutRecipient(ctx, pendingRecipient("pharmacy-2", "rc-3", "req-3", now)))

	require.Eventually(t, func() bool {
		ids := requestIDs(sess.Requests())
		return len(ids) == 2 && ids[0] == "req-2" && ids[1] == "req-1"
	}, waitFor, tick, "newest request should come first")

	t.Log("Removing the older request...")
	require.NoError(t, feed.DeleteRecipient(ctx, "pharmacy-1", "rc-1"))
	require.Eventually(t, func() bool {
		ids := requestIDs(sess.Requests())
		return len(ids) == 1 && ids[0] == "req-2"
	}, waitFor, tick)

	t.Log("Pharmacy accepts the remaining request...")
	accepted := pendingRecipient("pharmacy-1", "rc-2", "req-2", now)
	accepted.Status = medy.RecipientAccepted
	require.NoError(t, feed.PutRecipient(ctx, accepted))
	require.Eventually(t, func() bool { return len(sess.Requests()) == 0 }, waitFor, tick)
}

// TestNATSKV_ServerLossKeepsSessionActive verifies losing the server only
// produces heartbeat warnings and never halts the session.
func TestNATSKV_ServerLossKeepsSessionActive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	st, shutdown := openNATSStore(t)
	require.NoError(t, st.PutPresence(ctx, medy.PresenceRecord{SubjectID: "pharmacy-1", IsOnDuty: true}))

	cfg := medy.TestConfig()
	cfg.OperationTimeout = 30 * time.Millisecond
	rec := logger.NewRecorder()

	sess := newSession(t, cfg, st, st.Feed(), environment.NewManual(true, true), medy.WithLogger(rec))
	require.NoError(t, sess.Open(ctx, "pharmacy-1"))
	requireState(t, sess, medy.StateActive)
	require.Eventually(t, sess.IsReachable, waitFor, tick)

	t.Log("Shutting down the NATS server...")
	shutdown()

	require.Eventually(t, func() bool {
		return rec.Has(logger.LevelWarn, "heartbeat failed")
	}, waitFor, tick)
	require.Equal(t, medy.StateActive, sess.State())
	require.False(t, rec.Has(logger.LevelError, "permission denied, session halted"))

	// The mirror stops advancing, so the subject goes stale.
	require.Eventually(t, func() bool { return !sess.IsReachable() }, waitFor, tick)
}
