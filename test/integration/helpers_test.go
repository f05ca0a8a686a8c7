package integration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piperia-salata-create/Medy-App-sub001"
)

const (
	waitFor = 10 * time.Second
	tick    = 10 * time.Millisecond
)

// newSession builds a session and closes it when the test ends.
func newSession(t *testing.T, cfg medy.Config, store medy.PresenceStore, feed medy.RequestFeed, env medy.Environment, opts ...medy.Option) *medy.Session {
	t.Helper()

	sess, err := medy.NewSession(cfg, store, feed, env, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	return sess
}

// requireState waits until the session reaches want.
func requireState(t *testing.T, sess *medy.Session, want medy.State) {
	t.Helper()

	require.Eventually(t, func() bool { return sess.State() == want }, waitFor, tick,
		"session never reached %s (last %s)", want, sess.State())
}

func requestIDs(list []*medy.Recipient) []string {
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.Request.ID)
	}

	return ids
}

func pendingRecipient(subjectID, recipientID, requestID string, createdAt time.Time) *medy.Recipient {
	return &medy.Recipient{
		RecipientID: recipientID,
		SubjectID:   subjectID,
		Status:      medy.RecipientPending,
		Request: &medy.Request{
			ID:        requestID,
			Status:    medy.RequestPending,
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(time.Hour),
			Query:     "amoxicillin 500mg",
		},
	}
}
