package natskv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	medytest "github.com/piperia-salata-create/Medy-App-sub001/testing"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

func TestFeed_FetchCandidates(t *testing.T) {
	ctx := t.Context()
	feed := openStore(t).Feed()

	rows, err := feed.FetchCandidates(ctx, "pharmacy-1", time.Now())
	require.NoError(t, err)
	require.Empty(t, rows)

	created := time.UnixMilli(1_700_000_000_000).UTC()
	require.NoError(t, feed.PutRecipient(ctx, medytest.PendingRecipient("pharmacy-1", "r1", created)))
	require.NoError(t, feed.PutRecipient(ctx, medytest.PendingRecipient("pharmacy-1", "r2", created.Add(time.Second))))
	accepted := medytest.PendingRecipient("pharmacy-1", "r3", created)
	accepted.Status = types.RecipientAccepted
	require.NoError(t, feed.PutRecipient(ctx, accepted))
	orphan := medytest.PendingRecipient("pharmacy-1", "r4", created)
	orphan.Request = nil
	require.NoError(t, feed.PutRecipient(ctx, orphan))
	require.NoError(t, feed.PutRecipient(ctx, medytest.PendingRecipient("pharmacy-2", "r5", created)))

	rows, err = feed.FetchCandidates(ctx, "pharmacy-1", time.Now())
	require.NoError(t, err)

	got := map[string]*types.Recipient{}
	for _, r := range rows {
		got[r.RecipientID] = r
	}
	require.Len(t, got, 3)
	require.Contains(t, got, "r1")
	require.Contains(t, got, "r2")
	require.Nil(t, got["r4"].Request, "a failed join stays nil")
	require.True(t, got["r1"].Request.CreatedAt.Equal(created))

	require.NoError(t, feed.DeleteRecipient(ctx, "pharmacy-1", "r1"))
	rows, err = feed.FetchCandidates(ctx, "pharmacy-1", time.Now())
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestFeed_Subscribe(t *testing.T) {
	ctx := t.Context()
	feed := openStore(t).Feed()

	signals := make(chan struct{}, 8)
	unsub, err := feed.Subscribe(ctx, "pharmacy-1", func() { signals <- struct{}{} })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, feed.PutRecipient(ctx, medytest.PendingRecipient("pharmacy-1", "r1", time.Now())))
	receive(t, signals)

	require.NoError(t, feed.DeleteRecipient(ctx, "pharmacy-1", "r1"))
	receive(t, signals)

	require.NoError(t, feed.PutRecipient(ctx, medytest.PendingRecipient("pharmacy-2", "r2", time.Now())))
	select {
	case <-signals:
		t.Fatal("signal for another subject")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFeed_InvalidKeys(t *testing.T) {
	feed := openStore(t).Feed()

	err := feed.PutRecipient(t.Context(), medytest.PendingRecipient("pharmacy.1", "r1", time.Now()))
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = feed.FetchCandidates(t.Context(), "", time.Now())
	require.ErrorIs(t, err, ErrInvalidKey)
}
