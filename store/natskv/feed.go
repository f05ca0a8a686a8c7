package natskv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/natsutil"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// Feed is the RequestFeed view of a Store.
type Feed struct {
	s *Store
}

func recipientKey(subjectID, recipientID string) string {
	return subjectID + "." + recipientID
}

// FetchCandidates implements types.RequestFeed.
//
// It returns every pending recipient row stored under the subject. Rows that
// fail to decode are skipped. Time-based eligibility is left to the caller.
func (f *Feed) FetchCandidates(ctx context.Context, subjectID string, _ time.Time) ([]*types.Recipient, error) {
	if err := validToken(subjectID); err != nil {
		return nil, err
	}

	w, err := f.s.recipients.Watch(ctx, subjectID+".*", jetstream.IgnoreDeletes())
	if err != nil {
		return nil, fmt.Errorf("fetch requests for %s: %w", subjectID, natsutil.Classify(err))
	}
	defer func() { _ = w.Stop() }()

	var rows []*types.Recipient
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch requests for %s: %w", subjectID, ctx.Err())
		case entry, ok := <-w.Updates():
			if !ok {
				return rows, nil
			}
			// A nil entry marks the end of the initial values.
			if entry == nil {
				return rows, nil
			}

			var r types.Recipient
			if err := json.Unmarshal(entry.Value(), &r); err != nil {
				f.s.logger.Debug("recipient row dropped", "key", entry.Key(), "error", err)
				continue
			}
			if r.Status != types.RecipientPending {
				continue
			}
			rows = append(rows, &r)
		}
	}
}

// Subscribe implements types.RequestFeed. Every put or delete under the
// subject is reported as one signal.
func (f *Feed) Subscribe(ctx context.Context, subjectID string, onSignal func()) (types.Unsubscribe, error) {
	if err := validToken(subjectID); err != nil {
		return nil, err
	}

	w, err := f.s.recipients.Watch(ctx, subjectID+".*", jetstream.UpdatesOnly())
	if err != nil {
		return nil, fmt.Errorf("watch requests for %s: %w", subjectID, natsutil.Classify(err))
	}

	return f.s.consume(ctx, w, func(jetstream.KeyValueEntry) { onSignal() }), nil
}

// PutRecipient stores a recipient row with its joined request.
func (f *Feed) PutRecipient(ctx context.Context, r *types.Recipient) error {
	if err := validToken(r.SubjectID); err != nil {
		return err
	}
	if err := validToken(r.RecipientID); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode recipient %s: %w", r.RecipientID, err)
	}

	if _, err := f.s.recipients.Put(ctx, recipientKey(r.SubjectID, r.RecipientID), data); err != nil {
		return fmt.Errorf("put recipient %s: %w", r.RecipientID, natsutil.Classify(err))
	}

	return nil
}

// DeleteRecipient removes a recipient row.
func (f *Feed) DeleteRecipient(ctx context.Context, subjectID, recipientID string) error {
	if err := validToken(subjectID); err != nil {
		return err
	}
	if err := validToken(recipientID); err != nil {
		return err
	}

	if err := f.s.recipients.Delete(ctx, recipientKey(subjectID, recipientID)); err != nil {
		return fmt.Errorf("delete recipient %s: %w", recipientID, natsutil.Classify(err))
	}

	return nil
}
