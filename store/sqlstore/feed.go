package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// Feed is the RequestFeed view of a Store.
type Feed struct {
	s *Store
}

// FetchCandidates implements types.RequestFeed.
//
// Pending recipient rows are loaded with their request preloaded; a recipient
// whose request row is missing comes back with a nil Request.
func (f *Feed) FetchCandidates(ctx context.Context, subjectID string, _ time.Time) ([]*types.Recipient, error) {
	var rows []recipientRow
	err := f.s.db.WithContext(ctx).
		Preload("Request").
		Where("subject_id = ? AND status = ?", subjectID, string(types.RecipientPending)).
		Order("recipient_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetch requests for %s: %w", subjectID, err)
	}

	out := make([]*types.Recipient, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toRecipient())
	}

	return out, nil
}

// Subscribe implements types.RequestFeed.
func (f *Feed) Subscribe(_ context.Context, subjectID string, onSignal func()) (types.Unsubscribe, error) {
	return f.s.feedSubs.Add(subjectID, onSignal), nil
}

// PutRequest upserts a request and signals every subject it was sent to.
func (f *Feed) PutRequest(ctx context.Context, req *types.Request) error {
	row := toRequestRow(req)

	var subjects []string
	err := f.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return err
		}

		return tx.Model(&recipientRow{}).
			Distinct("subject_id").
			Where("request_id = ?", req.ID).
			Pluck("subject_id", &subjects).Error
	})
	if err != nil {
		return fmt.Errorf("put request %s: %w", req.ID, err)
	}

	f.s.notifyFeed(subjects...)

	return nil
}

// PutRecipient upserts a recipient row, and its request when one is attached.
func (f *Feed) PutRecipient(ctx context.Context, r *types.Recipient) error {
	row := recipientRow{
		RecipientID: r.RecipientID,
		SubjectID:   r.SubjectID,
		Status:      string(r.Status),
	}

	err := f.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.Request != nil {
			req := toRequestRow(r.Request)
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&req).Error; err != nil {
				return err
			}
			row.RequestID = req.ID
		}

		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("put recipient %s: %w", r.RecipientID, err)
	}

	f.s.notifyFeed(r.SubjectID)

	return nil
}

// LinkRecipient stores a recipient row pointing at requestID without writing
// the request itself, so the row joins to nothing until the request exists.
func (f *Feed) LinkRecipient(ctx context.Context, subjectID, recipientID, requestID string, status types.RecipientStatus) error {
	row := recipientRow{RecipientID: recipientID, SubjectID: subjectID, Status: string(status), RequestID: requestID}

	err := f.s.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("link recipient %s: %w", recipientID, err)
	}

	f.s.notifyFeed(subjectID)

	return nil
}

// DeleteRecipient removes a recipient row.
func (f *Feed) DeleteRecipient(ctx context.Context, subjectID, recipientID string) error {
	err := f.s.db.WithContext(ctx).Delete(&recipientRow{}, "recipient_id = ? AND subject_id = ?", recipientID, subjectID).Error
	if err != nil {
		return fmt.Errorf("delete recipient %s: %w", recipientID, err)
	}

	f.s.notifyFeed(subjectID)

	return nil
}
