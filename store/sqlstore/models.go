package sqlstore

import (
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

type presenceRow struct {
	SubjectID     string `gorm:"primaryKey"`
	IsOnDuty      bool   `gorm:"not null"`
	LastTouchedAt *time.Time
}

func (presenceRow) TableName() string { return "presence" }

type requestRow struct {
	ID                string `gorm:"primaryKey"`
	Status            string `gorm:"index;not null"`
	CreatedAt         time.Time
	ExpiresAt         *time.Time
	SelectedSubjectID string
	Notes             string
	Query             string
}

func (requestRow) TableName() string { return "requests" }

type recipientRow struct {
	RecipientID string `gorm:"primaryKey"`
	SubjectID   string `gorm:"index:idx_recipient_subject_status;not null"`
	Status      string `gorm:"index:idx_recipient_subject_status;not null"`
	RequestID   string `gorm:"index"`

	// Request is nil when the join finds no visible request row.
	Request *requestRow `gorm:"foreignKey:RequestID;references:ID"`
}

func (recipientRow) TableName() string { return "request_recipients" }

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}

func toRequestRow(r *types.Request) requestRow {
	return requestRow{
		ID:                r.ID,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
		ExpiresAt:         optionalTime(r.ExpiresAt),
		SelectedSubjectID: r.SelectedSubjectID,
		Notes:             r.Notes,
		Query:             r.Query,
	}
}

func (row *requestRow) toRequest() *types.Request {
	if row == nil {
		return nil
	}

	return &types.Request{
		ID:                row.ID,
		Status:            types.RequestStatus(row.Status),
		CreatedAt:         row.CreatedAt,
		ExpiresAt:         timeOrZero(row.ExpiresAt),
		SelectedSubjectID: row.SelectedSubjectID,
		Notes:             row.Notes,
		Query:             row.Query,
	}
}

func (row *recipientRow) toRecipient() *types.Recipient {
	return &types.Recipient{
		RecipientID: row.RecipientID,
		SubjectID:   row.SubjectID,
		Status:      types.RecipientStatus(row.Status),
		Request:     row.Request.toRequest(),
	}
}
