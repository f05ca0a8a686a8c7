package types

import "time"

// RecipientStatus is a recipient's own response to a request.
type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "pending"
	RecipientAccepted  RecipientStatus = "accepted"
	RecipientRejected  RecipientStatus = "rejected"
	RecipientCancelled RecipientStatus = "cancelled"
)

// RequestStatus is the status of the parent request.
//
// Values outside the known set are carried through unchanged.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestCancelled RequestStatus = "cancelled"
	RequestCompleted RequestStatus = "completed"
)

// Request is a patient's request fanned out to candidate pharmacies.
type Request struct {
	ID     string        `json:"id"`
	Status RequestStatus `json:"status"`

	CreatedAt time.Time `json:"createdAt"`

	// ExpiresAt is zero when the request never expires.
	ExpiresAt time.Time `json:"expiresAt,omitzero"`

	// SelectedSubjectID is empty until the patient picks a pharmacy.
	SelectedSubjectID string `json:"selectedSubjectId,omitempty"`

	Notes string `json:"notes,omitempty"`
	Query string `json:"query,omitempty"`
}

// Recipient is one targeted delivery of a request to a subject, joined with its request.
//
// Request is nil when the join missed, e.g. the request row was deleted concurrently.
type Recipient struct {
	RecipientID string          `json:"recipientId"`
	SubjectID   string          `json:"subjectId"`
	Status      RecipientStatus `json:"status"`
	Request     *Request        `json:"request"`
}
