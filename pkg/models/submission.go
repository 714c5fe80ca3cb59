package models

import "time"

// SubmissionStatus is the processing lifecycle of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPending    SubmissionStatus = "pending"
	SubmissionStatusProcessing SubmissionStatus = "processing"
	SubmissionStatusCompleted  SubmissionStatus = "completed"
	SubmissionStatusFailed     SubmissionStatus = "failed"
)

// TriggerMarker is the bare payload of a submission that only requests a
// re-run. It is transparently rehydrated from the most recent submission
// carrying real data before execution begins.
const TriggerMarker = "__trigger__"

// Submission is the tenant payload that triggers a cascade.
type Submission struct {
	ID       string           `json:"id"`
	TenantID string           `json:"tenant_id" validate:"required"`
	Source   string           `json:"source"`
	Payload  string           `json:"payload"`
	Status   SubmissionStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerOnly reports whether the submission carries no real data.
func (s *Submission) TriggerOnly() bool {
	return s.Payload == "" || s.Payload == TriggerMarker
}
