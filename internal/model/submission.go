package model

import "time"

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionApproved  SubmissionStatus = "approved"
	SubmissionRejected  SubmissionStatus = "rejected"
)

type Submission struct {
	ID          int64            `json:"id"`
	TaskID      int64            `json:"task_id"`
	SubmittedBy int64            `json:"submitted_by"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	ResolvedAt  *time.Time       `json:"resolved_at"`
}
