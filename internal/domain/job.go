package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	// JobStatusPending is the schema default. Jobs are created directly in
	// JobStatusProcessing, so it is never observed on a persisted row.
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Job is one generation request and its outcome.
type Job struct {
	ID           int64        `json:"id"`
	Prompt       string       `json:"prompt"`
	Status       JobStatus    `json:"status"`
	ResultText   *string      `json:"result_text"`
	ErrorMessage *string      `json:"error_message"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Assets       []ImageAsset `json:"assets"`
}

// JobEvent describes a terminal job transition.
type JobEvent struct {
	JobID        int64     `json:"job_id"`
	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Outputs      int       `json:"outputs"`
	OccurredAt   time.Time `json:"occurred_at"`
}
