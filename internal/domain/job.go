package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusScheduled JobStatus = "SCHEDULED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusPaused    JobStatus = "PAUSED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether the status is final. A terminal job's status,
// retry_count and run_at are never written again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

type ScheduleType string

const (
	ScheduleOneTime  ScheduleType = "one_time"
	ScheduleInterval ScheduleType = "interval"
)

type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
)

type Job struct {
	ID              uuid.UUID
	Name            string
	Payload         map[string]any // opaque; actions may read well-known keys
	ScheduleType    ScheduleType
	RunAt           *time.Time // nil means eligible immediately
	IntervalSeconds *int
	MaxRetries      int

	Status     JobStatus
	RetryCount int

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// JobExecution records one attempt. Rows are inserted before the side
// effect runs, with StatusFailed, and flipped on success.
type JobExecution struct {
	ID            uuid.UUID
	JobID         uuid.UUID
	AttemptNumber int
	Status        ExecutionStatus
	StartedAt     time.Time
	FinishedAt    *time.Time
	ErrorMessage  *string
	Result        *string
}
