package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
)

// Claim is one claimed job inside its still-open claim transaction.
// Every method acts within that transaction; nothing becomes visible to
// other workers (or to API readers) until Commit. The row lock taken by
// the claim query is held until Commit or Rollback, which is what makes
// the worker's read-modify-write safe against concurrent operators.
type Claim interface {
	// Job returns the row as it was when claimed.
	Job() *domain.Job

	// MarkRunning sets status=RUNNING inside the transaction.
	MarkRunning(ctx context.Context) error

	// InsertExecution opens the attempt record pessimistically: status
	// FAILED, started_at=now, finished_at=NULL. FinishExecution flips
	// it on success.
	InsertExecution(ctx context.Context, attemptNumber int) (*domain.JobExecution, error)

	FinishExecution(ctx context.Context, input FinishExecutionInput) error

	// JobStatus re-reads the job's status inside the transaction. Used
	// for the pre-finalize terminal check.
	JobStatus(ctx context.Context) (domain.JobStatus, error)

	FinalizeJob(ctx context.Context, input FinalizeJobInput) error

	Commit(ctx context.Context) error
	// Rollback after Commit is a no-op, so it is safe to defer.
	Rollback(ctx context.Context) error
}

type FinishExecutionInput struct {
	ExecutionID  uuid.UUID
	Status       domain.ExecutionStatus
	FinishedAt   time.Time
	ErrorMessage *string // set on failure
	Result       *string // set on success
}

type FinalizeJobInput struct {
	Status     domain.JobStatus
	RunAt      *time.Time // nil = leave unchanged
	RetryCount *int       // nil = leave unchanged
}
