package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
)

type ListJobsFilter struct {
	Status       domain.JobStatus    // empty = all statuses
	ScheduleType domain.ScheduleType // empty = all types
	Limit        int
	Offset       int
}

// UseCase and worker depend on interfaces, not the pgx implementation.
// This way we get: 1) can swap DB later without touching callers 2) we
// can pass a fake implementation in tests.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) (*domain.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	// List returns one page plus the unpaged total, newest first.
	List(ctx context.Context, filter ListJobsFilter) ([]*domain.Job, int, error)
	// UpdateStatus writes status only, and only while the row still
	// holds expect; transition legality is the caller's job. A row whose
	// status moved since the caller read it yields ErrStatusConflict, so
	// a validated transition can never overwrite a state the validation
	// never saw.
	UpdateStatus(ctx context.Context, id uuid.UUID, status, expect domain.JobStatus) (*domain.Job, error)
	// Delete reports whether a row existed. Executions cascade.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// Worker side.
	//
	// ClaimOneReady opens a transaction, locks one ready job with
	// skip-locked semantics and returns it as a Claim. Other workers'
	// locked rows are invisible to the query, so N workers can pull
	// from the same table without blocking or duplicating.
	// Returns (nil, nil) when nothing is ready; the transaction is
	// already closed in that case.
	ClaimOneReady(ctx context.Context) (Claim, error)
	// ResetStaleRunning flips jobs stuck in RUNNING since before
	// threshold back to SCHEDULED and returns how many.
	ResetStaleRunning(ctx context.Context, threshold time.Time) (int64, error)
}
