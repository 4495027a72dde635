package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
)

type ExecutionRepository interface {
	// ListByJobID returns all attempts for a job, ordered by
	// attempt_number ASC.
	ListByJobID(ctx context.Context, jobID uuid.UUID) ([]*domain.JobExecution, error)

	// ListByJobIDs fetches attempts for many jobs in one query, keyed
	// by job id. Jobs without attempts are absent from the map.
	ListByJobIDs(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID][]*domain.JobExecution, error)
}
