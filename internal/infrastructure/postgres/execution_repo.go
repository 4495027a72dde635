package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
)

const executionColumns = `id, job_id, attempt_number, status, started_at,
	       finished_at, error_message, result`

type ExecutionRepository struct {
	pool *pgxpool.Pool
}

func NewExecutionRepository(pool *pgxpool.Pool) *ExecutionRepository {
	return &ExecutionRepository{pool: pool}
}

func (r *ExecutionRepository) ListByJobID(ctx context.Context, jobID uuid.UUID) ([]*domain.JobExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM job_executions
		WHERE job_id = $1
		ORDER BY attempt_number ASC`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, classify("list executions", err)
	}
	defer rows.Close()

	var execs []*domain.JobExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, classify("list executions", err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list executions", err)
	}
	return execs, nil
}

func (r *ExecutionRepository) ListByJobIDs(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID][]*domain.JobExecution, error) {
	byJob := make(map[uuid.UUID][]*domain.JobExecution, len(jobIDs))
	if len(jobIDs) == 0 {
		return byJob, nil
	}

	query := `
		SELECT ` + executionColumns + `
		FROM job_executions
		WHERE job_id = ANY($1)
		ORDER BY job_id, attempt_number ASC`

	rows, err := r.pool.Query(ctx, query, jobIDs)
	if err != nil {
		return nil, classify("list executions", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, classify("list executions", err)
		}
		byJob[e.JobID] = append(byJob[e.JobID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list executions", err)
	}
	return byJob, nil
}

func scanExecution(row rowScanner) (*domain.JobExecution, error) {
	var e domain.JobExecution
	err := row.Scan(
		&e.ID, &e.JobID, &e.AttemptNumber, &e.Status, &e.StartedAt,
		&e.FinishedAt, &e.ErrorMessage, &e.Result,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
