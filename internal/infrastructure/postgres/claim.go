package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/repository"
)

// jobClaim is one claimed row plus the transaction whose lock guards it.
// Every statement runs on that transaction, so the execution row, the
// RUNNING mark and the final status land atomically at Commit. A crash
// before Commit rolls everything back and the row returns to the pool
// untouched.
type jobClaim struct {
	tx  pgx.Tx
	job *domain.Job
}

func (c *jobClaim) Job() *domain.Job { return c.job }

func (c *jobClaim) MarkRunning(ctx context.Context) error {
	_, err := c.tx.Exec(ctx, `
		UPDATE jobs
		SET    status     = 'RUNNING',
		       updated_at = NOW(),
		       version    = version + 1
		WHERE id = $1`, c.job.ID)
	if err != nil {
		return classify("mark running", err)
	}
	c.job.Status = domain.JobStatusRunning
	return nil
}

func (c *jobClaim) InsertExecution(ctx context.Context, attemptNumber int) (*domain.JobExecution, error) {
	query := `
		INSERT INTO job_executions (id, job_id, attempt_number, status, started_at)
		VALUES ($1, $2, $3, 'FAILED', NOW())
		RETURNING ` + executionColumns

	exec, err := scanExecution(c.tx.QueryRow(ctx, query, uuid.New(), c.job.ID, attemptNumber))
	if err != nil {
		return nil, classify("insert execution", err)
	}
	return exec, nil
}

func (c *jobClaim) FinishExecution(ctx context.Context, input repository.FinishExecutionInput) error {
	_, err := c.tx.Exec(ctx, `
		UPDATE job_executions
		SET    status        = $2,
		       finished_at   = $3,
		       error_message = $4,
		       result        = $5
		WHERE id = $1`,
		input.ExecutionID, input.Status, input.FinishedAt, input.ErrorMessage, input.Result)
	if err != nil {
		return classify("finish execution", err)
	}
	return nil
}

func (c *jobClaim) JobStatus(ctx context.Context) (domain.JobStatus, error) {
	var status domain.JobStatus
	err := c.tx.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, c.job.ID).Scan(&status)
	if err != nil {
		return "", classify("read job status", err)
	}
	return status, nil
}

func (c *jobClaim) FinalizeJob(ctx context.Context, input repository.FinalizeJobInput) error {
	// COALESCE keeps run_at and retry_count untouched when the caller
	// passes nil.
	_, err := c.tx.Exec(ctx, `
		UPDATE jobs
		SET    status      = $2,
		       run_at      = COALESCE($3, run_at),
		       retry_count = COALESCE($4, retry_count),
		       updated_at  = NOW(),
		       version     = version + 1
		WHERE id = $1`,
		c.job.ID, input.Status, input.RunAt, input.RetryCount)
	if err != nil {
		return classify("finalize job", err)
	}
	return nil
}

func (c *jobClaim) Commit(ctx context.Context) error {
	if err := c.tx.Commit(ctx); err != nil {
		return classify("commit claim", err)
	}
	return nil
}

func (c *jobClaim) Rollback(ctx context.Context) error {
	if err := c.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return classify("rollback claim", err)
	}
	return nil
}
