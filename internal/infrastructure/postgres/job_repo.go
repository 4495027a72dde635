package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/repository"
)

const jobColumns = `id, name, payload, schedule_type, run_at, interval_seconds,
	       max_retries, status, retry_count, created_at, updated_at, version`

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	query := `
		INSERT INTO jobs (
			id, name, payload, schedule_type, run_at, interval_seconds,
			max_retries, status, retry_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'SCHEDULED', 0)
		RETURNING ` + jobColumns

	row := r.pool.QueryRow(ctx, query,
		uuid.New(),
		job.Name,
		job.Payload,
		job.ScheduleType,
		job.RunAt,
		job.IntervalSeconds,
		job.MaxRetries,
	)

	created, err := scanJob(row)
	if err != nil {
		return nil, classify("insert job", err)
	}
	return created, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify("get job", err)
	}
	return job, nil
}

func (r *JobRepository) List(ctx context.Context, filter repository.ListJobsFilter) ([]*domain.Job, int, error) {
	var args []any
	var where []string

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ScheduleType != "" {
		args = append(args, filter.ScheduleType)
		where = append(where, fmt.Sprintf("schedule_type = $%d", len(args)))
	}

	cond := ""
	if len(where) > 0 {
		cond = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs "+cond, args...).Scan(&total); err != nil {
		return nil, 0, classify("count jobs", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		jobColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list jobs", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, classify("list jobs", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("list jobs", err)
	}
	return jobs, total, nil
}

// UpdateStatus is conditional on expect: a worker may commit a new
// status between the caller's read and this write, and the stale write
// must miss rather than clobber it (terminal states especially).
func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, expect domain.JobStatus) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET    status     = $2,
		       updated_at = NOW(),
		       version    = version + 1
		WHERE id = $1 AND status = $3
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query, id, status, expect))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, domain.ErrJobNotFound) {
		return nil, classify("update job status", err)
	}

	// Zero rows: the job is gone, or its status moved under us.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrStatusConflict
}

func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return false, classify("delete job", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *JobRepository) ResetStaleRunning(ctx context.Context, threshold time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET    status     = 'SCHEDULED',
		       updated_at = NOW(),
		       version    = version + 1
		WHERE  status     = 'RUNNING'
		  AND  updated_at < $1`, threshold)
	if err != nil {
		return 0, classify("reset stale running", err)
	}
	return tag.RowsAffected(), nil
}

// ClaimOneReady locks one ready row and hands the open transaction to
// the caller as a Claim. FOR UPDATE SKIP LOCKED prevents double-execution
// across workers: rows locked by other claims are invisible to this
// query. NULLS FIRST gives run-immediately jobs (run_at unset) priority.
func (r *JobRepository) ClaimOneReady(ctx context.Context) (repository.Claim, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, classify("begin claim", err)
	}

	row := tx.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE  status = 'SCHEDULED'
		  AND  (run_at IS NULL OR run_at <= NOW())
		ORDER BY run_at ASC NULLS FIRST
		LIMIT 1
		FOR UPDATE SKIP LOCKED`)

	job, err := scanJob(row)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, domain.ErrJobNotFound) {
			return nil, nil
		}
		return nil, classify("claim job", err)
	}

	return &jobClaim{tx: tx, job: job}, nil
}

// pgx.Row and pgx.Rows both implement this.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.Name, &j.Payload, &j.ScheduleType, &j.RunAt, &j.IntervalSeconds,
		&j.MaxRetries, &j.Status, &j.RetryCount, &j.CreatedAt, &j.UpdatedAt, &j.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}
