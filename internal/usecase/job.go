package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/repository"
)

const (
	defaultMaxRetries = 3
	defaultListLimit  = 100
	maxListLimit      = 500
	maxNameLength     = 500
	maxRetriesCeiling = 100

	// statusUpdateRetries bounds the read-validate-write loop when a
	// worker keeps moving the job between our read and write.
	statusUpdateRetries = 3
)

type JobUsecase struct {
	jobs  repository.JobRepository
	execs repository.ExecutionRepository
}

func NewJobUsecase(jobs repository.JobRepository, execs repository.ExecutionRepository) *JobUsecase {
	return &JobUsecase{jobs: jobs, execs: execs}
}

type CreateJobInput struct {
	Name            string
	Payload         map[string]any
	ScheduleType    domain.ScheduleType
	RunAt           *time.Time
	IntervalSeconds *int
	MaxRetries      *int
}

func (u *JobUsecase) CreateJob(ctx context.Context, input CreateJobInput) (*domain.Job, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	maxRetries := defaultMaxRetries
	if input.MaxRetries != nil {
		maxRetries = *input.MaxRetries
	}

	job := &domain.Job{
		Name:            input.Name,
		Payload:         input.Payload,
		ScheduleType:    input.ScheduleType,
		RunAt:           input.RunAt,
		IntervalSeconds: input.IntervalSeconds,
		MaxRetries:      maxRetries,
	}

	created, err := u.jobs.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return created, nil
}

func validateCreate(input CreateJobInput) error {
	// Characters, not bytes, so the limit matches the transport binding.
	if n := utf8.RuneCountInString(input.Name); n == 0 || n > maxNameLength {
		return domain.NewValidationError("name must be between 1 and %d characters", maxNameLength)
	}

	switch input.ScheduleType {
	case domain.ScheduleOneTime:
		if input.RunAt == nil {
			return domain.NewValidationError("one_time jobs require run_at")
		}
		if input.IntervalSeconds != nil {
			return domain.NewValidationError("one_time jobs must not have interval_seconds")
		}
	case domain.ScheduleInterval:
		if input.IntervalSeconds == nil {
			return domain.NewValidationError("interval jobs require interval_seconds")
		}
	default:
		return domain.NewValidationError("schedule_type must be one_time or interval")
	}

	if input.IntervalSeconds != nil && *input.IntervalSeconds <= 0 {
		return domain.NewValidationError("interval_seconds must be greater than 0")
	}
	if input.RunAt != nil && !input.RunAt.After(time.Now()) {
		return domain.NewValidationError("run_at must be in the future")
	}
	if input.MaxRetries != nil && (*input.MaxRetries < 0 || *input.MaxRetries > maxRetriesCeiling) {
		return domain.NewValidationError("max_retries must be between 0 and %d", maxRetriesCeiling)
	}
	return nil
}

// GetJob returns a job with its full attempt history, ordered by
// attempt number.
func (u *JobUsecase) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, []*domain.JobExecution, error) {
	job, err := u.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get job: %w", err)
	}

	execs, err := u.execs.ListByJobID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get job executions: %w", err)
	}
	return job, execs, nil
}

type ListJobsInput struct {
	Status       domain.JobStatus
	ScheduleType domain.ScheduleType
	Limit        int // 0 means default
	Offset       int
}

type ListJobsOutput struct {
	Jobs       []*domain.Job
	Executions map[uuid.UUID][]*domain.JobExecution
	Total      int
	Limit      int
	Offset     int
}

func (u *JobUsecase) ListJobs(ctx context.Context, input ListJobsInput) (*ListJobsOutput, error) {
	if input.Limit == 0 {
		input.Limit = defaultListLimit
	}
	if input.Limit < 1 || input.Limit > maxListLimit {
		return nil, domain.NewValidationError("limit must be between 1 and %d", maxListLimit)
	}
	if input.Offset < 0 {
		return nil, domain.NewValidationError("offset must not be negative")
	}
	if input.Status != "" && !validStatus(input.Status) {
		return nil, domain.NewValidationError("unknown status %q", string(input.Status))
	}
	if input.ScheduleType != "" &&
		input.ScheduleType != domain.ScheduleOneTime && input.ScheduleType != domain.ScheduleInterval {
		return nil, domain.NewValidationError("unknown schedule_type %q", string(input.ScheduleType))
	}

	jobs, total, err := u.jobs.List(ctx, repository.ListJobsFilter{
		Status:       input.Status,
		ScheduleType: input.ScheduleType,
		Limit:        input.Limit,
		Offset:       input.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	ids := make([]uuid.UUID, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	execs, err := u.execs.ListByJobIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list job executions: %w", err)
	}

	return &ListJobsOutput{
		Jobs:       jobs,
		Executions: execs,
		Total:      total,
		Limit:      input.Limit,
		Offset:     input.Offset,
	}, nil
}

func validStatus(s domain.JobStatus) bool {
	switch s {
	case domain.JobStatusScheduled, domain.JobStatusRunning, domain.JobStatusPaused,
		domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled:
		return true
	}
	return false
}

// UpdateJobStatus applies an operator transition (pause, resume,
// cancel) after checking it against the transition table. The write is
// conditional on the status the transition was validated against: a
// worker can commit a new status between the read and the write, and
// the stale write must not land. On a miss the fresh status is read
// and validated again.
func (u *JobUsecase) UpdateJobStatus(ctx context.Context, id uuid.UUID, target domain.JobStatus) (*domain.Job, []*domain.JobExecution, error) {
	for range statusUpdateRetries {
		job, err := u.jobs.GetByID(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("get job: %w", err)
		}

		if err := domain.ValidateOperatorTransition(job.Status, target); err != nil {
			return nil, nil, err
		}

		updated, err := u.jobs.UpdateStatus(ctx, id, target, job.Status)
		if errors.Is(err, domain.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("update job status: %w", err)
		}

		execs, err := u.execs.ListByJobID(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("get job executions: %w", err)
		}
		return updated, execs, nil
	}
	return nil, nil, fmt.Errorf("update job status: %w", domain.ErrStoreUnavailable)
}

func (u *JobUsecase) DeleteJob(ctx context.Context, id uuid.UUID) error {
	deleted, err := u.jobs.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if !deleted {
		return domain.ErrJobNotFound
	}
	return nil
}
