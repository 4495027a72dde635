package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
	ctxlog "github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/log"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/metrics"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/repository"
)

// Worker drives the two-phase tick: a crash-recovery sweep followed by
// claim-and-execute. Any number of workers may run against the same
// database; the skip-locked claim is the only coordination between them.
type Worker struct {
	id           string
	jobs         repository.JobRepository
	runner       ActionRunner
	logger       *slog.Logger
	pollInterval time.Duration
	staleAfter   time.Duration
}

func NewWorker(
	jobs repository.JobRepository,
	runner ActionRunner,
	logger *slog.Logger,
	pollInterval time.Duration,
	staleAfter time.Duration,
) *Worker {
	hostname, _ := os.Hostname()
	id := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	return &Worker{
		id:           id,
		jobs:         jobs,
		runner:       runner,
		logger:       logger.With("component", "worker", "worker_id", id),
		pollInterval: pollInterval,
		staleAfter:   staleAfter,
	}
}

// SweepStale is Phase 1: jobs stuck in RUNNING since before the stale
// threshold belong to workers that died mid-attempt. Their claim locks
// vanished at rollback but the RUNNING write had already been committed,
// so nobody will ever finish them. The sweep returns them to the pool.
func (w *Worker) SweepStale(ctx context.Context) (int64, error) {
	threshold := time.Now().UTC().Add(-w.staleAfter)

	n, err := w.jobs.ResetStaleRunning(ctx, threshold)
	if err != nil {
		return 0, fmt.Errorf("sweep stale: %w", err)
	}
	if n > 0 {
		metrics.StaleJobsResetTotal.Add(float64(n))
		w.logger.InfoContext(ctx, "crash recovery reset stale jobs", "count", n, "threshold", threshold)
	}
	return n, nil
}

// ProcessOne is Phase 2: claim one ready job, run its action, and commit
// the attempt record together with the job's next state in the claim
// transaction. Reports whether a job was claimed.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claim, err := w.jobs.ClaimOneReady(ctx)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	if claim == nil {
		return false, nil
	}
	defer func() { _ = claim.Rollback(ctx) }()

	job := claim.Job()
	attempt := job.RetryCount + 1
	ctx = ctxlog.WithAttrs(ctx,
		slog.String("job_id", job.ID.String()),
		slog.Int("attempt", attempt),
	)

	if job.RunAt != nil {
		metrics.ScheduleDelay.Observe(time.Since(*job.RunAt).Seconds())
	}

	// The attempt record opens pessimistically FAILED so a worker crash
	// between here and commit cannot leave a successful-looking row.
	execution, err := claim.InsertExecution(ctx, attempt)
	if err != nil {
		return false, fmt.Errorf("insert execution: %w", err)
	}
	if err := claim.MarkRunning(ctx); err != nil {
		return false, fmt.Errorf("mark running: %w", err)
	}

	w.logger.InfoContext(ctx, "executing job", "job_name", job.Name, "schedule_type", job.ScheduleType)

	started := time.Now()
	outcome := w.runAction(ctx, job)
	elapsed := time.Since(started)
	finishedAt := time.Now().UTC()

	outcomeLabel := "failure"
	if outcome.Success {
		outcomeLabel = "success"
	}
	metrics.ActionDuration.WithLabelValues(actionKind(job), outcomeLabel).Observe(elapsed.Seconds())

	finish := repository.FinishExecutionInput{
		ExecutionID: execution.ID,
		Status:      domain.ExecutionFailed,
		FinishedAt:  finishedAt,
	}
	if outcome.Success {
		finish.Status = domain.ExecutionSuccess
		finish.Result = &outcome.Message
	} else {
		msg := outcome.Message
		if msg == "" {
			msg = "Execution failed"
		}
		finish.ErrorMessage = &msg
	}
	if err := claim.FinishExecution(ctx, finish); err != nil {
		return false, fmt.Errorf("finish execution: %w", err)
	}

	// An operator may have cancelled the job after the RUNNING state of
	// an earlier attempt was committed. Terminal states are never
	// overwritten: keep the execution record, skip the status writeback.
	current, err := claim.JobStatus(ctx)
	if err != nil {
		return false, fmt.Errorf("read job status: %w", err)
	}
	if current.Terminal() {
		if err := claim.Commit(ctx); err != nil {
			return false, err
		}
		metrics.JobsProcessedTotal.WithLabelValues("yielded").Inc()
		w.logger.InfoContext(ctx, "job reached terminal state mid-attempt, keeping it",
			"status", current, "duration", elapsed)
		return true, nil
	}

	finalize := w.nextState(job, attempt, outcome.Success, finishedAt)
	if err := claim.FinalizeJob(ctx, finalize); err != nil {
		return false, fmt.Errorf("finalize job: %w", err)
	}
	if err := claim.Commit(ctx); err != nil {
		return false, err
	}

	w.report(ctx, job, outcome, finalize, elapsed)
	return true, nil
}

// nextState applies the retry and rescheduling policy to a finished
// attempt. A failed attempt is terminal once the retry budget is spent
// (attempt > max_retries); a successful interval cycle starts fresh with
// retry_count 0 and run_at pushed one interval out.
func (w *Worker) nextState(job *domain.Job, attempt int, success bool, now time.Time) repository.FinalizeJobInput {
	if success {
		if job.ScheduleType == domain.ScheduleInterval && job.IntervalSeconds != nil && *job.IntervalSeconds > 0 {
			next := now.Add(time.Duration(*job.IntervalSeconds) * time.Second)
			zero := 0
			return repository.FinalizeJobInput{
				Status:     domain.JobStatusScheduled,
				RunAt:      &next,
				RetryCount: &zero,
			}
		}
		return repository.FinalizeJobInput{Status: domain.JobStatusCompleted}
	}

	if attempt > job.MaxRetries {
		return repository.FinalizeJobInput{Status: domain.JobStatusFailed}
	}
	// Retries reuse the existing run_at; there is no backoff here.
	return repository.FinalizeJobInput{
		Status:     domain.JobStatusScheduled,
		RetryCount: &attempt,
	}
}

// runAction shields the tick from a misbehaving ActionRunner: a panic
// becomes a failed outcome like any other.
func (w *Worker) runAction(ctx context.Context, job *domain.Job) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "action panicked", "panic", r)
			out = Outcome{Message: fmt.Sprintf("action panic: %v", r)}
		}
	}()
	return w.runner.Run(ctx, job)
}

func (w *Worker) report(ctx context.Context, job *domain.Job, outcome Outcome, finalize repository.FinalizeJobInput, elapsed time.Duration) {
	switch {
	case outcome.Success:
		metrics.JobsProcessedTotal.WithLabelValues("success").Inc()
		w.logger.InfoContext(ctx, "job succeeded",
			"status", finalize.Status, "duration", elapsed, "result", outcome.Message)
	case finalize.Status == domain.JobStatusFailed:
		metrics.JobsProcessedTotal.WithLabelValues("failed").Inc()
		w.logger.WarnContext(ctx, "job permanently failed",
			"error", outcome.Message, "max_retries", job.MaxRetries, "duration", elapsed)
	default:
		metrics.JobsProcessedTotal.WithLabelValues("retry").Inc()
		w.logger.WarnContext(ctx, "job failed, will retry",
			"error", outcome.Message, "max_retries", job.MaxRetries, "duration", elapsed)
	}
}

// RunPending is the external-trigger entry point: one recovery sweep,
// then up to maxJobs claim-and-execute rounds. Stops early when nothing
// is claimable.
func (w *Worker) RunPending(ctx context.Context, maxJobs int) (staleReset int64, processed int, err error) {
	staleReset, err = w.SweepStale(ctx)
	if err != nil {
		return 0, 0, err
	}

	for processed < maxJobs {
		ok, err := w.ProcessOne(ctx)
		if err != nil {
			return staleReset, processed, err
		}
		if !ok {
			break
		}
		processed++
	}
	return staleReset, processed, nil
}

// Start runs the resident loop: one tick per poll interval until the
// context is cancelled. A tick claims at most one job, so a failing
// job's retries are spaced one poll interval apart instead of burning
// the whole budget back to back. Store errors are logged and the loop
// keeps going; one bad tick must never take the worker down.
func (w *Worker) Start(ctx context.Context) {
	metrics.WorkerStartTime.SetToCurrentTime()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker started", "poll_interval", w.pollInterval, "stale_after", w.staleAfter)

	for {
		select {
		case <-ctx.Done():
			metrics.WorkerShutdownsTotal.Inc()
			w.logger.Info("worker shut down")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	if _, err := w.SweepStale(ctx); err != nil {
		w.logger.ErrorContext(ctx, "crash recovery sweep", "error", err)
	}
	if _, err := w.ProcessOne(ctx); err != nil {
		w.logger.ErrorContext(ctx, "process job", "error", err)
	}
}
