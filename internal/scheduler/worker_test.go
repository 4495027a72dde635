package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/repository"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/scheduler"
)

// ---- fakes ----

type fakeClaim struct {
	job *domain.Job

	statusAfterAction domain.JobStatus // what JobStatus() reports; "" means RUNNING

	markedRunning bool
	insertedExec  *domain.JobExecution
	finish        *repository.FinishExecutionInput
	finalize      *repository.FinalizeJobInput
	committed     bool
	rolledBack    bool
}

func (c *fakeClaim) Job() *domain.Job { return c.job }

func (c *fakeClaim) MarkRunning(_ context.Context) error {
	c.markedRunning = true
	return nil
}

func (c *fakeClaim) InsertExecution(_ context.Context, attemptNumber int) (*domain.JobExecution, error) {
	c.insertedExec = &domain.JobExecution{
		ID:            uuid.New(),
		JobID:         c.job.ID,
		AttemptNumber: attemptNumber,
		Status:        domain.ExecutionFailed,
		StartedAt:     time.Now().UTC(),
	}
	return c.insertedExec, nil
}

func (c *fakeClaim) FinishExecution(_ context.Context, input repository.FinishExecutionInput) error {
	c.finish = &input
	return nil
}

func (c *fakeClaim) JobStatus(_ context.Context) (domain.JobStatus, error) {
	if c.statusAfterAction != "" {
		return c.statusAfterAction, nil
	}
	return domain.JobStatusRunning, nil
}

func (c *fakeClaim) FinalizeJob(_ context.Context, input repository.FinalizeJobInput) error {
	c.finalize = &input
	return nil
}

func (c *fakeClaim) Commit(_ context.Context) error {
	c.committed = true
	return nil
}

func (c *fakeClaim) Rollback(_ context.Context) error {
	if !c.committed {
		c.rolledBack = true
	}
	return nil
}

type fakeJobRepository struct {
	claimFn func(ctx context.Context) (repository.Claim, error)
	resetFn func(ctx context.Context, threshold time.Time) (int64, error)
}

func (r *fakeJobRepository) Create(context.Context, *domain.Job) (*domain.Job, error) {
	panic("not used")
}
func (r *fakeJobRepository) GetByID(context.Context, uuid.UUID) (*domain.Job, error) {
	panic("not used")
}
func (r *fakeJobRepository) List(context.Context, repository.ListJobsFilter) ([]*domain.Job, int, error) {
	panic("not used")
}
func (r *fakeJobRepository) UpdateStatus(context.Context, uuid.UUID, domain.JobStatus, domain.JobStatus) (*domain.Job, error) {
	panic("not used")
}
func (r *fakeJobRepository) Delete(context.Context, uuid.UUID) (bool, error) {
	panic("not used")
}

func (r *fakeJobRepository) ClaimOneReady(ctx context.Context) (repository.Claim, error) {
	return r.claimFn(ctx)
}

func (r *fakeJobRepository) ResetStaleRunning(ctx context.Context, threshold time.Time) (int64, error) {
	if r.resetFn != nil {
		return r.resetFn(ctx, threshold)
	}
	return 0, nil
}

type fakeRunner struct {
	outcome scheduler.Outcome
	panics  bool
	calls   int
}

func (r *fakeRunner) Run(_ context.Context, _ *domain.Job) scheduler.Outcome {
	r.calls++
	if r.panics {
		panic("runner exploded")
	}
	return r.outcome
}

// ---- helpers ----

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(repo repository.JobRepository, runner scheduler.ActionRunner) *scheduler.Worker {
	return scheduler.NewWorker(repo, runner, testLogger(), time.Second, 10*time.Minute)
}

func oneTimeJob(maxRetries, retryCount int) *domain.Job {
	runAt := time.Now().UTC().Add(-time.Second)
	return &domain.Job{
		ID:           uuid.New(),
		Name:         "test-job",
		ScheduleType: domain.ScheduleOneTime,
		RunAt:        &runAt,
		MaxRetries:   maxRetries,
		Status:       domain.JobStatusScheduled,
		RetryCount:   retryCount,
	}
}

func intervalJob(seconds, retryCount int) *domain.Job {
	return &domain.Job{
		ID:              uuid.New(),
		Name:            "recurring-job",
		ScheduleType:    domain.ScheduleInterval,
		IntervalSeconds: &seconds,
		MaxRetries:      3,
		Status:          domain.JobStatusScheduled,
		RetryCount:      retryCount,
	}
}

func repoWithClaims(claims ...*fakeClaim) *fakeJobRepository {
	i := 0
	return &fakeJobRepository{
		claimFn: func(_ context.Context) (repository.Claim, error) {
			if i >= len(claims) {
				return nil, nil
			}
			c := claims[i]
			i++
			return c, nil
		},
	}
}

// ---- ProcessOne ----

func TestProcessOne_NothingReady(t *testing.T) {
	w := newTestWorker(repoWithClaims(), &fakeRunner{})

	ok, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no job processed")
	}
}

func TestProcessOne_OneTimeSuccess_Completes(t *testing.T) {
	claim := &fakeClaim{job: oneTimeJob(3, 0)}
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: true, Message: "done"}}
	w := newTestWorker(repoWithClaims(claim), runner)

	ok, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a job to be processed")
	}
	if !claim.markedRunning {
		t.Error("job was never marked RUNNING")
	}
	if !claim.committed {
		t.Error("claim transaction was not committed")
	}
	if claim.insertedExec.AttemptNumber != 1 {
		t.Errorf("attempt_number = %d, want 1", claim.insertedExec.AttemptNumber)
	}
	if claim.finish.Status != domain.ExecutionSuccess {
		t.Errorf("execution status = %s, want SUCCESS", claim.finish.Status)
	}
	if claim.finish.Result == nil || *claim.finish.Result != "done" {
		t.Errorf("result = %v, want done", claim.finish.Result)
	}
	if claim.finalize.Status != domain.JobStatusCompleted {
		t.Errorf("job status = %s, want COMPLETED", claim.finalize.Status)
	}
}

func TestProcessOne_IntervalSuccess_ReschedulesAndResetsRetries(t *testing.T) {
	claim := &fakeClaim{job: intervalJob(30, 2)}
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: true, Message: "cycle ok"}}
	w := newTestWorker(repoWithClaims(claim), runner)

	before := time.Now().UTC()
	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if claim.finalize.Status != domain.JobStatusScheduled {
		t.Fatalf("job status = %s, want SCHEDULED", claim.finalize.Status)
	}
	if claim.finalize.RetryCount == nil || *claim.finalize.RetryCount != 0 {
		t.Errorf("retry_count = %v, want 0", claim.finalize.RetryCount)
	}
	if claim.finalize.RunAt == nil {
		t.Fatal("run_at was not pushed forward")
	}
	wantEarliest := before.Add(30 * time.Second)
	if claim.finalize.RunAt.Before(wantEarliest) || claim.finalize.RunAt.After(wantEarliest.Add(5*time.Second)) {
		t.Errorf("run_at = %v, want about %v", claim.finalize.RunAt, wantEarliest)
	}
	// The attempt was the third (retry_count 2) and still counts.
	if claim.insertedExec.AttemptNumber != 3 {
		t.Errorf("attempt_number = %d, want 3", claim.insertedExec.AttemptNumber)
	}
}

func TestProcessOne_FailureWithRetriesLeft_Reschedules(t *testing.T) {
	claim := &fakeClaim{job: oneTimeJob(3, 0)}
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: false, Message: "boom"}}
	w := newTestWorker(repoWithClaims(claim), runner)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if claim.finish.Status != domain.ExecutionFailed {
		t.Errorf("execution status = %s, want FAILED", claim.finish.Status)
	}
	if claim.finish.ErrorMessage == nil || *claim.finish.ErrorMessage != "boom" {
		t.Errorf("error_message = %v, want boom", claim.finish.ErrorMessage)
	}
	if claim.finalize.Status != domain.JobStatusScheduled {
		t.Errorf("job status = %s, want SCHEDULED", claim.finalize.Status)
	}
	if claim.finalize.RetryCount == nil || *claim.finalize.RetryCount != 1 {
		t.Errorf("retry_count = %v, want 1", claim.finalize.RetryCount)
	}
	if claim.finalize.RunAt != nil {
		t.Error("retry must reuse the existing run_at, not rewrite it")
	}
}

func TestProcessOne_FailureBudgetSpent_MarksFailed(t *testing.T) {
	// max_retries=2 allows attempts 1..3; retry_count=2 means this is
	// attempt 3, the last one.
	claim := &fakeClaim{job: oneTimeJob(2, 2)}
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: false, Message: "still broken"}}
	w := newTestWorker(repoWithClaims(claim), runner)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if claim.insertedExec.AttemptNumber != 3 {
		t.Errorf("attempt_number = %d, want 3", claim.insertedExec.AttemptNumber)
	}
	if claim.finalize.Status != domain.JobStatusFailed {
		t.Errorf("job status = %s, want FAILED", claim.finalize.Status)
	}
	if claim.finalize.RetryCount != nil {
		t.Error("terminal failure must not touch retry_count")
	}
}

func TestProcessOne_ZeroMaxRetries_FirstFailureIsTerminal(t *testing.T) {
	claim := &fakeClaim{job: oneTimeJob(0, 0)}
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: false, Message: "nope"}}
	w := newTestWorker(repoWithClaims(claim), runner)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claim.finalize.Status != domain.JobStatusFailed {
		t.Errorf("job status = %s, want FAILED", claim.finalize.Status)
	}
}

func TestProcessOne_EmptyFailureMessage_GetsDefault(t *testing.T) {
	claim := &fakeClaim{job: oneTimeJob(3, 0)}
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: false}}
	w := newTestWorker(repoWithClaims(claim), runner)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claim.finish.ErrorMessage == nil || *claim.finish.ErrorMessage != "Execution failed" {
		t.Errorf("error_message = %v, want default", claim.finish.ErrorMessage)
	}
}

func TestProcessOne_TerminalMidFlight_YieldsToOperator(t *testing.T) {
	claim := &fakeClaim{
		job:               oneTimeJob(3, 0),
		statusAfterAction: domain.JobStatusCancelled,
	}
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: true, Message: "done"}}
	w := newTestWorker(repoWithClaims(claim), runner)

	ok, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected the job to count as processed")
	}
	if claim.finalize != nil {
		t.Error("worker must not overwrite a terminal status")
	}
	if claim.finish == nil {
		t.Error("execution row must still be recorded")
	}
	if !claim.committed {
		t.Error("execution record must be committed even when yielding")
	}
}

func TestProcessOne_RunnerPanic_BecomesFailedAttempt(t *testing.T) {
	claim := &fakeClaim{job: oneTimeJob(3, 0)}
	runner := &fakeRunner{panics: true}
	w := newTestWorker(repoWithClaims(claim), runner)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claim.finish.Status != domain.ExecutionFailed {
		t.Errorf("execution status = %s, want FAILED", claim.finish.Status)
	}
	if claim.finish.ErrorMessage == nil || *claim.finish.ErrorMessage == "" {
		t.Error("panic must leave an error message on the attempt")
	}
	if claim.finalize.Status != domain.JobStatusScheduled {
		t.Errorf("job status = %s, want SCHEDULED (retry)", claim.finalize.Status)
	}
}

func TestProcessOne_ClaimError_Propagates(t *testing.T) {
	claimErr := errors.New("connection refused")
	repo := &fakeJobRepository{
		claimFn: func(_ context.Context) (repository.Claim, error) { return nil, claimErr },
	}
	w := newTestWorker(repo, &fakeRunner{})

	ok, err := w.ProcessOne(context.Background())
	if !errors.Is(err, claimErr) {
		t.Fatalf("expected claim error, got %v", err)
	}
	if ok {
		t.Fatal("no job should count as processed")
	}
}

// ---- SweepStale ----

func TestSweepStale_PassesThreshold(t *testing.T) {
	var gotThreshold time.Time
	repo := &fakeJobRepository{
		resetFn: func(_ context.Context, threshold time.Time) (int64, error) {
			gotThreshold = threshold
			return 4, nil
		},
	}
	w := scheduler.NewWorker(repo, &fakeRunner{}, testLogger(), time.Second, 10*time.Minute)

	n, err := w.SweepStale(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("reset count = %d, want 4", n)
	}

	want := time.Now().UTC().Add(-10 * time.Minute)
	if diff := gotThreshold.Sub(want); diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("threshold = %v, want about %v", gotThreshold, want)
	}
}

// ---- RunPending ----

func TestRunPending_StopsAtBudget(t *testing.T) {
	claims := []*fakeClaim{
		{job: oneTimeJob(3, 0)},
		{job: oneTimeJob(3, 0)},
		{job: oneTimeJob(3, 0)},
	}
	repo := repoWithClaims(claims...)
	repo.resetFn = func(_ context.Context, _ time.Time) (int64, error) { return 1, nil }
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: true, Message: "ok"}}
	w := newTestWorker(repo, runner)

	stale, processed, err := w.RunPending(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stale != 1 {
		t.Errorf("stale = %d, want 1", stale)
	}
	if processed != 2 {
		t.Errorf("processed = %d, want 2", processed)
	}
	if claims[2].committed {
		t.Error("third job must not run: budget was 2")
	}
}

func TestRunPending_StopsWhenQueueEmpty(t *testing.T) {
	repo := repoWithClaims(&fakeClaim{job: oneTimeJob(3, 0)})
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: true, Message: "ok"}}
	w := newTestWorker(repo, runner)

	_, processed, err := w.RunPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
	if runner.calls != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls)
	}
}

// ---- Start ----

func TestStart_ClaimsAtMostOneJobPerTick(t *testing.T) {
	claims := []*fakeClaim{
		{job: oneTimeJob(3, 0)},
		{job: oneTimeJob(3, 0)},
		{job: oneTimeJob(3, 0)},
	}
	var claimTimes []time.Time
	i := 0
	repo := &fakeJobRepository{
		claimFn: func(_ context.Context) (repository.Claim, error) {
			if i >= len(claims) {
				return nil, nil
			}
			c := claims[i]
			i++
			claimTimes = append(claimTimes, time.Now())
			return c, nil
		},
	}
	runner := &fakeRunner{outcome: scheduler.Outcome{Success: true, Message: "ok"}}

	pollInterval := 100 * time.Millisecond
	w := scheduler.NewWorker(repo, runner, testLogger(), pollInterval, 10*time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	if claims[2].committed {
		t.Error("all three ready jobs ran inside the window; a tick must claim at most one")
	}
	if len(claimTimes) < 2 {
		t.Fatalf("claims = %d, want at least 2 ticks in the window", len(claimTimes))
	}
	if gap := claimTimes[1].Sub(claimTimes[0]); gap < pollInterval/2 {
		t.Errorf("second claim %s after the first, want at least %s between ticks", gap, pollInterval/2)
	}
}

func TestRunPending_SweepErrorAborts(t *testing.T) {
	sweepErr := errors.New("db down")
	repo := &fakeJobRepository{
		resetFn: func(_ context.Context, _ time.Time) (int64, error) { return 0, sweepErr },
	}
	w := newTestWorker(repo, &fakeRunner{})

	_, _, err := w.RunPending(context.Background(), 10)
	if !errors.Is(err, sweepErr) {
		t.Fatalf("expected sweep error, got %v", err)
	}
}
