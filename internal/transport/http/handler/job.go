package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/usecase"
)

type JobHandler struct {
	jobs   *usecase.JobUsecase
	logger *slog.Logger
}

func NewJobHandler(jobs *usecase.JobUsecase, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger.With("component", "job_handler")}
}

type createJobRequest struct {
	Name            string         `json:"name"             binding:"required,max=500"`
	Payload         map[string]any `json:"payload"`
	ScheduleType    string         `json:"schedule_type"    binding:"required,oneof=one_time interval"`
	RunAt           *time.Time     `json:"run_at"`
	IntervalSeconds *int           `json:"interval_seconds"`
	MaxRetries      *int           `json:"max_retries"      binding:"omitempty,min=0,max=100"`
}

type updateJobRequest struct {
	Status string `json:"status" binding:"required"`
}

type executionResponse struct {
	ID            uuid.UUID              `json:"id"`
	JobID         uuid.UUID              `json:"job_id"`
	AttemptNumber int                    `json:"attempt_number"`
	Status        domain.ExecutionStatus `json:"status"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    *time.Time             `json:"finished_at"`
	ErrorMessage  *string                `json:"error_message"`
	Result        *string                `json:"result"`
}

type jobResponse struct {
	ID              uuid.UUID           `json:"id"`
	Name            string              `json:"name"`
	Payload         map[string]any      `json:"payload"`
	ScheduleType    domain.ScheduleType `json:"schedule_type"`
	RunAt           *time.Time          `json:"run_at"`
	IntervalSeconds *int                `json:"interval_seconds"`
	MaxRetries      int                 `json:"max_retries"`
	Status          domain.JobStatus    `json:"status"`
	RetryCount      int                 `json:"retry_count"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Version         int                 `json:"version"`
	Executions      []executionResponse `json:"executions"`
}

type jobListResponse struct {
	Jobs   []jobResponse `json:"jobs"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func toJobResponse(job *domain.Job, execs []*domain.JobExecution) jobResponse {
	out := jobResponse{
		ID:              job.ID,
		Name:            job.Name,
		Payload:         job.Payload,
		ScheduleType:    job.ScheduleType,
		RunAt:           job.RunAt,
		IntervalSeconds: job.IntervalSeconds,
		MaxRetries:      job.MaxRetries,
		Status:          job.Status,
		RetryCount:      job.RetryCount,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		Version:         job.Version,
		Executions:      make([]executionResponse, 0, len(execs)),
	}
	for _, e := range execs {
		out.Executions = append(out.Executions, executionResponse{
			ID:            e.ID,
			JobID:         e.JobID,
			AttemptNumber: e.AttemptNumber,
			Status:        e.Status,
			StartedAt:     e.StartedAt,
			FinishedAt:    e.FinishedAt,
			ErrorMessage:  e.ErrorMessage,
			Result:        e.Result,
		})
	}
	return out
}

func (h *JobHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), usecase.CreateJobInput{
		Name:            req.Name,
		Payload:         req.Payload,
		ScheduleType:    domain.ScheduleType(req.ScheduleType),
		RunAt:           req.RunAt,
		IntervalSeconds: req.IntervalSeconds,
		MaxRetries:      req.MaxRetries,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job, nil))
}

func (h *JobHandler) List(c *gin.Context) {
	var query struct {
		Status       string `form:"status"`
		ScheduleType string `form:"schedule_type"`
		Limit        int    `form:"limit"`
		Offset       int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	out, err := h.jobs.ListJobs(c.Request.Context(), usecase.ListJobsInput{
		Status:       domain.JobStatus(query.Status),
		ScheduleType: domain.ScheduleType(query.ScheduleType),
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := jobListResponse{
		Jobs:   make([]jobResponse, 0, len(out.Jobs)),
		Total:  out.Total,
		Limit:  out.Limit,
		Offset: out.Offset,
	}
	for _, job := range out.Jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(job, out.Executions[job.ID]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) GetByID(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	job, execs, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job, execs))
}

func (h *JobHandler) UpdateStatus(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	job, execs, err := h.jobs.UpdateJobStatus(c.Request.Context(), id, domain.JobStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job, execs))
}

func (h *JobHandler) Delete(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	if err := h.jobs.DeleteJob(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid job id"})
		return uuid.Nil, false
	}
	return id, true
}
