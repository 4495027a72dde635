package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PendingRunner is the slice of the worker the cron endpoint needs.
type PendingRunner interface {
	RunPending(ctx context.Context, maxJobs int) (staleReset int64, processed int, err error)
}

// CronHandler serves the external-trigger deployment mode: an outside
// scheduler (GitHub Actions cron, typically) POSTs here and one bounded
// tick runs inside the request.
type CronHandler struct {
	worker  PendingRunner
	maxJobs int
	logger  *slog.Logger
}

func NewCronHandler(worker PendingRunner, maxJobs int, logger *slog.Logger) *CronHandler {
	return &CronHandler{
		worker:  worker,
		maxJobs: maxJobs,
		logger:  logger.With("component", "cron_handler"),
	}
}

func (h *CronHandler) ExecutePendingJobs(c *gin.Context) {
	staleReset, processed, err := h.worker.RunPending(c.Request.Context(), h.maxJobs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"stale_reset":    staleReset,
		"jobs_processed": processed,
	})
}
