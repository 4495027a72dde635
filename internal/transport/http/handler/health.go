package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/health"
)

type HealthHandler struct {
	checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DB round-trips a trivial query against the store.
func (h *HealthHandler) DB(c *gin.Context) {
	if err := h.checker.DB(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
