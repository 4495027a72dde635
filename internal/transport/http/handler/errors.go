package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
)

const (
	errInternalServer = "Internal server error"
	errJobNotFound    = "Job not found"
	errStoreDown      = "Store unavailable, try again"
)

// respondError maps domain errors onto the {"detail": "..."} envelope.
// Everything unrecognized becomes an opaque 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var validationErr *domain.ValidationError
	var transitionErr *domain.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": validationErr.Detail})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": transitionErr.Detail})
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": errJobNotFound})
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.ErrorContext(c.Request.Context(), "store unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": errStoreDown})
	default:
		logger.ErrorContext(c.Request.Context(), "unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": errInternalServer})
	}
}
