package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/transport/http/handler"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/transport/http/middleware"
)

func NewRouter(
	logger *slog.Logger,
	jobs *handler.JobHandler,
	cron *handler.CronHandler,
	healthz *handler.HealthHandler,
	cronSecret string,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger.With("component", "http")))
	r.Use(middleware.Metrics())

	r.GET("/health", healthz.Health)
	r.GET("/health/db", healthz.DB)

	api := r.Group("/api")
	{
		api.POST("/jobs", jobs.Create)
		api.GET("/jobs", jobs.List)
		api.GET("/jobs/:id", jobs.GetByID)
		api.PATCH("/jobs/:id", jobs.UpdateStatus)
		api.DELETE("/jobs/:id", jobs.Delete)

		api.POST("/cron/execute-pending-jobs", middleware.CronSecret(cronSecret), cron.ExecutePendingJobs)
	}

	return r
}
