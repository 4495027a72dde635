package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/config"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/health"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/infrastructure/postgres"
	ctxlog "github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/log"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/metrics"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/scheduler"
	httptransport "github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/transport/http"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/transport/http/handler"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.InitSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	jobRepo := postgres.NewJobRepository(pool)
	execRepo := postgres.NewExecutionRepository(pool)
	jobUsecase := usecase.NewJobUsecase(jobRepo, execRepo)
	jobHandler := handler.NewJobHandler(jobUsecase, logger)

	// The cron endpoint runs a bounded worker tick inside the request,
	// so the API binary carries a worker too. Resident polling stays in
	// cmd/worker.
	runner := scheduler.NewExecutor(scheduler.ExecutorConfig{
		QuoteAPIURL:        cfg.QuoteAPIURL,
		MinSleep:           cfg.ExecutionMinSleep(),
		MaxSleep:           cfg.ExecutionMaxSleep(),
		FailureProbability: cfg.FailureProbability,
	})
	worker := scheduler.NewWorker(jobRepo, runner, logger, cfg.PollInterval(), cfg.StaleRunningThreshold())
	cronHandler := handler.NewCronHandler(worker, cfg.CronMaxJobs, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)
	healthHandler := handler.NewHealthHandler(checker)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, jobHandler, cronHandler, healthHandler, cfg.CronSecret),
	}
	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "title", cfg.APITitle, "version", cfg.APIVersion, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
