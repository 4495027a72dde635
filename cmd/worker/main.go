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

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/config"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/health"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/infrastructure/postgres"
	ctxlog "github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/log"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/metrics"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel())

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

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	jobRepo := postgres.NewJobRepository(pool)
	runner := scheduler.NewExecutor(scheduler.ExecutorConfig{
		QuoteAPIURL:        cfg.QuoteAPIURL,
		MinSleep:           cfg.ExecutionMinSleep(),
		MaxSleep:           cfg.ExecutionMaxSleep(),
		FailureProbability: cfg.FailureProbability,
	})

	g, gctx := errgroup.WithContext(ctx)

	// Several resident workers in one process is safe: each tick claims
	// with FOR UPDATE SKIP LOCKED, so they never pick the same job.
	for i := 0; i < cfg.WorkerCount; i++ {
		worker := scheduler.NewWorker(jobRepo, runner, logger, cfg.PollInterval(), cfg.StaleRunningThreshold())
		g.Go(func() error {
			worker.Start(gctx)
			return nil
		})
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	g.Go(func() error {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", "error", err)
		}
		return nil
	})

	_ = g.Wait()
	logger.Info("worker process shut down")
}
