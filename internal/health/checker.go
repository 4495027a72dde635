package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckResult represents the health of a single dependency.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result is the top-level health response.
type Result struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker verifies that the store is reachable. It backs both the API's
// /health/db endpoint and the metrics server's readiness probe.
type Checker struct {
	db      Pinger
	logger  *slog.Logger
	gauge   *prometheus.GaugeVec
	timeout time.Duration
}

// NewChecker creates a health checker and registers its Prometheus gauge.
func NewChecker(db Pinger, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		db:      db,
		logger:  logger.With("component", "health"),
		gauge:   gauge,
		timeout: 2 * time.Second,
	}
}

// Liveness reports process-up only; no dependency is touched.
func (c *Checker) Liveness(_ context.Context) Result {
	return Result{Status: "up"}
}

// DB round-trips one trivial query against the store.
func (c *Checker) DB(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		c.logger.Warn("postgres health check failed", "error", err)
		c.gauge.WithLabelValues("postgres").Set(0)
		return err
	}
	c.gauge.WithLabelValues("postgres").Set(1)
	return nil
}

// Readiness pings every dependency and reports per-check status.
func (c *Checker) Readiness(ctx context.Context) Result {
	result := Result{
		Status: "up",
		Checks: make(map[string]CheckResult),
	}

	if err := c.DB(ctx); err != nil {
		result.Status = "down"
		result.Checks["postgres"] = CheckResult{Status: "down", Error: err.Error()}
	} else {
		result.Checks["postgres"] = CheckResult{Status: "up"}
	}

	return result
}
