package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8000" validate:"required"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	APITitle   string `env:"API_TITLE" envDefault:"Job Scheduler & Execution Engine"`
	APIVersion string `env:"API_VERSION" envDefault:"1.0.0"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	WorkerCount         int `env:"WORKER_COUNT" envDefault:"1" validate:"min=1,max=100"`
	PollIntervalSec     int `env:"WORKER_POLL_INTERVAL_SECONDS" envDefault:"5" validate:"min=1,max=300"`
	StaleRunningMinutes int `env:"WORKER_STALE_RUNNING_MINUTES" envDefault:"10" validate:"min=1"`

	// Simulation knobs for the action runner; they exist to exercise
	// retry paths in test and demo environments.
	ExecutionMinSleepSec int     `env:"EXECUTION_MIN_SLEEP" envDefault:"1" validate:"min=0"`
	ExecutionMaxSleepSec int     `env:"EXECUTION_MAX_SLEEP" envDefault:"3" validate:"min=0,gtefield=ExecutionMinSleepSec"`
	FailureProbability   float64 `env:"FAILURE_PROBABILITY" envDefault:"0.0" validate:"min=0,max=1"`

	QuoteAPIURL string `env:"QUOTE_API_URL" envDefault:"https://api.quotable.io/random" validate:"url"`

	// CronSecret guards POST /api/cron/execute-pending-jobs. Empty means
	// the endpoint answers 503 until it is configured.
	CronSecret  string `env:"CRON_SECRET"`
	CronMaxJobs int    `env:"CRON_MAX_JOBS" envDefault:"10" validate:"min=1,max=500"`
}

func Load() (*Config, error) {
	// .env is a local-dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c *Config) StaleRunningThreshold() time.Duration {
	return time.Duration(c.StaleRunningMinutes) * time.Minute
}

func (c *Config) ExecutionMinSleep() time.Duration {
	return time.Duration(c.ExecutionMinSleepSec) * time.Second
}

func (c *Config) ExecutionMaxSleep() time.Duration {
	return time.Duration(c.ExecutionMaxSleepSec) * time.Second
}
