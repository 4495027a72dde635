// seed inserts a demo batch of jobs into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/infrastructure/postgres"
)

type jobSpec struct {
	name       string
	schedule   domain.ScheduleType
	runIn      time.Duration // one_time only
	intervalS  int           // interval only
	maxRetries int
	payload    map[string]any
}

func specs(startIn time.Duration) []jobSpec {
	return []jobSpec{
		// Happy path: the default quote-fetch action
		{name: "quote-soon", schedule: domain.ScheduleOneTime, runIn: startIn, maxRetries: 3},
		{name: "quote-later", schedule: domain.ScheduleOneTime, runIn: startIn + 5*time.Minute, maxRetries: 3},

		// Webhook delivery
		{name: "webhook-ok", schedule: domain.ScheduleOneTime, runIn: startIn, maxRetries: 3,
			payload: map[string]any{"webhook_url": "https://httpbin.org/post"}},
		{name: "webhook-legacy-key", schedule: domain.ScheduleOneTime, runIn: startIn, maxRetries: 3,
			payload: map[string]any{"callback_url": "https://httpbin.org/post"}},

		// Will fail and exhaust retries, the server always answers 500
		{name: "webhook-500", schedule: domain.ScheduleOneTime, runIn: startIn, maxRetries: 2,
			payload: map[string]any{"webhook_url": "https://httpbin.org/status/500"}},
		{name: "webhook-500-no-retry", schedule: domain.ScheduleOneTime, runIn: startIn, maxRetries: 0,
			payload: map[string]any{"webhook_url": "https://httpbin.org/status/500"}},

		// Recurring
		{name: "quote-every-30s", schedule: domain.ScheduleInterval, intervalS: 30, maxRetries: 3},
		{name: "webhook-every-2m", schedule: domain.ScheduleInterval, intervalS: 120, maxRetries: 3,
			payload: map[string]any{"webhook_url": "https://httpbin.org/post"}},
	}
}

func main() {
	startIn := pflag.Duration("start-in", time.Minute, "delay before the one-time jobs become eligible")
	pflag.Parse()

	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.InitSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	repo := postgres.NewJobRepository(pool)
	now := time.Now().UTC()

	var created int
	for _, spec := range specs(*startIn) {
		job := &domain.Job{
			Name:         spec.name,
			Payload:      spec.payload,
			ScheduleType: spec.schedule,
			MaxRetries:   spec.maxRetries,
		}
		switch spec.schedule {
		case domain.ScheduleOneTime:
			runAt := now.Add(spec.runIn)
			job.RunAt = &runAt
		case domain.ScheduleInterval:
			interval := spec.intervalS
			job.IntervalSeconds = &interval
		}

		inserted, err := repo.Create(ctx, job)
		if err != nil {
			log.Fatalf("insert job %s: %v", spec.name, err)
		}
		created++
		fmt.Printf("  %-22s %s\n", spec.name, inserted.ID)
	}

	fmt.Println()
	fmt.Printf("Seeded %d jobs; one-time jobs become eligible in %s.\n", created, *startIn)
	fmt.Println()
	fmt.Println("Watch them run:")
	fmt.Println("  go run ./cmd/worker")
	fmt.Println("  curl -s 'http://localhost:8000/api/jobs?limit=20' | jq '.jobs[] | {name, status, retry_count}'")
}
