// trigger calls POST /api/cron/execute-pending-jobs, either once or on
// a cron cadence. It stands in for the GitHub Actions cron in local and
// staging setups.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
)

func main() {
	baseURL := pflag.String("url", "http://localhost:8000", "base URL of the API server")
	secret := pflag.String("secret", "", "cron secret (defaults to CRON_SECRET from the environment)")
	every := pflag.String("every", "", "cron expression; empty means fire once and exit")
	timeout := pflag.Duration("timeout", 5*time.Minute, "per-call HTTP timeout")
	pflag.Parse()

	_ = godotenv.Load()

	if *secret == "" {
		*secret = os.Getenv("CRON_SECRET")
	}
	if *secret == "" {
		log.Fatal("no cron secret: pass --secret or set CRON_SECRET")
	}

	client := &http.Client{Timeout: *timeout}
	endpoint := *baseURL + "/api/cron/execute-pending-jobs"

	if *every == "" {
		if err := fire(context.Background(), client, endpoint, *secret); err != nil {
			log.Fatal(err)
		}
		return
	}

	if _, err := cron.ParseStandard(*every); err != nil {
		log.Fatalf("invalid cron expression %q: %v", *every, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	_, _ = c.AddFunc(*every, func() {
		if err := fire(ctx, client, endpoint, *secret); err != nil {
			log.Printf("trigger: %v", err)
		}
	})
	c.Start()
	fmt.Printf("triggering %s on schedule %q; ctrl-c to stop\n", endpoint, *every)

	<-ctx.Done()
	<-c.Stop().Done()
}

func fire(ctx context.Context, client *http.Client, endpoint, secret string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Cron-Secret", secret)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call trigger endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trigger endpoint returned HTTP %d: %s", resp.StatusCode, body)
	}

	var result struct {
		OK            bool  `json:"ok"`
		StaleReset    int64 `json:"stale_reset"`
		JobsProcessed int   `json:"jobs_processed"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("%s  stale_reset=%d jobs_processed=%d\n",
		time.Now().Format(time.RFC3339), result.StaleReset, result.JobsProcessed)
	return nil
}
