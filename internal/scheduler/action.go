package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
)

// Outcome is what an action reports back. Failures are data, not
// errors: the worker persists Message as the execution's result on
// success or its error_message on failure.
type Outcome struct {
	Success bool
	Message string
}

// ActionRunner performs a job's side effect. Implementations must not
// touch the store, must not panic out, and must return within their own
// deadline; the claim transaction stays open for as long as Run takes.
type ActionRunner interface {
	Run(ctx context.Context, job *domain.Job) Outcome
}

const (
	webhookTimeout = 10 * time.Second
	quoteTimeout   = 8 * time.Second
)

type ExecutorConfig struct {
	// QuoteAPIURL is the default action's target when the payload names
	// no webhook.
	QuoteAPIURL string

	// MinSleep/MaxSleep bound a uniform random delay applied before
	// every action, and FailureProbability shortcuts the action to a
	// failed outcome. All three exist to exercise retry paths.
	MinSleep           time.Duration
	MaxSleep           time.Duration
	FailureProbability float64
}

// Executor is the production ActionRunner: webhook POST when the
// payload carries a webhook URL, quote fetch otherwise.
type Executor struct {
	cfg    ExecutorConfig
	client *http.Client
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	return &Executor{
		cfg:    cfg,
		client: &http.Client{}, // no global timeout, each action sets its own
	}
}

func (e *Executor) Run(ctx context.Context, job *domain.Job) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Message: fmt.Sprintf("action panic: %v", r)}
		}
	}()

	if err := e.simulateDelay(ctx); err != nil {
		return Outcome{Message: err.Error()}
	}
	if e.cfg.FailureProbability > 0 && rand.Float64() < e.cfg.FailureProbability {
		return Outcome{Message: "Simulated failure (for retry testing)"}
	}

	if url, ok := webhookURL(job.Payload); ok {
		return e.deliverWebhook(ctx, job, url)
	}
	return e.fetchQuote(ctx)
}

func (e *Executor) simulateDelay(ctx context.Context) error {
	d := e.cfg.MinSleep
	if e.cfg.MaxSleep > e.cfg.MinSleep {
		d += time.Duration(rand.Float64() * float64(e.cfg.MaxSleep-e.cfg.MinSleep))
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) deliverWebhook(ctx context.Context, job *domain.Job, url string) Outcome {
	body, err := json.Marshal(map[string]any{
		"job_id":        job.ID.String(),
		"job_name":      job.Name,
		"run_at":        time.Now().UTC().Format(time.RFC3339),
		"schedule_type": string(job.ScheduleType),
		"attempt":       job.RetryCount + 1,
	})
	if err != nil {
		return Outcome{Message: fmt.Sprintf("Webhook failed: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{Message: fmt.Sprintf("Webhook failed: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Outcome{Message: fmt.Sprintf("Webhook failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection can be reused by the pool

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Outcome{
			Success: true,
			Message: fmt.Sprintf("Webhook delivered to %s... (HTTP %d)", truncate(url, 50), resp.StatusCode),
		}
	}
	return Outcome{Message: fmt.Sprintf("Webhook failed: Webhook returned HTTP %d", resp.StatusCode)}
}

func (e *Executor) fetchQuote(ctx context.Context) Outcome {
	ctx, cancel := context.WithTimeout(ctx, quoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.QuoteAPIURL, nil)
	if err != nil {
		return Outcome{Message: err.Error()}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Outcome{Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Outcome{Message: fmt.Sprintf("Quote API returned HTTP %d", resp.StatusCode)}
	}

	var quote struct {
		Content string `json:"content"`
		Author  string `json:"author"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return Outcome{Message: fmt.Sprintf("decode quote: %v", err)}
	}

	author := quote.Author
	if author == "" {
		author = "Unknown"
	}
	return Outcome{
		Success: true,
		Message: fmt.Sprintf("%q — %s", strings.TrimSpace(quote.Content), author),
	}
}

// webhookURL pulls the webhook target out of the payload: webhook_url
// first, callback_url as the fallback key. Only well-formed http/https
// URLs count; anything else sends the job to the default action.
func webhookURL(payload map[string]any) (string, bool) {
	var raw string
	if s, ok := payload["webhook_url"].(string); ok && s != "" {
		raw = s
	} else if s, ok := payload["callback_url"].(string); ok && s != "" {
		raw = s
	}

	u := strings.TrimSpace(raw)
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u, true
	}
	return "", false
}

// actionKind labels metrics; it mirrors the dispatch in Run.
func actionKind(job *domain.Job) string {
	if _, ok := webhookURL(job.Payload); ok {
		return "webhook"
	}
	return "quote"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
