package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediacache/internal/config"
)

const userAgent = "mediacache/1"

// maxListedFailures bounds how many failed item ids a message carries.
const maxListedFailures = 5

// RunSummary describes one finished queue run.
type RunSummary struct {
	Completed   int
	Failed      int
	Skipped     int
	Duration    time.Duration
	FailedItems []string
}

// Service delivers queue events.
type Service interface {
	NotifyQueueCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunAborted(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		onlyFailures: cfg.Notifications.OnlyFailures,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	onlyFailures bool
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, summary RunSummary) error {
	processed := summary.Completed + summary.Failed + summary.Skipped
	if processed == 0 {
		return nil
	}
	if summary.Failed == 0 && n.onlyFailures {
		return nil
	}

	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	msg := message{
		title: "mediacache - Queue Complete",
		body: fmt.Sprintf("%d items processed in %s: %d completed, %d failed, %d skipped",
			processed, duration, summary.Completed, summary.Failed, summary.Skipped),
		tags: []string{"mediacache", "queue", "completed"},
	}
	if summary.Failed > 0 {
		msg.title = "mediacache - Queue Complete (with errors)"
		msg.tags = []string{"mediacache", "queue", "warning"}
		msg.priority = "high"
		if listed := formatFailures(summary.FailedItems); listed != "" {
			msg.body += "\nFailed: " + listed
		}
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) NotifyRunAborted(ctx context.Context, err error) error {
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, message{
		title:    "mediacache - Run Aborted",
		body:     "Queue run aborted: " + reason,
		tags:     []string{"mediacache", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "mediacache - Test",
		body:     "Notification system test",
		tags:     []string{"mediacache", "test"},
		priority: "low",
	})
}

func formatFailures(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	if len(ids) <= maxListedFailures {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(ids[:maxListedFailures], ", "), len(ids)-maxListedFailures)
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyQueueCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyRunAborted(context.Context, error) error          { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
