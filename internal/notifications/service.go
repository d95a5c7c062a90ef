package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lapsecam/internal/config"
	"lapsecam/internal/frame"
)

const userAgent = "Lapsecam-Go/0.1.0"

// Service defines the notification surface exposed to the session
// controller.
type Service interface {
	NotifyPrintStarted(ctx context.Context, startIndex uint64) error
	NotifyTimelapseReady(ctx context.Context, videoPath string, frames frame.Range, duration time.Duration) error
	NotifyTransferFailed(ctx context.Context, videoPath string, err error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:       topic,
		client:         client,
		printStarted:   cfg.Notifications.PrintStarted,
		timelapseReady: cfg.Notifications.TimelapseReady,
		errors:         cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	printStarted   bool
	timelapseReady bool
	errors         bool
}

func (n *ntfyService) NotifyPrintStarted(ctx context.Context, startIndex uint64) error {
	if !n.printStarted {
		return nil
	}
	data := payload{
		title:   "Lapsecam - Print Started",
		message: fmt.Sprintf("Print activity detected, recording from frame %d", startIndex),
		tags:    []string{"lapsecam", "print", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTimelapseReady(ctx context.Context, videoPath string, frames frame.Range, duration time.Duration) error {
	if !n.timelapseReady {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title: "Lapsecam - Timelapse Ready",
		message: fmt.Sprintf("Timelapse assembled from %d frames over %s\nFile: %s",
			frames.Count(), duration, strings.TrimSpace(videoPath)),
		tags:     []string{"lapsecam", "timelapse", "ready"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTransferFailed(ctx context.Context, videoPath string, err error) error {
	if !n.errors {
		return nil
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	data := payload{
		title: "Lapsecam - Upload Failed",
		message: fmt.Sprintf("Upload failed, video kept locally: %s\n%s",
			strings.TrimSpace(videoPath), detail),
		tags:     []string{"lapsecam", "transfer", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Lapsecam - Error",
		message:  builder.String(),
		tags:     []string{"lapsecam", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Lapsecam - Test",
		message:  "Notification system test",
		tags:     []string{"lapsecam", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func (noopService) NotifyPrintStarted(context.Context, uint64) error { return nil }
func (noopService) NotifyTimelapseReady(context.Context, string, frame.Range, time.Duration) error {
	return nil
}
func (noopService) NotifyTransferFailed(context.Context, string, error) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
