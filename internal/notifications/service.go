package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
)

const userAgent = "ClipForge/0.1.0"

// Event enumerates the pipeline milestones worth pushing to operators.
type Event string

const (
	EventVideoReady  Event = "video-ready"
	EventVideoFailed Event = "video-failed"
	EventError       Event = "error"
	EventTest        Event = "test"
)

// Payload carries the human-readable parts of a notification.
type Payload struct {
	VideoID string
	Title   string
	Message string
}

// Service is the notification surface exposed to pipeline components.
// Publishing is best-effort; callers log errors but never fail a job on them.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		videoReady: cfg.Notifications.VideoReady,
		errors:     cfg.Notifications.Errors,
	}
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	videoReady bool
	errors     bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	title, tags, priority, enabled := n.render(event, &payload)
	if !enabled {
		return nil
	}
	if strings.TrimSpace(payload.Title) != "" {
		title = payload.Title
	}
	return n.send(ctx, title, payload.Message, tags, priority)
}

func (n *ntfyService) render(event Event, payload *Payload) (title string, tags []string, priority string, enabled bool) {
	switch event {
	case EventVideoReady:
		if payload.Message == "" {
			payload.Message = fmt.Sprintf("Video %s is ready to view", payload.VideoID)
		}
		return "ClipForge - Video Ready", []string{"clipforge", "video", "ready"}, "", n.videoReady
	case EventVideoFailed:
		if payload.Message == "" {
			payload.Message = fmt.Sprintf("Processing failed for video %s", payload.VideoID)
		}
		return "ClipForge - Video Failed", []string{"clipforge", "video", "failed"}, "high", n.errors
	case EventError:
		return "ClipForge - Error", []string{"clipforge", "error", "alert"}, "high", n.errors
	case EventTest:
		if payload.Message == "" {
			payload.Message = "Notification system test"
		}
		return "ClipForge - Test", []string{"clipforge", "test"}, "low", true
	default:
		return "ClipForge", []string{"clipforge"}, "", true
	}
}

func (n *ntfyService) send(ctx context.Context, title, message string, tags []string, priority string) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if title != "" {
		req.Header.Set("Title", title)
	}
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if priority != "" && priority != "default" {
		req.Header.Set("Priority", priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
