package notifications_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"clipforge/internal/notifications"
	"clipforge/internal/testsupport"
)

type recorded struct {
	title    string
	tags     string
	priority string
	body     string
}

func newRecorder(t *testing.T) (*httptest.Server, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var requests []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(body)
		mu.Lock()
		requests = append(requests, recorded{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), requests...)
	}
}

func TestPublishVideoReady(t *testing.T) {
	server, requests := newRecorder(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := notifications.NewService(cfg)

	err := service.Publish(context.Background(), notifications.EventVideoReady,
		notifications.Payload{VideoID: "vid-1"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("expected 1 request, got %d", len(got))
	}
	if got[0].title != "ClipForge - Video Ready" {
		t.Fatalf("unexpected title %q", got[0].title)
	}
	if got[0].tags != "clipforge,video,ready" {
		t.Fatalf("unexpected tags %q", got[0].tags)
	}
	if got[0].body != "Video vid-1 is ready to view" {
		t.Fatalf("unexpected body %q", got[0].body)
	}
}

func TestPublishFailureUsesHighPriority(t *testing.T) {
	server, requests := newRecorder(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := notifications.NewService(cfg)

	err := service.Publish(context.Background(), notifications.EventVideoFailed,
		notifications.Payload{VideoID: "vid-2", Message: "all variants failed"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got := requests()
	if len(got) != 1 || got[0].priority != "high" {
		t.Fatalf("expected high priority failure notification, got %+v", got)
	}
	if got[0].body != "all variants failed" {
		t.Fatalf("custom message not used: %q", got[0].body)
	}
}

func TestDisabledEventsAreSkipped(t *testing.T) {
	server, requests := newRecorder(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.VideoReady = false
	service := notifications.NewService(cfg)

	err := service.Publish(context.Background(), notifications.EventVideoReady,
		notifications.Payload{VideoID: "vid-3"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(requests()) != 0 {
		t.Fatal("disabled event should not reach ntfy")
	}
}

func TestNoTopicMeansNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := notifications.NewService(cfg)
	if err := service.Publish(context.Background(), notifications.EventTest, notifications.Payload{}); err != nil {
		t.Fatalf("noop Publish should never error: %v", err)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := notifications.NewService(cfg)
	err := service.Publish(context.Background(), notifications.EventTest, notifications.Payload{})
	if err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
