package api_test

import (
	"context"
	"testing"

	"clipforge/internal/api"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func TestQueueServiceAgainstStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewQueueService(store)
	ctx := context.Background()

	first := testsupport.EnqueueVideo(t, store, "vid-a", "/tmp/a.mp4")
	testsupport.EnqueueVideo(t, store, "vid-b", "/tmp/b.mp4")

	jobs, err := svc.List(ctx, queue.QueueVideoProcessing, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	var found bool
	for _, view := range stats {
		if view.Queue == queue.QueueVideoProcessing {
			found = true
			if view.Waiting != 2 || view.Total != 2 {
				t.Fatalf("stats wrong: %+v", view)
			}
		}
	}
	if !found {
		t.Fatalf("video-processing queue missing from stats: %+v", stats)
	}

	view, err := svc.Describe(ctx, first.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if view == nil || view.ID != first.ID || view.State != string(queue.StateWaiting) {
		t.Fatalf("describe wrong: %+v", view)
	}

	missing, err := svc.Describe(ctx, 9999)
	if err != nil {
		t.Fatalf("Describe missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing job, got %+v", missing)
	}
}

func TestNilQueueServiceIsSafe(t *testing.T) {
	var svc *api.QueueService
	if jobs, err := svc.List(context.Background(), queue.QueueVideoProcessing, "", 0); err != nil || jobs != nil {
		t.Fatalf("nil service List: %v %v", jobs, err)
	}
	if api.NewQueueService(nil) != nil {
		t.Fatal("NewQueueService(nil) should be nil")
	}
}
