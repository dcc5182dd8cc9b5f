package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueVideo inserts a process-video job for tests using the provided store.
func EnqueueVideo(t testing.TB, store *queue.Store, videoID, sourcePath string) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), queue.QueueVideoProcessing, queue.KindProcessVideo,
		queue.ProcessVideoPayload{VideoID: videoID, SourcePath: sourcePath}, queue.EnqueueOptions{})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
