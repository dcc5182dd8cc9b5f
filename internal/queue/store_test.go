package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

func TestEnqueueValidatesPayload(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	_, err := store.Enqueue(ctx, queue.QueueVideoProcessing, queue.KindProcessVideo,
		queue.ProcessVideoPayload{}, queue.EnqueueOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty payload, got %v", err)
	}

	_, err = store.Enqueue(ctx, queue.QueueVideoProcessing, queue.Kind("mystery"),
		queue.ProcessVideoPayload{VideoID: "vid", SourcePath: "/tmp/a.mp4"}, queue.EnqueueOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}

	job, err := store.Enqueue(ctx, queue.QueueVideoProcessing, queue.KindProcessVideo,
		queue.ProcessVideoPayload{VideoID: "vid", SourcePath: "/tmp/a.mp4"}, queue.EnqueueOptions{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.State != queue.StateWaiting {
		t.Fatalf("expected waiting job, got %s", job.State)
	}
	if job.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", job.MaxAttempts)
	}

	decoded, err := queue.DecodePayload(job.Kind, job.Payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	payload, ok := decoded.(queue.ProcessVideoPayload)
	if !ok || payload.VideoID != "vid" {
		t.Fatalf("payload round trip failed: %#v", decoded)
	}
}

func TestClaimOrdersByPriorityThenID(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	low := enqueue(t, store, "vid-low", queue.EnqueueOptions{})
	high := enqueue(t, store, "vid-high", queue.EnqueueOptions{Priority: 10})

	first, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if first == nil || first.ID != high.ID {
		t.Fatalf("expected high priority job %d first, got %+v", high.ID, first)
	}
	if first.State != queue.StateActive || first.AttemptsMade != 1 {
		t.Fatalf("claimed job not active with one attempt: %+v", first)
	}

	second, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if second == nil || second.ID != low.ID {
		t.Fatalf("expected job %d second, got %+v", low.ID, second)
	}

	third, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if third != nil {
		t.Fatalf("expected empty queue, claimed %+v", third)
	}
}

func TestDelayedJobsAreNotClaimableUntilPromoted(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := enqueue(t, store, "vid-delayed", queue.EnqueueOptions{Delay: 5 * time.Millisecond})
	if job.State != queue.StateDelayed {
		t.Fatalf("expected delayed state, got %s", job.State)
	}

	claimed, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("claimed delayed job %+v", claimed)
	}

	time.Sleep(10 * time.Millisecond)
	promoted, err := store.PromoteDelayed(ctx)
	if err != nil {
		t.Fatalf("PromoteDelayed: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("expected 1 promotion, got %d", promoted)
	}

	claimed, err = store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("expected job %d after promotion, got %+v", job.ID, claimed)
	}
}

func TestMarkFailedRetriesWithBackoffUntilExhausted(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := enqueue(t, store, "vid-retry", queue.EnqueueOptions{
		MaxAttempts:  2,
		Backoff:      queue.BackoffFixed,
		BackoffDelay: time.Millisecond,
	})

	claimed, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil || claimed == nil {
		t.Fatalf("Claim: %v %+v", err, claimed)
	}
	if err := store.MarkFailed(ctx, claimed.ID, errors.New("ffmpeg exploded")); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	refreshed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if refreshed.State != queue.StateDelayed {
		t.Fatalf("expected delayed retry, got %s", refreshed.State)
	}
	if refreshed.ErrorMessage != "ffmpeg exploded" {
		t.Fatalf("expected error message preserved, got %q", refreshed.ErrorMessage)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := store.PromoteDelayed(ctx); err != nil {
		t.Fatalf("PromoteDelayed: %v", err)
	}

	claimed, err = store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil || claimed == nil {
		t.Fatalf("second Claim: %v %+v", err, claimed)
	}
	if claimed.AttemptsMade != 2 {
		t.Fatalf("expected second attempt, got %d", claimed.AttemptsMade)
	}
	if err := store.MarkFailed(ctx, claimed.ID, errors.New("still broken")); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.State != queue.StateFailed {
		t.Fatalf("expected failed after exhausting attempts, got %s", final.State)
	}
	if final.FinishedAt == nil {
		t.Fatal("expected finished_at on failed job")
	}
}

func TestRetryResetsFailedJob(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := enqueue(t, store, "vid-reset", queue.EnqueueOptions{MaxAttempts: 1})
	claimed, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil || claimed == nil {
		t.Fatalf("Claim: %v %+v", err, claimed)
	}
	if err := store.MarkFailed(ctx, claimed.ID, errors.New("boom")); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	if err := store.Retry(ctx, job.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	refreshed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if refreshed.State != queue.StateWaiting || refreshed.AttemptsMade != 0 || refreshed.ErrorMessage != "" {
		t.Fatalf("retry did not reset job: %+v", refreshed)
	}

	if err := store.Retry(ctx, job.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error retrying a non-failed job, got %v", err)
	}
}

func TestPauseBlocksClaims(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	enqueue(t, store, "vid-paused", queue.EnqueueOptions{})
	if err := store.Pause(ctx, queue.QueueVideoProcessing); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	claimed, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("claimed job from paused queue: %+v", claimed)
	}

	stats, err := store.QueueStats(ctx, queue.QueueVideoProcessing)
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if !stats.Paused || stats.Waiting != 1 {
		t.Fatalf("unexpected stats for paused queue: %+v", stats)
	}

	if err := store.Resume(ctx, queue.QueueVideoProcessing); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	claimed, err = store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil || claimed == nil {
		t.Fatalf("expected claim after resume: %v %+v", err, claimed)
	}
}

func TestPruneFinishedHonorsRetention(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		enqueue(t, store, "vid-prune", queue.EnqueueOptions{})
		claimed, err := store.Claim(ctx, queue.QueueVideoProcessing)
		if err != nil || claimed == nil {
			t.Fatalf("Claim: %v %+v", err, claimed)
		}
		if err := store.MarkCompleted(ctx, claimed.ID); err != nil {
			t.Fatalf("MarkCompleted: %v", err)
		}
	}

	pruned, err := store.PruneFinished(ctx, queue.QueueVideoProcessing, 2, 50)
	if err != nil {
		t.Fatalf("PruneFinished: %v", err)
	}
	if pruned != 3 {
		t.Fatalf("expected 3 pruned jobs, got %d", pruned)
	}

	stats, err := store.QueueStats(ctx, queue.QueueVideoProcessing)
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if stats.Completed != 2 {
		t.Fatalf("expected 2 retained completed jobs, got %d", stats.Completed)
	}
}

func TestReclaimStaleRequeuesDeadWorkers(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := enqueue(t, store, "vid-stale", queue.EnqueueOptions{MaxAttempts: 3})
	claimed, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil || claimed == nil {
		t.Fatalf("Claim: %v %+v", err, claimed)
	}

	time.Sleep(10 * time.Millisecond)
	reclaimed, err := store.ReclaimStale(ctx, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", reclaimed)
	}

	refreshed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if refreshed.State != queue.StateWaiting {
		t.Fatalf("expected reclaimed job waiting, got %s", refreshed.State)
	}
	if refreshed.AttemptsMade != 1 {
		t.Fatalf("interrupted attempt should still count, got %d", refreshed.AttemptsMade)
	}
}

func TestHeartbeatKeepsJobAlive(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	enqueue(t, store, "vid-alive", queue.EnqueueOptions{})
	claimed, err := store.Claim(ctx, queue.QueueVideoProcessing)
	if err != nil || claimed == nil {
		t.Fatalf("Claim: %v %+v", err, claimed)
	}

	time.Sleep(10 * time.Millisecond)
	if err := store.Heartbeat(ctx, claimed.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	reclaimed, err := store.ReclaimStale(ctx, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("fresh heartbeat should not be reclaimed, got %d", reclaimed)
	}
}

func TestStatsCoverAllQueues(t *testing.T) {
	t.Parallel()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	enqueue(t, store, "vid-stats", queue.EnqueueOptions{})
	if _, err := store.Enqueue(ctx, queue.QueueThumbnailGeneration, queue.KindGenerateThumbnail,
		queue.GenerateThumbnailPayload{VideoID: "vid-stats", SourcePath: "/tmp/a.mp4"}, queue.EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue thumbnail: %v", err)
	}

	all, err := store.AllStats(ctx)
	if err != nil {
		t.Fatalf("AllStats: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected stats for 2 queues, got %d", len(all))
	}
	for _, st := range all {
		if st.Waiting != 1 || st.Total() != 1 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	}
}

func enqueue(t *testing.T, store *queue.Store, videoID string, opts queue.EnqueueOptions) *queue.Job {
	t.Helper()
	job, err := store.Enqueue(context.Background(), queue.QueueVideoProcessing, queue.KindProcessVideo,
		queue.ProcessVideoPayload{VideoID: videoID, SourcePath: "/tmp/source.mp4"}, queue.EnqueueOptions{
			Priority:     opts.Priority,
			Delay:        opts.Delay,
			MaxAttempts:  opts.MaxAttempts,
			Backoff:      opts.Backoff,
			BackoffDelay: opts.BackoffDelay,
		})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return job
}
