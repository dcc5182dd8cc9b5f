package videostore_test

import (
	"context"
	"errors"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/testsupport"
	"clipforge/internal/videostore"
)

func openStores(t *testing.T) []videostore.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	sqlite := mustOpenSQLite(t, cfg)
	return []videostore.Store{sqlite, videostore.NewMemoryStore()}
}

func mustOpenSQLite(t *testing.T, cfg *config.Config) *videostore.SQLiteStore {
	t.Helper()
	store, err := videostore.OpenSQLite(cfg)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStatusLifecycle(t *testing.T) {
	for _, store := range openStores(t) {
		ctx := context.Background()
		if err := store.Ensure(ctx, "vid-1"); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
		if err := store.MarkProcessing(ctx, "vid-1"); err != nil {
			t.Fatalf("MarkProcessing: %v", err)
		}

		update := videostore.ReadyUpdate{
			DurationSeconds: 42,
			Width:           1920,
			Height:          1080,
			Bitrate:         4_000_000,
			Codec:           "h264",
			ThumbnailURL:    "http://cdn.test/thumbnails/vid-1.jpg",
			HLSURL:          "http://cdn.test/videos/vid-1/hls/master.m3u8",
			Qualities: []videostore.Quality{
				{Quality: "1080p", URL: "http://cdn.test/videos/vid-1/1080p.mp4", Width: 1920, Height: 1080, Bitrate: 3500, SizeBytes: 100},
				{Quality: "720p", URL: "http://cdn.test/videos/vid-1/720p.mp4", Width: 1280, Height: 720, Bitrate: 1500, SizeBytes: 50},
			},
		}
		if err := store.MarkReady(ctx, "vid-1", update); err != nil {
			t.Fatalf("MarkReady: %v", err)
		}

		record, err := store.Get(ctx, "vid-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if record.Status != videostore.StatusReady {
			t.Fatalf("expected ready, got %s", record.Status)
		}
		if record.DurationSeconds != 42 || record.Width != 1920 || record.Codec != "h264" {
			t.Fatalf("derived fields not persisted: %+v", record)
		}
		if len(record.Qualities) != 2 || record.Qualities[0].Quality != "1080p" {
			t.Fatalf("qualities not persisted in order: %+v", record.Qualities)
		}
		if record.ProcessedAt == nil {
			t.Fatal("expected processed_at on ready record")
		}
		if record.HLSURL != update.HLSURL {
			t.Fatalf("hls url mismatch: %q", record.HLSURL)
		}
	}
}

func TestMarkFailedRecordsReason(t *testing.T) {
	for _, store := range openStores(t) {
		ctx := context.Background()
		if err := store.Ensure(ctx, "vid-2"); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
		if err := store.MarkFailed(ctx, "vid-2", "no video stream found"); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
		record, err := store.Get(ctx, "vid-2")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if record.Status != videostore.StatusFailed || record.Error != "no video stream found" {
			t.Fatalf("failure not recorded: %+v", record)
		}
	}
}

func TestThumbnailFromSiblingJobSurvivesReady(t *testing.T) {
	for _, store := range openStores(t) {
		ctx := context.Background()
		if err := store.Ensure(ctx, "vid-3"); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
		if err := store.SetThumbnail(ctx, "vid-3", "http://cdn.test/thumbnails/vid-3.jpg"); err != nil {
			t.Fatalf("SetThumbnail: %v", err)
		}
		// Ready update without a thumbnail must not clobber the sibling
		// job's thumbnail.
		if err := store.MarkReady(ctx, "vid-3", videostore.ReadyUpdate{DurationSeconds: 10}); err != nil {
			t.Fatalf("MarkReady: %v", err)
		}
		record, err := store.Get(ctx, "vid-3")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if record.ThumbnailURL != "http://cdn.test/thumbnails/vid-3.jpg" {
			t.Fatalf("thumbnail clobbered: %q", record.ThumbnailURL)
		}
	}
}

func TestUnknownVideoFails(t *testing.T) {
	for _, store := range openStores(t) {
		ctx := context.Background()
		if err := store.MarkProcessing(ctx, "missing"); !errors.Is(err, videostore.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, videostore.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	for _, store := range openStores(t) {
		ctx := context.Background()
		if err := store.Ensure(ctx, "vid-4"); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
		if err := store.MarkFailed(ctx, "vid-4", "boom"); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
		if err := store.Ensure(ctx, "vid-4"); err != nil {
			t.Fatalf("second Ensure: %v", err)
		}
		record, err := store.Get(ctx, "vid-4")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if record.Status != videostore.StatusFailed {
			t.Fatalf("Ensure must not reset status, got %s", record.Status)
		}
	}
}
