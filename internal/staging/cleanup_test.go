package staging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	jobsDir := t.TempDir()

	stale := filepath.Join(jobsDir, "vid-1-job-3")
	fresh := filepath.Join(jobsDir, "vid-2-job-4")
	for _, dir := range []string{stale, fresh} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := CleanStale(jobsDir, 24*time.Hour, nil)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("unexpected removals: %+v", result.Removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh directory removed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale directory survived: %v", err)
	}
}

func TestCleanStaleMissingDirIsQuiet(t *testing.T) {
	result := CleanStale(filepath.Join(t.TempDir(), "nope"), time.Hour, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestListDirectoriesReportsSize(t *testing.T) {
	jobsDir := t.TempDir()
	dir := filepath.Join(jobsDir, "vid-1-job-1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "source.mp4"), make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := ListDirectories(jobsDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "vid-1-job-1" || dirs[0].Size != 2048 {
		t.Fatalf("unexpected listing: %+v", dirs)
	}
}
