package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if cfg.Queue.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.Workers.VideoConcurrency != 2 || cfg.Workers.ThumbnailConcurrency != 5 {
		t.Fatalf("unexpected worker defaults: %+v", cfg.Workers)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[queue]
max_attempts = 5
backoff_kind = "fixed"

[workers]
video_concurrency = 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Queue.MaxAttempts != 5 {
		t.Fatalf("expected max attempts 5, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.BackoffKind != "fixed" {
		t.Fatalf("expected fixed backoff, got %s", cfg.Queue.BackoffKind)
	}
	if cfg.Workers.VideoConcurrency != 1 {
		t.Fatalf("expected video concurrency 1, got %d", cfg.Workers.VideoConcurrency)
	}
	// Untouched sections keep defaults.
	if cfg.Encoding.HLSSegmentSeconds != 10 {
		t.Fatalf("expected default hls segment length, got %d", cfg.Encoding.HLSSegmentSeconds)
	}
}

func TestValidateRejectsBadBackoff(t *testing.T) {
	cfg := config.Default()
	cfg.Queue.BackoffKind = "quadratic"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "backoff_kind") {
		t.Fatalf("expected backoff_kind error, got %v", err)
	}
}

func TestValidateRequiresS3Bucket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[storage]
backend = "s3"
s3_region = "nyc3"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "s3_bucket") {
		t.Fatalf("expected s3_bucket error, got %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}
