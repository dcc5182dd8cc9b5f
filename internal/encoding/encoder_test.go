package encoding

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

// stubFFmpeg replaces commandContext with a shell stub that writes a fake
// output file, or fails for presets named in failNames.
func stubFFmpeg(t *testing.T, failNames ...string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		output := args[len(args)-1]
		for _, fail := range failNames {
			if strings.HasSuffix(output, fail+".mp4") {
				return exec.CommandContext(ctx, "sh", "-c", "echo 'encoder error' >&2; exit 1")
			}
		}
		return exec.CommandContext(ctx, "sh", "-c", "printf 'data' > "+output)
	}
	t.Cleanup(func() { commandContext = original })
}

func TestEncodeAllProducesEveryEligibleVariant(t *testing.T) {
	stubFFmpeg(t)
	outDir := t.TempDir()

	enc := &Encoder{MaxParallel: 2}
	meta := ffprobe.Metadata{Width: 1920, Height: 1080, FrameRateNum: 25, FrameRateDen: 1, SizeBytes: 100}
	results, err := enc.EncodeAll(context.Background(), "/tmp/in.mp4", meta, outDir)
	if err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 variants for 1080p source, got %d", len(results))
	}
	for _, result := range results {
		if !result.Succeeded() {
			t.Errorf("variant %s failed: %v", result.Preset.Name, result.Err)
		}
		if result.SizeBytes == 0 {
			t.Errorf("variant %s reported zero size", result.Preset.Name)
		}
		if filepath.Base(result.OutputPath) != result.Preset.Name+".mp4" {
			t.Errorf("variant %s wrote unexpected file %s", result.Preset.Name, result.OutputPath)
		}
	}
}

func TestEncodeAllRecordsPartialFailure(t *testing.T) {
	stubFFmpeg(t, "1080p")
	outDir := t.TempDir()

	enc := &Encoder{}
	meta := ffprobe.Metadata{Width: 1920, Height: 1080, FrameRateNum: 30, FrameRateDen: 1}
	results, err := enc.EncodeAll(context.Background(), "/tmp/in.mp4", meta, outDir)
	if err != nil {
		t.Fatalf("partial failure should not error the ladder: %v", err)
	}

	var failed, succeeded int
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
			continue
		}
		failed++
		if result.Preset.Name != "1080p" {
			t.Errorf("unexpected failed variant %s", result.Preset.Name)
		}
		if !errors.Is(result.Err, services.ErrExternalTool) {
			t.Errorf("expected external tool error, got %v", result.Err)
		}
	}
	if failed != 1 || succeeded != 3 {
		t.Fatalf("expected 1 failure and 3 successes, got %d/%d", failed, succeeded)
	}
}

func TestEncodeAllFailsWhenNothingSucceeds(t *testing.T) {
	stubFFmpeg(t, "720p", "480p", "preview")
	outDir := t.TempDir()

	enc := &Encoder{}
	meta := ffprobe.Metadata{Width: 640, Height: 360, FrameRateNum: 30, FrameRateDen: 1}
	_, err := enc.EncodeAll(context.Background(), "/tmp/in.mp4", meta, outDir)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ladder failure, got %v", err)
	}
}

func TestCaptureThumbnailWritesFrame(t *testing.T) {
	stubFFmpeg(t)
	outPath := filepath.Join(t.TempDir(), "thumbs", "vid.jpg")

	err := CaptureThumbnail(context.Background(), "/tmp/in.mp4", 120, outPath, ThumbnailOptions{})
	if err != nil {
		t.Fatalf("CaptureThumbnail: %v", err)
	}
}

func TestCaptureThumbnailReportsToolFailure(t *testing.T) {
	stubFFmpeg(t, "vid")
	outPath := filepath.Join(t.TempDir(), "vid.mp4")
	// Use a .mp4-suffixed output so the stub's failure branch matches.
	err := CaptureThumbnail(context.Background(), "/tmp/in.mp4", 120, outPath, ThumbnailOptions{})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
