package encoding

import (
	"slices"
	"strings"
	"testing"

	"clipforge/internal/media/ffprobe"
)

func TestBuildVariantArgsForDownscaledVariant(t *testing.T) {
	preset, _ := PresetByName("720p")
	meta := ffprobe.Metadata{Width: 1920, Height: 1080, FrameRateNum: 25, FrameRateDen: 1}

	args := BuildVariantArgs("/tmp/in.mp4", meta, preset, "/tmp/out/720p.mp4")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-c:v libx264",
		"-preset faster",
		"-crf 24",
		"-maxrate 1500k",
		"-bufsize 3000k",
		"-vf scale=1280:720:flags=lanczos+accurate_rnd",
		"-profile:v main",
		"-level 4.0",
		"-g 50",
		"-sc_threshold 0",
		"-pix_fmt yuv420p",
		"-movflags +faststart",
		"-c:a aac",
		"-b:a 128k",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "/tmp/out/720p.mp4" {
		t.Fatalf("output path must be last arg, got %q", args[len(args)-1])
	}
}

func TestBuildVariantArgsSkipsScaleForSmallSource(t *testing.T) {
	preset, _ := PresetByName("480p")
	meta := ffprobe.Metadata{Width: 640, Height: 360, FrameRateNum: 30, FrameRateDen: 1}

	args := BuildVariantArgs("/tmp/in.mp4", meta, preset, "/tmp/out/480p.mp4")
	if slices.Contains(args, "-vf") {
		t.Fatalf("expected no scale filter for 360p source, got %v", args)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-profile:v baseline") || !strings.Contains(joined, "-b:a 96k") {
		t.Fatalf("480p variant should use baseline profile and 96k audio: %s", joined)
	}
}

func TestBuildVariantArgsGOPFromFractionalFrameRate(t *testing.T) {
	preset, _ := PresetByName("1080p")
	meta := ffprobe.Metadata{Width: 1920, Height: 1080, FrameRateNum: 30000, FrameRateDen: 1001}

	args := BuildVariantArgs("/tmp/in.mp4", meta, preset, "/tmp/out/1080p.mp4")
	idx := slices.Index(args, "-g")
	if idx < 0 || idx+1 >= len(args) {
		t.Fatalf("missing -g flag: %v", args)
	}
	// 29.97 fps * 2 rounds to 60.
	if args[idx+1] != "60" {
		t.Fatalf("expected GOP 60, got %s", args[idx+1])
	}
}

func TestBuildVariantArgsDefaultsFrameRate(t *testing.T) {
	preset, _ := PresetByName("preview")
	args := BuildVariantArgs("/tmp/in.mp4", ffprobe.Metadata{Width: 1280, Height: 720}, preset, "/tmp/out/preview.mp4")
	idx := slices.Index(args, "-g")
	if idx < 0 || args[idx+1] != "60" {
		t.Fatalf("expected default 30fps GOP of 60, got %v", args)
	}
}
