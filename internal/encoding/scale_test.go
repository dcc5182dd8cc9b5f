package encoding

import "testing"

func TestScaleFilterDownscalesWithEvenDimensions(t *testing.T) {
	preset, _ := PresetByName("720p")
	got := ScaleFilter(1920, 1080, preset)
	want := "scale=1280:720:flags=lanczos+accurate_rnd"
	if got != want {
		t.Fatalf("ScaleFilter = %q, want %q", got, want)
	}
}

func TestScaleFilterNeverUpscales(t *testing.T) {
	preset, _ := PresetByName("720p")
	if got := ScaleFilter(640, 360, preset); got != "" {
		t.Fatalf("expected no filter for small source, got %q", got)
	}
	if got := ScaleFilter(1280, 720, preset); got != "" {
		t.Fatalf("expected no filter at exact preset height, got %q", got)
	}
}

func TestScaleFilterIgnoresWidthWhenSourceIsShort(t *testing.T) {
	// A wide but short source skips scaling entirely: eligibility and
	// scaling both key off height, so the 480p variant of a 2000x400
	// source keeps its full width.
	preset, _ := PresetByName("480p")
	if got := ScaleFilter(2000, 400, preset); got != "" {
		t.Fatalf("expected no filter for short source regardless of width, got %q", got)
	}
}

func TestScaleFilterCapsWidth(t *testing.T) {
	// Ultrawide 32:9 source: aspect-preserving width would exceed the
	// preset bound, so the width clamps and the aspect ratio distorts
	// rather than the cap being ignored.
	preset, _ := PresetByName("1080p")
	got := ScaleFilter(5120, 1440, preset)
	want := "scale=1920:1080:flags=lanczos+accurate_rnd"
	if got != want {
		t.Fatalf("ScaleFilter = %q, want %q", got, want)
	}
}

func TestScaleFilterRoundsToEven(t *testing.T) {
	preset, _ := PresetByName("480p")
	// 1000x750 -> 480p: width 1000*480/750 = 640 even already; try an odd case.
	got := ScaleFilter(1003, 751, preset)
	want := "scale=640:480:flags=lanczos+accurate_rnd"
	if got != want {
		t.Fatalf("ScaleFilter = %q, want %q", got, want)
	}
}

func TestScaleFilterRejectsInvalidSource(t *testing.T) {
	preset, _ := PresetByName("720p")
	if got := ScaleFilter(0, 1080, preset); got != "" {
		t.Fatalf("expected empty filter for zero width, got %q", got)
	}
}
