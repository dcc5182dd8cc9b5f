package encoding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/services"
)

// ThumbnailOptions tune poster frame extraction.
type ThumbnailOptions struct {
	FFmpegBinary string
	Timeout      time.Duration
	// Percent positions the capture point as a percentage of the source
	// duration. Defaults to 10.
	Percent   int
	MaxWidth  int
	MaxHeight int
}

// CaptureThumbnail grabs a single JPEG frame from the source. The capture
// point sits at Percent of the clip; sources with unknown duration fall back
// to the first second.
func CaptureThumbnail(ctx context.Context, sourcePath string, durationSeconds float64, outputPath string, opts ThumbnailOptions) error {
	percent := opts.Percent
	if percent <= 0 || percent >= 100 {
		percent = 10
	}
	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = 1280
	}
	maxHeight := opts.MaxHeight
	if maxHeight <= 0 {
		maxHeight = 720
	}

	seek := 1.0
	if durationSeconds > 0 {
		seek = durationSeconds * float64(percent) / 100
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "thumbnailer", "prepare output dir", outputPath, err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	binary := strings.TrimSpace(opts.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", seek),
		"-i", sourcePath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", maxWidth, maxHeight),
		"-q:v", "3",
		outputPath,
	}
	cmd := commandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "thumbnailer", "run ffmpeg", outputPath,
			fmt.Errorf("%w: %s", err, tailOf(string(output))))
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "thumbnailer", "verify output", outputPath,
			fmt.Errorf("missing or empty thumbnail"))
	}
	return nil
}
