package hls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/encoding"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

var commandContext = exec.CommandContext

// Builder segments encoded variants into HLS playlists. Segmentation is a
// stream copy, no re-encode: the MP4 variants already carry aligned GOPs.
type Builder struct {
	FFmpegBinary   string
	SegmentSeconds int
	Timeout        time.Duration
	Logger         *slog.Logger
}

// Manifest describes the generated playlist tree rooted at Dir.
type Manifest struct {
	// Dir is the local directory holding master.m3u8 and per-variant
	// subdirectories.
	Dir string
	// MasterPath is the absolute path of the master playlist.
	MasterPath string
	// Variants lists the quality labels included, in ladder order.
	Variants []string
}

// Build segments each successful variant into outDir/{variant}/index.m3u8
// and writes a master playlist referencing them in the order given. Variants
// that fail to segment are skipped from the master; Build fails only when no
// variant could be segmented.
func (b *Builder) Build(ctx context.Context, results []encoding.VariantResult, meta ffprobe.Metadata, outDir string) (Manifest, error) {
	manifest := Manifest{Dir: outDir, MasterPath: filepath.Join(outDir, "master.m3u8")}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return manifest, services.Wrap(services.ErrTransient, "hls", "prepare output dir", outDir, err)
	}

	logger := b.logger()
	var entries []masterEntry
	for _, result := range results {
		if !result.Succeeded() {
			continue
		}
		if err := b.SegmentInto(ctx, result.OutputPath, filepath.Join(outDir, result.Preset.Name)); err != nil {
			logger.Warn("variant segmentation failed",
				logging.String(logging.FieldPreset, result.Preset.Name),
				logging.Error(err))
			continue
		}
		width, height := encoding.TargetDimensions(meta.Width, meta.Height, result.Preset)
		entries = append(entries, masterEntry{
			Name:      result.Preset.Name,
			Bandwidth: (result.Preset.MaxRateKbps + result.Preset.AudioBitrateKbps()) * 1000,
			Width:     width,
			Height:    height,
		})
		manifest.Variants = append(manifest.Variants, result.Preset.Name)
	}

	if len(entries) == 0 {
		return manifest, services.Wrap(services.ErrExternalTool, "hls", "build manifest",
			"no variant could be segmented", nil)
	}

	if err := writeMaster(manifest.MasterPath, entries); err != nil {
		return manifest, err
	}
	logger.Info("hls manifest built",
		logging.Int("variants", len(entries)),
		logging.String("master", manifest.MasterPath))
	return manifest, nil
}

// SegmentInto stream-copies one MP4 into dir, writing index.m3u8 and
// numbered .ts segments.
func (b *Builder) SegmentInto(ctx context.Context, inputPath, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "hls", "prepare variant dir", dir, err)
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	segmentSeconds := b.SegmentSeconds
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}
	args := []string{
		"-y",
		"-i", inputPath,
		"-codec", "copy",
		"-start_number", "0",
		"-hls_time", fmt.Sprintf("%d", segmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(dir, "segment%03d.ts"),
		"-f", "hls",
		filepath.Join(dir, "index.m3u8"),
	}
	cmd := commandContext(ctx, b.binary(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "hls", "segment variant", inputPath,
			fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
	}
	if _, err := os.Stat(filepath.Join(dir, "index.m3u8")); err != nil {
		return services.Wrap(services.ErrExternalTool, "hls", "verify playlist", dir, err)
	}
	return nil
}

func (b *Builder) binary() string {
	if strings.TrimSpace(b.FFmpegBinary) != "" {
		return b.FFmpegBinary
	}
	return "ffmpeg"
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return logging.NewNop()
}
