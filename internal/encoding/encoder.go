package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

var commandContext = exec.CommandContext

// Encoder runs ffmpeg to produce the rendition ladder for one source file.
type Encoder struct {
	FFmpegBinary string
	Timeout      time.Duration
	// MaxParallel bounds how many variants encode at once. Values < 1 run
	// the whole ladder concurrently.
	MaxParallel int
	Logger      *slog.Logger
}

// VariantResult reports the outcome of a single rendition encode.
type VariantResult struct {
	Preset     Preset
	OutputPath string
	SizeBytes  int64
	Err        error
}

// Succeeded reports whether the variant produced a usable output file.
func (r VariantResult) Succeeded() bool {
	return r.Err == nil
}

// EncodeAll encodes every preset selected for the source into outDir, one
// MP4 per preset named after its quality label. Variants run concurrently;
// a failed variant is recorded in its result and does not cancel siblings.
// The returned error is non-nil only when no variant succeeded.
func (e *Encoder) EncodeAll(ctx context.Context, sourcePath string, meta ffprobe.Metadata, outDir string) ([]VariantResult, error) {
	presets := Select(meta.Height)
	if len(presets) == 0 {
		return nil, services.Wrap(services.ErrValidation, "encoder", "select presets",
			fmt.Sprintf("no presets for %dx%d source", meta.Width, meta.Height), nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "encoder", "prepare output dir", outDir, err)
	}

	logger := e.logger()
	results := make([]VariantResult, len(presets))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	if e.MaxParallel > 0 {
		group.SetLimit(e.MaxParallel)
	}
	for i, preset := range presets {
		i, preset := i, preset
		group.Go(func() error {
			result := e.encodeVariant(groupCtx, sourcePath, meta, preset, outDir, logger)
			mu.Lock()
			results[i] = result
			mu.Unlock()
			// Variant failures are collected, not propagated, so sibling
			// encodes keep running.
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return results, err
	}

	succeeded := 0
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
		}
	}
	if succeeded == 0 {
		firstErr := results[0].Err
		return results, services.Wrap(services.ErrExternalTool, "encoder", "encode ladder",
			"every variant failed", firstErr)
	}

	if meta.SizeBytes > 0 {
		var total int64
		for _, result := range results {
			total += result.SizeBytes
		}
		logger.Info("encode ladder complete",
			logging.Int("variants", succeeded),
			logging.Int64("source_bytes", meta.SizeBytes),
			logging.Int64("encoded_bytes", total),
			logging.Float64("size_ratio", float64(total)/float64(meta.SizeBytes)))
	}
	return results, nil
}

func (e *Encoder) encodeVariant(ctx context.Context, sourcePath string, meta ffprobe.Metadata, preset Preset, outDir string, logger *slog.Logger) VariantResult {
	outputPath := filepath.Join(outDir, preset.Name+".mp4")
	result := VariantResult{Preset: preset, OutputPath: outputPath}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := BuildVariantArgs(sourcePath, meta, preset, outputPath)
	logger.Info("encoding variant",
		logging.String(logging.FieldPreset, preset.Name),
		logging.String("input", sourcePath),
		logging.String("output", outputPath))

	cmd := commandContext(ctx, e.binary(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		result.Err = services.Wrap(marker, "encoder", "run ffmpeg", preset.Name,
			fmt.Errorf("%w: %s", err, tailOf(string(output))))
		logger.Warn("variant encode failed",
			logging.String(logging.FieldPreset, preset.Name),
			logging.Error(result.Err))
		return result
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		result.Err = services.Wrap(services.ErrExternalTool, "encoder", "verify output", preset.Name,
			fmt.Errorf("missing or empty output %s", outputPath))
		return result
	}
	result.SizeBytes = info.Size()
	return result
}

func (e *Encoder) binary() string {
	if strings.TrimSpace(e.FFmpegBinary) != "" {
		return e.FFmpegBinary
	}
	return "ffmpeg"
}

func (e *Encoder) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.NewNop()
}

// tailOf trims ffmpeg's often lengthy stderr down to its last few lines,
// which is where the actual failure reason lands.
func tailOf(output string) string {
	output = strings.TrimSpace(output)
	lines := strings.Split(output, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}
