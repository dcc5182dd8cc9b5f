package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"clipforge/internal/encoding"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/storage"
	"clipforge/internal/videostore"
)

// HandleProcessVideo is the handler for the video-processing queue. It runs
// the whole ladder for one uploaded video. Errors returned here mark the job
// failed and trigger queue-level retry; partial variant failure is absorbed
// into a ready-with-fewer-qualities outcome instead.
func (p *Pipeline) HandleProcessVideo(ctx context.Context, job *queue.Job) error {
	decoded, err := queue.DecodePayload(job.Kind, job.Payload)
	if err != nil {
		return err
	}
	payload := decoded.(queue.ProcessVideoPayload)
	ctx = services.WithVideoID(ctx, payload.VideoID)
	logger := p.logger.With(logging.String(logging.FieldVideoID, payload.VideoID))

	workDir, cleanup, err := p.workDir(job.ID, payload.VideoID)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := p.videos.Ensure(ctx, payload.VideoID); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "ensure video record", payload.VideoID, err)
	}
	if err := p.videos.MarkProcessing(ctx, payload.VideoID); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "mark processing", payload.VideoID, err)
	}

	sourcePath, err := p.acquireSource(ctx, payload.SourcePath, payload.SourceURL, workDir)
	if err != nil {
		return p.failVideo(ctx, payload.VideoID, "source unavailable", err)
	}

	meta, err := ffprobe.InspectVideo(ctx, p.cfg.Encoding.FFprobeBinary, sourcePath,
		time.Duration(p.cfg.Encoding.ProbeTimeoutSeconds)*time.Second)
	if err != nil {
		return p.failVideo(ctx, payload.VideoID, "probe failed", err)
	}
	logger.Info("source inspected",
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
		logging.Float64("duration_seconds", meta.DurationSeconds),
		logging.String("codec", meta.Codec))

	results, err := p.encoder.EncodeAll(ctx, sourcePath, meta, filepath.Join(workDir, "variants"))
	if err != nil {
		return p.failVideo(ctx, payload.VideoID, "all variants failed", err)
	}

	qualities, uploaded := p.uploadVariants(ctx, payload.VideoID, meta, results, logger)
	if len(qualities) == 0 {
		return p.failVideo(ctx, payload.VideoID, "no variant could be uploaded", nil)
	}

	hlsURL := p.buildAndUploadHLS(ctx, payload.VideoID, uploaded, meta, workDir, logger)
	thumbnailURL := p.ensureThumbnail(ctx, payload.VideoID, sourcePath, meta, workDir, logger)

	update := videostore.ReadyUpdate{
		DurationSeconds: int(math.Round(meta.DurationSeconds)),
		Width:           meta.Width,
		Height:          meta.Height,
		Bitrate:         meta.BitRate,
		Codec:           meta.Codec,
		ThumbnailURL:    thumbnailURL,
		HLSURL:          hlsURL,
		Qualities:       qualities,
	}
	if err := p.videos.MarkReady(ctx, payload.VideoID, update); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "mark ready", payload.VideoID, err)
	}

	p.enqueueNotification(ctx, notifications.EventVideoReady, payload.VideoID, "", logger)
	var variantBytes int64
	for _, result := range uploaded {
		variantBytes += result.SizeBytes
	}
	logger.Info("video ready",
		logging.Int("qualities", len(qualities)),
		logging.String("hls_url", hlsURL),
		logging.Int64("source_bytes", meta.SizeBytes),
		logging.Int64("variant_bytes", variantBytes),
		logging.Float64("savings_percent", savingsPercent(meta.SizeBytes, variantBytes)))
	return nil
}

// savingsPercent reports how much smaller the delivered renditions are than
// the source. Negative when the renditions outgrow the source.
func savingsPercent(sourceBytes, variantBytes int64) float64 {
	if sourceBytes <= 0 {
		return 0
	}
	return math.Round((1-float64(variantBytes)/float64(sourceBytes))*1000) / 10
}

// uploadVariants pushes every successful encode to the object store. An
// upload failure drops that variant from the final record; it fails the job
// only when nothing uploads at all. Returns the persisted quality records
// and the variant results that made it to storage, in ladder order.
func (p *Pipeline) uploadVariants(ctx context.Context, videoID string, meta ffprobe.Metadata, results []encoding.VariantResult, logger *slog.Logger) ([]videostore.Quality, []encoding.VariantResult) {
	var qualities []videostore.Quality
	var uploaded []encoding.VariantResult
	for _, result := range results {
		if !result.Succeeded() {
			continue
		}
		key := storage.VariantKey(videoID, result.Preset.Name)
		url, err := p.objects.PutFile(ctx, key, result.OutputPath, storage.ContentTypeFor(result.OutputPath))
		if err != nil {
			logger.Warn("variant upload failed",
				logging.String(logging.FieldPreset, result.Preset.Name),
				logging.Error(err))
			continue
		}
		width, height := encoding.TargetDimensions(meta.Width, meta.Height, result.Preset)
		qualities = append(qualities, videostore.Quality{
			Quality:   result.Preset.Name,
			URL:       url,
			Width:     width,
			Height:    height,
			Bitrate:   result.Preset.MaxRateKbps,
			SizeBytes: result.SizeBytes,
		})
		uploaded = append(uploaded, result)
	}
	return qualities, uploaded
}

// buildAndUploadHLS is best-effort: a video without an HLS tree still plays
// via its MP4 variants, so failures log and return an empty URL.
func (p *Pipeline) buildAndUploadHLS(ctx context.Context, videoID string, uploaded []encoding.VariantResult, meta ffprobe.Metadata, workDir string, logger *slog.Logger) string {
	manifest, err := p.hls.Build(ctx, uploaded, meta, filepath.Join(workDir, "hls"))
	if err != nil {
		logger.Warn("hls build failed", logging.Error(err))
		return ""
	}
	if _, err := storage.PutTree(ctx, p.objects, manifest.Dir, func(rel string) string {
		return storage.HLSKey(videoID, rel)
	}); err != nil {
		logger.Warn("hls upload failed", logging.Error(err))
		return ""
	}
	return p.objects.URL(storage.MasterPlaylistKey(videoID))
}

// ensureThumbnail captures and uploads a poster frame unless a sibling
// thumbnail job already produced one.
func (p *Pipeline) ensureThumbnail(ctx context.Context, videoID, sourcePath string, meta ffprobe.Metadata, workDir string, logger *slog.Logger) string {
	if record, err := p.videos.Get(ctx, videoID); err == nil && record.ThumbnailURL != "" {
		return record.ThumbnailURL
	}

	localPath := filepath.Join(workDir, "thumbnail.jpg")
	err := encoding.CaptureThumbnail(ctx, sourcePath, meta.DurationSeconds, localPath, p.thumbnailOptions())
	if err != nil {
		logger.Warn("thumbnail capture failed", logging.Error(err))
		return ""
	}
	url, err := p.objects.PutFile(ctx, storage.ThumbnailKey(videoID), localPath, "image/jpeg")
	if err != nil {
		logger.Warn("thumbnail upload failed", logging.Error(err))
		return ""
	}
	return url
}

func (p *Pipeline) thumbnailOptions() encoding.ThumbnailOptions {
	return encoding.ThumbnailOptions{
		FFmpegBinary: p.cfg.Encoding.FFmpegBinary,
		Timeout:      time.Duration(p.cfg.Encoding.ProbeTimeoutSeconds) * time.Second,
		Percent:      p.cfg.Encoding.ThumbnailPercent,
		MaxWidth:     p.cfg.Encoding.ThumbnailMaxWidth,
		MaxHeight:    p.cfg.Encoding.ThumbnailMaxHeight,
	}
}

// failVideo records a hard failure on the video and returns the job error
// that triggers queue-level retry.
func (p *Pipeline) failVideo(ctx context.Context, videoID, reason string, cause error) error {
	message := reason
	if cause != nil {
		message = fmt.Sprintf("%s: %v", reason, cause)
	}
	if err := p.videos.MarkFailed(ctx, videoID, message); err != nil {
		p.logger.Warn("mark failed errored",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
	}
	p.enqueueNotification(ctx, notifications.EventVideoFailed, videoID, message, p.logger)
	if cause != nil {
		return cause
	}
	return services.Wrap(services.ErrTransient, "pipeline", "process video", message, nil)
}

// workDir allocates the job's exclusive scratch directory. The returned
// cleanup removes it on every exit path.
func (p *Pipeline) workDir(jobID int64, videoID string) (string, func(), error) {
	dir := filepath.Join(p.cfg.StagingDir, "jobs", fmt.Sprintf("%s-job-%d", videoID, jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, services.Wrap(services.ErrTransient, "pipeline", "create work dir", dir, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("work dir cleanup failed",
				logging.String("dir", dir),
				logging.Error(err))
		}
	}
	return dir, cleanup, nil
}

// enqueueNotification is fire-and-forget: delivery failures never fail the
// originating job.
func (p *Pipeline) enqueueNotification(ctx context.Context, event notifications.Event, videoID, message string, logger *slog.Logger) {
	_, err := p.jobs.Enqueue(ctx, queue.QueueNotifications, queue.KindSendNotification,
		queue.SendNotificationPayload{
			Event:   string(event),
			VideoID: videoID,
			Message: message,
		}, queue.EnqueueOptions{
			MaxAttempts:  5,
			Backoff:      queue.BackoffFixed,
			BackoffDelay: 5 * time.Second,
		})
	if err != nil {
		logger.Warn("notification enqueue failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err))
	}
}
