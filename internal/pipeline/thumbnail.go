package pipeline

import (
	"context"
	"time"

	"clipforge/internal/encoding"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/storage"
)

// HandleGenerateThumbnail is the handler for the thumbnail-generation queue.
// It runs independently of full processing so feeds can show a poster frame
// before the variant ladder lands.
func (p *Pipeline) HandleGenerateThumbnail(ctx context.Context, job *queue.Job) error {
	decoded, err := queue.DecodePayload(job.Kind, job.Payload)
	if err != nil {
		return err
	}
	payload := decoded.(queue.GenerateThumbnailPayload)
	ctx = services.WithVideoID(ctx, payload.VideoID)
	logger := p.logger.With(logging.String(logging.FieldVideoID, payload.VideoID))

	workDir, cleanup, err := p.workDir(job.ID, payload.VideoID+"-thumb")
	if err != nil {
		return err
	}
	defer cleanup()

	sourcePath, err := p.acquireSource(ctx, payload.SourcePath, payload.SourceURL, workDir)
	if err != nil {
		return err
	}

	// Duration is only used to position the capture point; a failed probe
	// falls back to the first second rather than failing the job.
	var duration float64
	if meta, probeErr := ffprobe.InspectVideo(ctx, p.cfg.Encoding.FFprobeBinary, sourcePath,
		time.Duration(p.cfg.Encoding.ProbeTimeoutSeconds)*time.Second); probeErr == nil {
		duration = meta.DurationSeconds
	}

	localPath := workDir + "/thumbnail.jpg"
	if err := encoding.CaptureThumbnail(ctx, sourcePath, duration, localPath, p.thumbnailOptions()); err != nil {
		return err
	}

	url, err := p.objects.PutFile(ctx, storage.ThumbnailKey(payload.VideoID), localPath, "image/jpeg")
	if err != nil {
		return err
	}

	if err := p.videos.Ensure(ctx, payload.VideoID); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "ensure video record", payload.VideoID, err)
	}
	if err := p.videos.SetThumbnail(ctx, payload.VideoID, url); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "set thumbnail", payload.VideoID, err)
	}

	logger.Info("thumbnail ready", logging.String("url", url))
	return nil
}
