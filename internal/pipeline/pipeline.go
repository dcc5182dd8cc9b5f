package pipeline

import (
	"log/slog"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/encoding"
	"clipforge/internal/hls"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/storage"
	"clipforge/internal/videostore"
	"clipforge/internal/workers"
)

// Pipeline wires the transcoding components behind the queue handlers: probe
// the source, encode the ladder, segment for HLS, upload, update metadata,
// notify.
type Pipeline struct {
	cfg      *config.Config
	videos   videostore.Store
	objects  storage.ObjectStore
	jobs     *queue.Store
	notifier notifications.Service
	logger   *slog.Logger

	encoder *encoding.Encoder
	hls     *hls.Builder
}

// New assembles a pipeline from its collaborators.
func New(cfg *config.Config, jobs *queue.Store, videos videostore.Store, objects storage.ObjectStore, notifier notifications.Service, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	return &Pipeline{
		cfg:      cfg,
		videos:   videos,
		objects:  objects,
		jobs:     jobs,
		notifier: notifier,
		logger:   logger,
		encoder: &encoding.Encoder{
			FFmpegBinary: cfg.Encoding.FFmpegBinary,
			Timeout:      time.Duration(cfg.Encoding.EncodeTimeoutSeconds) * time.Second,
			MaxParallel:  0,
			Logger:       logger,
		},
		hls: &hls.Builder{
			FFmpegBinary:   cfg.Encoding.FFmpegBinary,
			SegmentSeconds: cfg.Encoding.HLSSegmentSeconds,
			Timeout:        time.Duration(cfg.Encoding.EncodeTimeoutSeconds) * time.Second,
			Logger:         logger,
		},
	}
}

// RegisterAll attaches every pipeline handler to the worker pool with the
// configured per-queue concurrency.
func (p *Pipeline) RegisterAll(pool *workers.Pool) {
	pool.Register(queue.QueueVideoProcessing, p.HandleProcessVideo, p.cfg.Workers.VideoConcurrency)
	pool.Register(queue.QueueThumbnailGeneration, p.HandleGenerateThumbnail, p.cfg.Workers.ThumbnailConcurrency)
	pool.Register(queue.QueueNotifications, p.HandleSendNotification, p.cfg.Workers.NotificationConcurrency)
}
