package config

const (
	defaultStagingDir          = "~/.local/share/clipforge/staging"
	defaultLogDir              = "~/.local/share/clipforge/logs"
	defaultAPIBind             = "127.0.0.1:7571"
	defaultStorageBackend      = "local"
	defaultStorageLocalDir     = "~/.local/share/clipforge/media"
	defaultQueueMaxAttempts    = 3
	defaultBackoffKind         = "exponential"
	defaultBackoffDelaySeconds = 2
	defaultRetainCompleted     = 100
	defaultRetainFailed        = 50
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 10
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultVideoConcurrency    = 2
	defaultThumbConcurrency    = 5
	defaultNotifyConcurrency   = 1
	defaultProbeTimeout        = 30
	defaultEncodeTimeout       = 1800
	defaultHLSSegmentSeconds   = 10
	defaultThumbnailPercent    = 10
	defaultThumbnailMaxWidth   = 1280
	defaultThumbnailMaxHeight  = 720
	defaultNtfyRequestTimeout  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Storage: Storage{
			Backend:  defaultStorageBackend,
			LocalDir: defaultStorageLocalDir,
		},
		Queue: Queue{
			MaxAttempts:         defaultQueueMaxAttempts,
			BackoffKind:         defaultBackoffKind,
			BackoffDelaySeconds: defaultBackoffDelaySeconds,
			RetainCompleted:     defaultRetainCompleted,
			RetainFailed:        defaultRetainFailed,
			PollInterval:        defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
		},
		Workers: Workers{
			VideoConcurrency:        defaultVideoConcurrency,
			ThumbnailConcurrency:    defaultThumbConcurrency,
			NotificationConcurrency: defaultNotifyConcurrency,
		},
		Encoding: Encoding{
			FFmpegBinary:         "ffmpeg",
			FFprobeBinary:        "ffprobe",
			ProbeTimeoutSeconds:  defaultProbeTimeout,
			EncodeTimeoutSeconds: defaultEncodeTimeout,
			HLSSegmentSeconds:    defaultHLSSegmentSeconds,
			ThumbnailPercent:     defaultThumbnailPercent,
			ThumbnailMaxWidth:    defaultThumbnailMaxWidth,
			ThumbnailMaxHeight:   defaultThumbnailMaxHeight,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			VideoReady:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
