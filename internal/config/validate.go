package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "local":
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return errors.New("storage.local_dir must be set when storage.backend is local")
		}
	case "s3":
		if strings.TrimSpace(c.Storage.S3Bucket) == "" {
			return errors.New("storage.s3_bucket must be set when storage.backend is s3")
		}
		if strings.TrimSpace(c.Storage.S3Region) == "" {
			return errors.New("storage.s3_region must be set when storage.backend is s3")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", "local", "s3", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxAttempts < 1 {
		return errors.New("queue.max_attempts must be at least 1")
	}
	switch c.Queue.BackoffKind {
	case "fixed", "exponential":
	default:
		return fmt.Errorf("queue.backoff_kind must be %q or %q, got %q", "fixed", "exponential", c.Queue.BackoffKind)
	}
	if c.Queue.BackoffDelaySeconds < 0 {
		return errors.New("queue.backoff_delay_seconds must not be negative")
	}
	if c.Queue.RetainCompleted < 0 || c.Queue.RetainFailed < 0 {
		return errors.New("queue retention counts must not be negative")
	}
	if c.Queue.PollInterval < 1 {
		return errors.New("queue.poll_interval must be at least 1 second")
	}
	if c.Queue.HeartbeatInterval < 1 {
		return errors.New("queue.heartbeat_interval must be at least 1 second")
	}
	if c.Queue.HeartbeatTimeout <= c.Queue.HeartbeatInterval {
		return errors.New("queue.heartbeat_timeout must exceed queue.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.VideoConcurrency < 1 {
		return errors.New("workers.video_concurrency must be at least 1")
	}
	if c.Workers.ThumbnailConcurrency < 1 {
		return errors.New("workers.thumbnail_concurrency must be at least 1")
	}
	if c.Workers.NotificationConcurrency < 1 {
		return errors.New("workers.notification_concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.ProbeTimeoutSeconds < 1 {
		return errors.New("encoding.probe_timeout_seconds must be at least 1")
	}
	if c.Encoding.EncodeTimeoutSeconds < 1 {
		return errors.New("encoding.encode_timeout_seconds must be at least 1")
	}
	if c.Encoding.HLSSegmentSeconds < 1 {
		return errors.New("encoding.hls_segment_seconds must be at least 1")
	}
	if c.Encoding.ThumbnailPercent < 0 || c.Encoding.ThumbnailPercent > 100 {
		return errors.New("encoding.thumbnail_percent must be between 0 and 100")
	}
	return nil
}
