package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Storage configures where encoded artifacts are published.
type Storage struct {
	// Backend selects the object store implementation: "local" or "s3".
	Backend       string `toml:"backend"`
	LocalDir      string `toml:"local_dir"`
	PublicBaseURL string `toml:"public_base_url"`
	S3Bucket      string `toml:"s3_bucket"`
	S3Region      string `toml:"s3_region"`
	S3Endpoint    string `toml:"s3_endpoint"`
	CDNBaseURL    string `toml:"cdn_base_url"`
}

// Queue contains durability and retry policy for the job queue.
type Queue struct {
	MaxAttempts         int    `toml:"max_attempts"`
	BackoffKind         string `toml:"backoff_kind"`
	BackoffDelaySeconds int    `toml:"backoff_delay_seconds"`
	RetainCompleted     int    `toml:"retain_completed"`
	RetainFailed        int    `toml:"retain_failed"`
	PollInterval        int    `toml:"poll_interval"`
	ErrorRetryInterval  int    `toml:"error_retry_interval"`
	HeartbeatInterval   int    `toml:"heartbeat_interval"`
	HeartbeatTimeout    int    `toml:"heartbeat_timeout"`
}

// Workers contains per-queue concurrency limits. Video encoding is CPU and
// memory heavy so it gets a low bound; thumbnails are cheap.
type Workers struct {
	VideoConcurrency        int `toml:"video_concurrency"`
	ThumbnailConcurrency    int `toml:"thumbnail_concurrency"`
	NotificationConcurrency int `toml:"notification_concurrency"`
}

// Encoding contains external tool paths and transcode tuning knobs.
type Encoding struct {
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	FFprobeBinary        string `toml:"ffprobe_binary"`
	ProbeTimeoutSeconds  int    `toml:"probe_timeout_seconds"`
	EncodeTimeoutSeconds int    `toml:"encode_timeout_seconds"`
	HLSSegmentSeconds    int    `toml:"hls_segment_seconds"`
	ThumbnailPercent     int    `toml:"thumbnail_percent"`
	ThumbnailMaxWidth    int    `toml:"thumbnail_max_width"`
	ThumbnailMaxHeight   int    `toml:"thumbnail_max_height"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	VideoReady     bool   `toml:"video_ready"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration object.
type Config struct {
	Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Queue         Queue         `toml:"queue"`
	Workers       Workers       `toml:"workers"`
	Encoding      Encoding      `toml:"encoding"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the user-level configuration file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "clipforge", "config.toml"), nil
}

// Load reads configuration from the provided path, falling back to the
// CLIPFORGE_CONFIG environment variable and then the default location.
// A missing file yields defaults. The resolved path is returned alongside
// the config.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = strings.TrimSpace(os.Getenv("CLIPFORGE_CONFIG"))
	}
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
	}
	resolved = expandPath(resolved)

	cfg := Default()
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.normalize()
			if err := cfg.Validate(); err != nil {
				return nil, resolved, err
			}
			return &cfg, resolved, nil
		}
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// clobber an existing file.
func WriteSample(path string) error {
	path = expandPath(strings.TrimSpace(path))
	if path == "" {
		return errors.New("config path required")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.StagingDir, c.LogDir}
	if strings.EqualFold(c.Storage.Backend, "local") {
		dirs = append(dirs, c.Storage.LocalDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.StagingDir = expandPath(c.StagingDir)
	c.LogDir = expandPath(c.LogDir)
	c.Storage.LocalDir = expandPath(c.Storage.LocalDir)
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Queue.BackoffKind = strings.ToLower(strings.TrimSpace(c.Queue.BackoffKind))
	if strings.TrimSpace(c.Encoding.FFmpegBinary) == "" {
		c.Encoding.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(c.Encoding.FFprobeBinary) == "" {
		c.Encoding.FFprobeBinary = "ffprobe"
	}
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
