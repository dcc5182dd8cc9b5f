package storage

import (
	"context"
	"fmt"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// ObjectStore abstracts the blob store holding encoded variants, HLS trees
// and thumbnails. Implementations must make PutFile idempotent per key so a
// rerun for the same video overwrites its own prior outputs.
type ObjectStore interface {
	// PutFile uploads a local file under key and returns its public URL.
	PutFile(ctx context.Context, key, localPath, contentType string) (string, error)
	// FetchToFile downloads the object at key into localPath.
	FetchToFile(ctx context.Context, key, localPath string) error
	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL an object would have under key.
	URL(key string) string
}

// NewFromConfig builds the object store selected by configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", "local":
		return NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:     cfg.Storage.S3Bucket,
			Region:     cfg.Storage.S3Region,
			Endpoint:   cfg.Storage.S3Endpoint,
			CDNBaseURL: cfg.Storage.CDNBaseURL,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "select backend",
			fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend), nil)
	}
}

// ContentTypeFor maps well-known pipeline artifacts to their MIME types.
func ContentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".m3u8"):
		return "application/x-mpegURL"
	case strings.HasSuffix(path, ".ts"):
		return "video/MP2T"
	case strings.HasSuffix(path, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
