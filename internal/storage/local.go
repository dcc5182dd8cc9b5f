package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/fileutil"
	"clipforge/internal/services"
)

// LocalStore keeps objects on the local filesystem under a base directory.
// It serves single-host deployments and tests; URLs are formed by joining
// the configured public base URL with the key.
type LocalStore struct {
	baseDir string
	baseURL string
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(baseDir, publicBaseURL string) (*LocalStore, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "local store",
			"local_dir is required for the local backend", nil)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "local store", baseDir, err)
	}
	return &LocalStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (l *LocalStore) PutFile(ctx context.Context, key, localPath, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := filepath.Join(l.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "put object", key, err)
	}
	if err := fileutil.CopyFile(localPath, target); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "put object", key, err)
	}
	return l.URL(key), nil
}

func (l *LocalStore) FetchToFile(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	source := filepath.Join(l.baseDir, filepath.FromSlash(key))
	if _, err := os.Stat(source); errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrNotFound, "storage", "fetch object", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "storage", "fetch object", key, err)
	}
	if err := fileutil.CopyFile(source, localPath); err != nil {
		return services.Wrap(services.ErrTransient, "storage", "fetch object", key, err)
	}
	return nil
}

func (l *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(l.baseDir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrTransient, "storage", "delete object", key, err)
	}
	return nil
}

func (l *LocalStore) URL(key string) string {
	if l.baseURL == "" {
		return key
	}
	return l.baseURL + "/" + key
}
