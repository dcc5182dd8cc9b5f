package storage

import (
	"context"
	"io/fs"
	"path/filepath"

	"clipforge/internal/services"
)

// PutTree uploads every file under localDir, keyed by keyFor(relative path).
// Returns the URL of each uploaded object keyed by its relative path. Upload
// stops at the first error; partially uploaded trees are safe to re-put
// because keys are deterministic.
func PutTree(ctx context.Context, store ObjectStore, localDir string, keyFor func(rel string) string) (map[string]string, error) {
	urls := make(map[string]string)
	err := filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		url, err := store.PutFile(ctx, keyFor(rel), path, ContentTypeFor(path))
		if err != nil {
			return err
		}
		urls[rel] = url
		return nil
	})
	if err != nil {
		return urls, services.Wrap(services.ErrTransient, "storage", "put tree", localDir, err)
	}
	return urls, nil
}
