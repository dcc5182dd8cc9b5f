package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/fileutil"
	"clipforge/internal/services"
)

// acquireSource materializes the job's source video inside the working
// directory and returns its local path. Three source shapes are accepted: an
// existing local file path, an http(s) URL, or an object-store key.
func (p *Pipeline) acquireSource(ctx context.Context, sourcePath, sourceURL, workDir string) (string, error) {
	target := filepath.Join(workDir, "source"+sourceExtension(sourcePath, sourceURL))

	if path := strings.TrimSpace(sourcePath); path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := fileutil.CopyFileVerified(path, target); err != nil {
				return "", services.Wrap(services.ErrTransient, "pipeline", "copy source", path, err)
			}
			return target, nil
		}
	}

	url := strings.TrimSpace(sourceURL)
	if url == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "acquire source",
			"source path missing and no source url provided", nil)
	}

	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		if err := downloadHTTP(ctx, url, target); err != nil {
			return "", err
		}
		return target, nil
	}

	// Anything else is an object-store key.
	if err := p.objects.FetchToFile(ctx, url, target); err != nil {
		return "", err
	}
	return target, nil
}

func downloadHTTP(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "pipeline", "download source", url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "download source", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "pipeline", "download source",
			fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	}

	out, err := os.Create(target)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "download source", target, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(target)
		return services.Wrap(services.ErrTransient, "pipeline", "download source", url, err)
	}
	return out.Close()
}

func sourceExtension(sourcePath, sourceURL string) string {
	for _, candidate := range []string{sourcePath, sourceURL} {
		if ext := filepath.Ext(strings.TrimSpace(candidate)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return ".mp4"
}
