package hls

import (
	"fmt"
	"os"
	"strings"

	"clipforge/internal/services"
)

type masterEntry struct {
	Name      string
	Bandwidth int
	Width     int
	Height    int
}

// writeMaster renders the master playlist. Entry order is preserved so the
// manifest is deterministic for a given selection.
func writeMaster(path string, entries []masterEntry) error {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	sb.WriteString("#EXT-X-VERSION:3\n")
	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d,NAME=\"%s\"\n",
			entry.Bandwidth, entry.Width, entry.Height, entry.Name))
		sb.WriteString(entry.Name + "/index.m3u8\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "hls", "write master playlist", path, err)
	}
	return nil
}
