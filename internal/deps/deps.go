package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"clipforge/internal/config"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Required lists the external tools for the configured encoding binaries.
func Required(cfg *config.Config) []Requirement {
	ffmpeg := "ffmpeg"
	ffprobe := "ffprobe"
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Encoding.FFmpegBinary); trimmed != "" {
			ffmpeg = trimmed
		}
		if trimmed := strings.TrimSpace(cfg.Encoding.FFprobeBinary); trimmed != "" {
			ffprobe = trimmed
		}
	}
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Encodes variants, HLS segments and thumbnails"},
		{Name: "FFprobe", Command: ffprobe, Description: "Inspects source video metadata"},
	}
}

// Check evaluates the configured tool requirements.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Required(cfg))
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
