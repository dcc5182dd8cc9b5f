package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Failure reasons reported by ProbeError.
const (
	ReasonNoVideoStream = "no-video-stream"
	ReasonTimeout       = "probe-timeout"
	ReasonFailed        = "probe-failed"
)

// ProbeError classifies why an inspection could not produce usable metadata.
type ProbeError struct {
	Reason string
	Path   string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ffprobe %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("ffprobe %s: %s", e.Path, e.Reason)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Inspect executes ffprobe against the provided path and decodes the JSON
// response. A timeout <= 0 disables the deadline.
func Inspect(ctx context.Context, binary, path string, timeout time.Duration) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		reason := ReasonFailed
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return Result{}, &ProbeError{
			Reason: reason,
			Path:   path,
			Err:    fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))),
		}
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, &ProbeError{Reason: ReasonFailed, Path: path, Err: fmt.Errorf("parse output: %w", err)}
	}
	result.raw = append([]byte(nil), output...)
	return result, nil
}

// Metadata is the subset of probe output the pipeline keys decisions off of.
type Metadata struct {
	Width           int
	Height          int
	FrameRateNum    int
	FrameRateDen    int
	DurationSeconds float64
	Codec           string
	SizeBytes       int64
	BitRate         int64
}

// FrameRate returns the source frame rate in frames per second, or 0 when the
// probe did not report one.
func (m Metadata) FrameRate() float64 {
	if m.FrameRateDen == 0 {
		return 0
	}
	return float64(m.FrameRateNum) / float64(m.FrameRateDen)
}

// InspectVideo probes a file and extracts metadata from its first video
// stream. Files without a video stream yield a ProbeError with
// ReasonNoVideoStream.
func InspectVideo(ctx context.Context, binary, path string, timeout time.Duration) (Metadata, error) {
	result, err := Inspect(ctx, binary, path, timeout)
	if err != nil {
		return Metadata{}, err
	}

	stream, ok := result.FirstVideoStream()
	if !ok {
		return Metadata{}, &ProbeError{Reason: ReasonNoVideoStream, Path: path}
	}

	meta := Metadata{
		Width:           stream.Width,
		Height:          stream.Height,
		DurationSeconds: result.DurationSeconds(),
		Codec:           stream.CodecName,
		SizeBytes:       result.SizeBytes(),
		BitRate:         result.BitRate(),
	}
	meta.FrameRateNum, meta.FrameRateDen = parseFrameRate(stream.RFrameRate)
	if meta.DurationSeconds == 0 || math.IsNaN(meta.DurationSeconds) {
		meta.DurationSeconds = parseFloatOrZero(stream.Duration)
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return Metadata{}, &ProbeError{
			Reason: ReasonFailed,
			Path:   path,
			Err:    fmt.Errorf("video stream reports %dx%d", stream.Width, stream.Height),
		}
	}
	return meta, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// FirstVideoStream returns the first stream with a video codec type.
func (r Result) FirstVideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

// parseFrameRate handles ffprobe's rational notation, e.g. "30000/1001".
func parseFrameRate(value string) (int, int) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return 0, 0
	}
	num, den, found := strings.Cut(value, "/")
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n <= 0 {
		return 0, 0
	}
	if !found {
		return n, 1
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil || d <= 0 {
		return 0, 0
	}
	return n, d
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

func parseFloatOrZero(value string) float64 {
	parsed := parseFloat(value)
	if math.IsNaN(parsed) {
		return 0
	}
	return parsed
}
