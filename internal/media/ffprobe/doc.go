// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Metadata: the video-stream subset the transcoding pipeline consumes
//   - ProbeError: classified inspection failures (no video stream, timeout)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - InspectVideo: probes and extracts Metadata from the first video stream
package ffprobe
