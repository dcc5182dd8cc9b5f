package encoding

import (
	"fmt"
	"math"

	"clipforge/internal/media/ffprobe"
)

const defaultFrameRate = 30.0

// BuildVariantArgs assembles the ffmpeg argument list for encoding one
// preset from the source described by meta. The keyframe interval is two
// seconds of source frames with scene-cut insertion disabled, which keeps
// GOP boundaries aligned across renditions for clean HLS segmentation.
func BuildVariantArgs(inputPath string, meta ffprobe.Metadata, preset Preset, outputPath string) []string {
	fps := meta.FrameRate()
	if fps <= 0 {
		fps = defaultFrameRate
	}
	gop := int(math.Round(fps * 2))
	if gop < 1 {
		gop = 1
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "faster",
		"-crf", fmt.Sprintf("%d", preset.CRF),
		"-maxrate", fmt.Sprintf("%dk", preset.MaxRateKbps),
		"-bufsize", fmt.Sprintf("%dk", preset.MaxRateKbps*2),
	}
	if filter := ScaleFilter(meta.Width, meta.Height, preset); filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args,
		"-profile:v", preset.H264Profile(),
		"-level", "4.0",
		"-g", fmt.Sprintf("%d", gop),
		"-sc_threshold", "0",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", preset.AudioBitrateKbps()),
		outputPath,
	)
	return args
}
