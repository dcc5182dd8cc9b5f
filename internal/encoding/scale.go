package encoding

import "fmt"

// ScaleFilter builds the ffmpeg -vf expression for downscaling a source to a
// preset. It returns "" when the source height does not exceed the preset
// height: the encoder never upscales, and width alone does not trigger
// scaling. Output dimensions are forced even because yuv420p requires it.
func ScaleFilter(sourceWidth, sourceHeight int, preset Preset) string {
	if sourceWidth <= 0 || sourceHeight <= 0 {
		return ""
	}
	if sourceHeight <= preset.Height {
		return ""
	}

	targetHeight := preset.Height
	targetWidth := (sourceWidth*targetHeight + sourceHeight/2) / sourceHeight
	if preset.MaxWidth > 0 && targetWidth > preset.MaxWidth {
		targetWidth = preset.MaxWidth
	}
	targetWidth = evenDown(targetWidth)
	targetHeight = evenDown(targetHeight)
	if targetWidth <= 0 || targetHeight <= 0 {
		return ""
	}
	return fmt.Sprintf("scale=%d:%d:flags=lanczos+accurate_rnd", targetWidth, targetHeight)
}

// TargetDimensions predicts the encoded frame size for a preset: the scaled
// size when the filter applies, the source size untouched otherwise.
func TargetDimensions(sourceWidth, sourceHeight int, preset Preset) (int, int) {
	if sourceWidth <= 0 || sourceHeight <= 0 {
		return sourceWidth, sourceHeight
	}
	if sourceHeight <= preset.Height {
		return sourceWidth, sourceHeight
	}
	targetHeight := preset.Height
	targetWidth := (sourceWidth*targetHeight + sourceHeight/2) / sourceHeight
	if preset.MaxWidth > 0 && targetWidth > preset.MaxWidth {
		targetWidth = preset.MaxWidth
	}
	return evenDown(targetWidth), evenDown(targetHeight)
}

func evenDown(v int) int {
	if v%2 != 0 {
		v--
	}
	return v
}
