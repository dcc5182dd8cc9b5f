// Package encoding turns a source video into a ladder of H.264 MP4 variants
// using ffmpeg. Preset selection is driven by the source's probed height;
// variants encode concurrently with per-variant success tracking so one
// failed rendition does not sink the rest.
package encoding
