package storage

import "path"

// Key layout is stable and per-video: reprocessing a video overwrites its
// own objects instead of accumulating new ones.

// VariantKey is the object key for one encoded rendition.
func VariantKey(videoID, presetName string) string {
	return path.Join("videos", videoID, presetName+".mp4")
}

// HLSKey is the object key for a file inside a video's HLS tree. rel is the
// path relative to the manifest root, e.g. "master.m3u8" or
// "720p/segment000.ts".
func HLSKey(videoID, rel string) string {
	return path.Join("videos", videoID, "hls", rel)
}

// MasterPlaylistKey is the object key of a video's master playlist.
func MasterPlaylistKey(videoID string) string {
	return HLSKey(videoID, "master.m3u8")
}

// ThumbnailKey is the object key for a video's poster frame.
func ThumbnailKey(videoID string) string {
	return path.Join("thumbnails", videoID+".jpg")
}
