// Package hls segments encoded MP4 variants into HTTP Live Streaming
// playlists: one sub-playlist plus .ts segments per variant, referenced by a
// master playlist with bandwidth and resolution hints.
package hls
