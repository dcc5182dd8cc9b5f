// Package storage provides the object store used for encoded variants, HLS
// trees and thumbnails, with S3 and local-filesystem backends behind one
// interface and a stable per-video key layout.
package storage
