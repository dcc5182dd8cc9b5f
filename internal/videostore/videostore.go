package videostore

import (
	"context"
	"errors"
	"time"
)

// Status values the pipeline transitions a video through. The record itself
// is created elsewhere (upload path); the pipeline never creates or deletes
// it, only moves status and fills in derived fields.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// ErrNotFound is returned when no record exists for a video ID.
var ErrNotFound = errors.New("video not found")

// Quality is one rendition reference persisted on a video record.
type Quality struct {
	Quality   string `json:"quality"`
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bitrate   int    `json:"bitrate"`
	SizeBytes int64  `json:"size"`
}

// Record is the pipeline's view of a video's metadata.
type Record struct {
	VideoID         string
	Status          string
	DurationSeconds int
	Width           int
	Height          int
	Bitrate         int64
	Codec           string
	ThumbnailURL    string
	HLSURL          string
	Qualities       []Quality
	Error           string
	ProcessedAt     *time.Time
	UpdatedAt       time.Time
}

// ReadyUpdate carries everything written when a video reaches ready.
type ReadyUpdate struct {
	DurationSeconds int
	Width           int
	Height          int
	Bitrate         int64
	Codec           string
	ThumbnailURL    string
	HLSURL          string
	Qualities       []Quality
}

// Store is the narrow metadata interface the pipeline writes through.
type Store interface {
	// Ensure creates a bare record for the video ID if none exists. The
	// upload path normally does this; Ensure keeps the pipeline usable
	// standalone.
	Ensure(ctx context.Context, videoID string) error
	MarkProcessing(ctx context.Context, videoID string) error
	MarkReady(ctx context.Context, videoID string, update ReadyUpdate) error
	MarkFailed(ctx context.Context, videoID string, reason string) error
	SetThumbnail(ctx context.Context, videoID string, thumbnailURL string) error
	Get(ctx context.Context, videoID string) (*Record, error)
}
