package videostore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and as a stand-in when the
// real metadata service lives elsewhere.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (m *MemoryStore) Ensure(_ context.Context, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[videoID]; !ok {
		m.records[videoID] = &Record{
			VideoID:   videoID,
			Status:    StatusProcessing,
			UpdatedAt: time.Now().UTC(),
		}
	}
	return nil
}

func (m *MemoryStore) MarkProcessing(_ context.Context, videoID string) error {
	return m.mutate(videoID, func(r *Record) {
		r.Status = StatusProcessing
		r.Error = ""
	})
}

func (m *MemoryStore) MarkReady(_ context.Context, videoID string, update ReadyUpdate) error {
	now := time.Now().UTC()
	return m.mutate(videoID, func(r *Record) {
		r.Status = StatusReady
		r.DurationSeconds = update.DurationSeconds
		r.Width = update.Width
		r.Height = update.Height
		r.Bitrate = update.Bitrate
		r.Codec = update.Codec
		if update.ThumbnailURL != "" {
			r.ThumbnailURL = update.ThumbnailURL
		}
		r.HLSURL = update.HLSURL
		r.Qualities = append([]Quality(nil), update.Qualities...)
		r.Error = ""
		r.ProcessedAt = &now
	})
}

func (m *MemoryStore) MarkFailed(_ context.Context, videoID string, reason string) error {
	return m.mutate(videoID, func(r *Record) {
		r.Status = StatusFailed
		r.Error = reason
	})
}

func (m *MemoryStore) SetThumbnail(_ context.Context, videoID string, thumbnailURL string) error {
	return m.mutate(videoID, func(r *Record) {
		r.ThumbnailURL = thumbnailURL
	})
}

func (m *MemoryStore) Get(_ context.Context, videoID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[videoID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, videoID)
	}
	copied := *record
	copied.Qualities = append([]Quality(nil), record.Qualities...)
	return &copied, nil
}

func (m *MemoryStore) mutate(videoID string, fn func(*Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[videoID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, videoID)
	}
	fn(record)
	record.UpdatedAt = time.Now().UTC()
	return nil
}
