package videostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"clipforge/internal/config"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS videos (
    video_id TEXT PRIMARY KEY,
    status TEXT NOT NULL DEFAULT 'processing',
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    bitrate INTEGER NOT NULL DEFAULT 0,
    codec TEXT NOT NULL DEFAULT '',
    thumbnail_url TEXT NOT NULL DEFAULT '',
    hls_url TEXT NOT NULL DEFAULT '',
    qualities_json TEXT NOT NULL DEFAULT '[]',
    error_message TEXT NOT NULL DEFAULT '',
    processed_at TEXT,
    updated_at TEXT NOT NULL
);`

// SQLiteStore persists video metadata in its own SQLite database next to the
// queue database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the video metadata database.
func OpenSQLite(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.LogDir, "videos.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open videos db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create videos schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ensure(ctx context.Context, videoID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (video_id, status, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(video_id) DO NOTHING`,
		videoID, StatusProcessing, nowString())
	if err != nil {
		return fmt.Errorf("ensure video record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkProcessing(ctx context.Context, videoID string) error {
	return s.update(ctx, videoID,
		`UPDATE videos SET status = ?, error_message = '', updated_at = ? WHERE video_id = ?`,
		StatusProcessing, nowString(), videoID)
}

func (s *SQLiteStore) MarkReady(ctx context.Context, videoID string, update ReadyUpdate) error {
	qualities, err := json.Marshal(update.Qualities)
	if err != nil {
		return fmt.Errorf("marshal qualities: %w", err)
	}
	now := nowString()
	return s.update(ctx, videoID,
		`UPDATE videos SET
            status = ?, duration_seconds = ?, width = ?, height = ?, bitrate = ?,
            codec = ?, thumbnail_url = CASE WHEN ? != '' THEN ? ELSE thumbnail_url END,
            hls_url = ?, qualities_json = ?, error_message = '',
            processed_at = ?, updated_at = ?
         WHERE video_id = ?`,
		StatusReady, update.DurationSeconds, update.Width, update.Height, update.Bitrate,
		update.Codec, update.ThumbnailURL, update.ThumbnailURL,
		update.HLSURL, string(qualities),
		now, now, videoID)
}

func (s *SQLiteStore) MarkFailed(ctx context.Context, videoID string, reason string) error {
	return s.update(ctx, videoID,
		`UPDATE videos SET status = ?, error_message = ?, updated_at = ? WHERE video_id = ?`,
		StatusFailed, reason, nowString(), videoID)
}

func (s *SQLiteStore) SetThumbnail(ctx context.Context, videoID string, thumbnailURL string) error {
	return s.update(ctx, videoID,
		`UPDATE videos SET thumbnail_url = ?, updated_at = ? WHERE video_id = ?`,
		thumbnailURL, nowString(), videoID)
}

func (s *SQLiteStore) Get(ctx context.Context, videoID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, status, duration_seconds, width, height, bitrate, codec,
            thumbnail_url, hls_url, qualities_json, error_message, processed_at, updated_at
         FROM videos WHERE video_id = ?`, videoID)

	var (
		record      Record
		qualities   string
		processedAt sql.NullString
		updatedAt   string
	)
	err := row.Scan(&record.VideoID, &record.Status, &record.DurationSeconds,
		&record.Width, &record.Height, &record.Bitrate, &record.Codec,
		&record.ThumbnailURL, &record.HLSURL, &qualities, &record.Error,
		&processedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("get video record: %w", err)
	}

	if err := json.Unmarshal([]byte(qualities), &record.Qualities); err != nil {
		return nil, fmt.Errorf("parse qualities: %w", err)
	}
	if record.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if processedAt.Valid && processedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, processedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse processed_at: %w", err)
		}
		record.ProcessedAt = &t
	}
	return &record, nil
}

func (s *SQLiteStore) update(ctx context.Context, videoID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update video record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, videoID)
	}
	return nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
