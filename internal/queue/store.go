package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string

	defaultMaxAttempts  int
	defaultBackoff      BackoffKind
	defaultBackoffDelay time.Duration
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:                  db,
		path:                dbPath,
		defaultMaxAttempts:  cfg.Queue.MaxAttempts,
		defaultBackoff:      BackoffKind(cfg.Queue.BackoffKind),
		defaultBackoffDelay: time.Duration(cfg.Queue.BackoffDelaySeconds) * time.Second,
	}
	if store.defaultMaxAttempts <= 0 {
		store.defaultMaxAttempts = 1
	}
	if store.defaultBackoff == "" {
		store.defaultBackoff = BackoffExponential
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the queue database.
func (s *Store) Path() string {
	return s.path
}

// EnqueueOptions tune how a single job is scheduled and retried. Zero values
// fall back to the store-wide defaults taken from configuration.
type EnqueueOptions struct {
	Priority     int
	Delay        time.Duration
	MaxAttempts  int
	Backoff      BackoffKind
	BackoffDelay time.Duration
}

// Enqueue validates the payload for the given kind and inserts a new job.
// Jobs with a positive Delay start in the delayed state and become claimable
// once their run time passes.
func (s *Store) Enqueue(ctx context.Context, queueName string, kind Kind, payload any, opts EnqueueOptions) (*Job, error) {
	queueName = strings.TrimSpace(queueName)
	if queueName == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", "queue name is required", nil)
	}

	raw, err := marshalPayload(kind, payload)
	if err != nil {
		return nil, err
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.defaultMaxAttempts
	}
	backoff := opts.Backoff
	if backoff == "" {
		backoff = s.defaultBackoff
	}
	backoffDelay := opts.BackoffDelay
	if backoffDelay <= 0 {
		backoffDelay = s.defaultBackoffDelay
	}

	now := time.Now().UTC()
	runAt := now
	state := StateWaiting
	if opts.Delay > 0 {
		runAt = now.Add(opts.Delay)
		state = StateDelayed
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            queue, kind, payload_json, priority, state,
            attempts_made, max_attempts, backoff_kind, backoff_delay_ms,
            run_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		queueName,
		string(kind),
		string(raw),
		opts.Priority,
		string(state),
		maxAttempts,
		string(backoff),
		backoffDelay.Milliseconds(),
		formatTime(runAt),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID loads a single job.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectJobSQL+` WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get job", fmt.Sprintf("job %d not found", id), nil)
	}
	return job, err
}

// List returns jobs on a queue, newest first. Empty state matches all states;
// limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, queueName string, state State, limit int) ([]*Job, error) {
	query := selectJobSQL + ` WHERE queue = ?`
	args := []any{queueName}
	if state != "" {
		query += ` AND state = ?`
		args = append(args, string(state))
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Remove deletes a job that is not currently running.
func (s *Store) Remove(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = ? AND state != ?`, id, string(StateActive))
	if err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove job rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "queue", "remove job",
			fmt.Sprintf("job %d is active or does not exist", id), nil)
	}
	return nil
}

// Clear removes all jobs on a queue regardless of state. Used by the CLI and
// tests; running jobs are abandoned, so callers should stop workers first.
func (s *Store) Clear(ctx context.Context, queueName string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE queue = ?`, queueName)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

const selectJobSQL = `SELECT
    id, queue, kind, payload_json, priority, state,
    attempts_made, max_attempts, backoff_kind, backoff_delay_ms,
    error_message, run_at, created_at, updated_at,
    started_at, finished_at, last_heartbeat
FROM jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job            Job
		kind           string
		payload        string
		state          string
		backoffKind    string
		backoffDelayMS int64
		errorMessage   sql.NullString
		runAt          string
		createdAt      string
		updatedAt      string
		startedAt      sql.NullString
		finishedAt     sql.NullString
		lastHeartbeat  sql.NullString
	)

	err := row.Scan(
		&job.ID, &job.Queue, &kind, &payload, &job.Priority, &state,
		&job.AttemptsMade, &job.MaxAttempts, &backoffKind, &backoffDelayMS,
		&errorMessage, &runAt, &createdAt, &updatedAt,
		&startedAt, &finishedAt, &lastHeartbeat,
	)
	if err != nil {
		return nil, err
	}

	job.Kind = Kind(kind)
	job.Payload = json.RawMessage(payload)
	job.State = State(state)
	job.Backoff = BackoffKind(backoffKind)
	job.BackoffDelay = time.Duration(backoffDelayMS) * time.Millisecond
	if errorMessage.Valid {
		job.ErrorMessage = errorMessage.String
	}

	if job.RunAt, err = parseTime(runAt); err != nil {
		return nil, fmt.Errorf("parse run_at: %w", err)
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if job.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if job.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	if job.LastHeartbeat, err = parseNullableTime(lastHeartbeat); err != nil {
		return nil, fmt.Errorf("parse last_heartbeat: %w", err)
	}

	return &job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
