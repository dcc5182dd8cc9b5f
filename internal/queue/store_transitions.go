package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"clipforge/internal/services"
)

// Claim atomically moves the next runnable job on a queue to the active state
// and returns it. Jobs are ordered by priority (highest first) then insertion
// order. Returns (nil, nil) when nothing is runnable or the queue is paused.
func (s *Store) Claim(ctx context.Context, queueName string) (*Job, error) {
	paused, err := s.IsPaused(ctx, queueName)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM jobs
         WHERE queue = ? AND state = ? AND run_at <= ?
         ORDER BY priority DESC, id ASC
         LIMIT 1`,
		queueName, string(StateWaiting), formatTime(now),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select claimable job: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET
            state = ?, attempts_made = attempts_made + 1,
            started_at = ?, last_heartbeat = ?, updated_at = ?, error_message = NULL
         WHERE id = ? AND state = ?`,
		string(StateActive), formatTime(now), formatTime(now), formatTime(now),
		id, string(StateWaiting),
	)
	if err != nil {
		return nil, fmt.Errorf("claim job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		// Lost the race to another worker.
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return s.GetByID(ctx, id)
}

// MarkCompleted finishes a job successfully.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, finished_at = ?, updated_at = ?, error_message = NULL
         WHERE id = ? AND state = ?`,
		string(StateCompleted), now, now, id, string(StateActive))
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return requireTransition(res, id, "complete")
}

// MarkFailed records a failed attempt. If the job has attempts remaining it
// is rescheduled with backoff; otherwise it lands in the failed state with
// the error message preserved for inspection.
func (s *Store) MarkFailed(ctx context.Context, id int64, jobErr error) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.State != StateActive {
		return services.Wrap(services.ErrValidation, "queue", "fail job",
			fmt.Sprintf("job %d is %s, not active", id, job.State), nil)
	}

	message := "unknown error"
	if jobErr != nil {
		message = strings.TrimSpace(jobErr.Error())
	}

	now := time.Now().UTC()
	if job.AttemptsMade < job.MaxAttempts {
		runAt := now.Add(job.NextRetryDelay())
		res, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET state = ?, error_message = ?, run_at = ?, updated_at = ?,
                last_heartbeat = NULL
             WHERE id = ? AND state = ?`,
			string(StateDelayed), message, formatTime(runAt), formatTime(now),
			id, string(StateActive))
		if err != nil {
			return fmt.Errorf("schedule retry: %w", err)
		}
		return requireTransition(res, id, "retry")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, error_message = ?, finished_at = ?, updated_at = ?,
            last_heartbeat = NULL
         WHERE id = ? AND state = ?`,
		string(StateFailed), message, formatTime(now), formatTime(now),
		id, string(StateActive))
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireTransition(res, id, "fail")
}

// Retry resets a failed job back to waiting with a fresh attempt budget.
func (s *Store) Retry(ctx context.Context, id int64) error {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, attempts_made = 0, error_message = NULL,
            run_at = ?, updated_at = ?, started_at = NULL, finished_at = NULL,
            last_heartbeat = NULL
         WHERE id = ? AND state = ?`,
		string(StateWaiting), now, now, id, string(StateFailed))
	if err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("retry rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "queue", "retry job",
			fmt.Sprintf("job %d is not in the failed state", id), nil)
	}
	return nil
}

// Heartbeat records liveness for an active job. Stale heartbeats are how the
// reclaimer detects workers that died mid-job.
func (s *Store) Heartbeat(ctx context.Context, id int64) error {
	now := formatTime(time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND state = ?`,
		now, now, id, string(StateActive))
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

func requireTransition(res sql.Result, id int64, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "queue", op+" job",
			fmt.Sprintf("job %d is not active", id), nil)
	}
	return nil
}
