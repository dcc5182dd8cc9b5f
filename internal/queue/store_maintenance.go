package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PromoteDelayed moves delayed jobs whose run time has arrived back to
// waiting. Returns how many jobs were promoted.
func (s *Store) PromoteDelayed(ctx context.Context) (int64, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, updated_at = ?
         WHERE state = ? AND run_at <= ?`,
		string(StateWaiting), now, string(StateDelayed), now)
	if err != nil {
		return 0, fmt.Errorf("promote delayed jobs: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStale requeues active jobs whose heartbeat is older than timeout.
// The interrupted attempt still counts against the job's budget, so a job
// that keeps killing its worker eventually fails instead of looping forever.
func (s *Store) ReclaimStale(ctx context.Context, timeout time.Duration) (int64, error) {
	if timeout <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	cutoff := formatTime(now.Add(-timeout))
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, error_message = ?, run_at = ?, updated_at = ?,
            started_at = NULL, last_heartbeat = NULL
         WHERE state = ? AND attempts_made < max_attempts
           AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		string(StateWaiting), "reclaimed after stale heartbeat", formatTime(now), formatTime(now),
		string(StateActive), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	reclaimed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	// Jobs out of attempts go straight to failed.
	res, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, error_message = ?, finished_at = ?, updated_at = ?,
            last_heartbeat = NULL
         WHERE state = ? AND attempts_made >= max_attempts
           AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		string(StateFailed), "worker lost after final attempt", formatTime(now), formatTime(now),
		string(StateActive), cutoff)
	if err != nil {
		return reclaimed, fmt.Errorf("fail stale jobs: %w", err)
	}
	failed, err := res.RowsAffected()
	if err != nil {
		return reclaimed, err
	}
	return reclaimed + failed, nil
}

// PruneFinished trims completed and failed jobs on a queue down to the given
// retention counts, oldest first. Negative retention keeps everything.
func (s *Store) PruneFinished(ctx context.Context, queueName string, retainCompleted, retainFailed int) (int64, error) {
	var total int64
	for _, rule := range []struct {
		state  State
		retain int
	}{
		{StateCompleted, retainCompleted},
		{StateFailed, retainFailed},
	} {
		if rule.retain < 0 {
			continue
		}
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM jobs WHERE queue = ? AND state = ? AND id NOT IN (
                SELECT id FROM jobs WHERE queue = ? AND state = ?
                ORDER BY id DESC LIMIT ?
            )`,
			queueName, string(rule.state), queueName, string(rule.state), rule.retain)
		if err != nil {
			return total, fmt.Errorf("prune %s jobs: %w", rule.state, err)
		}
		pruned, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += pruned
	}
	return total, nil
}

// QueueStats returns per-state counts for one queue.
func (s *Store) QueueStats(ctx context.Context, queueName string) (Stats, error) {
	stats := Stats{Queue: queueName}
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, COUNT(1) FROM jobs WHERE queue = ? GROUP BY state`, queueName)
	if err != nil {
		return stats, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return stats, err
		}
		switch State(state) {
		case StateWaiting:
			stats.Waiting = count
		case StateDelayed:
			stats.Delayed = count
		case StateActive:
			stats.Active = count
		case StateCompleted:
			stats.Completed = count
		case StateFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	stats.Paused, err = s.IsPaused(ctx, queueName)
	return stats, err
}

// AllStats returns stats for every queue that has ever held a job, plus any
// paused queue, sorted by queue name.
func (s *Store) AllStats(ctx context.Context) ([]Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT queue FROM jobs
         UNION SELECT queue FROM queue_control
         ORDER BY queue`)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats := make([]Stats, 0, len(names))
	for _, name := range names {
		st, err := s.QueueStats(ctx, name)
		if err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// Pause stops workers from claiming new jobs on a queue. Active jobs run to
// completion.
func (s *Store) Pause(ctx context.Context, queueName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queue_control (queue, paused) VALUES (?, 1)
         ON CONFLICT(queue) DO UPDATE SET paused = 1`, queueName)
	if err != nil {
		return fmt.Errorf("pause queue: %w", err)
	}
	return nil
}

// Resume re-enables claiming on a paused queue.
func (s *Store) Resume(ctx context.Context, queueName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queue_control (queue, paused) VALUES (?, 0)
         ON CONFLICT(queue) DO UPDATE SET paused = 0`, queueName)
	if err != nil {
		return fmt.Errorf("resume queue: %w", err)
	}
	return nil
}

// IsPaused reports whether claiming is disabled for a queue.
func (s *Store) IsPaused(ctx context.Context, queueName string) (bool, error) {
	var paused int
	err := s.db.QueryRowContext(ctx,
		`SELECT paused FROM queue_control WHERE queue = ?`, queueName).Scan(&paused)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check queue pause state: %w", err)
	}
	return paused != 0, nil
}
