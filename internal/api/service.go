package api

import (
	"context"
	"errors"

	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// QueueReader abstracts the queue persistence reads the API needs.
type QueueReader interface {
	List(ctx context.Context, queueName string, state queue.State, limit int) ([]*queue.Job, error)
	GetByID(ctx context.Context, id int64) (*queue.Job, error)
	AllStats(ctx context.Context) ([]queue.Stats, error)
	QueueStats(ctx context.Context, queueName string) (queue.Stats, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns jobs filtered by queue and state, newest first.
func (s *QueueService) List(ctx context.Context, queueName string, state queue.State, limit int) ([]JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, queueName, state, limit)
	if err != nil {
		return nil, err
	}
	return SortJobsNewestFirst(FromJobs(jobs)), nil
}

// Stats returns per-queue counts for every known queue.
func (s *QueueService) Stats(ctx context.Context) ([]QueueStatsView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.AllStats(ctx)
	if err != nil {
		return nil, err
	}
	return FromAllStats(stats), nil
}

// Describe fetches a single job by ID. A missing job returns nil, nil.
func (s *QueueService) Describe(ctx context.Context, id int64) (*JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	view := FromJob(job)
	return &view, nil
}
