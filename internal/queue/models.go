package queue

import (
	"encoding/json"
	"time"
)

// State describes where a job sits in its lifecycle.
type State string

const (
	StateWaiting   State = "waiting"
	StateDelayed   State = "delayed"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Well-known queue names. Each queue has its own worker concurrency.
const (
	QueueVideoProcessing     = "video-processing"
	QueueThumbnailGeneration = "thumbnail-generation"
	QueueNotifications       = "notifications"
)

// Kind identifies the payload schema carried by a job.
type Kind string

const (
	KindProcessVideo      Kind = "process-video"
	KindGenerateThumbnail Kind = "generate-thumbnail"
	KindSendNotification  Kind = "send-notification"
)

// BackoffKind selects how retry delays grow between attempts.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

// Job is a single unit of queued work.
type Job struct {
	ID            int64
	Queue         string
	Kind          Kind
	Payload       json.RawMessage
	Priority      int
	State         State
	AttemptsMade  int
	MaxAttempts   int
	Backoff       BackoffKind
	BackoffDelay  time.Duration
	ErrorMessage  string
	RunAt         time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time
}

// Terminal reports whether the job can no longer transition.
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}

// NextRetryDelay computes the delay before the next attempt given the job's
// backoff policy and how many attempts have already run.
func (j *Job) NextRetryDelay() time.Duration {
	if j.BackoffDelay <= 0 {
		return 0
	}
	if j.Backoff != BackoffExponential {
		return j.BackoffDelay
	}
	delay := j.BackoffDelay
	for i := 1; i < j.AttemptsMade; i++ {
		delay *= 2
	}
	return delay
}

// Stats counts jobs per state for one queue.
type Stats struct {
	Queue     string `json:"queue"`
	Waiting   int    `json:"waiting"`
	Delayed   int    `json:"delayed"`
	Active    int    `json:"active"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Paused    bool   `json:"paused"`
}

// Total sums every state.
func (s Stats) Total() int {
	return s.Waiting + s.Delayed + s.Active + s.Completed + s.Failed
}
