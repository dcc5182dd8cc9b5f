package api

import (
	"sort"
	"time"

	"clipforge/internal/queue"
)

// FromJob converts a queue job into its API view.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	return JobView{
		ID:           job.ID,
		Queue:        job.Queue,
		Kind:         string(job.Kind),
		Payload:      job.Payload,
		Priority:     job.Priority,
		State:        string(job.State),
		AttemptsMade: job.AttemptsMade,
		MaxAttempts:  job.MaxAttempts,
		ErrorMessage: job.ErrorMessage,
		RunAt:        formatAPITime(job.RunAt),
		CreatedAt:    formatAPITime(job.CreatedAt),
		UpdatedAt:    formatAPITime(job.UpdatedAt),
		StartedAt:    formatOptionalAPITime(job.StartedAt),
		FinishedAt:   formatOptionalAPITime(job.FinishedAt),
	}
}

// FromJobs converts a slice of queue jobs, preserving order.
func FromJobs(jobs []*queue.Job) []JobView {
	if len(jobs) == 0 {
		return nil
	}
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views
}

// FromStats converts queue stats into the API view with the total filled in.
func FromStats(stats queue.Stats) QueueStatsView {
	return QueueStatsView{
		Queue:     stats.Queue,
		Waiting:   stats.Waiting,
		Delayed:   stats.Delayed,
		Active:    stats.Active,
		Completed: stats.Completed,
		Failed:    stats.Failed,
		Total:     stats.Total(),
		Paused:    stats.Paused,
	}
}

// FromAllStats converts per-queue stats sorted by queue name for stable
// output.
func FromAllStats(stats []queue.Stats) []QueueStatsView {
	if len(stats) == 0 {
		return nil
	}
	views := make([]QueueStatsView, 0, len(stats))
	for _, s := range stats {
		views = append(views, FromStats(s))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Queue < views[j].Queue })
	return views
}

// SortJobsNewestFirst orders job views by CreatedAt descending, breaking ties
// by ID descending.
func SortJobsNewestFirst(jobs []JobView) []JobView {
	if len(jobs) == 0 {
		return nil
	}
	sorted := make([]JobView, len(jobs))
	copy(sorted, jobs)
	sort.Slice(sorted, func(i, j int) bool {
		ti := ParseAPITime(sorted[i].CreatedAt)
		tj := ParseAPITime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

func formatAPITime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatOptionalAPITime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatAPITime(*t)
}

// ParseAPITime parses an API timestamp, returning the zero time on failure.
func ParseAPITime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
