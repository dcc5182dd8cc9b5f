package pipeline

import (
	"context"

	"clipforge/internal/notifications"
	"clipforge/internal/queue"
)

// HandleSendNotification is the handler for the notifications queue.
// Delivery errors propagate so the queue retries them; the originating video
// job has already completed by the time these run.
func (p *Pipeline) HandleSendNotification(ctx context.Context, job *queue.Job) error {
	decoded, err := queue.DecodePayload(job.Kind, job.Payload)
	if err != nil {
		return err
	}
	payload := decoded.(queue.SendNotificationPayload)

	return p.notifier.Publish(ctx, notifications.Event(payload.Event), notifications.Payload{
		VideoID: payload.VideoID,
		Title:   payload.Title,
		Message: payload.Message,
	})
}
