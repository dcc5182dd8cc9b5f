package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"clipforge/internal/services"
)

// ProcessVideoPayload describes a full transcoding run for one uploaded video.
type ProcessVideoPayload struct {
	VideoID    string `json:"video_id"`
	UserID     string `json:"user_id,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

// Validate checks required fields before the payload is accepted.
func (p ProcessVideoPayload) Validate() error {
	if strings.TrimSpace(p.VideoID) == "" {
		return services.Wrap(services.ErrValidation, "queue", "validate payload", "video_id is required", nil)
	}
	if strings.TrimSpace(p.SourcePath) == "" && strings.TrimSpace(p.SourceURL) == "" {
		return services.Wrap(services.ErrValidation, "queue", "validate payload", "either source_path or source_url is required", nil)
	}
	return nil
}

// GenerateThumbnailPayload requests a standalone thumbnail for a video.
type GenerateThumbnailPayload struct {
	VideoID    string `json:"video_id"`
	SourcePath string `json:"source_path,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

func (p GenerateThumbnailPayload) Validate() error {
	if strings.TrimSpace(p.VideoID) == "" {
		return services.Wrap(services.ErrValidation, "queue", "validate payload", "video_id is required", nil)
	}
	if strings.TrimSpace(p.SourcePath) == "" && strings.TrimSpace(p.SourceURL) == "" {
		return services.Wrap(services.ErrValidation, "queue", "validate payload", "either source_path or source_url is required", nil)
	}
	return nil
}

// SendNotificationPayload carries an event to publish out of band.
type SendNotificationPayload struct {
	Event   string `json:"event"`
	VideoID string `json:"video_id,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

func (p SendNotificationPayload) Validate() error {
	if strings.TrimSpace(p.Event) == "" {
		return services.Wrap(services.ErrValidation, "queue", "validate payload", "event is required", nil)
	}
	return nil
}

type validator interface {
	Validate() error
}

// marshalPayload serializes and validates a payload for the given kind.
// Payloads arrive as typed structs; an unknown kind or a payload whose shape
// does not match the kind is rejected before anything touches the database.
func marshalPayload(kind Kind, payload any) (json.RawMessage, error) {
	switch kind {
	case KindProcessVideo, KindGenerateThumbnail, KindSendNotification:
	default:
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", fmt.Sprintf("unknown job kind %q", kind), nil)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", "marshal payload", err)
	}

	decoded, err := DecodePayload(kind, raw)
	if err != nil {
		return nil, err
	}
	if v, ok := decoded.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// DecodePayload parses raw payload JSON into the concrete type for the kind.
// Decoding is strict: fields that do not belong to the kind's schema are
// rejected rather than dropped, so a payload enqueued under the wrong kind
// fails loudly instead of running with zero values.
func DecodePayload(kind Kind, raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()

	switch kind {
	case KindProcessVideo:
		var p ProcessVideoPayload
		if err := dec.Decode(&p); err != nil {
			return nil, services.Wrap(services.ErrValidation, "queue", "decode payload", string(kind), err)
		}
		return p, nil
	case KindGenerateThumbnail:
		var p GenerateThumbnailPayload
		if err := dec.Decode(&p); err != nil {
			return nil, services.Wrap(services.ErrValidation, "queue", "decode payload", string(kind), err)
		}
		return p, nil
	case KindSendNotification:
		var p SendNotificationPayload
		if err := dec.Decode(&p); err != nil {
			return nil, services.Wrap(services.ErrValidation, "queue", "decode payload", string(kind), err)
		}
		return p, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "queue", "decode payload", fmt.Sprintf("unknown job kind %q", kind), nil)
	}
}
