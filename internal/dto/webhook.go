package dto

import "github.com/SscSPs/credit_ledger/internal/core/domain"

// Provider notification event types.
const (
	EventVideoCompleted = "video.completed"
	EventVideoFailed    = "video.failed"
)

// WebhookEventData identifies the provider job and, for failures, the reason.
type WebhookEventData struct {
	ID    string             `json:"id" binding:"required"`
	Error *WebhookEventError `json:"error,omitempty"`
}

type WebhookEventError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WebhookEvent is the notification body posted by the provider.
type WebhookEvent struct {
	ID        string           `json:"id" binding:"required"`
	Object    string           `json:"object"`
	CreatedAt int64            `json:"created_at"`
	Type      string           `json:"type" binding:"required"`
	Data      WebhookEventData `json:"data"`
}

// WebhookAck is returned for every parsed delivery.
type WebhookAck struct {
	Received bool                       `json:"received"`
	Outcome  domain.NotificationOutcome `json:"outcome"`
}

// ToTerminalEvent maps the event to a terminal event. ok is false for types
// that are not terminal job transitions.
func (e WebhookEvent) ToTerminalEvent() (domain.TerminalEvent, bool) {
	var kind domain.NotificationKind
	switch e.Type {
	case EventVideoCompleted:
		kind = domain.NotificationCompleted
	case EventVideoFailed:
		kind = domain.NotificationFailed
	default:
		return domain.TerminalEvent{}, false
	}
	event := domain.TerminalEvent{
		EventID:       e.ID,
		ProviderJobID: e.Data.ID,
		Kind:          kind,
	}
	if e.Data.Error != nil {
		event.ErrorMessage = e.Data.Error.Message
	}
	return event, true
}
