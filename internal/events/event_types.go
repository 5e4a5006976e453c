package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionEstablished   EventType = "session_established"
	EventSessionCleared       EventType = "session_cleared"
	EventAccessDenied         EventType = "access_denied"
	EventActionFailed         EventType = "action_failed"
	EventUploadFailed         EventType = "upload_failed"
	EventProviderStateChanged EventType = "provider_state_changed"
	EventPendingListUpdated   EventType = "pending_list_updated"
)

// Event represents something the UI layer may want to surface.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, subject string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionEstablishedPayload payload.
type SessionEstablishedPayload struct {
	Role string `json:"role"`
}

// SessionClearedPayload payload.
type SessionClearedPayload struct {
	Reason string `json:"reason"`
}

// AccessDeniedPayload payload.
type AccessDeniedPayload struct {
	Page     string `json:"page"`
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
}

// ActionFailedPayload payload.
type ActionFailedPayload struct {
	List      string `json:"list"`
	Action    string `json:"action"`
	ItemID    string `json:"item_id"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// UploadFailedPayload payload.
type UploadFailedPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ProviderStateChangedPayload payload.
type ProviderStateChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PendingListUpdatedPayload payload.
type PendingListUpdatedPayload struct {
	List   string `json:"list"`
	Source string `json:"source"`
	Count  int    `json:"count"`
}
