package catalogsync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEventType is the kind of change a source pushed
type WebhookEventType string

const (
	WebhookEventProductCreated WebhookEventType = "product.created"
	WebhookEventProductUpdated WebhookEventType = "product.updated"
	WebhookEventProductDeleted WebhookEventType = "product.deleted"
	WebhookEventFullSync       WebhookEventType = "catalog.full_sync"
)

// IsValid checks if the event type is a known value
func (t WebhookEventType) IsValid() bool {
	switch t {
	case WebhookEventProductCreated, WebhookEventProductUpdated, WebhookEventProductDeleted, WebhookEventFullSync:
		return true
	}
	return false
}

// WebhookEvent is one push notification received from a catalog source.
type WebhookEvent struct {
	ID       uuid.UUID
	ConfigID uuid.UUID
	// ExternalEventID is the delivery id supplied by the source, used for dedupe
	ExternalEventID string
	EventType       WebhookEventType
	// Payload is stored as received; its shape belongs to the source
	Payload     json.RawMessage
	Processed   bool
	ProcessedAt *time.Time
	Error       string
	CreatedAt   time.Time
}

// NewWebhookEvent creates an unprocessed event.
func NewWebhookEvent(configID uuid.UUID, externalEventID string, eventType WebhookEventType, payload json.RawMessage) (*WebhookEvent, error) {
	if !eventType.IsValid() {
		return nil, ErrInvalidEventType
	}
	return &WebhookEvent{
		ID:              uuid.New(),
		ConfigID:        configID,
		ExternalEventID: externalEventID,
		EventType:       eventType,
		Payload:         payload,
		CreatedAt:       time.Now(),
	}, nil
}

// MarkProcessed records the outcome. A nil cause means success.
func (e *WebhookEvent) MarkProcessed(cause error, now time.Time) error {
	if e.Processed {
		return ErrEventAlreadyHandled
	}
	e.Processed = true
	e.ProcessedAt = &now
	if cause != nil {
		e.Error = cause.Error()
	}
	return nil
}
