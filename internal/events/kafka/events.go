// File: internal/events/kafka/events.go
package kafka

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the CloudEvents type string for a factor lifecycle event.
type EventType string

const (
	EventFactorCreated   EventType = "cms.mfa.factor.created"
	EventFactorActivated EventType = "cms.mfa.factor.activated"
	EventFactorDisabled  EventType = "cms.mfa.factor.disabled"
	EventFactorRemoved   EventType = "cms.mfa.factor.removed"
)

// FactorEventPayload is the data section of a factor lifecycle event.
// Secrets and contexts never appear here.
type FactorEventPayload struct {
	FactorID   uuid.UUID `json:"factor_id"`
	UserID     uuid.UUID `json:"user_id"`
	FactorType string    `json:"factor_type"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
