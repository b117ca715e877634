// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"innsync_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// OTA Reconciliation Domain Events
// =============================================================================

// MessageReceived is published when an OTA event lands on the intake webhook.
type MessageReceived struct {
	BaseEvent
	MessageID string `json:"messageId"`
	ThreadID  string `json:"threadId,omitempty"`
	Platform  string `json:"platform"`
	EventType string `json:"eventType"`
}

func (e MessageReceived) EventName() string { return "ota.message.received" }

// MessageReconciled is published after a reconciliation reaches a terminal
// outcome (created, updated, cancelled, ignored, or recorded error).
type MessageReconciled struct {
	BaseEvent
	MessageID  string     `json:"messageId"`
	PropertyID uuid.UUID  `json:"propertyId,omitempty"`
	Platform   string     `json:"platform"`
	Action     string     `json:"action"`
	Decision   string     `json:"decision"`
	BookingID  *uuid.UUID `json:"bookingId,omitempty"`
	GuestName  string     `json:"guestName,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

func (e MessageReconciled) EventName() string { return "ota.message.reconciled" }

// ReconcileFailed is published when a reconciliation aborts on a store
// failure and the message stays unprocessed for a later retry.
type ReconcileFailed struct {
	BaseEvent
	MessageID string `json:"messageId"`
	Platform  string `json:"platform"`
	Error     string `json:"error"`
}

func (e ReconcileFailed) EventName() string { return "ota.message.reconcile_failed" }
