// Package reconcile implements the OTA booking reconciliation engine:
// candidate matching, field diffing, decision policy, and the
// idempotent import ledger commit, plus a write-free preview path.
package reconcile

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the upstream classification of an OTA notification.
type EventType string

const (
	EventNew       EventType = "new"
	EventModified  EventType = "modified"
	EventCancelled EventType = "cancelled"
)

// Event is one parsed booking notification as produced by the upstream
// extraction step. It is consumed once and discarded; only its outcome
// persists in the import ledger.
type Event struct {
	Type             EventType
	ExtractionID     *uuid.UUID
	GuestName        string
	Email            string
	Phone            string
	CheckIn          *time.Time
	CheckOut         *time.Time
	NoOfPax          int
	AdultChild       string
	TotalAmount      *float64
	PaymentStatus    string
	SpecialRequests  string
	RoomNo           string
	RoomType         string
	PropertyHint     string
	BookingReference string
	OTAPlatform      string
	Confidence       float64
}

// HasStayDates reports whether both check-in and check-out are present.
func (e Event) HasStayDates() bool {
	return e.CheckIn != nil && e.CheckOut != nil
}
