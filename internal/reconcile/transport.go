package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// EventPayload is the wire form of a parsed booking event. It is bound
// at the intake webhook, persisted verbatim on the source message, and
// decoded again by the worker.
type EventPayload struct {
	EventType        string     `json:"eventType" validate:"required,max=40"`
	ExtractionID     *uuid.UUID `json:"extractionId,omitempty"`
	GuestName        string     `json:"guestName" validate:"max=200"`
	Email            string     `json:"email" validate:"omitempty,email"`
	Phone            string     `json:"phone" validate:"max=40"`
	CheckIn          *string    `json:"checkIn,omitempty"`
	CheckOut         *string    `json:"checkOut,omitempty"`
	NoOfPax          int        `json:"noOfPax" validate:"min=0"`
	AdultChild       string     `json:"adultChild" validate:"max=40"`
	TotalAmount      *float64   `json:"totalAmount,omitempty"`
	PaymentStatus    string     `json:"paymentStatus" validate:"max=40"`
	SpecialRequests  string     `json:"specialRequests" validate:"max=2000"`
	RoomNo           string     `json:"roomNo" validate:"max=40"`
	RoomType         string     `json:"roomType" validate:"max=100"`
	PropertyHint     string     `json:"propertyHint" validate:"max=200"`
	BookingReference string     `json:"bookingReference" validate:"max=100"`
	OTAPlatform      string     `json:"otaPlatform" validate:"required,max=60"`
	Confidence       float64    `json:"confidence" validate:"min=0,max=1"`
}

// ToEvent converts the wire payload to the engine event, parsing the
// stay dates. Unknown event types pass through and classify as ignore.
func (p EventPayload) ToEvent() (Event, error) {
	ev := Event{
		Type:             EventType(p.EventType),
		ExtractionID:     p.ExtractionID,
		GuestName:        p.GuestName,
		Email:            p.Email,
		Phone:            p.Phone,
		NoOfPax:          p.NoOfPax,
		AdultChild:       p.AdultChild,
		TotalAmount:      p.TotalAmount,
		PaymentStatus:    p.PaymentStatus,
		SpecialRequests:  p.SpecialRequests,
		RoomNo:           p.RoomNo,
		RoomType:         p.RoomType,
		PropertyHint:     p.PropertyHint,
		BookingReference: p.BookingReference,
		OTAPlatform:      p.OTAPlatform,
		Confidence:       p.Confidence,
	}

	var err error
	if ev.CheckIn, err = parseDate(p.CheckIn); err != nil {
		return Event{}, fmt.Errorf("checkIn: %w", err)
	}
	if ev.CheckOut, err = parseDate(p.CheckOut); err != nil {
		return Event{}, fmt.Errorf("checkOut: %w", err)
	}
	return ev, nil
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
