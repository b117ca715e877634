package reconcile

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestEventPayloadToEvent(t *testing.T) {
	payload := EventPayload{
		EventType:        "new",
		GuestName:        "Asha Rao",
		CheckIn:          strPtr("2026-10-01"),
		CheckOut:         strPtr("2026-10-04"),
		OTAPlatform:      "booking.com",
		BookingReference: "BK-1001",
		Confidence:       0.9,
	}

	ev, err := payload.ToEvent()
	if err != nil {
		t.Fatalf("ToEvent returned error: %v", err)
	}
	if ev.Type != EventNew {
		t.Errorf("type = %q, want new", ev.Type)
	}
	want := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if ev.CheckIn == nil || !ev.CheckIn.Equal(want) {
		t.Errorf("checkIn = %v, want %v", ev.CheckIn, want)
	}
	if !ev.HasStayDates() {
		t.Error("expected both stay dates present")
	}
}

func TestEventPayloadToEventMissingDates(t *testing.T) {
	payload := EventPayload{EventType: "new", OTAPlatform: "agoda", CheckIn: strPtr("")}

	ev, err := payload.ToEvent()
	if err != nil {
		t.Fatalf("empty dates are not an error: %v", err)
	}
	if ev.CheckIn != nil || ev.CheckOut != nil {
		t.Error("empty dates must stay nil")
	}
}

func TestEventPayloadToEventRejectsBadDate(t *testing.T) {
	payload := EventPayload{EventType: "new", OTAPlatform: "agoda", CheckIn: strPtr("01/10/2026")}
	if _, err := payload.ToEvent(); err == nil {
		t.Fatal("expected a parse error for a non ISO date")
	}
}
