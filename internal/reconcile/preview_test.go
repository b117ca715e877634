package reconcile

import (
	"context"
	"testing"

	"innsync_backend/internal/bookings"

	"github.com/google/uuid"
)

func TestPreviewPerformsNoWrites(t *testing.T) {
	env := newTestEnv()

	result, err := env.svc.Preview(context.Background(), "msg-1", newEvent(), uuid.Nil)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if result.Action != ActionCreate || result.Decision != DecisionAuto {
		t.Fatalf("got (%q, %q), want (create, auto)", result.Action, result.Decision)
	}
	if env.store.created != 0 || env.store.updated != 0 {
		t.Error("preview must not touch the booking store")
	}
	if len(env.ledger.entries) != 0 {
		t.Error("preview must not write the ledger")
	}
	if env.msgs.processed["msg-1"] {
		t.Error("preview must not mark the message processed")
	}
}

func TestPreviewShowsCandidateAndChanges(t *testing.T) {
	env := newTestEnv()
	existing := bookings.Booking{
		ID:           uuid.New(),
		PropertyID:   env.property,
		GuestName:    "Asha Rao",
		CheckIn:      date("2026-10-01"),
		CheckOut:     date("2026-10-04"),
		NoOfPax:      2,
		SourceOTARef: "BK-1001",
	}
	env.store.add(existing)

	ev := newEvent()
	ev.Type = EventModified
	ev.NoOfPax = 4

	result, err := env.svc.Preview(context.Background(), "msg-2", ev, uuid.Nil)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if result.Candidate == nil || result.Candidate.ID != existing.ID {
		t.Fatal("expected the matched candidate in the preview")
	}
	if result.MatchedTier != tierReferenceDates {
		t.Errorf("matchedTier = %q, want %q", result.MatchedTier, tierReferenceDates)
	}
	found := false
	for _, c := range result.Changes {
		if c.Field == "no_of_pax" && c.From == "2" && c.To == "4" {
			found = true
		}
	}
	if !found {
		t.Errorf("changes = %+v, want a no_of_pax 2 -> 4 entry", result.Changes)
	}
}

func TestPreviewReportsMissingCandidate(t *testing.T) {
	env := newTestEnv()
	ev := newEvent()
	ev.Type = EventModified
	ev.GuestName = "Nobody"
	ev.BookingReference = "BK-NONE"

	result, err := env.svc.Preview(context.Background(), "msg-3", ev, uuid.Nil)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if result.Candidate != nil {
		t.Fatal("no candidate expected")
	}
	if result.Reason == "" {
		t.Error("expected a human-readable reason for the missing candidate")
	}
}

func TestPreviewPropertyOverride(t *testing.T) {
	env := newTestEnv()
	override := uuid.New()

	result, err := env.svc.Preview(context.Background(), "msg-4", newEvent(), override)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if result.PropertyID != override {
		t.Fatalf("propertyId = %s, want the override %s", result.PropertyID, override)
	}
}

func TestPreviewNotificationOnly(t *testing.T) {
	env := newTestEnv("goibibo")
	ev := newEvent()
	ev.OTAPlatform = "Goibibo"
	ev.CheckIn = nil
	ev.CheckOut = nil

	result, err := env.svc.Preview(context.Background(), "msg-5", ev, uuid.Nil)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if result.Reason == "" {
		t.Error("expected the notification-only reason")
	}
	if result.Candidate != nil {
		t.Error("notification-only previews never match")
	}
}
