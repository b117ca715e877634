package reconcile

import (
	"context"
	"testing"

	"innsync_backend/internal/bookings"
	"innsync_backend/platform/logger"

	"github.com/google/uuid"
)

func newTestMatcher(store *fakeBookingStore, msgs *fakeMessageStore, ledger *fakeLedger) *Matcher {
	return NewMatcher(store, msgs, ledger, logger.New("development"))
}

func TestMatchThreadLinkageBeatsReferenceAndDates(t *testing.T) {
	store := newFakeBookingStore()
	msgs := newFakeMessageStore()
	ledger := newFakeLedger()
	property := uuid.New()

	threadBooking := bookings.Booking{ID: uuid.New(), PropertyID: property, GuestName: "Asha Rao"}
	refBooking := bookings.Booking{
		ID: uuid.New(), PropertyID: property, GuestName: "Asha Rao",
		SourceOTARef: "BK-1001", CheckIn: date("2026-10-01"), CheckOut: date("2026-10-04"),
	}
	store.add(threadBooking)
	store.add(refBooking)

	msgs.addToThread("msg-old", "thread-1")
	msgs.addToThread("msg-new", "thread-1")
	id := threadBooking.ID
	ledger.entries["msg-old"] = LedgerEntry{MessageID: "msg-old", BookingID: &id}

	m := newTestMatcher(store, msgs, ledger)
	got, tier := m.Match(context.Background(), "msg-new", newEvent(), property)
	if got == nil || got.ID != threadBooking.ID {
		t.Fatal("expected the thread-linked booking to win")
	}
	if tier != tierThreadLinkage {
		t.Fatalf("tier = %q, want %q", tier, tierThreadLinkage)
	}
}

func TestMatchByReferenceAndDates(t *testing.T) {
	store := newFakeBookingStore()
	property := uuid.New()
	b := bookings.Booking{
		ID: uuid.New(), PropertyID: property, GuestName: "Someone Else",
		SourceOTARef: "BK-1001", CheckIn: date("2026-10-01"), CheckOut: date("2026-10-04"),
	}
	store.add(b)

	m := newTestMatcher(store, newFakeMessageStore(), newFakeLedger())
	got, tier := m.Match(context.Background(), "msg-1", newEvent(), property)
	if got == nil || got.ID != b.ID {
		t.Fatal("expected the reference+dates booking")
	}
	if tier != tierReferenceDates {
		t.Fatalf("tier = %q, want %q", tier, tierReferenceDates)
	}
}

func TestMatchReferenceRequiresBothDates(t *testing.T) {
	store := newFakeBookingStore()
	property := uuid.New()
	store.add(bookings.Booking{
		ID: uuid.New(), PropertyID: property, GuestName: "Someone Else",
		SourceOTARef: "BK-1001", CheckIn: date("2026-10-01"), CheckOut: date("2026-10-04"),
	})

	ev := newEvent()
	ev.CheckOut = nil
	ev.GuestName = "Nobody"

	m := newTestMatcher(store, newFakeMessageStore(), newFakeLedger())
	if got, _ := m.Match(context.Background(), "msg-1", ev, property); got != nil {
		t.Fatal("a reference without complete stay dates must not match")
	}
}

func TestMatchByGuestNamePrefersResolvedProperty(t *testing.T) {
	store := newFakeBookingStore()
	property := uuid.New()
	other := uuid.New()
	inProperty := bookings.Booking{ID: uuid.New(), PropertyID: property, GuestName: "Asha Rao"}
	store.add(bookings.Booking{ID: uuid.New(), PropertyID: other, GuestName: "Asha Rao"})
	store.add(inProperty)

	ev := newEvent()
	ev.BookingReference = ""

	m := newTestMatcher(store, newFakeMessageStore(), newFakeLedger())
	got, tier := m.Match(context.Background(), "msg-1", ev, property)
	if got == nil || got.ID != inProperty.ID {
		t.Fatal("expected the property-scoped name match")
	}
	if tier != tierGuestName {
		t.Fatalf("tier = %q, want %q", tier, tierGuestName)
	}
}

func TestMatchByGuestNameFallsBackAcrossProperties(t *testing.T) {
	store := newFakeBookingStore()
	elsewhere := bookings.Booking{ID: uuid.New(), PropertyID: uuid.New(), GuestName: "asha rao"}
	store.add(elsewhere)

	ev := newEvent()
	ev.BookingReference = ""

	m := newTestMatcher(store, newFakeMessageStore(), newFakeLedger())
	got, _ := m.Match(context.Background(), "msg-1", ev, uuid.New())
	if got == nil || got.ID != elsewhere.ID {
		t.Fatal("expected the cross-property name match as last resort")
	}
}

func TestMatchSkipsCancelledBookings(t *testing.T) {
	store := newFakeBookingStore()
	property := uuid.New()
	store.add(bookings.Booking{
		ID: uuid.New(), PropertyID: property, GuestName: "Asha Rao", Cancelled: true,
		SourceOTARef: "BK-1001", CheckIn: date("2026-10-01"), CheckOut: date("2026-10-04"),
	})

	m := newTestMatcher(store, newFakeMessageStore(), newFakeLedger())
	if got, _ := m.Match(context.Background(), "msg-1", newEvent(), property); got != nil {
		t.Fatal("cancelled bookings are not candidates")
	}
}

func TestMatchNoSignalsReturnsNil(t *testing.T) {
	m := newTestMatcher(newFakeBookingStore(), newFakeMessageStore(), newFakeLedger())
	ev := Event{Type: EventModified}
	got, tier := m.Match(context.Background(), "", ev, uuid.Nil)
	if got != nil || tier != "" {
		t.Fatalf("got (%v, %q), want (nil, \"\")", got, tier)
	}
}
