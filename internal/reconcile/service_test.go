package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"innsync_backend/internal/bookings"
	"innsync_backend/internal/events"
	"innsync_backend/internal/messages"
	"innsync_backend/platform/logger"

	"github.com/google/uuid"
)

// ---- fakes shared by the engine tests ----

type fakeBookingStore struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]bookings.Booking
	created   int
	updated   int
	createErr error
	updateErr error
	cancelErr error
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{byID: map[uuid.UUID]bookings.Booking{}}
}

func (s *fakeBookingStore) add(b bookings.Booking) {
	s.byID[b.ID] = b
}

func (s *fakeBookingStore) GetByID(_ context.Context, id uuid.UUID) (bookings.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return bookings.Booking{}, bookings.ErrBookingNotFound
	}
	return b, nil
}

func (s *fakeBookingStore) List(_ context.Context, f bookings.Filter) ([]bookings.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []bookings.Booking
	for _, b := range s.byID {
		if f.PropertyID != uuid.Nil && b.PropertyID != f.PropertyID {
			continue
		}
		if f.SourceOTARef != "" && b.SourceOTARef != f.SourceOTARef {
			continue
		}
		if f.CheckIn != nil && (b.CheckIn == nil || !b.CheckIn.Equal(*f.CheckIn)) {
			continue
		}
		if f.CheckOut != nil && (b.CheckOut == nil || !b.CheckOut.Equal(*f.CheckOut)) {
			continue
		}
		if f.GuestName != "" && !strings.EqualFold(b.GuestName, f.GuestName) {
			continue
		}
		if !f.IncludeCancelled && b.Cancelled {
			continue
		}
		found = append(found, b)
	}
	return found, nil
}

func (s *fakeBookingStore) Create(_ context.Context, p bookings.CreateParams) (bookings.Booking, error) {
	if s.createErr != nil {
		return bookings.Booking{}, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	checkIn, checkOut := p.CheckIn, p.CheckOut
	b := bookings.Booking{
		ID:             uuid.New(),
		PropertyID:     p.PropertyID,
		GuestName:      p.GuestName,
		RoomNo:         p.RoomNo,
		RoomCount:      p.RoomCount,
		CheckIn:        &checkIn,
		CheckOut:       &checkOut,
		NoOfPax:        p.NoOfPax,
		Status:         "confirmed",
		TotalAmount:    p.TotalAmount,
		Email:          p.Email,
		Phone:          p.Phone,
		Source:         p.Source,
		SourceProvider: p.SourceProvider,
		SourceOTARef:   p.SourceOTARef,
		GuestID:        p.GuestID,
	}
	s.byID[b.ID] = b
	s.created++
	return b, nil
}

func (s *fakeBookingStore) Update(_ context.Context, id uuid.UUID, p bookings.UpdateParams) (bookings.Booking, error) {
	if s.updateErr != nil {
		return bookings.Booking{}, s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return bookings.Booking{}, bookings.ErrBookingNotFound
	}
	if p.GuestName != nil {
		b.GuestName = *p.GuestName
	}
	if p.RoomNo != nil {
		b.RoomNo = *p.RoomNo
	}
	if p.CheckIn != nil {
		b.CheckIn = p.CheckIn
	}
	if p.CheckOut != nil {
		b.CheckOut = p.CheckOut
	}
	if p.NoOfPax != nil {
		b.NoOfPax = *p.NoOfPax
	}
	if p.TotalAmount != nil {
		b.TotalAmount = p.TotalAmount
	}
	if p.Source != nil {
		b.Source = *p.Source
	}
	if p.SourceProvider != nil {
		b.SourceProvider = *p.SourceProvider
	}
	if p.SourceOTARef != nil {
		b.SourceOTARef = *p.SourceOTARef
	}
	if p.GuestID != nil {
		b.GuestID = p.GuestID
	}
	s.byID[id] = b
	s.updated++
	return b, nil
}

func (s *fakeBookingStore) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	if s.cancelErr != nil {
		return false, s.cancelErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok || b.Cancelled {
		return false, nil
	}
	b.Cancelled = true
	b.Status = "cancelled"
	s.byID[id] = b
	return true, nil
}

type fakeMessageStore struct {
	mu        sync.Mutex
	threads   map[string]string
	siblings  map[string][]string
	processed map[string]bool
	markErr   error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		threads:   map[string]string{},
		siblings:  map[string][]string{},
		processed: map[string]bool{},
	}
}

func (s *fakeMessageStore) addToThread(messageID, threadID string) {
	s.threads[messageID] = threadID
	s.siblings[threadID] = append(s.siblings[threadID], messageID)
}

func (s *fakeMessageStore) GetByID(_ context.Context, id string) (messages.SourceMessage, error) {
	return messages.SourceMessage{ID: id, ThreadID: s.threads[id]}, nil
}

func (s *fakeMessageStore) ThreadID(_ context.Context, messageID string) (string, error) {
	return s.threads[messageID], nil
}

func (s *fakeMessageStore) SiblingIDs(_ context.Context, threadID string) ([]string, error) {
	return s.siblings[threadID], nil
}

func (s *fakeMessageStore) MarkProcessed(_ context.Context, messageID string) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[messageID] = true
	return nil
}

type fakeLedger struct {
	mu        sync.Mutex
	entries   map[string]LedgerEntry
	upsertErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]LedgerEntry{}}
}

func (l *fakeLedger) Upsert(_ context.Context, entry LedgerEntry) error {
	if l.upsertErr != nil {
		return l.upsertErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.ProcessedAt = time.Now()
	l.entries[entry.MessageID] = entry
	return nil
}

func (l *fakeLedger) GetByMessageID(_ context.Context, messageID string) (LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[messageID]
	if !ok {
		return LedgerEntry{}, ErrLedgerEntryNotFound
	}
	return entry, nil
}

func (l *fakeLedger) LatestBookingRef(_ context.Context, messageIDs []string) (*uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var latest *uuid.UUID
	for _, id := range messageIDs {
		if entry, ok := l.entries[id]; ok && entry.BookingID != nil {
			latest = entry.BookingID
		}
	}
	return latest, nil
}

type fixedPropertyResolver struct{ id uuid.UUID }

func (r fixedPropertyResolver) Resolve(context.Context, string) uuid.UUID { return r.id }

type fixedGuestResolver struct{ id uuid.UUID }

func (r fixedGuestResolver) ResolveOrCreate(context.Context, string, string, string) uuid.UUID {
	return r.id
}

type testReconcileConfig struct {
	notificationOnly []string
}

func (c testReconcileConfig) GetDefaultGuestCountry() string           { return "India" }
func (c testReconcileConfig) GetNotificationOnlyPlatforms() []string   { return c.notificationOnly }
func (c testReconcileConfig) GetProcessedByTag() string                { return "reconcile-engine" }

type testEnv struct {
	svc      *Service
	store    *fakeBookingStore
	msgs     *fakeMessageStore
	ledger   *fakeLedger
	property uuid.UUID
	guest    uuid.UUID
}

func newTestEnv(notificationOnly ...string) *testEnv {
	env := &testEnv{
		store:    newFakeBookingStore(),
		msgs:     newFakeMessageStore(),
		ledger:   newFakeLedger(),
		property: uuid.New(),
		guest:    uuid.New(),
	}
	log := logger.New("development")
	env.svc = NewService(
		fixedPropertyResolver{id: env.property},
		fixedGuestResolver{id: env.guest},
		env.store, env.msgs, env.ledger,
		events.NewInMemoryBus(log),
		testReconcileConfig{notificationOnly: notificationOnly},
		log,
	)
	return env
}

func date(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func newEvent() Event {
	amount := 4500.0
	return Event{
		Type:             EventNew,
		GuestName:        "Asha Rao",
		Email:            "asha@example.com",
		CheckIn:          date("2026-10-01"),
		CheckOut:         date("2026-10-04"),
		NoOfPax:          2,
		TotalAmount:      &amount,
		BookingReference: "BK-1001",
		OTAPlatform:      "booking.com",
		Confidence:       0.95,
	}
}

// ---- service tests ----

func TestReconcileCreatesBookingFromNewEvent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	out, err := env.svc.Reconcile(ctx, "msg-1", newEvent())
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if out.Action != ActionCreate {
		t.Fatalf("action = %q, want %q", out.Action, ActionCreate)
	}
	if out.Decision != DecisionAuto {
		t.Fatalf("decision = %q, want %q", out.Decision, DecisionAuto)
	}
	if out.BookingID == nil {
		t.Fatal("expected a booking id on the outcome")
	}
	if env.store.created != 1 {
		t.Fatalf("created = %d, want 1", env.store.created)
	}

	b, err := env.store.GetByID(ctx, *out.BookingID)
	if err != nil {
		t.Fatalf("stored booking not found: %v", err)
	}
	if b.Source != bookings.SourceOTA {
		t.Errorf("source = %q, want %q", b.Source, bookings.SourceOTA)
	}
	if b.SourceOTARef != "BK-1001" {
		t.Errorf("sourceOtaRef = %q, want BK-1001", b.SourceOTARef)
	}
	if b.GuestID == nil || *b.GuestID != env.guest {
		t.Error("expected the resolved guest id on the booking")
	}

	entry, err := env.ledger.GetByMessageID(ctx, "msg-1")
	if err != nil {
		t.Fatalf("no ledger entry: %v", err)
	}
	if entry.Decision != DecisionAuto {
		t.Errorf("ledger decision = %q, want auto", entry.Decision)
	}
	if entry.BookingID == nil || *entry.BookingID != *out.BookingID {
		t.Error("ledger entry does not reference the created booking")
	}
	if !env.msgs.processed["msg-1"] {
		t.Error("message was not marked processed")
	}
}

func TestReconcileNewWithoutDatesRecordsMissingFields(t *testing.T) {
	env := newTestEnv()
	ev := newEvent()
	ev.CheckIn = nil

	out, err := env.svc.Reconcile(context.Background(), "msg-2", ev)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if env.store.created != 0 {
		t.Fatalf("created = %d, want 0", env.store.created)
	}
	if out.ImportErrors == nil || out.ImportErrors.Reason != ReasonMissingRequiredFields {
		t.Fatalf("importErrors = %+v, want reason %q", out.ImportErrors, ReasonMissingRequiredFields)
	}
	if !out.ImportErrors.Fields["check_in"] {
		t.Error("expected check_in flagged as missing")
	}
	if out.ImportErrors.Fields["check_out"] {
		t.Error("check_out was present and should not be flagged")
	}

	entry, err := env.ledger.GetByMessageID(context.Background(), "msg-2")
	if err != nil {
		t.Fatalf("no ledger entry: %v", err)
	}
	if entry.BookingID != nil {
		t.Error("ledger entry should not reference a booking")
	}
	if !env.msgs.processed["msg-2"] {
		t.Error("message was not marked processed")
	}
}

func TestReconcileModifyWithoutCandidateRecordsNotFound(t *testing.T) {
	env := newTestEnv()
	ev := newEvent()
	ev.Type = EventModified
	ev.BookingReference = "BK-UNKNOWN"
	ev.GuestName = "Nobody Known"

	out, err := env.svc.Reconcile(context.Background(), "msg-3", ev)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if out.ImportErrors == nil || out.ImportErrors.Reason != ReasonBookingNotFoundForModify {
		t.Fatalf("importErrors = %+v, want reason %q", out.ImportErrors, ReasonBookingNotFoundForModify)
	}
	if env.store.created != 0 || env.store.updated != 0 {
		t.Error("store must not be touched when no candidate exists")
	}
}

func TestReconcileModifyUpdatesMatchedBooking(t *testing.T) {
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
	ev.NoOfPax = 3

	out, err := env.svc.Reconcile(context.Background(), "msg-4", ev)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if out.BookingID == nil || *out.BookingID != existing.ID {
		t.Fatal("expected the matched booking to be updated")
	}
	if env.store.updated != 1 {
		t.Fatalf("updated = %d, want 1", env.store.updated)
	}

	b, _ := env.store.GetByID(context.Background(), existing.ID)
	if b.NoOfPax != 3 {
		t.Errorf("noOfPax = %d, want 3", b.NoOfPax)
	}
	if len(out.Changes) == 0 {
		t.Error("expected recorded field changes")
	}
}

func TestReconcileCancelMarksBookingCancelled(t *testing.T) {
	env := newTestEnv()
	existing := bookings.Booking{
		ID:           uuid.New(),
		PropertyID:   env.property,
		GuestName:    "Asha Rao",
		CheckIn:      date("2026-10-01"),
		CheckOut:     date("2026-10-04"),
		SourceOTARef: "BK-1001",
	}
	env.store.add(existing)

	ev := newEvent()
	ev.Type = EventCancelled

	out, err := env.svc.Reconcile(context.Background(), "msg-5", ev)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if out.BookingID == nil || *out.BookingID != existing.ID {
		t.Fatal("expected the cancelled booking id on the outcome")
	}

	b, _ := env.store.GetByID(context.Background(), existing.ID)
	if !b.Cancelled {
		t.Error("booking was not cancelled")
	}
}

func TestReconcileSameMessageTwiceDoesNotDuplicate(t *testing.T) {
	env := newTestEnv()
	env.msgs.addToThread("msg-6", "thread-1")
	ctx := context.Background()

	first, err := env.svc.Reconcile(ctx, "msg-6", newEvent())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := env.svc.Reconcile(ctx, "msg-6", newEvent())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if env.store.created != 1 {
		t.Fatalf("created = %d, want exactly 1 across both runs", env.store.created)
	}
	if second.BookingID == nil || *second.BookingID != *first.BookingID {
		t.Fatal("second run must land on the booking created by the first")
	}
	if len(env.ledger.entries) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(env.ledger.entries))
	}
}

func TestReconcileUnknownEventTypeIsIgnored(t *testing.T) {
	env := newTestEnv()
	ev := newEvent()
	ev.Type = EventType("payment_reminder")

	out, err := env.svc.Reconcile(context.Background(), "msg-7", ev)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if out.Action != ActionIgnore {
		t.Fatalf("action = %q, want ignore", out.Action)
	}
	if env.store.created != 0 || env.store.updated != 0 {
		t.Error("ignored events must not touch the store")
	}
	if _, err := env.ledger.GetByMessageID(context.Background(), "msg-7"); err != nil {
		t.Error("ignored events still get a ledger row")
	}
}

func TestReconcileNotificationOnlyPlatformShortCircuits(t *testing.T) {
	env := newTestEnv("Expedia")
	ev := newEvent()
	ev.OTAPlatform = "expedia"
	ev.CheckIn = nil
	ev.CheckOut = nil

	out, err := env.svc.Reconcile(context.Background(), "msg-8", ev)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if out.ImportErrors == nil || out.ImportErrors.Reason != ReasonNotificationOnly {
		t.Fatalf("importErrors = %+v, want reason %q", out.ImportErrors, ReasonNotificationOnly)
	}
	if env.store.created != 0 {
		t.Error("notification-only messages must not create bookings")
	}
	if !env.msgs.processed["msg-8"] {
		t.Error("notification-only messages are still marked processed")
	}
}

func TestReconcileNotificationOnlyPlatformWithDatesProceeds(t *testing.T) {
	env := newTestEnv("expedia")
	ev := newEvent()
	ev.OTAPlatform = "expedia"

	out, err := env.svc.Reconcile(context.Background(), "msg-9", ev)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if out.ImportErrors != nil {
		t.Fatalf("unexpected import errors: %+v", out.ImportErrors)
	}
	if env.store.created != 1 {
		t.Error("an event with stay dates must be imported even on a notification-only platform")
	}
}

func TestReconcileStoreFailureLeavesMessageUnprocessed(t *testing.T) {
	env := newTestEnv()
	env.store.createErr = errors.New("connection reset")

	_, err := env.svc.Reconcile(context.Background(), "msg-10", newEvent())
	if err == nil {
		t.Fatal("expected the store failure to propagate")
	}
	if len(env.ledger.entries) != 0 {
		t.Error("no ledger row may be written on a store failure")
	}
	if env.msgs.processed["msg-10"] {
		t.Error("message must stay unprocessed for a later re-run")
	}
}

func TestReconcileLedgerFailurePropagates(t *testing.T) {
	env := newTestEnv()
	env.ledger.upsertErr = errors.New("deadlock detected")

	_, err := env.svc.Reconcile(context.Background(), "msg-11", newEvent())
	if err == nil {
		t.Fatal("expected the ledger failure to propagate")
	}
	if env.msgs.processed["msg-11"] {
		t.Error("message must not be marked processed when the ledger write failed")
	}
}

func TestReconcileMarkProcessedFailureIsNonFatal(t *testing.T) {
	env := newTestEnv()
	env.msgs.markErr = errors.New("row lock timeout")

	_, err := env.svc.Reconcile(context.Background(), "msg-12", newEvent())
	if err != nil {
		t.Fatalf("mark-processed failures must not fail the run: %v", err)
	}
	if _, err := env.ledger.GetByMessageID(context.Background(), "msg-12"); err != nil {
		t.Error("ledger row must exist even when mark-processed failed")
	}
}
