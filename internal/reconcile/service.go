package reconcile

import (
	"context"
	"fmt"
	"strings"

	"innsync_backend/internal/bookings"
	"innsync_backend/internal/events"
	"innsync_backend/platform/config"
	"innsync_backend/platform/logger"
	"innsync_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Outcome is the terminal result of reconciling one source message.
type Outcome struct {
	MessageID    string       `json:"messageId"`
	Action       Action       `json:"action"`
	Decision     Decision     `json:"decision"`
	PropertyID   uuid.UUID    `json:"propertyId,omitempty"`
	BookingID    *uuid.UUID   `json:"bookingId,omitempty"`
	GuestID      uuid.UUID    `json:"guestId,omitempty"`
	MatchedTier  string       `json:"matchedTier,omitempty"`
	Changes      []FieldChange `json:"changes,omitempty"`
	ImportErrors *ImportError `json:"importErrors,omitempty"`
}

// Service runs the reconciliation pipeline: resolve property and guest,
// match a candidate booking, decide, commit, and record the outcome in
// the import ledger. One invocation per source message; the whole
// pipeline is safe to re-run because the ledger upsert is idempotent.
type Service struct {
	properties       PropertyResolver
	guests           GuestResolver
	store            BookingStore
	msgs             MessageStore
	ledger           LedgerStore
	matcher          *Matcher
	bus              events.Bus
	locks            *threadLocks
	notificationOnly map[string]struct{}
	processedBy      string
	log              *logger.Logger
}

// NewService wires the reconciliation engine.
func NewService(
	props PropertyResolver,
	guests GuestResolver,
	store BookingStore,
	msgs MessageStore,
	ledger LedgerStore,
	bus events.Bus,
	cfg config.ReconcileConfig,
	log *logger.Logger,
) *Service {
	notificationOnly := make(map[string]struct{})
	for _, platform := range cfg.GetNotificationOnlyPlatforms() {
		notificationOnly[strings.ToLower(platform)] = struct{}{}
	}

	s := &Service{
		properties:       props,
		guests:           guests,
		store:            store,
		msgs:             msgs,
		ledger:           ledger,
		bus:              bus,
		locks:            newThreadLocks(),
		notificationOnly: notificationOnly,
		processedBy:      cfg.GetProcessedByTag(),
		log:              log,
	}
	s.matcher = NewMatcher(store, msgs, ledger, log)
	return s
}

// Reconcile processes one (messageID, event) pair to a terminal
// outcome. Booking-store failures propagate: the ledger is not written
// and the message stays unprocessed so a later re-run picks it up.
// Every other failure class degrades or is recorded on the ledger row.
func (s *Service) Reconcile(ctx context.Context, messageID string, ev Event) (Outcome, error) {
	release := s.locks.acquire(s.lockKey(ctx, messageID))
	defer release()

	action, decision := classify(ev)
	out := Outcome{MessageID: messageID, Action: action, Decision: decision}

	// Notification-only platforms never carry actionable dates; stop
	// before any matching or mutation is attempted.
	if s.isNotificationOnly(ev) {
		out.ImportErrors = &ImportError{Reason: ReasonNotificationOnly}
		return s.finish(ctx, ev, out)
	}

	out.PropertyID = s.properties.Resolve(ctx, ev.PropertyHint)

	if action == ActionCreate || action == ActionUpdate {
		out.GuestID = s.guests.ResolveOrCreate(ctx, ev.GuestName, ev.Email, ev.Phone)
	}

	candidate, tier := s.matcher.Match(ctx, messageID, ev, out.PropertyID)
	out.MatchedTier = tier

	switch action {
	case ActionCreate:
		if !ev.HasStayDates() {
			out.ImportErrors = missingFieldsError(ev)
			break
		}
		if candidate != nil {
			// The message refers to a booking we already hold (e.g. a
			// redelivered notification); updating keeps the commit
			// duplicate-free.
			if err := s.applyUpdate(ctx, candidate, ev, &out); err != nil {
				return out, s.fail(ctx, ev, messageID, err)
			}
			break
		}
		created, err := s.store.Create(ctx, s.createParams(ev, out))
		if err != nil {
			return out, s.fail(ctx, ev, messageID, err)
		}
		out.BookingID = &created.ID

	case ActionUpdate:
		if candidate == nil {
			out.ImportErrors = &ImportError{Reason: ReasonBookingNotFoundForModify}
			break
		}
		if err := s.applyUpdate(ctx, candidate, ev, &out); err != nil {
			return out, s.fail(ctx, ev, messageID, err)
		}

	case ActionCancel:
		if candidate == nil {
			out.ImportErrors = &ImportError{Reason: ReasonBookingNotFoundForCancel}
			break
		}
		cancelled, err := s.store.Cancel(ctx, candidate.ID)
		if err != nil {
			return out, s.fail(ctx, ev, messageID, err)
		}
		// The booking id is recorded only when the store confirms the
		// cancellation took effect.
		if cancelled {
			out.BookingID = &candidate.ID
		}

	case ActionIgnore:
		// No store mutation; the message is still recorded as processed.
	}

	return s.finish(ctx, ev, out)
}

func (s *Service) lockKey(ctx context.Context, messageID string) string {
	threadID, err := s.msgs.ThreadID(ctx, messageID)
	if err != nil {
		s.log.Error("thread lookup failed, serializing on message id", "error", err, "messageId", messageID)
		return messageID
	}
	if threadID == "" {
		return messageID
	}
	return threadID
}

func (s *Service) isNotificationOnly(ev Event) bool {
	if len(s.notificationOnly) == 0 || ev.HasStayDates() {
		return false
	}
	_, ok := s.notificationOnly[strings.ToLower(ev.OTAPlatform)]
	return ok
}

// applyUpdate writes the event's proposed fields onto the candidate,
// propagating source details and the guest reference.
func (s *Service) applyUpdate(ctx context.Context, candidate *bookings.Booking, ev Event, out *Outcome) error {
	proposed, changes := computeDiff(candidate, ev)
	out.Changes = changes

	source := bookings.SourceOTA
	proposed.Source = &source
	if provider := strings.TrimSpace(ev.OTAPlatform); provider != "" {
		proposed.SourceProvider = &provider
	}
	if ref := strings.TrimSpace(ev.BookingReference); ref != "" {
		proposed.SourceOTARef = &ref
	}
	if out.GuestID != uuid.Nil {
		guestID := out.GuestID
		proposed.GuestID = &guestID
	}

	updated, err := s.store.Update(ctx, candidate.ID, proposed)
	if err != nil {
		return err
	}
	out.BookingID = &updated.ID
	return nil
}

func (s *Service) createParams(ev Event, out Outcome) bookings.CreateParams {
	p := bookings.CreateParams{
		PropertyID:      out.PropertyID,
		GuestName:       sanitize.Text(ev.GuestName),
		RoomNo:          strings.TrimSpace(ev.RoomNo),
		RoomCount:       1,
		CheckIn:         *ev.CheckIn,
		CheckOut:        *ev.CheckOut,
		NoOfPax:         ev.NoOfPax,
		AdultChild:      strings.TrimSpace(ev.AdultChild),
		TotalAmount:     ev.TotalAmount,
		PaymentStatus:   strings.TrimSpace(ev.PaymentStatus),
		Email:           strings.TrimSpace(ev.Email),
		Phone:           strings.TrimSpace(ev.Phone),
		SpecialRequests: sanitize.Text(ev.SpecialRequests),
		Source:          bookings.SourceOTA,
		SourceProvider:  strings.TrimSpace(ev.OTAPlatform),
		SourceOTARef:    strings.TrimSpace(ev.BookingReference),
	}
	if p.NoOfPax < 1 {
		p.NoOfPax = 1
	}
	if out.GuestID != uuid.Nil {
		guestID := out.GuestID
		p.GuestID = &guestID
	}
	return p
}

// finish records the outcome on the ledger, marks the source message
// processed (best-effort), and publishes the domain event.
func (s *Service) finish(ctx context.Context, ev Event, out Outcome) (Outcome, error) {
	entry := LedgerEntry{
		MessageID:    out.MessageID,
		ExtractionID: ev.ExtractionID,
		EventType:    ev.Type,
		Decision:     out.Decision,
		BookingID:    out.BookingID,
		ImportErrors: out.ImportErrors,
		ProcessedBy:  s.processedBy,
	}
	if out.PropertyID != uuid.Nil {
		propertyID := out.PropertyID
		entry.PropertyID = &propertyID
	}

	if err := s.ledger.Upsert(ctx, entry); err != nil {
		return out, s.fail(ctx, ev, out.MessageID, fmt.Errorf("ledger upsert: %w", err))
	}

	if err := s.msgs.MarkProcessed(ctx, out.MessageID); err != nil {
		s.log.WithMessageID(out.MessageID).DatabaseError("mark_message_processed", err)
	}

	s.publishReconciled(ctx, ev, out)

	reason := ""
	if out.ImportErrors != nil {
		reason = string(out.ImportErrors.Reason)
	}
	bookingID := ""
	if out.BookingID != nil {
		bookingID = out.BookingID.String()
	}
	s.log.ReconcileOutcome(out.MessageID, string(out.Action), string(out.Decision), bookingID, reason)

	return out, nil
}

// fail is the terminal path for store failures: nothing is recorded so
// the message remains visible and re-runnable.
func (s *Service) fail(ctx context.Context, ev Event, messageID string, err error) error {
	s.log.WithContext(ctx).Error("reconciliation aborted on store failure", "error", err, "messageId", messageID)
	s.bus.Publish(ctx, events.ReconcileFailed{
		BaseEvent: events.NewBaseEvent(),
		MessageID: messageID,
		Platform:  ev.OTAPlatform,
		Error:     err.Error(),
	})
	return err
}

func (s *Service) publishReconciled(ctx context.Context, ev Event, out Outcome) {
	reason := ""
	if out.ImportErrors != nil {
		reason = string(out.ImportErrors.Reason)
	}
	s.bus.Publish(ctx, events.MessageReconciled{
		BaseEvent:  events.NewBaseEvent(),
		MessageID:  out.MessageID,
		PropertyID: out.PropertyID,
		Platform:   ev.OTAPlatform,
		Action:     string(out.Action),
		Decision:   string(out.Decision),
		BookingID:  out.BookingID,
		GuestName:  sanitize.Text(ev.GuestName),
		Reason:     reason,
	})
}
