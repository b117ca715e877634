package reconcile

import (
	"context"
	"errors"
	"strings"

	"innsync_backend/internal/bookings"
	"innsync_backend/platform/logger"

	"github.com/google/uuid"
)

// Strategy tier names, strongest first. The order is load-bearing:
// reference+dates is only authoritative below thread continuity, and
// the guest-name heuristic is a last resort.
const (
	tierThreadLinkage  = "thread_linkage"
	tierReferenceDates = "reference_dates"
	tierGuestName      = "guest_name"
)

type matchInput struct {
	messageID  string
	ev         Event
	propertyID uuid.UUID
}

// matchStrategy is one tier of candidate matching. Returning (nil, nil)
// means "no opinion, try the next tier".
type matchStrategy struct {
	name string
	fn   func(ctx context.Context, in matchInput) (*bookings.Booking, error)
}

// Matcher locates the existing booking an event refers to by trying an
// ordered list of strategies; the first hit wins and weaker tiers are
// never consulted.
type Matcher struct {
	strategies []matchStrategy
	log        *logger.Logger
}

// NewMatcher wires the three standard tiers.
func NewMatcher(store BookingStore, msgs MessageStore, ledger LedgerStore, log *logger.Logger) *Matcher {
	m := &Matcher{log: log}
	m.strategies = []matchStrategy{
		{name: tierThreadLinkage, fn: m.byThreadLinkage(msgs, ledger, store)},
		{name: tierReferenceDates, fn: m.byReferenceAndDates(store)},
		{name: tierGuestName, fn: m.byGuestName(store)},
	}
	return m
}

// Match runs the tiers in order. A tier error is a resolution failure:
// logged, then the next tier is consulted. The winning tier's name is
// returned for audit/preview metadata.
func (m *Matcher) Match(ctx context.Context, messageID string, ev Event, propertyID uuid.UUID) (*bookings.Booking, string) {
	in := matchInput{messageID: messageID, ev: ev, propertyID: propertyID}
	for _, s := range m.strategies {
		candidate, err := s.fn(ctx, in)
		if err != nil {
			m.log.Error("match tier failed, trying next", "tier", s.name, "error", err)
			continue
		}
		if candidate != nil {
			return candidate, s.name
		}
	}
	return nil, ""
}

// byThreadLinkage follows the message's conversation thread to the most
// recent ledger entry with a booking reference.
func (m *Matcher) byThreadLinkage(msgs MessageStore, ledger LedgerStore, store BookingStore) func(context.Context, matchInput) (*bookings.Booking, error) {
	return func(ctx context.Context, in matchInput) (*bookings.Booking, error) {
		if in.messageID == "" {
			return nil, nil
		}
		threadID, err := msgs.ThreadID(ctx, in.messageID)
		if err != nil {
			return nil, err
		}
		if threadID == "" {
			return nil, nil
		}
		siblings, err := msgs.SiblingIDs(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if len(siblings) == 0 {
			return nil, nil
		}
		bookingID, err := ledger.LatestBookingRef(ctx, siblings)
		if err != nil {
			return nil, err
		}
		if bookingID == nil {
			return nil, nil
		}
		b, err := store.GetByID(ctx, *bookingID)
		if errors.Is(err, bookings.ErrBookingNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &b, nil
	}
}

// byReferenceAndDates requires a stable external reference plus exact
// stay dates; anything less is not authoritative.
func (m *Matcher) byReferenceAndDates(store BookingStore) func(context.Context, matchInput) (*bookings.Booking, error) {
	return func(ctx context.Context, in matchInput) (*bookings.Booking, error) {
		ref := strings.TrimSpace(in.ev.BookingReference)
		if ref == "" || !in.ev.HasStayDates() {
			return nil, nil
		}
		found, err := store.List(ctx, bookings.Filter{
			PropertyID:   in.propertyID,
			SourceOTARef: ref,
			CheckIn:      in.ev.CheckIn,
			CheckOut:     in.ev.CheckOut,
		})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, nil
		}
		return &found[0], nil
	}
}

// byGuestName is the weakest signal: exact (case-insensitive) name
// match within the resolved property, broadened to all properties when
// that finds nothing.
func (m *Matcher) byGuestName(store BookingStore) func(context.Context, matchInput) (*bookings.Booking, error) {
	return func(ctx context.Context, in matchInput) (*bookings.Booking, error) {
		name := strings.TrimSpace(in.ev.GuestName)
		if name == "" {
			return nil, nil
		}
		if in.propertyID != uuid.Nil {
			found, err := store.List(ctx, bookings.Filter{PropertyID: in.propertyID, GuestName: name})
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				return &found[0], nil
			}
		}
		found, err := store.List(ctx, bookings.Filter{GuestName: name})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, nil
		}
		return &found[0], nil
	}
}
