package reconcile

import (
	"context"

	"innsync_backend/internal/bookings"
	"innsync_backend/internal/messages"

	"github.com/google/uuid"
)

// BookingStore is the canonical reservation store collaborator.
// Satisfied by bookings.Repository.
type BookingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (bookings.Booking, error)
	List(ctx context.Context, f bookings.Filter) ([]bookings.Booking, error)
	Create(ctx context.Context, p bookings.CreateParams) (bookings.Booking, error)
	Update(ctx context.Context, id uuid.UUID, p bookings.UpdateParams) (bookings.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// PropertyResolver maps a hint to a property id. Satisfied by
// properties.Resolver.
type PropertyResolver interface {
	Resolve(ctx context.Context, hint string) uuid.UUID
}

// GuestResolver finds or creates a guest identity. Satisfied by
// guests.Resolver.
type GuestResolver interface {
	ResolveOrCreate(ctx context.Context, name, email, phone string) uuid.UUID
}

// MessageStore provides thread lookups and the processed flag.
// Satisfied by messages.Repository.
type MessageStore interface {
	GetByID(ctx context.Context, id string) (messages.SourceMessage, error)
	ThreadID(ctx context.Context, messageID string) (string, error)
	SiblingIDs(ctx context.Context, threadID string) ([]string, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// LedgerStore persists reconciliation outcomes keyed by source message.
// Satisfied by LedgerRepository.
type LedgerStore interface {
	Upsert(ctx context.Context, entry LedgerEntry) error
	GetByMessageID(ctx context.Context, messageID string) (LedgerEntry, error)
	LatestBookingRef(ctx context.Context, messageIDs []string) (*uuid.UUID, error)
}
