package guests

import (
	"context"
	"errors"
	"strings"

	"innsync_backend/platform/logger"
	"innsync_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the data access interface the resolver needs. Satisfied by Repository.
type Store interface {
	FindByEmail(ctx context.Context, email string) (Guest, error)
	FindByPhone(ctx context.Context, phone string) (Guest, error)
	Create(ctx context.Context, g Guest) (Guest, error)
	Update(ctx context.Context, g Guest) error
}

// Resolver finds or creates a guest identity from OTA contact fields.
// All failures are non-fatal: reconciliation proceeds with uuid.Nil.
type Resolver struct {
	store          Store
	defaultCountry string
	log            *logger.Logger
}

// NewResolver creates a guest resolver. New identities get consent
// defaults of true and the given default country.
func NewResolver(store Store, defaultCountry string, log *logger.Logger) *Resolver {
	return &Resolver{store: store, defaultCountry: defaultCountry, log: log}
}

// ResolveOrCreate looks a guest up by email first, then phone. On a hit
// it merges only the non-empty incoming fields; a populated column is
// never overwritten with an empty value. On a miss it creates a new
// identity if at least one contact field exists.
func (r *Resolver) ResolveOrCreate(ctx context.Context, name, email, phoneNo string) uuid.UUID {
	email = strings.TrimSpace(strings.ToLower(email))
	phoneNo = phone.NormalizeE164(phoneNo)
	name = strings.TrimSpace(name)

	existing, found, err := r.lookup(ctx, email, phoneNo)
	if err != nil {
		r.log.Error("guest resolution failed, continuing without guest", "error", err)
		return uuid.Nil
	}

	if found {
		if merged := mergeContact(&existing, name, email, phoneNo); merged {
			if err := r.store.Update(ctx, existing); err != nil {
				r.log.Error("guest merge update failed", "error", err, "guestId", existing.ID)
			}
		}
		return existing.ID
	}

	if email == "" && phoneNo == "" {
		return uuid.Nil
	}

	created, err := r.store.Create(ctx, Guest{
		Name:             name,
		Email:            email,
		Phone:            phoneNo,
		Country:          r.defaultCountry,
		MarketingConsent: true,
		DataConsent:      true,
	})
	if err != nil {
		r.log.Error("guest creation failed, continuing without guest", "error", err)
		return uuid.Nil
	}
	return created.ID
}

func (r *Resolver) lookup(ctx context.Context, email, phoneNo string) (Guest, bool, error) {
	if email != "" {
		g, err := r.store.FindByEmail(ctx, email)
		if err == nil {
			return g, true, nil
		}
		if !errors.Is(err, ErrGuestNotFound) {
			return Guest{}, false, err
		}
	}
	if phoneNo != "" {
		g, err := r.store.FindByPhone(ctx, phoneNo)
		if err == nil {
			return g, true, nil
		}
		if !errors.Is(err, ErrGuestNotFound) {
			return Guest{}, false, err
		}
	}
	return Guest{}, false, nil
}

// mergeContact copies non-empty incoming fields onto the stored guest.
// Returns true when anything changed.
func mergeContact(g *Guest, name, email, phoneNo string) bool {
	changed := false
	if name != "" && g.Name != name {
		g.Name = name
		changed = true
	}
	if email != "" && g.Email != email {
		g.Email = email
		changed = true
	}
	if phoneNo != "" && g.Phone != phoneNo {
		g.Phone = phoneNo
		changed = true
	}
	return changed
}
