// Package guests provides the guest identity bounded context: storage of
// guest profiles and find-or-create resolution from OTA contact fields.
package guests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrGuestNotFound = errors.New("guest not found")

// Guest is a stored guest identity.
type Guest struct {
	ID               uuid.UUID
	Name             string
	Email            string
	Phone            string
	Address          string
	City             string
	Country          string
	MarketingConsent bool
	DataConsent      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Repository provides data access for guest identities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new guests repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const guestColumns = `id, name, email, phone, address, city, country,
	marketing_consent, data_consent, created_at, updated_at`

func scanGuest(row pgx.Row) (Guest, error) {
	var g Guest
	err := row.Scan(&g.ID, &g.Name, &g.Email, &g.Phone, &g.Address, &g.City,
		&g.Country, &g.MarketingConsent, &g.DataConsent, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Guest{}, ErrGuestNotFound
	}
	return g, err
}

// FindByEmail returns the guest with an exact email match.
func (r *Repository) FindByEmail(ctx context.Context, email string) (Guest, error) {
	return scanGuest(r.pool.QueryRow(ctx, `
		SELECT `+guestColumns+`
		FROM guests
		WHERE email = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, email))
}

// FindByPhone returns the guest with an exact phone match.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (Guest, error) {
	return scanGuest(r.pool.QueryRow(ctx, `
		SELECT `+guestColumns+`
		FROM guests
		WHERE phone = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, phone))
}

// Create inserts a new guest identity.
func (r *Repository) Create(ctx context.Context, g Guest) (Guest, error) {
	return scanGuest(r.pool.QueryRow(ctx, `
		INSERT INTO guests (name, email, phone, address, city, country, marketing_consent, data_consent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+guestColumns+`
	`, g.Name, g.Email, g.Phone, g.Address, g.City, g.Country, g.MarketingConsent, g.DataConsent))
}

// Update persists merged fields on an existing guest.
func (r *Repository) Update(ctx context.Context, g Guest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE guests
		SET name = $2, email = $3, phone = $4, address = $5, city = $6, country = $7, updated_at = now()
		WHERE id = $1
	`, g.ID, g.Name, g.Email, g.Phone, g.Address, g.City, g.Country)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuestNotFound
	}
	return nil
}
