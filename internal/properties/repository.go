// Package properties provides the property directory bounded context.
// Reconciliation only reads from it: active properties and their
// names/addresses for hint resolution.
package properties

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPropertyNotFound = errors.New("property not found")

// Property is a bookable property in the directory.
type Property struct {
	ID        uuid.UUID
	Name      string
	Address   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides data access for the property directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new properties repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActive returns all active properties ordered by creation time, so
// "first active property" is stable across calls.
func (r *Repository) ListActive(ctx context.Context) ([]Property, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, address, is_active, created_at, updated_at
		FROM properties
		WHERE is_active = true
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// GetByID loads one property.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Property, error) {
	var p Property
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, address, is_active, created_at, updated_at
		FROM properties
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Address, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrPropertyNotFound
	}
	return p, err
}
