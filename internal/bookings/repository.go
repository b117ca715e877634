// Package bookings provides the canonical reservation store. The
// reconciliation engine is its only OTA-facing writer; direct
// reservation flows share the same table.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrBookingNotFound = errors.New("booking not found")

// Booking source values.
const (
	SourceDirect     = "direct"
	SourceOTA        = "ota"
	SourceICalImport = "ical_import"
)

// Booking is one canonical reservation.
type Booking struct {
	ID              uuid.UUID  `json:"id"`
	PropertyID      uuid.UUID  `json:"propertyId"`
	GuestName       string     `json:"guestName"`
	RoomNo          string     `json:"roomNo,omitempty"`
	RoomCount       int        `json:"roomCount"`
	CheckIn         *time.Time `json:"checkIn,omitempty"`
	CheckOut        *time.Time `json:"checkOut,omitempty"`
	NoOfPax         int        `json:"noOfPax"`
	AdultChild      string     `json:"adultChild,omitempty"`
	Status          string     `json:"status"`
	Cancelled       bool       `json:"cancelled"`
	TotalAmount     *float64   `json:"totalAmount,omitempty"`
	PaymentStatus   string     `json:"paymentStatus,omitempty"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	SpecialRequests string     `json:"specialRequests,omitempty"`
	Source          string     `json:"source"`
	SourceProvider  string     `json:"sourceProvider,omitempty"`
	SourceOTARef    string     `json:"sourceOtaRef,omitempty"`
	GuestID         *uuid.UUID `json:"guestId,omitempty"`
	BookingDate     time.Time  `json:"bookingDate"`
	FolioNo         string     `json:"folioNo,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CreateParams carries the fields for a new OTA-sourced booking.
type CreateParams struct {
	PropertyID      uuid.UUID
	GuestName       string
	RoomNo          string
	RoomCount       int
	CheckIn         time.Time
	CheckOut        time.Time
	NoOfPax         int
	AdultChild      string
	TotalAmount     *float64
	PaymentStatus   string
	Email           string
	Phone           string
	SpecialRequests string
	Source          string
	SourceProvider  string
	SourceOTARef    string
	GuestID         *uuid.UUID
}

// UpdateParams is a partial update: nil fields are left untouched.
type UpdateParams struct {
	GuestName       *string     `json:"guestName,omitempty"`
	RoomNo          *string     `json:"roomNo,omitempty"`
	RoomCount       *int        `json:"roomCount,omitempty"`
	CheckIn         *time.Time  `json:"checkIn,omitempty"`
	CheckOut        *time.Time  `json:"checkOut,omitempty"`
	NoOfPax         *int        `json:"noOfPax,omitempty"`
	AdultChild      *string     `json:"adultChild,omitempty"`
	TotalAmount     *float64    `json:"totalAmount,omitempty"`
	PaymentStatus   *string     `json:"paymentStatus,omitempty"`
	Email           *string     `json:"email,omitempty"`
	Phone           *string     `json:"phone,omitempty"`
	SpecialRequests *string     `json:"specialRequests,omitempty"`
	Source          *string     `json:"source,omitempty"`
	SourceProvider  *string     `json:"sourceProvider,omitempty"`
	SourceOTARef    *string     `json:"sourceOtaRef,omitempty"`
	GuestID         *uuid.UUID  `json:"guestId,omitempty"`
}

// Filter narrows booking searches for the candidate matcher.
type Filter struct {
	// PropertyID scopes the search; uuid.Nil searches all properties.
	PropertyID uuid.UUID
	// SourceOTARef matches source_ota_ref exactly when non-empty.
	SourceOTARef string
	// CheckIn/CheckOut require exact stay-date equality when set.
	CheckIn  *time.Time
	CheckOut *time.Time
	// GuestName matches case-insensitively when non-empty.
	GuestName string
	// IncludeCancelled includes cancelled rows; matching skips them by default.
	IncludeCancelled bool
}

// Repository provides data access for bookings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new bookings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookingColumns = `id, property_id, guest_name, room_no, room_count,
	check_in, check_out, no_of_pax, adult_child, status, cancelled,
	total_amount, payment_status, email, phone, special_requests,
	source, source_provider, source_ota_ref, guest_id, booking_date,
	folio_no, created_at, updated_at`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.PropertyID, &b.GuestName, &b.RoomNo, &b.RoomCount,
		&b.CheckIn, &b.CheckOut, &b.NoOfPax, &b.AdultChild, &b.Status, &b.Cancelled,
		&b.TotalAmount, &b.PaymentStatus, &b.Email, &b.Phone, &b.SpecialRequests,
		&b.Source, &b.SourceProvider, &b.SourceOTARef, &b.GuestID, &b.BookingDate,
		&b.FolioNo, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrBookingNotFound
	}
	return b, err
}

// GetByID loads one booking.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id))
}

// List returns bookings matching the filter, most recent first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Booking, error) {
	where := []string{"1=1"}
	args := []any{}

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.PropertyID != uuid.Nil {
		add("property_id = $%d", f.PropertyID)
	}
	if f.SourceOTARef != "" {
		add("source_ota_ref = $%d", f.SourceOTARef)
	}
	if f.CheckIn != nil {
		add("check_in = $%d", *f.CheckIn)
	}
	if f.CheckOut != nil {
		add("check_out = $%d", *f.CheckOut)
	}
	if f.GuestName != "" {
		add("lower(guest_name) = lower($%d)", f.GuestName)
	}
	if !f.IncludeCancelled {
		where = append(where, "cancelled = false")
	}

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// Create inserts a new booking and returns the stored row.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `
		INSERT INTO bookings (
			property_id, guest_name, room_no, room_count, check_in, check_out,
			no_of_pax, adult_child, status, cancelled, total_amount, payment_status,
			email, phone, special_requests, source, source_provider, source_ota_ref,
			guest_id, booking_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'confirmed', false, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, now())
		RETURNING `+bookingColumns+`
	`, p.PropertyID, p.GuestName, p.RoomNo, p.RoomCount, p.CheckIn, p.CheckOut,
		p.NoOfPax, p.AdultChild, p.TotalAmount, p.PaymentStatus,
		p.Email, p.Phone, p.SpecialRequests, p.Source, p.SourceProvider, p.SourceOTARef,
		p.GuestID))
}

// Update applies the non-nil fields of p and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (Booking, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.GuestName != nil {
		add("guest_name", *p.GuestName)
	}
	if p.RoomNo != nil {
		add("room_no", *p.RoomNo)
	}
	if p.RoomCount != nil {
		add("room_count", *p.RoomCount)
	}
	if p.CheckIn != nil {
		add("check_in", *p.CheckIn)
	}
	if p.CheckOut != nil {
		add("check_out", *p.CheckOut)
	}
	if p.NoOfPax != nil {
		add("no_of_pax", *p.NoOfPax)
	}
	if p.AdultChild != nil {
		add("adult_child", *p.AdultChild)
	}
	if p.TotalAmount != nil {
		add("total_amount", *p.TotalAmount)
	}
	if p.PaymentStatus != nil {
		add("payment_status", *p.PaymentStatus)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.SpecialRequests != nil {
		add("special_requests", *p.SpecialRequests)
	}
	if p.Source != nil {
		add("source", *p.Source)
	}
	if p.SourceProvider != nil {
		add("source_provider", *p.SourceProvider)
	}
	if p.SourceOTARef != nil {
		add("source_ota_ref", *p.SourceOTARef)
	}
	if p.GuestID != nil {
		add("guest_id", *p.GuestID)
	}

	query := `
		UPDATE bookings
		SET ` + strings.Join(set, ", ") + `
		WHERE id = $1
		RETURNING ` + bookingColumns

	return scanBooking(r.pool.QueryRow(ctx, query, args...))
}

// Cancel marks a booking cancelled. Returns false when the booking does
// not exist or is already cancelled.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET cancelled = true, status = 'cancelled', updated_at = now()
		WHERE id = $1 AND cancelled = false
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
