package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLedgerEntryNotFound = errors.New("import ledger entry not found")

// LedgerEntry is the audit record of one reconciliation outcome. The
// source message id is the unique key: reprocessing overwrites, never
// duplicates, which is what makes the pipeline safely re-runnable.
type LedgerEntry struct {
	MessageID    string
	ExtractionID *uuid.UUID
	PropertyID   *uuid.UUID
	EventType    EventType
	Decision     Decision
	BookingID    *uuid.UUID
	ImportErrors *ImportError
	ProcessedAt  time.Time
	ProcessedBy  string
}

// LedgerRepository provides data access for the import ledger.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Upsert writes the outcome for a message, overwriting any prior row
// with the same message id.
func (r *LedgerRepository) Upsert(ctx context.Context, entry LedgerEntry) error {
	var importErrors []byte
	if entry.ImportErrors != nil {
		data, err := json.Marshal(entry.ImportErrors)
		if err != nil {
			return err
		}
		importErrors = data
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO import_ledger (message_id, extraction_id, property_id, event_type, decision, booking_id, import_errors, processed_at, processed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), $8)
		ON CONFLICT (message_id) DO UPDATE
		SET extraction_id = EXCLUDED.extraction_id,
			property_id = EXCLUDED.property_id,
			event_type = EXCLUDED.event_type,
			decision = EXCLUDED.decision,
			booking_id = EXCLUDED.booking_id,
			import_errors = EXCLUDED.import_errors,
			processed_at = now(),
			processed_by = EXCLUDED.processed_by
	`, entry.MessageID, entry.ExtractionID, entry.PropertyID, entry.EventType,
		entry.Decision, entry.BookingID, importErrors, entry.ProcessedBy)
	return err
}

// GetByMessageID loads the ledger row for one source message.
func (r *LedgerRepository) GetByMessageID(ctx context.Context, messageID string) (LedgerEntry, error) {
	var entry LedgerEntry
	var importErrors []byte
	err := r.pool.QueryRow(ctx, `
		SELECT message_id, extraction_id, property_id, event_type, decision, booking_id, import_errors, processed_at, processed_by
		FROM import_ledger
		WHERE message_id = $1
	`, messageID).Scan(&entry.MessageID, &entry.ExtractionID, &entry.PropertyID,
		&entry.EventType, &entry.Decision, &entry.BookingID, &importErrors,
		&entry.ProcessedAt, &entry.ProcessedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return LedgerEntry{}, ErrLedgerEntryNotFound
	}
	if err != nil {
		return LedgerEntry{}, err
	}
	if len(importErrors) > 0 {
		var importErr ImportError
		if err := json.Unmarshal(importErrors, &importErr); err != nil {
			return LedgerEntry{}, err
		}
		entry.ImportErrors = &importErr
	}
	return entry, nil
}

// LatestBookingRef returns the booking id of the most recently
// processed ledger entry among the given messages, or nil when none of
// them produced a booking.
func (r *LedgerRepository) LatestBookingRef(ctx context.Context, messageIDs []string) (*uuid.UUID, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var bookingID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT booking_id
		FROM import_ledger
		WHERE message_id = ANY($1) AND booking_id IS NOT NULL
		ORDER BY processed_at DESC
		LIMIT 1
	`, messageIDs).Scan(&bookingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bookingID, nil
}
