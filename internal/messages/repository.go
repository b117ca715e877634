// Package messages stores inbound OTA source messages and their
// conversation threads. The reconciliation engine flips the processed
// flag; everything else is written at intake time.
package messages

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMessageNotFound = errors.New("source message not found")

// SourceMessage is one inbound OTA notification as received.
type SourceMessage struct {
	ID           string
	ThreadID     string
	Platform     string
	Subject      string
	Payload      []byte
	ExtractionID *uuid.UUID
	Processed    bool
	ReceivedAt   time.Time
}

// Repository provides data access for source messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new messages repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert stores an inbound message. Redelivery of the same message id
// refreshes the payload but never resets the processed flag.
func (r *Repository) Upsert(ctx context.Context, m SourceMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO source_messages (id, thread_id, platform, subject, payload, extraction_id, processed, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, now())
		ON CONFLICT (id) DO UPDATE
		SET thread_id = EXCLUDED.thread_id,
			platform = EXCLUDED.platform,
			subject = EXCLUDED.subject,
			payload = EXCLUDED.payload,
			extraction_id = EXCLUDED.extraction_id
	`, m.ID, m.ThreadID, m.Platform, m.Subject, m.Payload, m.ExtractionID)
	return err
}

// GetByID loads one source message.
func (r *Repository) GetByID(ctx context.Context, id string) (SourceMessage, error) {
	var m SourceMessage
	err := r.pool.QueryRow(ctx, `
		SELECT id, thread_id, platform, subject, payload, extraction_id, processed, received_at
		FROM source_messages
		WHERE id = $1
	`, id).Scan(&m.ID, &m.ThreadID, &m.Platform, &m.Subject, &m.Payload, &m.ExtractionID, &m.Processed, &m.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SourceMessage{}, ErrMessageNotFound
	}
	return m, err
}

// ThreadID resolves the conversation thread of a message. Empty when
// the message is unknown or carries no thread.
func (r *Repository) ThreadID(ctx context.Context, messageID string) (string, error) {
	var threadID *string
	err := r.pool.QueryRow(ctx, `
		SELECT thread_id FROM source_messages WHERE id = $1
	`, messageID).Scan(&threadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if threadID == nil {
		return "", nil
	}
	return *threadID, nil
}

// SiblingIDs returns all message ids in a thread, oldest first.
func (r *Repository) SiblingIDs(ctx context.Context, threadID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM source_messages
		WHERE thread_id = $1
		ORDER BY received_at ASC
	`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkProcessed flips the processed flag. Best-effort from the caller's
// point of view: a failure is logged there, never rolled back.
func (r *Repository) MarkProcessed(ctx context.Context, messageID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE source_messages SET processed = true WHERE id = $1
	`, messageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}
