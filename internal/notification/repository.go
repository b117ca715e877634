// Package notification records property-scoped operational notifications
// produced by the reconciliation engine.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"innsync_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification categories.
const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryWarning = "warning"
	CategoryError   = "error"
)

type Notification struct {
	ID         uuid.UUID       `json:"id"`
	PropertyID *uuid.UUID      `json:"propertyId,omitempty"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Category   string          `json:"category"`
	Platform   string          `json:"platform,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	IsRead     bool            `json:"isRead"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type CreateParams struct {
	PropertyID *uuid.UUID
	Title      string
	Content    string
	Category   string
	Platform   string
	Data       any
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("title and content are required")
	}

	category := p.Category
	if category == "" {
		category = CategoryInfo
	}

	var data []byte
	if p.Data != nil {
		encoded, err := json.Marshal(p.Data)
		if err != nil {
			return Notification{}, apperr.Wrap(apperr.KindInternal, "encode notification data", err)
		}
		data = encoded
	}

	var n Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (property_id, title, content, category, platform, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, property_id, title, content, category, platform, data, is_read, created_at
	`, p.PropertyID, p.Title, p.Content, category, p.Platform, data).Scan(
		&n.ID, &n.PropertyID, &n.Title, &n.Content, &n.Category, &n.Platform, &n.Data, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		return Notification{}, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("create notification failed: %v", err), err)
	}
	return n, nil
}

// List returns notifications newest first, optionally scoped to one
// property.
func (r *Repository) List(ctx context.Context, propertyID *uuid.UUID, limit, offset int) ([]Notification, int, error) {
	where := ""
	countArgs := []any{}
	args := []any{limit, offset}
	if propertyID != nil {
		where = "WHERE property_id = $3"
		args = append(args, *propertyID)
		countArgs = append(countArgs, *propertyID)
	}

	countQuery := `SELECT COUNT(*) FROM notifications`
	if propertyID != nil {
		countQuery += ` WHERE property_id = $1`
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count notifications failed", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, property_id, title, content, category, platform, data, is_read, created_at
		FROM notifications
		`+where+`
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list notifications failed", err)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.PropertyID, &n.Title, &n.Content, &n.Category, &n.Platform, &n.Data, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "scan notifications failed", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "iterate notifications failed", err)
	}
	return items, total, nil
}

func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark notification read failed", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, propertyID *uuid.UUID) error {
	query := `UPDATE notifications SET is_read = TRUE, read_at = now() WHERE is_read = FALSE`
	args := []any{}
	if propertyID != nil {
		query += ` AND property_id = $1`
		args = append(args, *propertyID)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark all notifications read failed", err)
	}
	return nil
}
