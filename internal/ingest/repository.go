// Package ingest provides the OTA intake bounded context. It accepts
// parsed booking events from the upstream extraction pipeline,
// persists them as source messages, and enqueues reconciliation.
package ingest

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAPIKeyNotFound = errors.New("ota API key not found")

// APIKey represents an intake API key stored in the database.
type APIKey struct {
	ID         uuid.UUID
	Name       string
	KeyHash    string
	KeyPrefix  string
	IsActive   bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Repository provides data access for intake API keys.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new ingest repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GenerateAPIKey creates a new random API key and returns the plaintext
// key and its hash. The plaintext is returned only once; only the hash
// is stored.
func GenerateAPIKey() (plaintext string, hash string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}
	plaintext = "ota_" + hex.EncodeToString(bytes)
	h := sha256.Sum256([]byte(plaintext))
	hash = hex.EncodeToString(h[:])
	prefix = plaintext[:12] // "ota_" + 8 hex chars
	return plaintext, hash, prefix, nil
}

// HashKey hashes a plaintext API key for lookup.
func HashKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// Create creates a new API key record.
func (r *Repository) Create(ctx context.Context, name string, keyHash string, keyPrefix string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ota_api_keys (name, key_hash, key_prefix)
		VALUES ($1, $2, $3)
		RETURNING id, name, key_hash, key_prefix, is_active, created_at, last_used_at
	`, name, keyHash, keyPrefix).Scan(
		&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix,
		&key.IsActive, &key.CreatedAt, &key.LastUsedAt,
	)
	return key, err
}

// GetByHash retrieves an active API key by its hash.
func (r *Repository) GetByHash(ctx context.Context, keyHash string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, key_hash, key_prefix, is_active, created_at, last_used_at
		FROM ota_api_keys
		WHERE key_hash = $1 AND is_active = true
	`, keyHash).Scan(
		&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix,
		&key.IsActive, &key.CreatedAt, &key.LastUsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrAPIKeyNotFound
	}
	return key, err
}

// List returns all API keys, newest first.
func (r *Repository) List(ctx context.Context) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, key_hash, key_prefix, is_active, created_at, last_used_at
		FROM ota_api_keys
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var key APIKey
		if err := rows.Scan(
			&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix,
			&key.IsActive, &key.CreatedAt, &key.LastUsedAt,
		); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Revoke deactivates an API key.
func (r *Repository) Revoke(ctx context.Context, keyID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ota_api_keys SET is_active = false WHERE id = $1
	`, keyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// TouchLastUsed records key usage. Best-effort; callers ignore errors.
func (r *Repository) TouchLastUsed(ctx context.Context, keyID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ota_api_keys SET last_used_at = now() WHERE id = $1
	`, keyID)
	return err
}
