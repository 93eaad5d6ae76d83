package repository

import (
	"context"
	"database/sql"
	"time"

	"driftline/internal/domain"
)

// APIKeyRepo persists API keys and implements middleware.APIKeyLookup.
type APIKeyRepo struct {
	db *sql.DB
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo {
	return &APIKeyRepo{db: db}
}

// Create inserts a new API key record.
func (r *APIKeyRepo) Create(ctx context.Context, k *domain.APIKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, name, key_prefix, key_hash, created_by, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.Name, k.KeyPrefix, k.KeyHash, k.CreatedBy, nullTimeFrom(k.ExpiresAt), k.CreatedAt)
	return mapDBError(err)
}

// LookupPrincipalByAPIKeyHash returns the key name for a valid, unexpired key hash.
func (r *APIKeyRepo) LookupPrincipalByAPIKeyHash(ctx context.Context, keyHash string) (string, error) {
	var name string
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT name, expires_at FROM api_keys WHERE key_hash = ?`, keyHash).
		Scan(&name, &expiresAt)
	if err != nil {
		return "", mapDBError(err)
	}
	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		return "", domain.ErrAccessDenied("api key %q is expired", name)
	}
	return name, nil
}

// List returns API keys ordered by creation time, newest first.
func (r *APIKeyRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.APIKey, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, key_prefix, key_hash, created_by, expires_at, created_at
		FROM api_keys ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var keys []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		var expiresAt sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.KeyHash, &k.CreatedBy, &expiresAt, &k.CreatedAt); err != nil {
			return nil, 0, err
		}
		k.ExpiresAt = timePtr(expiresAt)
		keys = append(keys, k)
	}
	return keys, total, rows.Err()
}

// Delete removes an API key by ID.
func (r *APIKeyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("api key %q not found", id)
	}
	return nil
}

// DeleteExpired removes all keys whose expiry has passed.
func (r *APIKeyRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE expires_at IS NOT NULL AND expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
