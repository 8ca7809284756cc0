package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custodial-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// APIKeyRepo implements ports.APIKeyRepository. Permission sets are stored as
// their comma-separated wire form.
type APIKeyRepo struct {
	pool Pool
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(pool Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

const apiKeyColumns = `id, user_id, name, token_digest, masked_token, permissions, expires_at, revoked_at, rolled_over_at, rolled_from, created_at`

// Create inserts a new API key.
func (r *APIKeyRepo) Create(ctx context.Context, k *domain.APIKey) error {
	query := `INSERT INTO api_keys (id, user_id, name, token_digest, masked_token, permissions, expires_at, revoked_at, rolled_over_at, rolled_from, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		k.ID, k.UserID, k.Name, k.TokenDigest, k.MaskedToken, k.Permissions.String(),
		k.ExpiresAt, k.RevokedAt, k.RolledOverAt, k.RolledFrom, k.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetByID fetches an API key by UUID.
func (r *APIKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return scanAPIKey(r.pool.QueryRow(ctx, query, id))
}

// GetByDigest fetches an API key by the digest of the presented token. The
// digest column is uniquely indexed; this is the per-request lookup path.
func (r *APIKeyRepo) GetByDigest(ctx context.Context, digest string) (*domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE token_digest = $1`
	return scanAPIKey(r.pool.QueryRow(ctx, query, digest))
}

// ListByUser returns all of an identity's keys, newest first.
func (r *APIKeyRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		k, err := scanAPIKeyRow(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}

// CountActive counts keys that are neither revoked nor expired at now.
func (r *APIKeyRepo) CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM api_keys WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active api keys: %w", err)
	}
	return count, nil
}

// Revoke stamps revoked_at if not already stamped. The IS NULL guard keeps a
// second revocation from overwriting the original timestamp.
func (r *APIKeyRepo) Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("revoke api key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRolledOver stamps the audit marker on an expired key that has been
// superseded via rollover.
func (r *APIKeyRepo) MarkRolledOver(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE api_keys SET rolled_over_at = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("mark api key rolled over: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key not found: %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKeyRow(row rowScanner) (*domain.APIKey, error) {
	k := &domain.APIKey{}
	var perms string
	err := row.Scan(
		&k.ID, &k.UserID, &k.Name, &k.TokenDigest, &k.MaskedToken, &perms,
		&k.ExpiresAt, &k.RevokedAt, &k.RolledOverAt, &k.RolledFrom, &k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	set, err := domain.ParsePermissionSet(perms)
	if err != nil {
		return nil, fmt.Errorf("parse stored permissions: %w", err)
	}
	k.Permissions = set
	return k, nil
}

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	k, err := scanAPIKeyRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}
