package postgres

import (
	"context"
	"testing"
	"time"

	"custodial-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPIKey(userID uuid.UUID) *domain.APIKey {
	return &domain.APIKey{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        "ci-pipeline",
		TokenDigest: "digest_abc123",
		MaskedToken: "cwlk_ab12****",
		Permissions: domain.PermissionSet(domain.PermissionRead | domain.PermissionDeposit),
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour).Truncate(time.Microsecond),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func apiKeyTestColumns() []string {
	return []string{"id", "user_id", "name", "token_digest", "masked_token", "permissions", "expires_at", "revoked_at", "rolled_over_at", "rolled_from", "created_at"}
}

func apiKeyRow(k *domain.APIKey) *pgxmock.Rows {
	return pgxmock.NewRows(apiKeyTestColumns()).AddRow(
		k.ID, k.UserID, k.Name, k.TokenDigest, k.MaskedToken, k.Permissions.String(),
		k.ExpiresAt, k.RevokedAt, k.RolledOverAt, k.RolledFrom, k.CreatedAt,
	)
}

func TestAPIKeyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	k := newTestAPIKey(uuid.New())

	mock.ExpectExec("INSERT INTO api_keys").
		WithArgs(k.ID, k.UserID, k.Name, k.TokenDigest, k.MaskedToken, "read,deposit",
			k.ExpiresAt, k.RevokedAt, k.RolledOverAt, k.RolledFrom, k.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), k)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_GetByDigest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	k := newTestAPIKey(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM api_keys WHERE token_digest").
		WithArgs(k.TokenDigest).
		WillReturnRows(apiKeyRow(k))

	result, err := repo.GetByDigest(context.Background(), k.TokenDigest)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, k.ID, result.ID)
	// The CSV form round-trips back to the bitmask.
	assert.Equal(t, k.Permissions, result.Permissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_GetByDigest_UnknownReturnsNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM api_keys WHERE token_digest").
		WithArgs("no_such_digest").
		WillReturnRows(pgxmock.NewRows(apiKeyTestColumns()))

	result, err := repo.GetByDigest(context.Background(), "no_such_digest")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	userID := uuid.New()
	k1 := newTestAPIKey(userID)
	k2 := newTestAPIKey(userID)

	rows := pgxmock.NewRows(apiKeyTestColumns()).
		AddRow(k1.ID, k1.UserID, k1.Name, k1.TokenDigest, k1.MaskedToken, k1.Permissions.String(),
			k1.ExpiresAt, k1.RevokedAt, k1.RolledOverAt, k1.RolledFrom, k1.CreatedAt).
		AddRow(k2.ID, k2.UserID, k2.Name, k2.TokenDigest, k2.MaskedToken, k2.Permissions.String(),
			k2.ExpiresAt, k2.RevokedAt, k2.RolledOverAt, k2.RolledFrom, k2.CreatedAt)

	mock.ExpectQuery("SELECT .+ FROM api_keys WHERE user_id .+ ORDER BY created_at DESC").
		WithArgs(userID).
		WillReturnRows(rows)

	keys, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_CountActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT.+ FROM api_keys WHERE user_id .+ revoked_at IS NULL").
		WithArgs(userID, now).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActive(context.Background(), userID, now)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_Revoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE api_keys SET revoked_at").
		WithArgs(at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stamped, err := repo.Revoke(context.Background(), id, at)
	require.NoError(t, err)
	assert.True(t, stamped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_Revoke_AlreadyRevokedReturnsFalse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	// revoked_at IS NULL guard: no rows touched on the second revocation.
	mock.ExpectExec("UPDATE api_keys SET revoked_at").
		WithArgs(at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	stamped, err := repo.Revoke(context.Background(), id, at)
	require.NoError(t, err)
	assert.False(t, stamped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_MarkRolledOver(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE api_keys SET rolled_over_at").
		WithArgs(at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkRolledOver(context.Background(), id, at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
