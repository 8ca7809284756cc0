package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports/mocks"
	"custodial-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type apiKeyTestDeps struct {
	svc     *APIKeyServiceImpl
	keyRepo *mocks.MockAPIKeyRepository
	ctrl    *gomock.Controller
}

func setupAPIKeyService(t *testing.T) *apiKeyTestDeps {
	ctrl := gomock.NewController(t)
	d := &apiKeyTestDeps{
		keyRepo: mocks.NewMockAPIKeyRepository(ctrl),
		ctrl:    ctrl,
	}
	d.svc = NewAPIKeyService(d.keyRepo, 5, zerolog.Nop())
	return d
}

func TestAPIKeyService_Create_Success(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	identity := domain.Identity{ID: uuid.New()}
	perms := domain.PermissionSet(domain.PermissionRead | domain.PermissionDeposit)

	d.keyRepo.EXPECT().CountActive(ctx, identity.ID, gomock.Any()).Return(2, nil)

	var stored *domain.APIKey
	d.keyRepo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, key *domain.APIKey) error {
			stored = key
			return nil
		})

	created, err := d.svc.Create(ctx, identity, "ci-pipeline", perms, domain.ExpiryDay)
	require.NoError(t, err)

	// The plaintext token comes back exactly once; only the digest is stored.
	assert.True(t, strings.HasPrefix(created.Token, TokenPrefix))
	assert.Len(t, created.Token, len(TokenPrefix)+64)
	require.NotNil(t, stored)
	assert.Equal(t, DigestToken(created.Token), stored.TokenDigest)
	assert.NotContains(t, stored.MaskedToken, created.Token[len(TokenPrefix)+4:])
	assert.Equal(t, perms, stored.Permissions)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 1), stored.ExpiresAt, 5*time.Second)
}

func TestAPIKeyService_Create_NoPermissions(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	created, err := d.svc.Create(context.Background(), domain.Identity{ID: uuid.New()}, "x", 0, domain.ExpiryDay)
	assert.Nil(t, created)
	assertAppError(t, err, apperror.CodeInvalidOperation)
}

func TestAPIKeyService_Create_UnknownExpiryUnit(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	created, err := d.svc.Create(context.Background(), domain.Identity{ID: uuid.New()}, "x",
		domain.PermissionSet(domain.PermissionRead), domain.ExpiryUnit("2W"))
	assert.Nil(t, created)
	assertAppError(t, err, apperror.CodeInvalidOperation)
}

func TestAPIKeyService_Create_ActiveLimitReached(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	identity := domain.Identity{ID: uuid.New()}

	d.keyRepo.EXPECT().CountActive(ctx, identity.ID, gomock.Any()).Return(5, nil)

	created, err := d.svc.Create(ctx, identity, "one-too-many",
		domain.PermissionSet(domain.PermissionRead), domain.ExpiryDay)
	assert.Nil(t, created)
	assertAppError(t, err, apperror.CodeLimitExceeded)
}

func TestAPIKeyService_Revoke_Success(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	identity := domain.Identity{ID: uuid.New()}
	keyID := uuid.New()

	d.keyRepo.EXPECT().GetByID(ctx, keyID).Return(&domain.APIKey{
		ID: keyID, UserID: identity.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	d.keyRepo.EXPECT().Revoke(ctx, keyID, gomock.Any()).Return(true, nil)

	require.NoError(t, d.svc.Revoke(ctx, identity, keyID))
}

func TestAPIKeyService_Revoke_NotFound(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	keyID := uuid.New()

	d.keyRepo.EXPECT().GetByID(ctx, keyID).Return(nil, nil)

	err := d.svc.Revoke(ctx, domain.Identity{ID: uuid.New()}, keyID)
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestAPIKeyService_Revoke_ForeignKeyForbidden(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	keyID := uuid.New()

	d.keyRepo.EXPECT().GetByID(ctx, keyID).Return(&domain.APIKey{
		ID: keyID, UserID: uuid.New(), // someone else's key
	}, nil)

	err := d.svc.Revoke(ctx, domain.Identity{ID: uuid.New()}, keyID)
	assertAppError(t, err, apperror.CodeForbidden)
}

func TestAPIKeyService_Revoke_SecondRevokeIsNoOp(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	identity := domain.Identity{ID: uuid.New()}
	keyID := uuid.New()
	revokedAt := time.Now().Add(-time.Hour)

	d.keyRepo.EXPECT().GetByID(ctx, keyID).Return(&domain.APIKey{
		ID: keyID, UserID: identity.ID, RevokedAt: &revokedAt,
	}, nil)
	// Guarded stamp returns false: the original timestamp stands.
	d.keyRepo.EXPECT().Revoke(ctx, keyID, gomock.Any()).Return(false, nil)

	require.NoError(t, d.svc.Revoke(ctx, identity, keyID))
}

func TestAPIKeyService_Rollover_ExpiredKeySucceeds(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	identity := domain.Identity{ID: uuid.New()}
	keyID := uuid.New()
	perms := domain.PermissionSet(domain.PermissionRead | domain.PermissionTransfer)

	d.keyRepo.EXPECT().GetByID(ctx, keyID).Return(&domain.APIKey{
		ID: keyID, UserID: identity.ID, Name: "reporting",
		Permissions: perms,
		ExpiresAt:   time.Now().Add(-time.Minute), // expired
	}, nil)
	d.keyRepo.EXPECT().MarkRolledOver(ctx, keyID, gomock.Any()).Return(nil)

	var stored *domain.APIKey
	d.keyRepo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, key *domain.APIKey) error {
			stored = key
			return nil
		})

	created, err := d.svc.Rollover(ctx, identity, keyID, domain.ExpiryMonth)
	require.NoError(t, err)

	// The replacement inherits name and permissions and records its lineage.
	require.NotNil(t, stored)
	assert.Equal(t, "reporting", stored.Name)
	assert.Equal(t, perms, stored.Permissions)
	require.NotNil(t, stored.RolledFrom)
	assert.Equal(t, keyID, *stored.RolledFrom)
	assert.NotEqual(t, keyID, created.Key.ID)
	assert.True(t, strings.HasPrefix(created.Token, TokenPrefix))
}

func TestAPIKeyService_Rollover_ActiveKeyRejected(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	identity := domain.Identity{ID: uuid.New()}
	keyID := uuid.New()

	d.keyRepo.EXPECT().GetByID(ctx, keyID).Return(&domain.APIKey{
		ID: keyID, UserID: identity.ID,
		ExpiresAt: time.Now().Add(time.Hour), // still active
	}, nil)

	created, err := d.svc.Rollover(ctx, identity, keyID, domain.ExpiryDay)
	assert.Nil(t, created)
	assertAppError(t, err, apperror.CodeInvalidState)
}

func TestAPIKeyService_Rollover_RevokedKeyRejected(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	identity := domain.Identity{ID: uuid.New()}
	keyID := uuid.New()
	revokedAt := time.Now().Add(-time.Hour)

	// Revoked takes precedence even when the key is also expired.
	d.keyRepo.EXPECT().GetByID(ctx, keyID).Return(&domain.APIKey{
		ID: keyID, UserID: identity.ID,
		RevokedAt: &revokedAt,
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	created, err := d.svc.Rollover(ctx, identity, keyID, domain.ExpiryDay)
	assert.Nil(t, created)
	assertAppError(t, err, apperror.CodeInvalidState)
}

func TestDigestToken_Deterministic(t *testing.T) {
	a := DigestToken("cwlk_aabbcc")
	b := DigestToken("cwlk_aabbcc")
	c := DigestToken("cwlk_aabbcd")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // BLAKE2b-256, hex
}
