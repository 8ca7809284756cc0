package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
)

// TokenPrefix is the recognizable prefix on every issued key secret.
const TokenPrefix = "cwlk_"

const tokenSecretBytes = 32

// APIKeyServiceImpl implements ports.APIKeyService. Secrets are shown once at
// creation; only a BLAKE2b-256 digest is stored, and lookups go through the
// digest index so no variable-time secret comparison exists.
type APIKeyServiceImpl struct {
	keyRepo   ports.APIKeyRepository
	maxActive int
	log       zerolog.Logger
}

// NewAPIKeyService creates a new APIKeyServiceImpl. maxActive is the cap on
// simultaneously active keys per identity, threaded in from configuration.
func NewAPIKeyService(keyRepo ports.APIKeyRepository, maxActive int, log zerolog.Logger) *APIKeyServiceImpl {
	return &APIKeyServiceImpl{
		keyRepo:   keyRepo,
		maxActive: maxActive,
		log:       log,
	}
}

// DigestToken computes the stored digest of a presented token.
func DigestToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create issues a new API key for the identity with the given permission
// subset and lifetime.
func (s *APIKeyServiceImpl) Create(ctx context.Context, identity domain.Identity, name string, perms domain.PermissionSet, unit domain.ExpiryUnit) (*ports.CreatedAPIKey, error) {
	if perms == 0 {
		return nil, apperror.ErrInvalidOperation("at least one permission is required")
	}

	now := time.Now().UTC()
	expiresAt, err := unit.ExpiryFrom(now)
	if err != nil {
		return nil, apperror.ErrInvalidOperation(err.Error())
	}

	active, err := s.keyRepo.CountActive(ctx, identity.ID, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count active keys: %w", err))
	}
	if active >= s.maxActive {
		return nil, apperror.ErrLimitExceeded(fmt.Sprintf("at most %d active API keys are allowed", s.maxActive))
	}

	return s.issue(ctx, identity, name, perms, expiresAt, nil, now)
}

// Revoke permanently disables a key. A second revocation of an already
// revoked key is a no-op and the original timestamp is preserved.
func (s *APIKeyServiceImpl) Revoke(ctx context.Context, identity domain.Identity, keyID uuid.UUID) error {
	key, err := s.lookupOwned(ctx, identity, keyID)
	if err != nil {
		return err
	}

	stamped, err := s.keyRepo.Revoke(ctx, key.ID, time.Now().UTC())
	if err != nil {
		return apperror.InternalError(fmt.Errorf("revoke key: %w", err))
	}
	if !stamped {
		s.log.Debug().Str("key_id", keyID.String()).Msg("revoke repeated on already revoked key")
	}
	return nil
}

// Rollover supersedes an expired key with a fresh one inheriting its
// permission set. Active keys cannot be rolled over, and revoked keys can
// never be rolled over.
func (s *APIKeyServiceImpl) Rollover(ctx context.Context, identity domain.Identity, keyID uuid.UUID, unit domain.ExpiryUnit) (*ports.CreatedAPIKey, error) {
	old, err := s.lookupOwned(ctx, identity, keyID)
	if err != nil {
		return nil, err
	}

	if old.IsRevoked() {
		return nil, apperror.ErrInvalidState("revoked API keys cannot be rolled over")
	}
	now := time.Now().UTC()
	if !old.IsExpired(now) {
		return nil, apperror.ErrInvalidState("API key is still active; rollover applies to expired keys only")
	}

	expiresAt, err := unit.ExpiryFrom(now)
	if err != nil {
		return nil, apperror.ErrInvalidOperation(err.Error())
	}

	// The old key is already expired, so it is stamped rather than revoked.
	if err := s.keyRepo.MarkRolledOver(ctx, old.ID, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark rolled over: %w", err))
	}

	created, err := s.issue(ctx, identity, old.Name, old.Permissions, expiresAt, &old.ID, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("old_key_id", old.ID.String()).
		Str("new_key_id", created.Key.ID.String()).
		Msg("api key rolled over")

	return created, nil
}

// List returns all of the identity's keys, without secrets.
func (s *APIKeyServiceImpl) List(ctx context.Context, identity domain.Identity) ([]domain.APIKey, error) {
	keys, err := s.keyRepo.ListByUser(ctx, identity.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list keys: %w", err))
	}
	return keys, nil
}

func (s *APIKeyServiceImpl) issue(ctx context.Context, identity domain.Identity, name string, perms domain.PermissionSet, expiresAt time.Time, rolledFrom *uuid.UUID, now time.Time) (*ports.CreatedAPIKey, error) {
	token, err := generateToken()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	key := domain.APIKey{
		ID:          uuid.New(),
		UserID:      identity.ID,
		Name:        name,
		TokenDigest: DigestToken(token),
		MaskedToken: token[:len(TokenPrefix)+4] + "****",
		Permissions: perms,
		ExpiresAt:   expiresAt,
		RolledFrom:  rolledFrom,
		CreatedAt:   now,
	}

	if err := s.keyRepo.Create(ctx, &key); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store key: %w", err))
	}

	return &ports.CreatedAPIKey{Key: key, Token: token}, nil
}

func (s *APIKeyServiceImpl) lookupOwned(ctx context.Context, identity domain.Identity, keyID uuid.UUID) (*domain.APIKey, error) {
	key, err := s.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get key: %w", err))
	}
	if key == nil {
		return nil, apperror.ErrNotFound("API key")
	}
	if key.UserID != identity.ID {
		return nil, apperror.ErrForbidden("API key belongs to a different identity")
	}
	return key, nil
}

// generateToken produces prefix + 32 random bytes, hex-encoded.
func generateToken() (string, error) {
	raw := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return TokenPrefix + hex.EncodeToString(raw), nil
}
