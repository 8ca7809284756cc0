package service

import (
	"context"
	"fmt"
	"time"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// AccessServiceImpl implements ports.AccessService. A session token grants
// the identity's full permission set; an API key grants only the subset
// stored with it. Exactly one path resolves per request.
type AccessServiceImpl struct {
	tokenSvc   ports.TokenService
	keyRepo    ports.APIKeyRepository
	walletRepo ports.WalletRepository
	walletSvc  ports.WalletService
	log        zerolog.Logger
}

// NewAccessService creates a new AccessServiceImpl.
func NewAccessService(tokenSvc ports.TokenService, keyRepo ports.APIKeyRepository, walletRepo ports.WalletRepository, walletSvc ports.WalletService, log zerolog.Logger) *AccessServiceImpl {
	return &AccessServiceImpl{
		tokenSvc:   tokenSvc,
		keyRepo:    keyRepo,
		walletRepo: walletRepo,
		walletSvc:  walletSvc,
		log:        log,
	}
}

// Authenticate resolves the request principal. Session tokens take precedence
// when both credentials are presented.
func (s *AccessServiceImpl) Authenticate(ctx context.Context, sessionToken, apiKeyToken string) (*domain.Principal, error) {
	switch {
	case sessionToken != "":
		return s.fromSession(ctx, sessionToken)
	case apiKeyToken != "":
		return s.fromAPIKey(ctx, apiKeyToken)
	default:
		return nil, apperror.ErrUnauthenticated()
	}
}

func (s *AccessServiceImpl) fromSession(ctx context.Context, token string) (*domain.Principal, error) {
	identity, err := s.tokenSvc.Validate(token)
	if err != nil {
		s.log.Debug().Err(err).Msg("session token rejected")
		return nil, apperror.ErrUnauthenticated()
	}

	// First sign-in may land before the wallet exists; provision it here so
	// every authenticated principal carries a wallet.
	wallet, err := s.walletSvc.EnsureWallet(ctx, *identity)
	if err != nil {
		return nil, err
	}
	identity.WalletID = wallet.ID

	return &domain.Principal{
		Identity:    *identity,
		Permissions: domain.AllPermissions,
	}, nil
}

func (s *AccessServiceImpl) fromAPIKey(ctx context.Context, token string) (*domain.Principal, error) {
	key, err := s.keyRepo.GetByDigest(ctx, DigestToken(token))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup api key: %w", err))
	}
	if key == nil {
		return nil, apperror.ErrForbidden("unknown API key")
	}
	if key.IsRevoked() {
		return nil, apperror.ErrForbidden("API key has been revoked")
	}
	if key.IsExpired(time.Now().UTC()) {
		return nil, apperror.ErrForbidden("API key has expired")
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, key.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet for key owner: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrForbidden("API key owner has no wallet")
	}

	return &domain.Principal{
		Identity: domain.Identity{
			ID:       key.UserID,
			Email:    wallet.Email,
			WalletID: wallet.ID,
		},
		Permissions: key.Permissions,
		APIKeyID:    &key.ID,
	}, nil
}
