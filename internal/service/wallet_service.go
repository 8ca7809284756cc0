package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txnRepo    ports.TransactionRepository
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(walletRepo ports.WalletRepository, txnRepo ports.TransactionRepository, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		log:        log,
	}
}

// EnsureWallet returns the identity's wallet, creating one on first sight.
// Wallet creation is idempotent per identity: a concurrent duplicate insert
// loses on the user_id unique index and falls back to the existing row.
func (s *WalletServiceImpl) EnsureWallet(ctx context.Context, identity domain.Identity) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, identity.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	number, err := generateWalletNumber()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate wallet number: %w", err))
	}

	wallet = &domain.Wallet{
		ID:           uuid.New(),
		UserID:       identity.ID,
		Email:        identity.Email,
		WalletNumber: number,
		Balance:      0,
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		// Lost a creation race; the winner's row is authoritative.
		existing, getErr := s.walletRepo.GetByUserID(ctx, identity.ID)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("user_id", identity.ID.String()).
		Str("wallet_number", wallet.WalletNumber).
		Msg("wallet provisioned")

	return wallet, nil
}

// GetBalance returns the wallet's current balance in minor units.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, walletID uuid.UUID) (int64, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return 0, apperror.ErrNotFound("wallet")
	}
	return wallet.Balance, nil
}

// ListTransactions returns a page of the wallet's transaction history, newest
// first, plus the unpaged total.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	txns, total, err := s.txnRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// generateWalletNumber returns a random 10-digit account number.
func generateWalletNumber() (string, error) {
	max := big.NewInt(9_000_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1_000_000_000), nil
}
