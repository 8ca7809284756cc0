package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/internal/observability"
	"custodial-wallet/pkg/apperror"
	"custodial-wallet/pkg/reference"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransferServiceImpl implements ports.TransferService. Each transfer commits
// one unit of work writing the debit, the credit, both per-wallet transaction
// rows and the pairing record, or none of them.
type TransferServiceImpl struct {
	walletRepo   ports.WalletRepository
	txnRepo      ports.TransactionRepository
	transferRepo ports.TransferRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	walletRepo ports.WalletRepository,
	txnRepo ports.TransactionRepository,
	transferRepo ports.TransferRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		walletRepo:   walletRepo,
		txnRepo:      txnRepo,
		transferRepo: transferRepo,
		transactor:   transactor,
		log:          log,
	}
}

// Transfer moves funds between two wallets. Preconditions are checked in a
// fixed order so the caller always sees the same rejection for the same
// input: amount, sender exists, recipient exists, distinct wallets, funds.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if req.Amount <= 0 {
		observability.TransferObserved("rejected")
		return nil, apperror.ErrInvalidOperation("transfer amount must be positive")
	}

	sender, err := s.walletRepo.GetByID(ctx, req.Sender.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get sender wallet: %w", err))
	}
	if sender == nil {
		observability.TransferObserved("rejected")
		return nil, apperror.ErrNotFound("sender wallet")
	}

	recipient, err := s.walletRepo.GetByWalletNumber(ctx, req.RecipientWalletNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient wallet: %w", err))
	}
	if recipient == nil {
		observability.TransferObserved("rejected")
		return nil, apperror.ErrNotFound("recipient wallet")
	}

	if sender.ID == recipient.ID {
		observability.TransferObserved("rejected")
		return nil, apperror.ErrInvalidOperation("cannot transfer to your own wallet")
	}

	// Unlocked pre-check; rechecked under the row lock below.
	if sender.Balance < req.Amount {
		observability.TransferObserved("insufficient_funds")
		return nil, apperror.ErrInsufficientFunds()
	}

	result, err := s.execute(ctx, sender.ID, recipient.ID, req)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == apperror.CodeInsufficientFunds {
			observability.TransferObserved("insufficient_funds")
		} else {
			observability.TransferObserved("error")
		}
		return nil, err
	}

	observability.TransferObserved("success")
	return result, nil
}

func (s *TransferServiceImpl) execute(ctx context.Context, senderID, recipientID uuid.UUID, req ports.TransferRequest) (*ports.TransferResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx)

	// Lock both wallet rows in a deterministic order so two opposing
	// transfers cannot deadlock each other.
	firstID, secondID := senderID, recipientID
	if bytes.Compare(secondID[:], firstID[:]) < 0 {
		firstID, secondID = secondID, firstID
	}

	first, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, firstID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	second, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, secondID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if first == nil || second == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	sender := first
	if sender.ID != senderID {
		sender = second
	}

	// Recheck under the lock: a concurrent transfer may have drained the
	// balance since the pre-check.
	if sender.Balance < req.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.AdjustBalance(ctx, dbTx, senderID, -req.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit sender: %w", err))
	}
	if err := s.walletRepo.AdjustBalance(ctx, dbTx, recipientID, req.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit recipient: %w", err))
	}

	transfer := domain.Transfer{
		ID:                uuid.New(),
		SenderWalletID:    senderID,
		RecipientWalletID: recipientID,
		Amount:            req.Amount,
		Status:            domain.TransactionStatusSuccess,
		Reference:         reference.New(reference.NamespaceTransfer, req.Sender.ID),
		Description:       req.Description,
	}
	if err := s.transferRepo.Create(ctx, dbTx, &transfer); err != nil {
		return nil, err
	}

	outTxn := domain.Transaction{
		ID:          uuid.New(),
		WalletID:    senderID,
		Type:        domain.TransactionTypeTransfer,
		Amount:      req.Amount,
		Status:      domain.TransactionStatusSuccess,
		Reference:   reference.New(reference.NamespaceTransferOut, req.Sender.ID),
		Description: fmt.Sprintf("transfer to %s", req.RecipientWalletNumber),
	}
	if err := s.txnRepo.Create(ctx, dbTx, &outTxn); err != nil {
		return nil, err
	}

	inTxn := domain.Transaction{
		ID:          uuid.New(),
		WalletID:    recipientID,
		Type:        domain.TransactionTypeTransfer,
		Amount:      req.Amount,
		Status:      domain.TransactionStatusSuccess,
		Reference:   reference.New(reference.NamespaceTransferIn, req.Sender.ID),
		Description: "transfer received",
	}
	if err := s.txnRepo.Create(ctx, dbTx, &inTxn); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("reference", transfer.Reference).
		Str("sender_wallet", senderID.String()).
		Str("recipient_wallet", recipientID.String()).
		Int64("amount", req.Amount).
		Msg("transfer completed")

	return &ports.TransferResult{
		Reference: transfer.Reference,
		Status:    transfer.Status,
	}, nil
}
