package service

import (
	"context"
	"encoding/json"
	"fmt"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/internal/observability"
	"custodial-wallet/pkg/apperror"
	"custodial-wallet/pkg/reference"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const eventChargeSuccess = "charge.success"

// DepositServiceImpl implements ports.DepositService: it initiates deposits
// with the gateway and reconciles their outcomes into ledger credits,
// exactly once per deposit.
type DepositServiceImpl struct {
	walletRepo ports.WalletRepository
	txnRepo    ports.TransactionRepository
	transactor ports.DBTransactor
	gateway    ports.GatewayClient
	verifier   ports.SignatureVerifier
	log        zerolog.Logger
}

// NewDepositService creates a new DepositServiceImpl.
func NewDepositService(
	walletRepo ports.WalletRepository,
	txnRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	gateway ports.GatewayClient,
	verifier ports.SignatureVerifier,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		transactor: transactor,
		gateway:    gateway,
		verifier:   verifier,
		log:        log,
	}
}

// webhookEvent is the gateway's notification payload. Only the fields the
// reconciler acts on are decoded.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// InitiateDeposit creates a pending ledger transaction and asks the gateway
// to start the payment. The pending row is written only after the gateway
// accepts, so an unreachable gateway leaves no ledger residue.
func (s *DepositServiceImpl) InitiateDeposit(ctx context.Context, identity domain.Identity, amount int64) (*ports.DepositInitiation, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidOperation("deposit amount must be positive")
	}

	wallet, err := s.walletRepo.GetByID(ctx, identity.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	ref := reference.New(reference.NamespaceDeposit, identity.ID)

	initResp, err := s.gateway.InitializeTransaction(ctx, ports.GatewayInitRequest{
		Email:     wallet.Email,
		Amount:    amount,
		Reference: ref,
		Metadata:  map[string]string{"wallet_id": wallet.ID.String()},
	})
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx)

	txn := domain.Transaction{
		ID:               uuid.New(),
		WalletID:         wallet.ID,
		Type:             domain.TransactionTypeDeposit,
		Amount:           amount,
		Status:           domain.TransactionStatusPending,
		Reference:        ref,
		GatewayReference: &initResp.Reference,
		Description:      "wallet deposit",
	}
	if err := s.txnRepo.Create(ctx, dbTx, &txn); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("reference", ref).
		Str("wallet_id", wallet.ID.String()).
		Int64("amount", amount).
		Msg("deposit initiated")

	return &ports.DepositInitiation{
		Reference:        ref,
		AuthorizationURL: initResp.AuthorizationURL,
	}, nil
}

// HandleNotification processes one webhook delivery. body must be the exact
// received bytes. Unknown references and non-actionable events are
// acknowledged without effect so the gateway stops redelivering; only a bad
// signature is an error.
func (s *DepositServiceImpl) HandleNotification(ctx context.Context, body []byte, signature string) error {
	if !s.verifier.Verify(body, signature) {
		observability.WebhookObserved("bad_signature")
		return apperror.ErrInvalidSignature()
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Warn().Err(err).Msg("webhook payload undecodable, acknowledging")
		observability.WebhookObserved("ignored")
		return nil
	}

	if event.Event != eventChargeSuccess {
		s.log.Debug().Str("event", event.Event).Msg("webhook event not actionable")
		observability.WebhookObserved("ignored")
		return nil
	}

	// data.reference carries the gateway's own reference, not ours.
	txn, err := s.txnRepo.GetByGatewayReference(ctx, event.Data.Reference)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		s.log.Warn().Str("gateway_reference", event.Data.Reference).Msg("webhook for unknown reference")
		observability.WebhookObserved("unknown_reference")
		return nil
	}

	if txn.IsSettled() {
		observability.WebhookObserved("duplicate")
		return nil
	}

	settled, err := s.settle(ctx, txn, domain.TransactionStatusSuccess)
	if err != nil {
		return err
	}
	if !settled {
		observability.WebhookObserved("duplicate")
		return nil
	}

	s.log.Info().
		Str("reference", txn.Reference).
		Int64("amount", txn.Amount).
		Msg("deposit settled via webhook")
	observability.WebhookObserved("settled")
	return nil
}

// CheckStatus reports the deposit's reconciliation state. For a still-pending
// deposit it proactively asks the gateway and settles on a terminal answer,
// covering lost webhooks.
func (s *DepositServiceImpl) CheckStatus(ctx context.Context, ref string) (*ports.DepositStatus, error) {
	txn, err := s.txnRepo.GetByReference(ctx, ref)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("deposit")
	}

	if txn.Status == domain.TransactionStatusPending && txn.GatewayReference != nil {
		verify, err := s.gateway.VerifyTransaction(ctx, *txn.GatewayReference)
		if err != nil {
			// The gateway being down does not change what we already know.
			s.log.Warn().Err(err).Str("reference", ref).Msg("status verify unavailable")
			return s.statusOf(txn), nil
		}

		switch verify.Status {
		case "success":
			if _, err := s.settle(ctx, txn, domain.TransactionStatusSuccess); err != nil {
				return nil, err
			}
			txn.Status = domain.TransactionStatusSuccess
		case "failed", "abandoned":
			if _, err := s.settle(ctx, txn, domain.TransactionStatusFailed); err != nil {
				return nil, err
			}
			txn.Status = domain.TransactionStatusFailed
		}
	}

	return s.statusOf(txn), nil
}

func (s *DepositServiceImpl) statusOf(txn *domain.Transaction) *ports.DepositStatus {
	return &ports.DepositStatus{
		Reference: txn.Reference,
		Status:    txn.Status,
		Amount:    txn.Amount,
	}
}

// settle moves the transaction to a terminal status inside one unit of work,
// crediting the wallet only on success. The guarded status flip makes a
// concurrent duplicate a no-op: exactly one caller credits.
func (s *DepositServiceImpl) settle(ctx context.Context, txn *domain.Transaction, status domain.TransactionStatus) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx)

	// Lock the wallet row first so the credit and the status flip commit as
	// one observable change.
	if _, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, txn.WalletID); err != nil {
		return false, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}

	flipped, err := s.txnRepo.Settle(ctx, dbTx, txn.ID, status)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("settle transaction: %w", err))
	}
	if !flipped {
		return false, nil
	}

	if status == domain.TransactionStatusSuccess {
		if err := s.walletRepo.AdjustBalance(ctx, dbTx, txn.WalletID, txn.Amount); err != nil {
			return false, apperror.InternalError(fmt.Errorf("credit wallet: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	observability.DepositSettled(string(status))
	return true, nil
}
