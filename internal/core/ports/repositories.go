package ports

import (
	"context"
	"time"

	"custodial-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside a unit of work with pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByWalletNumber(ctx context.Context, number string) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// AdjustBalance applies a signed delta to the wallet balance. It must be
	// called within a transaction that already holds the row lock.
	AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) error
}

// TransactionRepository defines persistence operations for ledger transactions.
// Create surfaces uniqueness violations on reference or gateway reference as
// apperror Conflict — callers on the deposit path treat a gateway-reference
// conflict as "already processed".
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetByGatewayReference(ctx context.Context, gatewayRef string) (*domain.Transaction, error)
	// Settle moves a PENDING transaction to the given terminal status and
	// stamps settled_at. Returns false without error when the transaction was
	// already settled, which callers treat as a concurrent duplicate.
	Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) (bool, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	WalletID uuid.UUID
	Status   *domain.TransactionStatus
	Type     *domain.TransactionType
	Page     int
	PageSize int
}

// TransferRepository defines persistence for the logical transfer records.
type TransferRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transfer *domain.Transfer) error
	GetByReference(ctx context.Context, reference string) (*domain.Transfer, error)
}

// APIKeyRepository defines persistence for API key credentials.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error)
	GetByDigest(ctx context.Context, digest string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error)
	// CountActive counts keys that are neither revoked nor expired at now.
	CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	// Revoke stamps revoked_at if not already stamped. Returns false when the
	// key was already revoked (the original timestamp is preserved).
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkRolledOver(ctx context.Context, id uuid.UUID, at time.Time) error
}

// DBTransactor provides database transaction management. It is the single
// atomic unit-of-work primitive every balance-affecting operation runs under.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
