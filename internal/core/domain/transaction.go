package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement on a single wallet.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

// TransactionStatus represents the lifecycle state of a transaction.
// Transitions are forward-only: PENDING -> SUCCESS or PENDING -> FAILED.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// Transaction is one wallet-side ledger entry for a single movement.
// Once settled it is immutable and is never re-applied to a balance.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	WalletID         uuid.UUID         `json:"wallet_id"`
	Type             TransactionType   `json:"type"`
	Amount           int64             `json:"amount"` // Positive, minor units
	Status           TransactionStatus `json:"status"`
	Reference        string            `json:"reference"`
	GatewayReference *string           `json:"gateway_reference,omitempty"` // Unique when present
	Description      string            `json:"description"`
	CreatedAt        time.Time         `json:"created_at"`
	SettledAt        *time.Time        `json:"settled_at,omitempty"`
}

// IsSettled returns true once the transaction reached a terminal status.
func (t *Transaction) IsSettled() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}
