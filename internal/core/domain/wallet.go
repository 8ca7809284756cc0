package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is the per-identity balance holder. Balance is a non-negative
// integer in minor currency units and is only mutated inside a database
// transaction by the deposit and transfer paths.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"-"` // Owner email captured at provisioning, needed for gateway calls
	WalletNumber string    `json:"wallet_number"`
	Balance      int64     `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
