package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transfer is the logical pairing record of one peer-to-peer movement. It is
// distinct from the two per-wallet Transaction rows a transfer produces and
// is a read-only join between the participating wallets.
type Transfer struct {
	ID                uuid.UUID         `json:"id"`
	SenderWalletID    uuid.UUID         `json:"sender_wallet_id"`
	RecipientWalletID uuid.UUID         `json:"recipient_wallet_id"`
	Amount            int64             `json:"amount"`
	Status            TransactionStatus `json:"status"`
	Reference         string            `json:"reference"`
	Description       string            `json:"description"`
	CreatedAt         time.Time         `json:"created_at"`
}
