package dto

// DepositRequest is the request body for initiating a deposit.
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// DepositResponse is the response body for a successfully initiated deposit.
type DepositResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// DepositStatusResponse is the reconciliation view of one deposit.
type DepositStatusResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

// TransferRequest is the request body for a peer-to-peer transfer.
type TransferRequest struct {
	RecipientWalletNumber string `json:"recipient_wallet_number" binding:"required,len=10,numeric"`
	Amount                int64  `json:"amount" binding:"required,gt=0"`
	Description           string `json:"description" binding:"max=200"`
}

// TransferResponse is the response body for a completed transfer.
type TransferResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// WalletBalanceResponse is the response for balance query.
type WalletBalanceResponse struct {
	WalletNumber string `json:"wallet_number"`
	Balance      int64  `json:"balance"`
}

// TransactionResponse is one ledger entry in a listing.
type TransactionResponse struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	Amount           int64   `json:"amount"`
	Status           string  `json:"status"`
	Reference        string  `json:"reference"`
	GatewayReference *string `json:"gateway_reference,omitempty"`
	Description      string  `json:"description"`
	CreatedAt        string  `json:"created_at"`
	SettledAt        *string `json:"settled_at,omitempty"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// CreateKeyRequest is the request body for issuing a new API key.
type CreateKeyRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Permissions []string `json:"permissions" binding:"required,min=1"`
	Expiry      string   `json:"expiry" binding:"required,oneof=1H 1D 1M 1Y"`
}

// RolloverKeyRequest is the request body for rolling over an expired key.
type RolloverKeyRequest struct {
	Expiry string `json:"expiry" binding:"required,oneof=1H 1D 1M 1Y"`
}

// CreatedKeyResponse carries the plaintext token, shown exactly once.
type CreatedKeyResponse struct {
	Key   KeyResponse `json:"key"`
	Token string      `json:"token"`
}

// KeyResponse is one API key in a listing, without the secret.
type KeyResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MaskedToken  string   `json:"masked_token"`
	Permissions  []string `json:"permissions"`
	ExpiresAt    string   `json:"expires_at"`
	RevokedAt    *string  `json:"revoked_at,omitempty"`
	RolledOverAt *string  `json:"rolled_over_at,omitempty"`
	RolledFrom   *string  `json:"rolled_from,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// KeyListResponse wraps an identity's keys.
type KeyListResponse struct {
	Items []KeyResponse `json:"items"`
}
