package ports

import (
	"context"
	"time"

	"custodial-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// --- External collaborators ---

// GatewayClient is the outbound payment-gateway client. Amount fields on this
// interface are in the ledger's own minor units; the adapter converts to and
// from the gateway's unit convention (x100).
type GatewayClient interface {
	InitializeTransaction(ctx context.Context, req GatewayInitRequest) (*GatewayInitResponse, error)
	VerifyTransaction(ctx context.Context, gatewayRef string) (*GatewayVerifyResponse, error)
}

// GatewayInitRequest holds the payment-initiation input.
type GatewayInitRequest struct {
	Email     string
	Amount    int64 // Ledger minor units
	Reference string
	Metadata  map[string]string
}

// GatewayInitResponse is the gateway's initiation result.
type GatewayInitResponse struct {
	Reference        string // The gateway's own reference
	AuthorizationURL string // Returned to the caller unmodified
}

// GatewayVerifyResponse is the gateway's view of a transaction.
type GatewayVerifyResponse struct {
	Status   string // "success", "failed", "abandoned", ...
	Amount   int64  // Ledger minor units
	Currency string
}

// SignatureVerifier checks a gateway webhook signature over the exact raw
// request body bytes.
type SignatureVerifier interface {
	Verify(payload []byte, signature string) bool
}

// TokenService validates the session tokens minted by the sign-in
// collaborator and mints them for tests and tooling.
type TokenService interface {
	Generate(identity domain.Identity) (string, time.Time, error)
	Validate(tokenString string) (*domain.Identity, error)
}

// HealthChecker is a pingable infrastructure dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

// --- Service ports (business logic) ---

// WalletService is the wallet query surface plus identity-boundary
// provisioning.
type WalletService interface {
	// EnsureWallet returns the identity's wallet, creating it on first sight.
	EnsureWallet(ctx context.Context, identity domain.Identity) (*domain.Wallet, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (int64, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// DepositService reconciles gateway payments into ledger credits, exactly once.
type DepositService interface {
	InitiateDeposit(ctx context.Context, identity domain.Identity, amount int64) (*DepositInitiation, error)
	// HandleNotification processes a webhook delivery. body must be the exact
	// received payload bytes; any reserialization breaks signature checking.
	HandleNotification(ctx context.Context, body []byte, signature string) error
	CheckStatus(ctx context.Context, reference string) (*DepositStatus, error)
}

// DepositInitiation is returned to the caller after initiating a deposit.
type DepositInitiation struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// DepositStatus is the reconciliation view of a deposit.
type DepositStatus struct {
	Reference string                   `json:"reference"`
	Status    domain.TransactionStatus `json:"status"`
	Amount    int64                    `json:"amount"`
}

// TransferService atomically moves funds between two wallets.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// TransferRequest holds validated input for a peer-to-peer transfer.
type TransferRequest struct {
	Sender                domain.Identity
	RecipientWalletNumber string
	Amount                int64
	Description           string
}

// TransferResult is the outcome of a completed transfer.
type TransferResult struct {
	Reference string                   `json:"reference"`
	Status    domain.TransactionStatus `json:"status"`
}

// APIKeyService manages scoped API key credentials.
type APIKeyService interface {
	Create(ctx context.Context, identity domain.Identity, name string, perms domain.PermissionSet, unit domain.ExpiryUnit) (*CreatedAPIKey, error)
	Revoke(ctx context.Context, identity domain.Identity, keyID uuid.UUID) error
	Rollover(ctx context.Context, identity domain.Identity, keyID uuid.UUID, unit domain.ExpiryUnit) (*CreatedAPIKey, error)
	List(ctx context.Context, identity domain.Identity) ([]domain.APIKey, error)
}

// CreatedAPIKey carries the plaintext token, shown exactly once at creation.
type CreatedAPIKey struct {
	Key   domain.APIKey `json:"key"`
	Token string        `json:"token"`
}

// AccessService resolves a request's principal from a session token or an
// API key. Exactly one path grants access; the webhook route bypasses this
// entirely.
type AccessService interface {
	Authenticate(ctx context.Context, sessionToken, apiKeyToken string) (*domain.Principal, error)
}
