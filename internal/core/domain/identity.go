package domain

import "github.com/google/uuid"

// Identity is the narrowed account identity entering the core from the
// sign-in collaborator. The OAuth profile object is reduced to exactly these
// fields at the boundary.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	WalletID uuid.UUID `json:"wallet_id"`
}

// Principal is the resolved caller of one request: an identity plus the
// permission set the access gate granted it. Permissions are resolved per
// request and never cached beyond it.
type Principal struct {
	Identity    Identity
	Permissions PermissionSet
	APIKeyID    *uuid.UUID // Set when authenticated via API key, nil for sessions
}

// ViaAPIKey reports whether the principal authenticated with an API key.
func (p *Principal) ViaAPIKey() bool {
	return p.APIKeyID != nil
}
