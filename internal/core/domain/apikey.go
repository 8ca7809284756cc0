package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExpiryUnit is the caller-selectable lifetime of an API key. Month and year
// use calendar arithmetic, not a fixed-duration approximation.
type ExpiryUnit string

const (
	ExpiryHour  ExpiryUnit = "1H"
	ExpiryDay   ExpiryUnit = "1D"
	ExpiryMonth ExpiryUnit = "1M"
	ExpiryYear  ExpiryUnit = "1Y"
)

// ExpiryFrom computes the expiry timestamp for a key issued at t.
func (u ExpiryUnit) ExpiryFrom(t time.Time) (time.Time, error) {
	switch u {
	case ExpiryHour:
		return t.Add(time.Hour), nil
	case ExpiryDay:
		return t.AddDate(0, 0, 1), nil
	case ExpiryMonth:
		return t.AddDate(0, 1, 0), nil
	case ExpiryYear:
		return t.AddDate(1, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("unknown expiry unit %q", u)
}

// APIKey is a scoped, expiring bearer credential bound to one identity.
// The secret itself is never persisted; only its digest is.
type APIKey struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	Name         string        `json:"name"`
	TokenDigest  string        `json:"-"` // BLAKE2b-256 of the full token, hex
	MaskedToken  string        `json:"masked_token"` // Prefix + first 4 hex chars, for listings
	Permissions  PermissionSet `json:"permissions"`
	ExpiresAt    time.Time     `json:"expires_at"`
	RevokedAt    *time.Time    `json:"revoked_at,omitempty"`
	RolledOverAt *time.Time    `json:"rolled_over_at,omitempty"`
	RolledFrom   *uuid.UUID    `json:"rolled_from,omitempty"` // Audit back-reference
	CreatedAt    time.Time     `json:"created_at"`
}

// IsRevoked returns true once a revocation timestamp has been stamped.
// Revocation is permanent.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// IsExpired reports whether the key's expiry timestamp has passed at now.
func (k *APIKey) IsExpired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// IsActive reports whether the key is neither revoked nor expired at now.
func (k *APIKey) IsActive(now time.Time) bool {
	return !k.IsRevoked() && !k.IsExpired(now)
}
