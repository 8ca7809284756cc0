package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionSet_HasAndStrings(t *testing.T) {
	set := PermissionSet(0).With(PermissionRead).With(PermissionTransfer)

	assert.True(t, set.Has(PermissionRead))
	assert.True(t, set.Has(PermissionTransfer))
	assert.False(t, set.Has(PermissionDeposit))
	assert.Equal(t, []string{"read", "transfer"}, set.Strings())
	assert.Equal(t, "read,transfer", set.String())
}

func TestParsePermissionSet_RoundTrip(t *testing.T) {
	set, err := ParsePermissionSet("read,deposit,transfer")
	require.NoError(t, err)
	assert.Equal(t, AllPermissions, set)

	empty, err := ParsePermissionSet("")
	require.NoError(t, err)
	assert.Equal(t, PermissionSet(0), empty)
}

func TestParsePermissionSet_Unknown(t *testing.T) {
	_, err := ParsePermissionSet("read,admin")
	assert.Error(t, err)
}

func TestExpiryUnit_CalendarArithmetic(t *testing.T) {
	// Jan 31: +1 month must use calendar rollover, not 30*24h.
	issued := time.Date(2026, time.January, 31, 12, 0, 0, 0, time.UTC)

	cases := map[ExpiryUnit]time.Time{
		ExpiryHour:  issued.Add(time.Hour),
		ExpiryDay:   time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC),
		ExpiryMonth: time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC), // Jan 31 + 1 month normalises past Feb
		ExpiryYear:  time.Date(2027, time.January, 31, 12, 0, 0, 0, time.UTC),
	}

	for unit, want := range cases {
		got, err := unit.ExpiryFrom(issued)
		require.NoError(t, err)
		assert.Equal(t, want, got, "unit %s", unit)
	}
}

func TestExpiryUnit_Unknown(t *testing.T) {
	_, err := ExpiryUnit("2W").ExpiryFrom(time.Now())
	assert.Error(t, err)
}

func TestAPIKey_Lifecycle(t *testing.T) {
	now := time.Now()
	key := &APIKey{ExpiresAt: now.Add(time.Hour)}

	assert.True(t, key.IsActive(now))
	assert.False(t, key.IsExpired(now))

	assert.True(t, key.IsExpired(now.Add(2*time.Hour)))
	assert.False(t, key.IsActive(now.Add(2*time.Hour)))

	revokedAt := now
	key.RevokedAt = &revokedAt
	assert.True(t, key.IsRevoked())
	assert.False(t, key.IsActive(now))
}

func TestTransaction_IsSettled(t *testing.T) {
	tx := &Transaction{Status: TransactionStatusPending}
	assert.False(t, tx.IsSettled())

	tx.Status = TransactionStatusSuccess
	assert.True(t, tx.IsSettled())

	tx.Status = TransactionStatusFailed
	assert.True(t, tx.IsSettled())
}
