// Package reference generates collision-resistant caller-facing references.
//
// Every money movement in the ledger (deposit, transfer record, each transfer
// leg) carries its own unique reference. All of them are produced here so the
// collision-resistance properties are uniform across paths.
package reference

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Namespace prefixes for the reference kinds the ledger writes.
const (
	NamespaceDeposit     = "DEP"
	NamespaceTransfer    = "TRF"
	NamespaceTransferOut = "TRF-OUT"
	NamespaceTransferIn  = "TRF-IN"
)

const randomSuffixBytes = 6

// New builds a reference of the form
//
//	<NS>_<first 8 chars of owner id>_<unix millis>_<12 hex chars>
//
// The random suffix carries 6 bytes of entropy, so two references can only
// collide if they are generated for the same owner in the same millisecond
// AND draw the same 48 random bits.
func New(namespace string, owner uuid.UUID) string {
	suffix := make([]byte, randomSuffixBytes)
	// crypto/rand.Read only fails if the OS entropy source is broken,
	// at which point the process has bigger problems.
	_, _ = rand.Read(suffix)

	return fmt.Sprintf("%s_%s_%d_%s",
		namespace,
		owner.String()[:8],
		time.Now().UnixMilli(),
		hex.EncodeToString(suffix),
	)
}

// HasNamespace reports whether ref was generated under the given namespace.
func HasNamespace(ref, namespace string) bool {
	return strings.HasPrefix(ref, namespace+"_")
}
