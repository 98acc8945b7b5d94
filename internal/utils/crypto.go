// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// GenerateAccountAddress mints a fresh random ledger address (lowercase hex).
// Used by tests and provisioning tooling; real agent addresses come from the
// identity service.
func GenerateAccountAddress() (string, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	sum := sha3.Sum256(seed)
	return hex.EncodeToString(sum[:]), nil
}

func HashString(input string) string {
	sum := sha3.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
