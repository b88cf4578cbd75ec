package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// RandomHex returns n random bytes as a lowercase hex string of length 2n.
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewNonce returns a 32-character request nonce.
func NewNonce() (string, error) {
	return RandomHex(16)
}

// GenerateMasterKey returns a fresh 64-character hex key suitable for
// MASTER_ENCRYPTION_KEY.
func GenerateMasterKey() (string, error) {
	return RandomHex(32)
}
