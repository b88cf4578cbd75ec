package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// ComputeSignature returns the raw HMAC-SHA-256 of payload under secret.
func ComputeSignature(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignatureHex returns the signature as 64 lowercase hex characters, the
// format carried in Authorization headers.
func SignatureHex(secret, payload []byte) string {
	return hex.EncodeToString(ComputeSignature(secret, payload))
}

// VerifySignatureHex checks a hex-encoded signature against the expected MAC
// in constant time. Malformed or wrong-length signatures are rejected through
// the same path as a plain mismatch.
func VerifySignatureHex(secret, payload []byte, providedHex string) bool {
	expected := ComputeSignature(secret, payload)
	provided, err := hex.DecodeString(providedHex)
	if err != nil || len(provided) != len(expected) {
		// Burn a comparison so malformed input costs the same as a mismatch.
		subtle.ConstantTimeCompare(expected, expected)
		return false
	}
	return subtle.ConstantTimeCompare(expected, provided) == 1
}

// ConstantTimeEqual compares two byte slices without leaking the position of
// the first difference. Length mismatches return false after a full-length
// comparison.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		subtle.ConstantTimeCompare(a, a)
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ConstantTimeEqualString is ConstantTimeEqual over strings.
func ConstantTimeEqualString(a, b string) bool {
	return ConstantTimeEqual([]byte(a), []byte(b))
}

// DeriveSubKey derives a deterministic 32-byte sub-key from the master key
// and a context label. The same inputs always yield the same key, so derived
// ciphers stay stable across restarts.
func DeriveSubKey(masterKey []byte, context string) []byte {
	return ComputeSignature(masterKey, []byte(context))
}
