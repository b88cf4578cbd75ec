package auth

import (
	"fmt"
	"strings"

	"github.com/genlayer/glvault/pkg/security"
	"github.com/genlayer/glvault/pkg/types"
)

// allowedMethods enumerates the HTTP verbs a caller may relay. Anything
// else is rejected before signature verification spends cycles on it.
var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
}

// Rejection explains why a request failed verification. Reason is safe to
// return to the caller; Kind maps to the HTTP status.
type Rejection struct {
	Kind   types.ErrorKind
	Reason string
}

// Err converts the rejection to the error type the rest of the vault speaks.
func (r *Rejection) Err() error {
	return types.NewError(r.Kind, r.Reason)
}

// CanonicalPayload builds the byte string both sides sign:
//
//	alias ":" method ":" path ":" decimal(timestamp_ms) ":" nonce
//
// The alias regex and the method allowlist guarantee no field contains the
// delimiter, so the encoding is unambiguous.
func CanonicalPayload(alias, method, path string, timestampMS int64, nonce string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%d:%s", alias, method, path, timestampMS, nonce))
}

// SignRequest computes the hex signature for a relay request. Used by the
// client SDK and by tests; the server side only verifies.
func SignRequest(req *types.RelayRequest, secret []byte) string {
	payload := CanonicalPayload(req.Alias, req.Method, req.Path, req.Timestamp, req.Nonce)
	return security.SignatureHex(secret, payload)
}

// VerifyRelayRequest checks a relay request against its signature. It
// returns nil on success. Checks run in a fixed order: freshness, field
// presence, method, then the signature itself, so a stale request is
// rejected without revealing whether its signature would have matched.
func VerifyRelayRequest(req *types.RelayRequest, providedSigHex string, secret []byte, maxAgeMS, nowMS int64) *Rejection {
	age := nowMS - req.Timestamp
	if age < 0 {
		age = -age
	}
	if age > maxAgeMS {
		return &Rejection{Kind: types.KindUnauthorized, Reason: "Request expired"}
	}

	if req.Alias == "" || req.Path == "" || req.Method == "" || req.Nonce == "" {
		return &Rejection{Kind: types.KindUnauthorized, Reason: "Missing required request fields"}
	}

	if !allowedMethods[req.Method] {
		return &Rejection{Kind: types.KindUnauthorized, Reason: "Method not allowed for relay"}
	}

	payload := CanonicalPayload(req.Alias, req.Method, req.Path, req.Timestamp, req.Nonce)
	if !security.VerifySignatureHex(secret, payload, providedSigHex) {
		// Length mismatch, malformed hex, and value mismatch all collapse
		// to one external reason.
		return &Rejection{Kind: types.KindUnauthorized, Reason: "Invalid signature"}
	}

	return nil
}

const bearerPrefix = "Bearer "

// VerifyAdmin checks an Authorization header against the admin token. The
// header must be exactly "Bearer " plus the token; the token comparison is
// constant time.
func VerifyAdmin(header, expected string) *Rejection {
	if header == "" {
		return &Rejection{Kind: types.KindUnauthorized, Reason: "Missing Authorization header"}
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return &Rejection{Kind: types.KindUnauthorized, Reason: "Invalid Authorization format"}
	}
	token := header[len(bearerPrefix):]
	if !security.ConstantTimeEqualString(token, expected) {
		return &Rejection{Kind: types.KindUnauthorized, Reason: "Invalid admin token"}
	}
	return nil
}
