/*
Package auth implements the request authentication layer: the canonical
signed payload, relay signature verification with a freshness window, the
admin bearer check, and an optional nonce replay guard.

# Signing Contract

Caller and vault both compute HMAC-SHA-256 over the canonical payload

	alias ":" method ":" path ":" decimal(timestamp_ms) ":" nonce

under the shared HMAC secret, rendered as 64 lowercase hex characters in
the Authorization header:

	Authorization: Signature <64-hex>

No field can contain the ":" delimiter: the alias charset is restricted by
the vault, the method by the allowlist, and timestamp and nonce by
construction.

# Verification Order

VerifyRelayRequest runs its checks in a fixed order and stops at the first
failure:

 1. freshness   |now - timestamp| ≤ MAX_REQUEST_AGE_MS  → "Request expired"
 2. presence    alias, path, method, nonce non-empty    → "Missing required request fields"
 3. method      GET | POST | PUT | DELETE               → "Method not allowed for relay"
 4. signature   constant-time HMAC comparison           → "Invalid signature"

Malformed, wrong-length, and wrong-valued signatures are indistinguishable
from the outside. Every rejection maps to HTTP 401.

# Replay Guard

The signature alone does not stop a verbatim replay inside the freshness
window. NonceGuard closes that gap per process: a TTL set of (alias, nonce)
pairs backed by go-cache, with the TTL equal to the freshness window so the
set stays bounded. The relay handler consults it during VERIFY when
NONCE_GUARD is enabled (the default).

# Admin Check

VerifyAdmin accepts exactly "Bearer " + token, rejecting a missing header,
a malformed scheme, and a wrong token with distinct reasons. The token
comparison is constant time; all three reasons map to HTTP 401.
*/
package auth
