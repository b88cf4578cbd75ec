/*
Package types defines the core data structures used throughout glvault.

This package contains all fundamental types that represent the vault's domain
model: encrypted credential records, audit entries, relay request/response
envelopes, and the error taxonomy. These types are used by all other packages
for persistence, API communication, and relay logic.

# Architecture

The types package is the foundation of the vault's data model. It defines:

  - Credential records (ciphertext, IV, auth tag, quota counters)
  - Admin-facing key metadata with credential material stripped
  - Audit entries and the bounded per-alias audit index
  - Relay request and response envelopes
  - The error taxonomy shared by every package

All types are designed to be:
  - Serializable (JSON, with stable snake_case field names)
  - Free of secret material in every outward-facing projection
  - Branchable by error kind, never by message text

# Core Types

Credential storage:
  - CredentialRecord: Encrypted API key plus quota state, persisted at
    glvault:key:<alias>
  - KeyMetadata: Sanitized projection returned by list/register/rotate

Audit trail:
  - AuditEntry: One relay attempt, persisted at glvault:audit:<alias>:<id>
  - AuditIndexEntry: {id, ts} pair inside the bounded per-alias index
  - AuditStats: Totals, error count, and mean latency over a time window

Relay protocol:
  - RelayRequest: Signed caller request (alias, path, method, timestamp,
    nonce, optional body and headers)
  - RelayResponse: Sanitized upstream result (status, data, cached,
    latency_ms, remaining_quota)

Errors:
  - VaultError: The single error type crossing package boundaries
  - ErrorKind: INVALID_INPUT, UNAUTHENTICATED, NOT_FOUND, ALREADY_EXISTS,
    RATE_LIMITED, UPSTREAM_FAIL, INTEGRITY_FAIL, BACKEND_FAIL

# Wire Layout

The JSON tags on CredentialRecord, AuditEntry, and AuditIndexEntry define the
exact bytes stored in the backend. Any replacement implementation reading the
same backend depends on these names; treat them as a frozen contract.

Timestamps are unix milliseconds everywhere (quota windows, audit entries,
signed payloads), matching the canonical signing string.

# Usage

Classifying an error at the HTTP boundary:

	plaintext, err := store.GetPlaintext(ctx, alias)
	if err != nil {
		writeError(w, types.HTTPStatusOf(err), types.MessageOf(err))
		return
	}

Building an error inside a package:

	if len(key) != 32 {
		return types.NewError(types.KindInvalidInput, "master key must be 32 bytes")
	}

Checking for a specific failure class:

	if types.IsKind(err, types.KindNotFound) {
		// alias was never registered or raced a removal
	}

# Error Mapping

VaultError.HTTPStatus maps kinds to response codes:

	INVALID_INPUT   400
	UNAUTHENTICATED 401
	NOT_FOUND       404
	ALREADY_EXISTS  409
	RATE_LIMITED    429
	UPSTREAM_FAIL   502
	INTEGRITY_FAIL  500
	BACKEND_FAIL    500

Message carries only caller-safe text. The wrapped cause is for logs and may
name backend details but never plaintext credentials or signatures.

# Thread Safety

All types in this package are plain data:
  - Read-safe: Can be read concurrently from multiple goroutines
  - Write-unsafe: Mutations must be synchronized by callers

The vault store (pkg/vault) owns all synchronization for persisted records.

# See Also

  - pkg/vault for credential record lifecycle
  - pkg/audit for audit entry persistence and queries
  - pkg/relay for the request relay state machine
  - pkg/api for the HTTP wire contract
*/
package types
