/*
Package vault is the credential store: registration, retrieval, rotation,
removal, and quota accounting for API keys encrypted at rest.

# Architecture

	┌──────────────────────── CREDENTIAL STORE ────────────────────────┐
	│                                                                    │
	│   Register ─┐                                                     │
	│   Rotate   ─┤   ┌──────────────┐    ┌──────────────────────┐     │
	│   Remove   ─┼──▶│ alias-stripe │───▶│ security.Cipher       │     │
	│   GetPlain ─┤   │ mutex (64)   │    │ AES-256-GCM           │     │
	│   IncUsage ─┘   └──────┬───────┘    └──────────────────────┘     │
	│                        │                                          │
	│                        ▼                                          │
	│              ┌───────────────────┐                                │
	│              │ storage.Backend   │  glvault:key:<alias>           │
	│              │ (memory|bolt|     │  glvault:index                 │
	│              │  redis)           │                                │
	│              └───────────────────┘                                │
	│                                                                    │
	└────────────────────────────────────────────────────────────────────┘

Records are CredentialRecord JSON: the credential itself is stored only as
hex ciphertext/iv/auth_tag under the master key (or a per-alias subkey when
that mode is enabled). Plaintext exists in memory only for the duration of
a call and is never logged or published on the event broker.

# Concurrency

Every mutation runs under one of 64 FNV-striped per-alias mutexes, making
read-modify-write sequences (rotation, quota increments) atomic within the
process. The alias index has its own lock. Cross-process writers are
tolerated per the backend contract: last write wins, and quota accounting
degrades to approximate rather than corrupt.

# Quota

IncrementUsage implements a fixed window: the first increment after
quota_window_start + window resets the counter and starts a new window. A
denied increment mutates nothing. The window length is shared by every
alias; limits are per alias.

# See Also

  - pkg/security for the cipher and key derivation
  - pkg/relay for the pipeline that consumes GetPlaintext and
    IncrementUsage
*/
package vault
