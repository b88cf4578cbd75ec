/*
Package security provides the cryptographic primitives for glvault: AES-256-GCM
credential encryption, HMAC-SHA-256 request signatures, constant-time
comparison, sub-key derivation, and random token generation.

Everything above this package (vault, auth, relay) composes these primitives;
nothing above it touches crypto/aes or crypto/hmac directly.

# Architecture

	┌──────────────────── SECURITY PRIMITIVES ────────────────────┐
	│                                                               │
	│  ┌──────────────────────────────────────────────┐           │
	│  │                 Cipher                        │           │
	│  │  AES-256-GCM, 32-byte key                    │           │
	│  │  Encrypt: plaintext → {ciphertext, iv, tag}  │           │
	│  │  Decrypt: verifies tag before releasing      │           │
	│  │  All outputs lowercase hex                    │           │
	│  └──────────────────────────────────────────────┘           │
	│                                                               │
	│  ┌──────────────────────────────────────────────┐           │
	│  │               Signatures                      │           │
	│  │  ComputeSignature: HMAC-SHA-256               │           │
	│  │  SignatureHex: 64 lowercase hex chars        │           │
	│  │  VerifySignatureHex: constant time            │           │
	│  └──────────────────────────────────────────────┘           │
	│                                                               │
	│  ┌──────────────────────────────────────────────┐           │
	│  │           Derivation & Tokens                 │           │
	│  │  DeriveSubKey: HMAC(master, context)         │           │
	│  │  RandomHex / NewNonce / GenerateMasterKey    │           │
	│  └──────────────────────────────────────────────┘           │
	│                                                               │
	└───────────────────────────────────────────────────────────────┘

# Encryption Format

Encrypt produces three separately persisted values instead of the common
nonce-prefixed blob. The credential record stores each as its own hex field
(ciphertext, iv, auth_tag) so other vault implementations reading the same
backend can reassemble the GCM input without knowing Go's Seal layout.

New records use a 16-byte IV. Decrypt accepts 12-byte IVs as well; the IV
field carries its own length.

Decrypt never returns plaintext unless the auth tag verifies. Every
corruption path (flipped nibble, truncated tag, malformed hex, wrong IV
length) surfaces as a single INTEGRITY_FAIL error kind with the cause
attached for logs.

# Timing Discipline

Signature and token checks must not leak where a comparison diverged:

  - VerifySignatureHex decodes and compares with crypto/subtle
  - Malformed or wrong-length input burns a full comparison before failing
  - ConstantTimeEqual/ConstantTimeEqualString wrap the same discipline for
    admin token checks

# Usage

Encrypting a credential for storage:

	cipher, err := security.NewCipherFromHex(cfg.MasterEncryptionKey)
	if err != nil {
		return err
	}
	blob, err := cipher.Encrypt([]byte(apiKey))
	// blob.Ciphertext, blob.IV, blob.AuthTag → CredentialRecord fields

Signing a relay payload:

	payload := auth.CanonicalPayload(alias, method, path, ts, nonce)
	sig := security.SignatureHex(secret, payload)

Deriving a per-alias key (optional isolation mode):

	sub := security.DeriveSubKey(masterKey, "glvault:key:"+alias)
	cipher, err := security.NewCipher(sub)

# See Also

  - pkg/vault for how records are encrypted and persisted
  - pkg/auth for the canonical signing payload
*/
package security
