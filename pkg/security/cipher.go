package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/genlayer/glvault/pkg/types"
)

// IVSize is the nonce length in bytes for newly encrypted records. Decrypt
// also accepts 12-byte IVs so records written by other vault implementations
// remain readable.
const IVSize = 16

// TagSize is the GCM authentication tag length in bytes.
const TagSize = 16

// EncryptedBlob carries the three AES-256-GCM outputs that are persisted as
// separate fields on a credential record. All fields are lowercase hex.
type EncryptedBlob struct {
	Ciphertext string
	IV         string
	AuthTag    string
}

// Cipher encrypts and decrypts credentials with AES-256-GCM under a fixed
// 32-byte key.
type Cipher struct {
	key []byte
}

// NewCipher creates a cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d", len(key))
	}
	return &Cipher{key: key}, nil
}

// NewCipherFromHex creates a cipher from a 64-character hex key string.
func NewCipherFromHex(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	return NewCipher(key)
}

// Encrypt seals plaintext and splits the GCM output into ciphertext, IV, and
// auth tag.
func (c *Cipher) Encrypt(plaintext []byte) (*EncryptedBlob, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("cannot encrypt empty data")
	}

	gcm, err := c.gcm(IVSize)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	boundary := len(sealed) - gcm.Overhead()

	return &EncryptedBlob{
		Ciphertext: hex.EncodeToString(sealed[:boundary]),
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(sealed[boundary:]),
	}, nil
}

// Decrypt verifies the auth tag and returns the plaintext. Any corruption of
// ciphertext, IV, or tag yields an INTEGRITY_FAIL error; plaintext is never
// released before the tag verifies.
func (c *Cipher) Decrypt(blob *EncryptedBlob) ([]byte, error) {
	ciphertext, err := hex.DecodeString(blob.Ciphertext)
	if err != nil {
		return nil, integrityErr(fmt.Errorf("malformed ciphertext hex: %w", err))
	}
	iv, err := hex.DecodeString(blob.IV)
	if err != nil {
		return nil, integrityErr(fmt.Errorf("malformed IV hex: %w", err))
	}
	tag, err := hex.DecodeString(blob.AuthTag)
	if err != nil {
		return nil, integrityErr(fmt.Errorf("malformed auth tag hex: %w", err))
	}
	if len(iv) != 12 && len(iv) != IVSize {
		return nil, integrityErr(fmt.Errorf("unexpected IV length %d", len(iv)))
	}
	if len(tag) != TagSize {
		return nil, integrityErr(fmt.Errorf("unexpected auth tag length %d", len(tag)))
	}

	gcm, err := c.gcm(len(iv))
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, integrityErr(err)
	}
	return plaintext, nil
}

func (c *Cipher) gcm(ivSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func integrityErr(cause error) error {
	return types.WrapError(types.KindIntegrityFail, "credential integrity check failed", cause)
}
