/*
Package crypto implements the cryptographic envelope for the file-sharing
service: symmetric encryption, hashing, the hybrid Ed25519/ML-DSA-87 signer
set, key bundles, per-file envelopes, and the share-time key wrap.

The server never holds plaintext or symmetric file keys; every function in
this package that touches FEK/MEK/file content is meant to run client-side.
Server-side code uses only the verification side: base64 helpers, public
key bundle parsing, the file-signature input builder, and VerifyHybrid.

ALGORITHM: AES-256-CTR with a 16-byte IV. This package intentionally does
not use an AEAD mode: the envelope's integrity is carried by the hybrid
file signature (see envelope.go), not by the symmetric cipher itself.
*/
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// SymmetricKeySize is the size of FEK/MEK keys (256 bits).
const SymmetricKeySize = 32

// NonceSize is the size of the AES-CTR IV used throughout the envelope.
const NonceSize = 16

// GenerateSymmetricKey returns a fresh, uniformly random 256-bit key.
func GenerateSymmetricKey() ([]byte, error) {
	key := make([]byte, SymmetricKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("crypto: generate symmetric key: %w", err)
	}
	return key, nil
}

// GenerateNonce returns a fresh, uniformly random 16-byte IV.
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	return nonce, nil
}

// EncryptCTR encrypts plaintext with AES-256-CTR under key/nonce.
func EncryptCTR(key, nonce, plaintext []byte) ([]byte, error) {
	if len(key) != SymmetricKeySize {
		return nil, fmt.Errorf("crypto: invalid key size: expected %d, got %d", SymmetricKeySize, len(key))
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("crypto: invalid nonce size: expected %d, got %d", NonceSize, len(nonce))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: create AES cipher: %w", err)
	}

	ciphertext := make([]byte, len(plaintext))
	stream := cipher.NewCTR(block, nonce)
	stream.XORKeyStream(ciphertext, plaintext)
	return ciphertext, nil
}

// DecryptCTR decrypts ciphertext with AES-256-CTR under key/nonce. CTR mode
// is its own inverse; the separate name keeps call sites self-documenting.
func DecryptCTR(key, nonce, ciphertext []byte) ([]byte, error) {
	return EncryptCTR(key, nonce, ciphertext)
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// B64Encode encodes raw bytes with standard padded base64.
func B64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// B64Decode decodes standard padded base64.
func B64Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("crypto: base64 decode: %w", err)
	}
	return b, nil
}
