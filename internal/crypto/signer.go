/*
Signer set (C3): Ed25519 classical signatures, ML-DSA-87 (Dilithium5)
post-quantum signatures, and X25519 keygen/scalar-mult for key agreement.

LIBRARY: cloudflare/circl supplies ML-DSA-87 via the generic sign.Scheme
interface (circl/sign/schemes.ByName). Ed25519 and X25519 come from the
standard library and golang.org/x/crypto/curve25519 respectively.

KEY SIZES (fixed by the ML-DSA-87 parameter set):
  - Ed25519 public key:    32 bytes
  - Ed25519 private key:   64 bytes (seed || pub, stdlib form)
  - ML-DSA-87 public key:  2592 bytes
  - ML-DSA-87 private key: 4896 bytes
  - ML-DSA-87 signature:   ~4627 bytes (scheme-dependent, not fixed-width)
  - X25519 public/private: 32 bytes each
*/
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	circlsign "github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/schemes"
	"golang.org/x/crypto/curve25519"
)

const mlDSASchemeName = "ML-DSA-87"

// mlDSAScheme is resolved once; schemes.ByName returns nil for an unknown
// name, which would otherwise surface as a confusing nil-pointer panic deep
// inside circl rather than at the call site.
var mlDSAScheme = mustScheme(mlDSASchemeName)

func mustScheme(name string) circlsign.Scheme {
	s := schemes.ByName(name)
	if s == nil {
		panic(fmt.Sprintf("crypto: unknown signature scheme %q", name))
	}
	return s
}

const (
	X25519PublicKeySize  = 32
	X25519PrivateKeySize = 32
)

// X25519KeyPair is an X25519 key pair used for ECDH key agreement.
type X25519KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateX25519KeyPair returns a fresh, uniformly random clamped X25519 key pair.
func GenerateX25519KeyPair() (*X25519KeyPair, error) {
	var priv [X25519PrivateKeySize]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, fmt.Errorf("crypto: generate X25519 private key: %w", err)
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive X25519 public key: %w", err)
	}

	return &X25519KeyPair{PublicKey: pub, PrivateKey: priv[:]}, nil
}

// X25519ScalarMult performs the raw X25519 Diffie-Hellman operation and
// returns the 32-byte scalar-mult output. Callers that need it as an AES
// key use it directly; this package applies no KDF over it.
func X25519ScalarMult(privateKey, peerPublicKey []byte) ([]byte, error) {
	if len(privateKey) != X25519PrivateKeySize {
		return nil, fmt.Errorf("crypto: invalid X25519 private key size: expected %d, got %d", X25519PrivateKeySize, len(privateKey))
	}
	if len(peerPublicKey) != X25519PublicKeySize {
		return nil, fmt.Errorf("crypto: invalid X25519 public key size: expected %d, got %d", X25519PublicKeySize, len(peerPublicKey))
	}

	shared, err := curve25519.X25519(privateKey, peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: X25519 scalar-mult: %w", err)
	}
	return shared, nil
}

// Ed25519KeyPair is a classical Ed25519 signing key pair.
type Ed25519KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateEd25519KeyPair returns a fresh Ed25519 key pair.
func GenerateEd25519KeyPair() (*Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate Ed25519 key pair: %w", err)
	}
	return &Ed25519KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// SignEd25519 signs message with an Ed25519 private key.
func SignEd25519(privateKey ed25519.PrivateKey, message []byte) ([]byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: invalid Ed25519 private key size: expected %d, got %d", ed25519.PrivateKeySize, len(privateKey))
	}
	return ed25519.Sign(privateKey, message), nil
}

// VerifyEd25519 verifies an Ed25519 signature over message.
func VerifyEd25519(publicKey ed25519.PublicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}

// MLDSA87KeyPair is a post-quantum ML-DSA-87 signing key pair, held in
// circl's marshaled binary form so it can be stored and transmitted
// alongside the classical keys.
type MLDSA87KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateMLDSA87KeyPair generates a fresh ML-DSA-87 key pair.
func GenerateMLDSA87KeyPair() (*MLDSA87KeyPair, error) {
	pub, priv, err := mlDSAScheme.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate ML-DSA-87 key pair: %w", err)
	}

	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal ML-DSA-87 public key: %w", err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal ML-DSA-87 private key: %w", err)
	}

	return &MLDSA87KeyPair{PublicKey: pubBytes, PrivateKey: privBytes}, nil
}

// SignMLDSA87 signs message with a marshaled ML-DSA-87 private key.
func SignMLDSA87(privateKey, message []byte) ([]byte, error) {
	if len(privateKey) != mlDSAScheme.PrivateKeySize() {
		return nil, fmt.Errorf("crypto: invalid ML-DSA-87 private key size: expected %d, got %d", mlDSAScheme.PrivateKeySize(), len(privateKey))
	}

	sk, err := mlDSAScheme.UnmarshalBinaryPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: unmarshal ML-DSA-87 private key: %w", err)
	}

	sig := mlDSAScheme.Sign(sk, message, nil)
	if sig == nil {
		return nil, fmt.Errorf("crypto: ML-DSA-87 sign failed")
	}
	return sig, nil
}

// VerifyMLDSA87 verifies an ML-DSA-87 signature over message.
func VerifyMLDSA87(publicKey, message, signature []byte) (bool, error) {
	if len(publicKey) != mlDSAScheme.PublicKeySize() {
		return false, fmt.Errorf("crypto: invalid ML-DSA-87 public key size: expected %d, got %d", mlDSAScheme.PublicKeySize(), len(publicKey))
	}

	pk, err := mlDSAScheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return false, fmt.Errorf("crypto: unmarshal ML-DSA-87 public key: %w", err)
	}

	return mlDSAScheme.Verify(pk, message, signature, nil), nil
}

// HybridSignature is a packed Ed25519 + ML-DSA-87 signature pair, as
// carried in the X-Signature header and the file-record signature columns.
type HybridSignature struct {
	Ed25519Sig []byte
	MLDSA87Sig []byte
}

// SignHybrid produces both halves of a dual signature over message.
func SignHybrid(ed25519Priv ed25519.PrivateKey, mlDSAPriv []byte, message []byte) (*HybridSignature, error) {
	classicalSig, err := SignEd25519(ed25519Priv, message)
	if err != nil {
		return nil, err
	}
	pqSig, err := SignMLDSA87(mlDSAPriv, message)
	if err != nil {
		return nil, err
	}
	return &HybridSignature{Ed25519Sig: classicalSig, MLDSA87Sig: pqSig}, nil
}

// VerifyHybrid verifies both halves of a dual signature over message.
// Both must pass for the hybrid signature to be considered valid.
func VerifyHybrid(ed25519Pub ed25519.PublicKey, mlDSAPub []byte, message []byte, sig *HybridSignature) (bool, error) {
	if !VerifyEd25519(ed25519Pub, message, sig.Ed25519Sig) {
		return false, nil
	}
	ok, err := VerifyMLDSA87(mlDSAPub, message, sig.MLDSA87Sig)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// PackHybridSignature encodes a hybrid signature as base64(sig1)||base64(sig2).
func PackHybridSignature(sig *HybridSignature) string {
	return B64Encode(sig.Ed25519Sig) + "||" + B64Encode(sig.MLDSA87Sig)
}

// UnpackHybridSignature parses the base64(sig1)||base64(sig2) wire format.
func UnpackHybridSignature(packed string) (*HybridSignature, error) {
	for i := 0; i+1 < len(packed); i++ {
		if packed[i] == '|' && packed[i+1] == '|' {
			first, second := packed[:i], packed[i+2:]
			ed25519Sig, err := B64Decode(first)
			if err != nil {
				return nil, fmt.Errorf("crypto: decode Ed25519 signature half: %w", err)
			}
			mlDSASig, err := B64Decode(second)
			if err != nil {
				return nil, fmt.Errorf("crypto: decode ML-DSA-87 signature half: %w", err)
			}
			return &HybridSignature{Ed25519Sig: ed25519Sig, MLDSA87Sig: mlDSASig}, nil
		}
	}
	return nil, fmt.Errorf("crypto: malformed hybrid signature: missing '||' separator")
}
