package crypto

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
)

// KeyBundle is the full client-held key material for one identity: the
// X25519 key-agreement pair plus the hybrid Ed25519/ML-DSA-87 signing
// pairs. It never crosses the wire in this form; PublicBundle does.
type KeyBundle struct {
	X25519  *X25519KeyPair
	Ed25519 *Ed25519KeyPair
	MLDSA87 *MLDSA87KeyPair
}

// GenerateKeyBundle creates a fresh identity: one X25519, one Ed25519, and
// one ML-DSA-87 key pair.
func GenerateKeyBundle() (*KeyBundle, error) {
	x25519Keys, err := GenerateX25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key bundle: %w", err)
	}
	ed25519Keys, err := GenerateEd25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key bundle: %w", err)
	}
	mlDSAKeys, err := GenerateMLDSA87KeyPair()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key bundle: %w", err)
	}

	return &KeyBundle{X25519: x25519Keys, Ed25519: ed25519Keys, MLDSA87: mlDSAKeys}, nil
}

// preQuantumSection mirrors the wire object's "preQuantum" field.
type preQuantumSection struct {
	IdentityKemPublicKey     string `json:"identityKemPublicKey"`
	IdentitySigningPublicKey string `json:"identitySigningPublicKey"`
}

// postQuantumSection mirrors the wire object's "postQuantum" field.
type postQuantumSection struct {
	IdentitySigningPublicKey string `json:"identitySigningPublicKey"`
}

// PublicBundle is the public-key-only JSON wire format persisted by the
// server and exchanged via register/getbundle.
type PublicBundle struct {
	PreQuantum  preQuantumSection  `json:"preQuantum"`
	PostQuantum postQuantumSection `json:"postQuantum"`
}

// PublicBundle extracts the public wire representation of a key bundle.
func (kb *KeyBundle) PublicBundle() PublicBundle {
	return PublicBundle{
		PreQuantum: preQuantumSection{
			IdentityKemPublicKey:     B64Encode(kb.X25519.PublicKey),
			IdentitySigningPublicKey: B64Encode(kb.Ed25519.PublicKey),
		},
		PostQuantum: postQuantumSection{
			IdentitySigningPublicKey: B64Encode(kb.MLDSA87.PublicKey),
		},
	}
}

// MarshalJSONBytes serializes the bundle to its canonical wire form.
func (pb PublicBundle) MarshalJSONBytes() ([]byte, error) {
	b, err := json.Marshal(pb)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal public bundle: %w", err)
	}
	return b, nil
}

// ParsePublicBundle decodes the wire JSON form. The keys stay base64 strings
// here; the per-key accessors below decode them and check their sizes.
func ParsePublicBundle(raw []byte) (*PublicBundle, error) {
	var pb PublicBundle
	if err := json.Unmarshal(raw, &pb); err != nil {
		return nil, fmt.Errorf("crypto: unmarshal public bundle: %w", err)
	}
	return &pb, nil
}

// X25519PublicKey base64-decodes the bundle's KEM public key.
func (pb PublicBundle) X25519PublicKey() ([]byte, error) {
	b, err := B64Decode(pb.PreQuantum.IdentityKemPublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode X25519 public key: %w", err)
	}
	if len(b) != X25519PublicKeySize {
		return nil, fmt.Errorf("crypto: invalid X25519 public key size: expected %d, got %d", X25519PublicKeySize, len(b))
	}
	return b, nil
}

// Ed25519PublicKey base64-decodes the bundle's classical signing public key.
func (pb PublicBundle) Ed25519PublicKey() (ed25519.PublicKey, error) {
	b, err := B64Decode(pb.PreQuantum.IdentitySigningPublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode Ed25519 public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("crypto: invalid Ed25519 public key size: expected %d, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}

// MLDSA87PublicKey base64-decodes the bundle's post-quantum signing public key.
func (pb PublicBundle) MLDSA87PublicKey() ([]byte, error) {
	b, err := B64Decode(pb.PostQuantum.IdentitySigningPublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode ML-DSA-87 public key: %w", err)
	}
	if len(b) != mlDSAScheme.PublicKeySize() {
		return nil, fmt.Errorf("crypto: invalid ML-DSA-87 public key size: expected %d, got %d", mlDSAScheme.PublicKeySize(), len(b))
	}
	return b, nil
}
