package crypto

import "fmt"

// WrappedEnvelope is the result of wrapping a file's FEK/MEK for a
// recipient: an ephemeral X25519 public key plus the AES-CTR-wrapped keys
// and their nonces. It is persisted verbatim as a shared-access record.
type WrappedEnvelope struct {
	EphemeralPublicKey []byte
	EncryptedFEK       []byte
	EncryptedFEKNonce  []byte
	EncryptedMEK       []byte
	EncryptedMEKNonce  []byte
}

// WrapEnvelopeForRecipient generates a fresh ephemeral X25519 key pair,
// derives a shared secret against the recipient's X25519 public key, and
// uses the raw scalar-mult output directly as an AES-256 key (no KDF) to
// wrap FEK and MEK under two independent nonces.
func WrapEnvelopeForRecipient(env Envelope, recipientX25519Pub []byte) (*WrappedEnvelope, error) {
	ephemeral, err := GenerateX25519KeyPair()
	if err != nil {
		return nil, fmt.Errorf("crypto: wrap envelope: %w", err)
	}

	shared, err := X25519ScalarMult(ephemeral.PrivateKey, recipientX25519Pub)
	if err != nil {
		return nil, fmt.Errorf("crypto: wrap envelope: %w", err)
	}

	fekNonce, err := GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("crypto: wrap envelope: %w", err)
	}
	mekNonce, err := GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("crypto: wrap envelope: %w", err)
	}

	encFEK, err := EncryptCTR(shared, fekNonce, env.FEK)
	if err != nil {
		return nil, fmt.Errorf("crypto: wrap FEK: %w", err)
	}
	encMEK, err := EncryptCTR(shared, mekNonce, env.MEK)
	if err != nil {
		return nil, fmt.Errorf("crypto: wrap MEK: %w", err)
	}

	return &WrappedEnvelope{
		EphemeralPublicKey: ephemeral.PublicKey,
		EncryptedFEK:       encFEK,
		EncryptedFEKNonce:  fekNonce,
		EncryptedMEK:       encMEK,
		EncryptedMEKNonce:  mekNonce,
	}, nil
}

// UnwrapEnvelope reverses WrapEnvelopeForRecipient from the recipient's
// side: it derives the same shared secret using the recipient's private
// key and the sender's ephemeral public key, then decrypts FEK and MEK.
// fileNonce and metadataNonce are copied verbatim from the owner's file
// envelope (they are not rewrapped, only the keys are).
func UnwrapEnvelope(we *WrappedEnvelope, recipientX25519Priv []byte, fileNonce, metadataNonce []byte) (*Envelope, error) {
	shared, err := X25519ScalarMult(recipientX25519Priv, we.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: unwrap envelope: %w", err)
	}

	fek, err := DecryptCTR(shared, we.EncryptedFEKNonce, we.EncryptedFEK)
	if err != nil {
		return nil, fmt.Errorf("crypto: unwrap FEK: %w", err)
	}
	mek, err := DecryptCTR(shared, we.EncryptedMEKNonce, we.EncryptedMEK)
	if err != nil {
		return nil, fmt.Errorf("crypto: unwrap MEK: %w", err)
	}

	return &Envelope{
		FEK:           fek,
		MEK:           mek,
		FileNonce:     fileNonce,
		MetadataNonce: metadataNonce,
	}, nil
}
