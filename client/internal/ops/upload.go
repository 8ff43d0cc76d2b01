package ops

import (
	"context"
	"fmt"

	"github.com/tomjoyce1/fileSharing-sub000/client/internal/keystore"
	"github.com/tomjoyce1/fileSharing-sub000/client/internal/transport"
	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
)

// Upload encrypts plaintext into a file envelope, signs it with the
// caller's hybrid identity, and submits it. On success the envelope is
// cached in ks keyed by the server-assigned file_id.
func Upload(ctx context.Context, t *transport.Transport, ks *keystore.Store, plaintext []byte, filename string) (int64, error) {
	enc, err := crypto.EncryptFile(plaintext, filename)
	if err != nil {
		return 0, fmt.Errorf("ops: encrypt file: %w", err)
	}

	identity := ks.Identity()
	sigInput := crypto.BuildFileSignatureInput(ks.Username(), enc.FileCiphertext, enc.MetadataCiphertext)
	sig, err := crypto.SignHybrid(identity.Ed25519.PrivateKey, identity.MLDSA87.PrivateKey, sigInput)
	if err != nil {
		return 0, fmt.Errorf("ops: sign file: %w", err)
	}

	req := models.UploadRequest{
		FileContent:          crypto.B64Encode(enc.FileCiphertext),
		Metadata:             crypto.B64Encode(enc.MetadataCiphertext),
		PreQuantumSignature:  crypto.B64Encode(sig.Ed25519Sig),
		PostQuantumSignature: crypto.B64Encode(sig.MLDSA87Sig),
	}

	var resp models.UploadResponse
	if err := t.Post(ctx, "/api/fs/upload", req, &resp); err != nil {
		return 0, err
	}

	ks.PutEnvelope(resp.FileID, enc.Envelope)
	return resp.FileID, nil
}
