package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomjoyce1/fileSharing-sub000/client/internal/keystore"
	"github.com/tomjoyce1/fileSharing-sub000/client/internal/transport"
	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
)

// DownloadedFile is the result of a successful Download: the verified,
// decrypted plaintext and its filename.
type DownloadedFile struct {
	Plaintext []byte
	Filename  string
}

// Download fetches file_id, verifies both hybrid signatures against the
// owner's public bundle, then decrypts via the caller's local envelope
// (owner) or an unwrapped shared-access record (recipient). It never
// writes plaintext anywhere on a verification or decryption failure.
func Download(ctx context.Context, t *transport.Transport, ks *keystore.Store, fileID int64) (*DownloadedFile, error) {
	req := models.DownloadRequest{FileID: fileID}
	var resp models.DownloadResponse
	if err := t.Post(ctx, "/api/fs/download", req, &resp); err != nil {
		return nil, err
	}

	fileCt, err := crypto.B64Decode(resp.FileContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	metaCt, err := crypto.B64Decode(resp.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	preSig, err := crypto.B64Decode(resp.PreQuantumSignature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	postSig, err := crypto.B64Decode(resp.PostQuantumSignature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	ownerBundle, err := resolveOwnerBundle(ctx, t, ks, resp.OwnerUsername)
	if err != nil {
		return nil, err
	}
	ed25519Pub, err := ownerBundle.Ed25519PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	mlDSAPub, err := ownerBundle.MLDSA87PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	sigInput := crypto.BuildFileSignatureInput(resp.OwnerUsername, fileCt, metaCt)
	ok, err := crypto.VerifyHybrid(ed25519Pub, mlDSAPub, sigInput, &crypto.HybridSignature{
		Ed25519Sig: preSig,
		MLDSA87Sig: postSig,
	})
	if err != nil || !ok {
		return nil, ErrCryptoFailure
	}

	env, err := resolveEnvelope(ks, fileID, resp)
	if err != nil {
		return nil, err
	}

	dec, err := crypto.DecryptFile(fileCt, metaCt, *env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	return &DownloadedFile{Plaintext: dec.Plaintext, Filename: dec.Filename}, nil
}

// SaveToDownloadDir writes a verified download's plaintext under dir,
// using its decrypted filename.
func SaveToDownloadDir(dir string, f *DownloadedFile) error {
	return os.WriteFile(filepath.Join(dir, f.Filename), f.Plaintext, 0o600)
}

func resolveOwnerBundle(ctx context.Context, t *transport.Transport, ks *keystore.Store, ownerUsername string) (*crypto.PublicBundle, error) {
	if ownerUsername == ks.Username() {
		pub := ks.Identity().PublicBundle()
		return &pub, nil
	}
	if cached, ok := ks.CachedPublicBundle(ownerUsername); ok {
		return &cached, nil
	}
	bundle, err := GetBundle(ctx, t, ownerUsername)
	if err != nil {
		return nil, err
	}
	ks.CachePublicBundle(ownerUsername, *bundle)
	return bundle, nil
}

func resolveEnvelope(ks *keystore.Store, fileID int64, resp models.DownloadResponse) (*crypto.Envelope, error) {
	if resp.IsOwner {
		env, ok := ks.Envelope(fileID)
		if !ok {
			return nil, fmt.Errorf("%w: no local envelope for owned file %d", ErrCryptoFailure, fileID)
		}
		return &env, nil
	}

	if resp.SharedAccess == nil {
		return nil, fmt.Errorf("%w: missing shared_access on non-owner download", ErrCryptoFailure)
	}
	sa := resp.SharedAccess

	encFEK, err1 := crypto.B64Decode(sa.EncryptedFEK)
	encFEKNonce, err2 := crypto.B64Decode(sa.EncryptedFEKNonce)
	encMEK, err3 := crypto.B64Decode(sa.EncryptedMEK)
	encMEKNonce, err4 := crypto.B64Decode(sa.EncryptedMEKNonce)
	ephemeralPub, err5 := crypto.B64Decode(sa.EphemeralPublicKey)
	fileNonce, err6 := crypto.B64Decode(sa.FileContentNonce)
	metaNonce, err7 := crypto.B64Decode(sa.MetadataNonce)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil || err7 != nil {
		return nil, fmt.Errorf("%w: malformed shared_access fields", ErrCryptoFailure)
	}

	wrapped := &crypto.WrappedEnvelope{
		EphemeralPublicKey: ephemeralPub,
		EncryptedFEK:       encFEK,
		EncryptedFEKNonce:  encFEKNonce,
		EncryptedMEK:       encMEK,
		EncryptedMEKNonce:  encMEKNonce,
	}

	env, err := crypto.UnwrapEnvelope(wrapped, ks.Identity().X25519.PrivateKey, fileNonce, metaNonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	return env, nil
}
