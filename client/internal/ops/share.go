package ops

import (
	"context"
	"fmt"

	"github.com/tomjoyce1/fileSharing-sub000/client/internal/keystore"
	"github.com/tomjoyce1/fileSharing-sub000/client/internal/transport"
	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
)

// Share wraps fileID's envelope under recipientUsername's public X25519
// key and submits the resulting shared-access fields.
func Share(ctx context.Context, t *transport.Transport, ks *keystore.Store, fileID int64, recipientUsername string) error {
	env, ok := ks.Envelope(fileID)
	if !ok {
		return fmt.Errorf("%w: no local envelope for file %d", ErrCryptoFailure, fileID)
	}

	recipientBundle, err := resolveOwnerBundle(ctx, t, ks, recipientUsername)
	if err != nil {
		return err
	}
	recipientX25519, err := recipientBundle.X25519PublicKey()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	wrapped, err := crypto.WrapEnvelopeForRecipient(env, recipientX25519)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	req := models.ShareRequest{
		FileID:             fileID,
		SharedWithUsername: recipientUsername,
		EncryptedFEK:       crypto.B64Encode(wrapped.EncryptedFEK),
		EncryptedFEKNonce:  crypto.B64Encode(wrapped.EncryptedFEKNonce),
		EncryptedMEK:       crypto.B64Encode(wrapped.EncryptedMEK),
		EncryptedMEKNonce:  crypto.B64Encode(wrapped.EncryptedMEKNonce),
		EphemeralPublicKey: crypto.B64Encode(wrapped.EphemeralPublicKey),
		FileContentNonce:   crypto.B64Encode(env.FileNonce),
		MetadataNonce:      crypto.B64Encode(env.MetadataNonce),
	}

	var resp models.MessageResponse
	return t.Post(ctx, "/api/fs/share", req, &resp)
}

// Revoke removes shared access for username on fileID.
func Revoke(ctx context.Context, t *transport.Transport, fileID int64, username string) error {
	req := models.RevokeRequest{FileID: fileID, Username: username}
	var resp models.MessageResponse
	return t.Post(ctx, "/api/fs/revoke", req, &resp)
}

// Delete removes fileID, its blob, and every shared-access row for it.
func Delete(ctx context.Context, t *transport.Transport, fileID int64) error {
	req := models.DeleteRequest{FileID: fileID}
	var resp models.MessageResponse
	return t.Post(ctx, "/api/fs/delete", req, &resp)
}
