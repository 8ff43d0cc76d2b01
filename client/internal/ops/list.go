package ops

import (
	"context"
	"log"

	"github.com/tomjoyce1/fileSharing-sub000/client/internal/keystore"
	"github.com/tomjoyce1/fileSharing-sub000/client/internal/transport"
	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
)

// ListedFile is one entry of a List page with its metadata already
// decrypted, or left zero-valued if decryption failed for that entry.
type ListedFile struct {
	FileID          int64
	Filename        string
	Filesize        int64
	IsOwner         bool
	OwnerUsername   string
	UploadTimestamp int64
	DecryptFailed   bool
}

// ListPage is one page of List, decrypted entry by entry.
type ListPage struct {
	Files       []ListedFile
	HasNextPage bool
}

// List fetches page and decrypts each entry's metadata using the local
// envelope (owned files) or the unwrapped shared-access keys (shared
// files). An entry whose metadata fails to decrypt is skipped from
// Filename/Filesize but still reported with DecryptFailed set; List never
// aborts the whole page over one bad entry.
func List(ctx context.Context, t *transport.Transport, ks *keystore.Store, page int) (*ListPage, error) {
	req := models.ListRequest{Page: page}
	var resp models.ListResponse
	if err := t.Post(ctx, "/api/fs/list", req, &resp); err != nil {
		return nil, err
	}

	out := make([]ListedFile, len(resp.FileData))
	for i, entry := range resp.FileData {
		out[i] = ListedFile{
			FileID:          entry.FileID,
			IsOwner:         entry.IsOwner,
			OwnerUsername:   entry.OwnerUsername,
			UploadTimestamp: entry.UploadTimestamp,
		}

		filename, filesize, err := decryptListEntry(ks, entry)
		if err != nil {
			log.Printf("[ops] list: skipping metadata for file %d: %v", entry.FileID, err)
			out[i].DecryptFailed = true
			continue
		}
		out[i].Filename = filename
		out[i].Filesize = filesize
	}

	return &ListPage{Files: out, HasNextPage: resp.HasNextPage}, nil
}

func decryptListEntry(ks *keystore.Store, entry models.ListEntry) (string, int64, error) {
	metaCt, err := crypto.B64Decode(entry.Metadata)
	if err != nil {
		return "", 0, err
	}

	if entry.IsOwner {
		env, ok := ks.Envelope(entry.FileID)
		if !ok {
			return "", 0, ErrCryptoFailure
		}
		return crypto.DecryptMetadata(metaCt, env.MEK, env.MetadataNonce)
	}

	if entry.SharedAccess == nil {
		return "", 0, ErrCryptoFailure
	}
	sa := entry.SharedAccess

	encFEK, err1 := crypto.B64Decode(sa.EncryptedFEK)
	encFEKNonce, err2 := crypto.B64Decode(sa.EncryptedFEKNonce)
	encMEK, err3 := crypto.B64Decode(sa.EncryptedMEK)
	encMEKNonce, err4 := crypto.B64Decode(sa.EncryptedMEKNonce)
	ephemeralPub, err5 := crypto.B64Decode(sa.EphemeralPublicKey)
	metaNonce, err6 := crypto.B64Decode(sa.MetadataNonce)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
		return "", 0, ErrCryptoFailure
	}

	wrapped := &crypto.WrappedEnvelope{
		EphemeralPublicKey: ephemeralPub,
		EncryptedFEK:       encFEK,
		EncryptedFEKNonce:  encFEKNonce,
		EncryptedMEK:       encMEK,
		EncryptedMEKNonce:  encMEKNonce,
	}
	env, err := crypto.UnwrapEnvelope(wrapped, ks.Identity().X25519.PrivateKey, nil, metaNonce)
	if err != nil {
		return "", 0, err
	}

	return crypto.DecryptMetadata(metaCt, env.MEK, env.MetadataNonce)
}
