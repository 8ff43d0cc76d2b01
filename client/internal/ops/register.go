package ops

import (
	"context"

	"github.com/tomjoyce1/fileSharing-sub000/client/internal/transport"
	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
)

// Register submits username and public key bundle. Unauthenticated.
func Register(ctx context.Context, t *transport.Transport, username string, identity *crypto.KeyBundle) error {
	bundleJSON, err := identity.PublicBundle().MarshalJSONBytes()
	if err != nil {
		return err
	}

	req := models.RegisterRequest{Username: username, KeyBundle: bundleJSON}
	var resp models.MessageResponse
	return t.PostUnsigned(ctx, "/api/keyhandler/register", req, &resp)
}

// GetBundle fetches another user's public key bundle.
func GetBundle(ctx context.Context, t *transport.Transport, username string) (*crypto.PublicBundle, error) {
	req := models.GetBundleRequest{Username: username}
	var resp models.GetBundleResponse
	if err := t.Post(ctx, "/api/keyhandler/getbundle", req, &resp); err != nil {
		return nil, err
	}

	bundle, err := crypto.ParsePublicBundle(resp.KeyBundle)
	if err != nil {
		return nil, err
	}
	return bundle, nil
}
