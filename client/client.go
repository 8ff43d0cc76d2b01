// Package client is the end-user-facing orchestrator for the file-sharing
// protocol: it owns one user's signing identity and local envelope cache,
// and exposes upload/download/list/share/revoke/delete as plain method
// calls a UI layer can invoke from a worker goroutine per operation.
package client

import (
	"context"

	"github.com/tomjoyce1/fileSharing-sub000/client/internal/keystore"
	"github.com/tomjoyce1/fileSharing-sub000/client/internal/ops"
	"github.com/tomjoyce1/fileSharing-sub000/client/internal/transport"
	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
)

// Client is one authenticated user's session against a file-service
// server. It is safe for concurrent use: the keystore it wraps serializes
// its own updates.
type Client struct {
	transport *transport.Transport
	keystore  *keystore.Store
}

// New builds a Client for username against baseURL, signing every request
// with identity's private keys. identity is normally produced once at
// registration time and retrieved thereafter from the caller's own
// persistent key store (outside this package's scope).
func New(baseURL, username string, identity *crypto.KeyBundle) *Client {
	return &Client{
		transport: transport.New(baseURL, username, identity.Ed25519.PrivateKey, identity.MLDSA87.PrivateKey),
		keystore:  keystore.New(username, identity),
	}
}

// Register creates username on the server with identity's public bundle.
// Call this once, before constructing a Client for subsequent operations.
func Register(ctx context.Context, baseURL, username string, identity *crypto.KeyBundle) error {
	t := transport.New(baseURL, username, identity.Ed25519.PrivateKey, identity.MLDSA87.PrivateKey)
	return ops.Register(ctx, t, username, identity)
}

// Upload encrypts and uploads plaintext under filename, returning the
// server-assigned file_id.
func (c *Client) Upload(ctx context.Context, plaintext []byte, filename string) (int64, error) {
	return ops.Upload(ctx, c.transport, c.keystore, plaintext, filename)
}

// Download fetches, verifies, and decrypts fileID.
func (c *Client) Download(ctx context.Context, fileID int64) (*ops.DownloadedFile, error) {
	return ops.Download(ctx, c.transport, c.keystore, fileID)
}

// DownloadToDir fetches, verifies, decrypts, and writes fileID's plaintext
// into dir under its decrypted filename. It writes nothing on failure.
func (c *Client) DownloadToDir(ctx context.Context, fileID int64, dir string) (*ops.DownloadedFile, error) {
	f, err := c.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := ops.SaveToDownloadDir(dir, f); err != nil {
		return nil, err
	}
	return f, nil
}

// List fetches and decrypts one page (1-indexed) of owned and shared
// files.
func (c *Client) List(ctx context.Context, page int) (*ops.ListPage, error) {
	return ops.List(ctx, c.transport, c.keystore, page)
}

// Share grants recipientUsername read access to fileID.
func (c *Client) Share(ctx context.Context, fileID int64, recipientUsername string) error {
	return ops.Share(ctx, c.transport, c.keystore, fileID, recipientUsername)
}

// Revoke removes username's access to fileID.
func (c *Client) Revoke(ctx context.Context, fileID int64, username string) error {
	return ops.Revoke(ctx, c.transport, fileID, username)
}

// Delete removes fileID permanently, along with all its shared-access
// records.
func (c *Client) Delete(ctx context.Context, fileID int64) error {
	return ops.Delete(ctx, c.transport, fileID)
}

// GetBundle fetches another user's public key bundle.
func (c *Client) GetBundle(ctx context.Context, username string) (*crypto.PublicBundle, error) {
	return ops.GetBundle(ctx, c.transport, username)
}
