// Package keystore is the client's in-memory key and envelope cache: the
// user's own hybrid identity, per-file symmetric envelopes, and public key
// bundles fetched for other users.
package keystore

import (
	"sync"

	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
)

// Store is the client's local key material. Concurrent operations share
// one Store; updates are last-writer-wins per file_id.
type Store struct {
	mu sync.Mutex

	identity *crypto.KeyBundle
	username string

	envelopes    map[int64]crypto.Envelope
	publicBundle map[string]crypto.PublicBundle
}

// New builds a Store around the caller's own identity key bundle.
func New(username string, identity *crypto.KeyBundle) *Store {
	return &Store{
		identity:     identity,
		username:     username,
		envelopes:    make(map[int64]crypto.Envelope),
		publicBundle: make(map[string]crypto.PublicBundle),
	}
}

// Identity returns the caller's own hybrid key bundle.
func (s *Store) Identity() *crypto.KeyBundle {
	return s.identity
}

// Username returns the caller's own username.
func (s *Store) Username() string {
	return s.username
}

// PutEnvelope records the symmetric envelope for a file this client just
// uploaded. Last write for a given file_id wins.
func (s *Store) PutEnvelope(fileID int64, env crypto.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes[fileID] = env
}

// Envelope returns the locally cached envelope for an owned file, if any.
func (s *Store) Envelope(fileID int64) (crypto.Envelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.envelopes[fileID]
	return env, ok
}

// CachePublicBundle remembers another user's public key bundle so repeat
// operations against the same recipient skip a GET_BUNDLE round trip.
func (s *Store) CachePublicBundle(username string, bundle crypto.PublicBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicBundle[username] = bundle
}

// CachedPublicBundle returns a previously cached public bundle, if any.
func (s *Store) CachedPublicBundle(username string) (crypto.PublicBundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.publicBundle[username]
	return b, ok
}
