// Package auth implements the server's request-authentication middleware:
// dual-signature verification against a resolved user's public key bundle,
// GET_BUNDLE rate limiting, and a replay-nonce cache.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
	"github.com/tomjoyce1/fileSharing-sub000/internal/request"
	"github.com/tomjoyce1/fileSharing-sub000/internal/store"
)

// writeMessage writes the {"message": "..."} JSON body every route in this
// API answers with, matching internal/apiserver's writeMessage/writeJSON so
// the auth-failure path never falls back to a plaintext body.
func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

type contextKey string

// ContextUserID is the context key the middleware attaches the resolved
// user_id under; handlers read it with UserIDFromContext.
const ContextUserID contextKey = "auth.user_id"

// ContextUsername is the context key for the resolved username.
const ContextUsername contextKey = "auth.username"

// ErrUnauthenticated covers every way a request can fail authentication:
// missing header, bad signature, expired timestamp, unknown username, or a
// replayed nonce. Authenticate does not return it; it answers each of these
// failures with a 401 JSON body itself.
var ErrUnauthenticated = errors.New("auth: request failed authentication")

// Middleware verifies the dual signature on every protected request and
// injects the caller's user_id into the request context.
type Middleware struct {
	store  *store.Service
	replay *ReplayCache
}

// NewMiddleware builds request-authentication middleware backed by the
// given file-service store and replay cache.
func NewMiddleware(svc *store.Service, replay *ReplayCache) *Middleware {
	return &Middleware{store: svc, replay: replay}
}

// Authenticate wraps an http.HandlerFunc so that it only runs once the
// request's hybrid signature has verified against the claimed username's
// registered key bundle, the timestamp is within the replay window, and
// the (username, timestamp, signature) triple has not been seen before.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get(request.HeaderUsername)
		timestamp := r.Header.Get(request.HeaderTimestamp)
		signature := r.Header.Get(request.HeaderSignature)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request")
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		user, err := m.store.GetUserByUsername(r.Context(), username)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		bundle, err := crypto.ParsePublicBundle(user.PublicKeyBundle)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ed25519Pub, err := bundle.Ed25519PublicKey()
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		mlDSAPub, err := bundle.MLDSA87PublicKey()
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		in := request.VerifyInput{
			Username:        username,
			TimestampHeader: timestamp,
			Method:          r.Method,
			Path:            r.URL.Path,
			Body:            string(body),
			SignatureHeader: signature,
		}
		if err := request.Verify(in, ed25519Pub, mlDSAPub); err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if m.replay != nil {
			fresh, err := m.replay.CheckAndStore(r.Context(), username, timestamp, signature)
			if err != nil {
				writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			if !fresh {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}

		ctx := context.WithValue(r.Context(), ContextUserID, user.UserID)
		ctx = context.WithValue(ctx, ContextUsername, username)
		next(w, r.WithContext(ctx))
	}
}

// UserIDFromContext returns the authenticated caller's user_id, set by
// Authenticate. ok is false outside an authenticated request.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextUserID).(int64)
	return id, ok
}

// UsernameFromContext returns the authenticated caller's username, set by
// Authenticate.
func UsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ContextUsername).(string)
	return name, ok
}
