// Package request builds and verifies the canonical request string used by
// every authenticated route: a hybrid Ed25519/ML-DSA-87 signature over
// username|timestamp|METHOD|path|body, with a replay window on the
// timestamp. It is shared by both the client (which signs) and the server
// (which verifies), so canonical-string construction lives in one place.
package request

import (
	"crypto/ed25519"
	"fmt"
	"time"

	fscrypto "github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
)

// ReplayWindow is the maximum age of a request timestamp before it is
// rejected as a replay.
const ReplayWindow = 60 * time.Second

// TimestampLayout is the ISO-8601 millisecond-precision UTC format carried
// in X-Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Headers are the three authentication headers every protected request carries.
const (
	HeaderUsername  = "X-Username"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// BuildCanonicalString constructs the byte-exact canonical request string:
//
//	username + "|" + timestamp + "|" + method + "|" + path + "|" + body
//
// method must already be uppercase; path carries no query string.
func BuildCanonicalString(username, timestamp, method, path, body string) string {
	return username + "|" + timestamp + "|" + method + "|" + path + "|" + body
}

// Sign builds the canonical string and produces its packed hybrid signature.
func Sign(username string, timestamp time.Time, method, path, body string, ed25519Priv ed25519.PrivateKey, mlDSAPriv []byte) (string, error) {
	canonical := BuildCanonicalString(username, timestamp.UTC().Format(TimestampLayout), method, path, body)

	sig, err := fscrypto.SignHybrid(ed25519Priv, mlDSAPriv, []byte(canonical))
	if err != nil {
		return "", fmt.Errorf("request: sign canonical string: %w", err)
	}
	return fscrypto.PackHybridSignature(sig), nil
}

// VerifyInput bundles everything the server needs to verify an incoming
// authenticated request.
type VerifyInput struct {
	Username        string
	TimestampHeader string
	Method          string
	Path            string
	Body            string
	SignatureHeader string
	Now             time.Time
}

// Errors surfaced by Verify. Callers map these to Unauthorized (401); the
// distinct sentinels exist for logging, not for differing status codes.
var (
	ErrMissingHeader      = fmt.Errorf("request: missing authentication header")
	ErrMalformedTimestamp = fmt.Errorf("request: malformed timestamp")
	ErrExpiredTimestamp   = fmt.Errorf("request: timestamp outside replay window")
	ErrMalformedSignature = fmt.Errorf("request: malformed signature header")
	ErrSignatureMismatch  = fmt.Errorf("request: signature verification failed")
)

// Verify reconstructs the canonical string from in.Body verbatim, checks
// the replay window, and verifies both halves of the hybrid signature
// against the caller's public bundle. It does not resolve the username to
// a user record; callers do that before invoking Verify and pass in the
// resolved public keys.
func Verify(in VerifyInput, ed25519Pub ed25519.PublicKey, mlDSAPub []byte) error {
	if in.Username == "" || in.TimestampHeader == "" || in.SignatureHeader == "" {
		return ErrMissingHeader
	}

	ts, err := time.Parse(TimestampLayout, in.TimestampHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTimestamp, err)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	age := now.UTC().Sub(ts.UTC())
	if age < 0 {
		age = -age
	}
	if age > ReplayWindow {
		return ErrExpiredTimestamp
	}

	sig, err := fscrypto.UnpackHybridSignature(in.SignatureHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}

	canonical := BuildCanonicalString(in.Username, in.TimestampHeader, in.Method, in.Path, in.Body)
	ok, err := fscrypto.VerifyHybrid(ed25519Pub, mlDSAPub, []byte(canonical), sig)
	if err != nil {
		return fmt.Errorf("request: verify hybrid signature: %w", err)
	}
	if !ok {
		return ErrSignatureMismatch
	}

	return nil
}
