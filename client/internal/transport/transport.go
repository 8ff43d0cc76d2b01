// Package transport sends signed HTTP requests to the file service and
// classifies the response into the client's error-kind taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomjoyce1/fileSharing-sub000/internal/request"
)

// Error kinds surfaced to client operations, per the error taxonomy: a
// failed network round-trip is ErrNetwork; anything the server answered
// with is one of the HTTP-status-mapped sentinels below.
var (
	ErrNetwork      = errors.New("transport: network failure")
	ErrUnauthorized = errors.New("transport: unauthorized")
	ErrForbidden    = errors.New("transport: forbidden")
	ErrNotFound     = errors.New("transport: not found")
	ErrConflict     = errors.New("transport: conflict")
	ErrBadRequest   = errors.New("transport: bad request")
	ErrServerFault  = errors.New("transport: server error")
)

// Transport signs and sends requests against one file-service base URL.
type Transport struct {
	baseURL     string
	httpClient  *http.Client
	username    string
	ed25519Priv []byte
	mlDSAPriv   []byte
}

// New builds a Transport that signs every request as username, using the
// given Ed25519 and ML-DSA-87 private keys.
func New(baseURL, username string, ed25519Priv, mlDSAPriv []byte) *Transport {
	return &Transport{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		username:    username,
		ed25519Priv: ed25519Priv,
		mlDSAPriv:   mlDSAPriv,
	}
}

// ErrorResponse is the server's generic {"message": "..."} error body.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// Post sends a signed POST request with reqBody marshaled once and reused
// for both the wire body and the canonical signature input, then decodes
// the response into respBody on success.
func (t *Transport) Post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("transport: marshal request: %w", err)
	}

	ts := time.Now().UTC()
	signature, err := request.Sign(t.username, ts, "POST", path, string(bodyBytes), t.ed25519Priv, t.mlDSAPriv)
	if err != nil {
		return fmt.Errorf("transport: sign request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(request.HeaderUsername, t.username)
	httpReq.Header.Set(request.HeaderTimestamp, ts.Format(request.TimestampLayout))
	httpReq.Header.Set(request.HeaderSignature, signature)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if respBody == nil {
			return nil
		}
		if err := json.Unmarshal(respData, respBody); err != nil {
			return fmt.Errorf("transport: decode response: %w", err)
		}
		return nil
	}

	var errResp ErrorResponse
	json.Unmarshal(respData, &errResp)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, errResp.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, errResp.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, errResp.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, errResp.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, errResp.Message)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrServerFault, resp.StatusCode, errResp.Message)
	}
}

// PostUnsigned sends a plain unsigned POST (used only for registration,
// which the server does not authenticate).
func (t *Transport) PostUnsigned(ctx context.Context, path string, reqBody, respBody interface{}) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("transport: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if respBody == nil {
			return nil
		}
		return json.Unmarshal(respData, respBody)
	}

	var errResp ErrorResponse
	json.Unmarshal(respData, &errResp)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, errResp.Message)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrServerFault, resp.StatusCode, errResp.Message)
	}
}
