// Package models holds the data-model types shared between the server's
// store/apiserver layers and the client's operation handlers: the
// Postgres-backed records (User, FileRecord, SharedAccessRecord) and the
// JSON wire DTOs exchanged over the file-service HTTP surface.
package models

import (
	"encoding/json"
	"time"
)

// User is a registered identity: a username and the public halves of its
// hybrid key bundle. user_id is a server-assigned monotonic integer.
type User struct {
	UserID          int64     `json:"user_id"`
	Username        string    `json:"username"`
	PublicKeyBundle []byte    `json:"public_key_bundle"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FileRecord is one uploaded file: ciphertext location, encrypted metadata,
// and the owner's hybrid signature over both.
type FileRecord struct {
	FileID               int64     `json:"file_id"`
	OwnerUserID          int64     `json:"owner_user_id"`
	StoragePath          string    `json:"storage_path"`
	Metadata             []byte    `json:"metadata"`
	PreQuantumSignature  []byte    `json:"pre_quantum_signature"`
	PostQuantumSignature []byte    `json:"post_quantum_signature"`
	UploadTimestamp      time.Time `json:"upload_timestamp"`
}

// SharedAccessRecord grants a non-owner read access to a file by storing
// FEK/MEK wrapped under an ECDH shared secret derived from an ephemeral
// key pair generated at share time.
type SharedAccessRecord struct {
	AccessID           int64     `json:"access_id"`
	OwnerUserID        int64     `json:"owner_user_id"`
	SharedWithUserID   int64     `json:"shared_with_user_id"`
	FileID             int64     `json:"file_id"`
	EncryptedFEK       []byte    `json:"encrypted_fek"`
	EncryptedFEKNonce  []byte    `json:"encrypted_fek_nonce"`
	EncryptedMEK       []byte    `json:"encrypted_mek"`
	EncryptedMEKNonce  []byte    `json:"encrypted_mek_nonce"`
	EphemeralPublicKey []byte    `json:"ephemeral_public_key"`
	FileContentNonce   []byte    `json:"file_content_nonce"`
	MetadataNonce      []byte    `json:"metadata_nonce"`
	SharedAt           time.Time `json:"shared_at"`
}

// --- wire DTOs, §6/§4.4 ---

// RegisterRequest is the body of POST /api/keyhandler/register. KeyBundle
// is persisted verbatim as the canonical JSON bytes the client sent.
type RegisterRequest struct {
	Username  string          `json:"username"`
	KeyBundle json.RawMessage `json:"key_bundle"`
}

// GetBundleRequest is the body of POST /api/keyhandler/getbundle.
type GetBundleRequest struct {
	Username string `json:"username"`
}

// GetBundleResponse is the response of POST /api/keyhandler/getbundle.
type GetBundleResponse struct {
	KeyBundle json.RawMessage `json:"key_bundle"`
}

// UploadRequest is the body of POST /api/fs/upload.
type UploadRequest struct {
	FileContent          string `json:"file_content"`
	Metadata             string `json:"metadata"`
	PreQuantumSignature  string `json:"pre_quantum_signature"`
	PostQuantumSignature string `json:"post_quantum_signature"`
}

// UploadResponse is the response of POST /api/fs/upload.
type UploadResponse struct {
	FileID int64 `json:"file_id"`
}

// DownloadRequest is the body of POST /api/fs/download.
type DownloadRequest struct {
	FileID int64 `json:"file_id"`
}

// SharedAccessDTO is the wire form of a shared-access record returned
// alongside a downloaded or listed file when the caller is not the owner.
type SharedAccessDTO struct {
	EncryptedFEK       string `json:"encrypted_fek"`
	EncryptedFEKNonce  string `json:"encrypted_fek_nonce"`
	EncryptedMEK       string `json:"encrypted_mek"`
	EncryptedMEKNonce  string `json:"encrypted_mek_nonce"`
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	FileContentNonce   string `json:"file_content_nonce"`
	MetadataNonce      string `json:"metadata_nonce"`
}

// DownloadResponse is the response of POST /api/fs/download.
type DownloadResponse struct {
	FileContent          string           `json:"file_content"`
	Metadata             string           `json:"metadata"`
	PreQuantumSignature  string           `json:"pre_quantum_signature"`
	PostQuantumSignature string           `json:"post_quantum_signature"`
	IsOwner              bool             `json:"is_owner"`
	OwnerUserID          int64            `json:"owner_user_id"`
	OwnerUsername        string           `json:"owner_username"`
	SharedAccess         *SharedAccessDTO `json:"shared_access,omitempty"`
}

// ListRequest is the body of POST /api/fs/list.
type ListRequest struct {
	Page int `json:"page"`
}

// ListEntry is one row of the ListResponse.fileData array.
type ListEntry struct {
	FileID               int64            `json:"file_id"`
	Metadata             string           `json:"metadata"`
	PreQuantumSignature  string           `json:"pre_quantum_signature"`
	PostQuantumSignature string           `json:"post_quantum_signature"`
	IsOwner              bool             `json:"is_owner"`
	OwnerUsername        string           `json:"owner_username"`
	UploadTimestamp      int64            `json:"upload_timestamp"`
	SharedAccess         *SharedAccessDTO `json:"shared_access,omitempty"`
}

// ListResponse is the response of POST /api/fs/list.
type ListResponse struct {
	FileData    []ListEntry `json:"fileData"`
	HasNextPage bool        `json:"hasNextPage"`
}

// ListPageSize is the fixed number of entries per list page (§4.4).
const ListPageSize = 25

// ShareRequest is the body of POST /api/fs/share.
type ShareRequest struct {
	FileID             int64  `json:"file_id"`
	SharedWithUsername string `json:"shared_with_username"`
	EncryptedFEK       string `json:"encrypted_fek"`
	EncryptedFEKNonce  string `json:"encrypted_fek_nonce"`
	EncryptedMEK       string `json:"encrypted_mek"`
	EncryptedMEKNonce  string `json:"encrypted_mek_nonce"`
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	FileContentNonce   string `json:"file_content_nonce"`
	MetadataNonce      string `json:"metadata_nonce"`
}

// RevokeRequest is the body of POST /api/fs/revoke.
type RevokeRequest struct {
	FileID   int64  `json:"file_id"`
	Username string `json:"username"`
}

// DeleteRequest is the body of POST /api/fs/delete.
type DeleteRequest struct {
	FileID int64 `json:"file_id"`
}

// MessageResponse is the generic {"message": "..."} response shape used
// by register, share, revoke, and delete on success or error.
type MessageResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}
