// Package store implements the server-side file service state machine
// (C8/C10): persisting ciphertext blobs to object storage, upserting and
// querying file and shared-access records, and enforcing the owner/sharee
// access-control model.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
)

var (
	ErrUserExists    = errors.New("store: username already taken")
	ErrUserNotFound  = errors.New("store: user not found")
	ErrFileNotFound  = errors.New("store: file not found")
	ErrSelfShare     = errors.New("store: cannot share file with self")
	ErrAlreadyShared = errors.New("store: file is already shared with this user")
	ErrShareNotFound = errors.New("store: file is not shared with this user")
)

// Service is the file-service state machine: one Postgres connection for
// records, one MinIO client for ciphertext blobs.
type Service struct {
	db         *sql.DB
	client     *minio.Client
	bucketName string
}

// NewService creates a MinIO client from S3_* environment
// variables and ensures the target bucket exists, mirroring the
// environment-variable-with-defaults convention used throughout this
// repository's service constructors.
func NewService(db *sql.DB) (*Service, error) {
	endpoint := os.Getenv("S3_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	accessKey := os.Getenv("S3_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "minioadmin"
	}
	secretKey := os.Getenv("S3_SECRET_KEY")
	if secretKey == "" {
		secretKey = "minioadmin"
	}
	bucketName := os.Getenv("S3_BUCKET")
	if bucketName == "" {
		bucketName = "fileshare-blobs"
	}
	bucketRegion := os.Getenv("S3_REGION")
	if bucketRegion == "" {
		bucketRegion = "us-east-1"
	}
	useSSL := os.Getenv("S3_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("store: create S3 client: %w", err)
	}

	svc := &Service{db: db, client: client, bucketName: bucketName}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("store: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: bucketRegion}); err != nil {
			return nil, fmt.Errorf("store: create bucket: %w", err)
		}
		log.Printf("[Store] created bucket: %s", bucketName)
	}

	return svc, nil
}

// --- users ---

// CreateUser inserts a new user row with its public key bundle.
func (s *Service) CreateUser(ctx context.Context, username string, publicKeyBundle []byte) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, public_key_bundle, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING user_id, username, public_key_bundle, created_at, updated_at
	`, username, publicKeyBundle).Scan(&u.UserID, &u.Username, &u.PublicKeyBundle, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername resolves a username to its user record.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, public_key_bundle, created_at, updated_at
		FROM users WHERE username = $1
	`, username).Scan(&u.UserID, &u.Username, &u.PublicKeyBundle, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// GetUserByID resolves a user_id to its user record.
func (s *Service) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, public_key_bundle, created_at, updated_at
		FROM users WHERE user_id = $1
	`, userID).Scan(&u.UserID, &u.Username, &u.PublicKeyBundle, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user by id: %w", err)
	}
	return &u, nil
}

// --- files ---

// newStorageKey produces a per-upload unique object key so concurrent
// uploads never collide in the bucket (§5: disk I/O serialized per path by
// making paths unique).
func newStorageKey(ownerUserID int64) string {
	return fmt.Sprintf("files/%d/%s", ownerUserID, uuid.New().String())
}

// UploadFile writes the ciphertext blob to object storage, then inserts
// the File row. The object write happens first; on DB insert failure the
// object is removed, so no dangling blob or row can result (§4.4).
func (s *Service) UploadFile(ctx context.Context, ownerUserID int64, fileCt, metadataCt, preQSig, postQSig []byte) (int64, error) {
	storageKey := newStorageKey(ownerUserID)

	_, err := s.client.PutObject(ctx, s.bucketName, storageKey, bytes.NewReader(fileCt), int64(len(fileCt)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return 0, fmt.Errorf("store: write file blob: %w", err)
	}

	var fileID int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO files (owner_user_id, storage_path, metadata, pre_quantum_signature, post_quantum_signature, upload_timestamp)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING file_id
	`, ownerUserID, storageKey, metadataCt, preQSig, postQSig).Scan(&fileID)
	if err != nil {
		if removeErr := s.client.RemoveObject(ctx, s.bucketName, storageKey, minio.RemoveObjectOptions{}); removeErr != nil {
			log.Printf("[Store] ERROR: failed to remove orphaned blob %s after insert failure: %v", storageKey, removeErr)
		}
		return 0, fmt.Errorf("store: insert file record: %w", err)
	}

	return fileID, nil
}

// GetFileRecord fetches a file row by id.
func (s *Service) GetFileRecord(ctx context.Context, fileID int64) (*models.FileRecord, error) {
	var f models.FileRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT file_id, owner_user_id, storage_path, metadata, pre_quantum_signature, post_quantum_signature, upload_timestamp
		FROM files WHERE file_id = $1
	`, fileID).Scan(&f.FileID, &f.OwnerUserID, &f.StoragePath, &f.Metadata, &f.PreQuantumSignature, &f.PostQuantumSignature, &f.UploadTimestamp)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get file record: %w", err)
	}
	return &f, nil
}

// ReadFileBlob reads the ciphertext blob at a file's storage_path, bit for
// bit as currently on disk.
func (s *Service) ReadFileBlob(ctx context.Context, storagePath string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, storagePath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("store: read file blob: %w", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("store: stat file blob: %w", err)
	}

	buf := make([]byte, info.Size)
	if _, err := io.ReadFull(obj, buf); err != nil {
		return nil, fmt.Errorf("store: read file blob: %w", err)
	}
	return buf, nil
}

// AccessCheck reports whether userID may read fileID, and if so whether
// userID is the owner (§8 ACL closure).
func (s *Service) AccessCheck(ctx context.Context, fileID, userID int64) (isOwner bool, access *models.SharedAccessRecord, err error) {
	file, err := s.GetFileRecord(ctx, fileID)
	if err != nil {
		return false, nil, err
	}
	if file.OwnerUserID == userID {
		return true, nil, nil
	}

	sa, err := s.getSharedAccess(ctx, file.OwnerUserID, userID, fileID)
	if err != nil {
		if errors.Is(err, ErrShareNotFound) {
			return false, nil, ErrFileNotFound
		}
		return false, nil, err
	}
	return false, sa, nil
}

// ListFilesPage returns owned and shared-with files for userID, newest
// first, 25 per page, plus whether a further page exists.
func (s *Service) ListFilesPage(ctx context.Context, userID int64, page int) ([]models.FileRecord, []bool, []*models.SharedAccessRecord, []string, bool, error) {
	offset := (page - 1) * models.ListPageSize

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.file_id, f.owner_user_id, f.storage_path, f.metadata,
		       f.pre_quantum_signature, f.post_quantum_signature, f.upload_timestamp,
		       (f.owner_user_id = $1) AS is_owner, u.username AS owner_username
		FROM files f
		JOIN users u ON u.user_id = f.owner_user_id
		WHERE f.owner_user_id = $1
		   OR f.file_id IN (SELECT file_id FROM shared_access WHERE shared_with_user_id = $1)
		ORDER BY f.upload_timestamp DESC
		LIMIT $2 OFFSET $3
	`, userID, models.ListPageSize+1, offset)
	if err != nil {
		return nil, nil, nil, nil, false, fmt.Errorf("store: list files: %w", err)
	}
	defer rows.Close()

	var files []models.FileRecord
	var isOwnerFlags []bool
	var ownerUsernames []string
	for rows.Next() {
		var f models.FileRecord
		var isOwner bool
		var ownerUsername string
		if err := rows.Scan(&f.FileID, &f.OwnerUserID, &f.StoragePath, &f.Metadata,
			&f.PreQuantumSignature, &f.PostQuantumSignature, &f.UploadTimestamp,
			&isOwner, &ownerUsername); err != nil {
			return nil, nil, nil, nil, false, fmt.Errorf("store: scan file row: %w", err)
		}
		files = append(files, f)
		isOwnerFlags = append(isOwnerFlags, isOwner)
		ownerUsernames = append(ownerUsernames, ownerUsername)
	}

	hasNextPage := len(files) > models.ListPageSize
	if hasNextPage {
		files = files[:models.ListPageSize]
		isOwnerFlags = isOwnerFlags[:models.ListPageSize]
		ownerUsernames = ownerUsernames[:models.ListPageSize]
	}

	sharedAccess := make([]*models.SharedAccessRecord, len(files))
	for i, f := range files {
		if isOwnerFlags[i] {
			continue
		}
		sa, err := s.getSharedAccess(ctx, f.OwnerUserID, userID, f.FileID)
		if err != nil {
			return nil, nil, nil, nil, false, fmt.Errorf("store: list shared access: %w", err)
		}
		sharedAccess[i] = sa
	}

	return files, isOwnerFlags, sharedAccess, ownerUsernames, hasNextPage, nil
}

// --- shared access ---

func (s *Service) getSharedAccess(ctx context.Context, ownerUserID, sharedWithUserID, fileID int64) (*models.SharedAccessRecord, error) {
	var sa models.SharedAccessRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT access_id, owner_user_id, shared_with_user_id, file_id,
		       encrypted_fek, encrypted_fek_nonce, encrypted_mek, encrypted_mek_nonce,
		       ephemeral_public_key, file_content_nonce, metadata_nonce, shared_at
		FROM shared_access
		WHERE owner_user_id = $1 AND shared_with_user_id = $2 AND file_id = $3
	`, ownerUserID, sharedWithUserID, fileID).Scan(
		&sa.AccessID, &sa.OwnerUserID, &sa.SharedWithUserID, &sa.FileID,
		&sa.EncryptedFEK, &sa.EncryptedFEKNonce, &sa.EncryptedMEK, &sa.EncryptedMEKNonce,
		&sa.EphemeralPublicKey, &sa.FileContentNonce, &sa.MetadataNonce, &sa.SharedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get shared access: %w", err)
	}
	return &sa, nil
}

// ShareFile inserts a shared-access row. Caller has already enforced
// ownership, self-share rejection, and resolved both usernames to ids.
func (s *Service) ShareFile(ctx context.Context, ownerUserID, sharedWithUserID, fileID int64, encFEK, encFEKNonce, encMEK, encMEKNonce, ephemeralPub, fileNonce, metaNonce []byte) error {
	if sharedWithUserID == ownerUserID {
		return ErrSelfShare
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shared_access (owner_user_id, shared_with_user_id, file_id,
			encrypted_fek, encrypted_fek_nonce, encrypted_mek, encrypted_mek_nonce,
			ephemeral_public_key, file_content_nonce, metadata_nonce, shared_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`, ownerUserID, sharedWithUserID, fileID, encFEK, encFEKNonce, encMEK, encMEKNonce, ephemeralPub, fileNonce, metaNonce)
	if isUniqueViolation(err) {
		return ErrAlreadyShared
	}
	if err != nil {
		return fmt.Errorf("store: share file: %w", err)
	}
	return nil
}

// RevokeShare deletes a shared-access row.
func (s *Service) RevokeShare(ctx context.Context, ownerUserID, sharedWithUserID, fileID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM shared_access WHERE owner_user_id = $1 AND shared_with_user_id = $2 AND file_id = $3
	`, ownerUserID, sharedWithUserID, fileID)
	if err != nil {
		return fmt.Errorf("store: revoke share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: revoke share: %w", err)
	}
	if n == 0 {
		return ErrShareNotFound
	}
	return nil
}

// DeleteFile removes the ciphertext blob, all shared-access rows, and the
// file row itself. Disk removal happens before the DB transaction so a
// retried delete after a partial failure is re-entrant (the object not
// existing is not itself an error here).
func (s *Service) DeleteFile(ctx context.Context, fileID int64) error {
	file, err := s.GetFileRecord(ctx, fileID)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, file.StoragePath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("store: delete file blob: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete file: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shared_access WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("store: delete shared_access rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("store: delete file row: %w", err)
	}

	return tx.Commit()
}

// pqUniqueViolation is the SQLSTATE code Postgres reports for a unique_violation.
const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
