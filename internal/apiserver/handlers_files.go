package apiserver

import (
	"encoding/json"
	"net/http"

	fscrypto "github.com/tomjoyce1/fileSharing-sub000/internal/crypto"

	"github.com/tomjoyce1/fileSharing-sub000/internal/auth"
	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
	"github.com/tomjoyce1/fileSharing-sub000/internal/store"
)

// handleUpload implements POST /api/fs/upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req models.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	fileCt, err := fscrypto.B64Decode(req.FileContent)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid file_content")
		return
	}
	metaCt, err := fscrypto.B64Decode(req.Metadata)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid metadata")
		return
	}
	preSig, err := fscrypto.B64Decode(req.PreQuantumSignature)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid pre_quantum_signature")
		return
	}
	postSig, err := fscrypto.B64Decode(req.PostQuantumSignature)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid post_quantum_signature")
		return
	}

	username, _ := auth.UsernameFromContext(r.Context())
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	bundle, err := fscrypto.ParsePublicBundle(user.PublicKeyBundle)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	ed25519Pub, err := bundle.Ed25519PublicKey()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	mlDSAPub, err := bundle.MLDSA87PublicKey()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	sigInput := fscrypto.BuildFileSignatureInput(username, fileCt, metaCt)
	ok, err := fscrypto.VerifyHybrid(ed25519Pub, mlDSAPub, sigInput, &fscrypto.HybridSignature{
		Ed25519Sig: preSig,
		MLDSA87Sig: postSig,
	})
	if err != nil || !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	fileID, err := s.store.UploadFile(r.Context(), userID, fileCt, metaCt, preSig, postSig)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusCreated, models.UploadResponse{FileID: fileID})
}

// handleDownload implements POST /api/fs/download.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())

	isOwner, access, err := s.store.AccessCheck(r.Context(), req.FileID, userID)
	if err == store.ErrFileNotFound {
		writeMessage(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	file, err := s.store.GetFileRecord(r.Context(), req.FileID)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	blob, err := s.store.ReadFileBlob(r.Context(), file.StoragePath)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	owner, err := s.store.GetUserByID(r.Context(), file.OwnerUserID)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	resp := models.DownloadResponse{
		FileContent:          fscrypto.B64Encode(blob),
		Metadata:             fscrypto.B64Encode(file.Metadata),
		PreQuantumSignature:  fscrypto.B64Encode(file.PreQuantumSignature),
		PostQuantumSignature: fscrypto.B64Encode(file.PostQuantumSignature),
		IsOwner:              isOwner,
		OwnerUserID:          owner.UserID,
		OwnerUsername:        owner.Username,
	}
	if !isOwner {
		resp.SharedAccess = sharedAccessDTO(access)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleList implements POST /api/fs/list.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var req models.ListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Page < 1 {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())

	files, isOwnerFlags, sharedAccess, ownerUsernames, hasNextPage, err := s.store.ListFilesPage(r.Context(), userID, req.Page)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	entries := make([]models.ListEntry, len(files))
	for i, f := range files {
		entries[i] = models.ListEntry{
			FileID:               f.FileID,
			Metadata:             fscrypto.B64Encode(f.Metadata),
			PreQuantumSignature:  fscrypto.B64Encode(f.PreQuantumSignature),
			PostQuantumSignature: fscrypto.B64Encode(f.PostQuantumSignature),
			IsOwner:              isOwnerFlags[i],
			OwnerUsername:        ownerUsernames[i],
			UploadTimestamp:      f.UploadTimestamp.Unix(),
		}
		if !isOwnerFlags[i] {
			entries[i].SharedAccess = sharedAccessDTO(sharedAccess[i])
		}
	}

	writeJSON(w, http.StatusOK, models.ListResponse{FileData: entries, HasNextPage: hasNextPage})
}

// handleShare implements POST /api/fs/share.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req models.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	caller, _ := auth.UsernameFromContext(r.Context())
	callerID, _ := auth.UserIDFromContext(r.Context())

	if req.SharedWithUsername == caller {
		writeMessage(w, http.StatusBadRequest, "Cannot share file with self")
		return
	}

	recipient, err := s.store.GetUserByUsername(r.Context(), req.SharedWithUsername)
	if err == store.ErrUserNotFound {
		writeMessage(w, http.StatusBadRequest, "Unknown user")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	file, err := s.store.GetFileRecord(r.Context(), req.FileID)
	if err == store.ErrFileNotFound {
		writeMessage(w, http.StatusBadRequest, "Unknown file")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if file.OwnerUserID != callerID {
		writeMessage(w, http.StatusForbidden, "Unauthorized")
		return
	}

	encFEK, err1 := fscrypto.B64Decode(req.EncryptedFEK)
	encFEKNonce, err2 := fscrypto.B64Decode(req.EncryptedFEKNonce)
	encMEK, err3 := fscrypto.B64Decode(req.EncryptedMEK)
	encMEKNonce, err4 := fscrypto.B64Decode(req.EncryptedMEKNonce)
	ephemeralPub, err5 := fscrypto.B64Decode(req.EphemeralPublicKey)
	fileNonce, err6 := fscrypto.B64Decode(req.FileContentNonce)
	metaNonce, err7 := fscrypto.B64Decode(req.MetadataNonce)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil || err7 != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	err = s.store.ShareFile(r.Context(), callerID, recipient.UserID, req.FileID,
		encFEK, encFEKNonce, encMEK, encMEKNonce, ephemeralPub, fileNonce, metaNonce)
	if err == store.ErrAlreadyShared {
		writeMessage(w, http.StatusConflict, "File is already shared with this user")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeMessage(w, http.StatusCreated, "File shared successfully")
}

// handleRevoke implements POST /api/fs/revoke.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req models.RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	caller, _ := auth.UsernameFromContext(r.Context())
	callerID, _ := auth.UserIDFromContext(r.Context())

	if req.Username == caller {
		writeMessage(w, http.StatusBadRequest, "Cannot revoke access from self")
		return
	}

	target, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err == store.ErrUserNotFound {
		writeMessage(w, http.StatusBadRequest, "Unknown user")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	file, err := s.store.GetFileRecord(r.Context(), req.FileID)
	if err == store.ErrFileNotFound {
		writeMessage(w, http.StatusBadRequest, "Unknown file")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if file.OwnerUserID != callerID {
		writeMessage(w, http.StatusForbidden, "Unauthorized")
		return
	}

	err = s.store.RevokeShare(r.Context(), callerID, target.UserID, req.FileID)
	if err == store.ErrShareNotFound {
		writeMessage(w, http.StatusNotFound, "File is not shared with this user")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeMessage(w, http.StatusOK, "File access revoked successfully")
}

// handleDelete implements POST /api/fs/delete.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	callerID, _ := auth.UserIDFromContext(r.Context())

	file, err := s.store.GetFileRecord(r.Context(), req.FileID)
	if err == store.ErrFileNotFound {
		writeMessage(w, http.StatusBadRequest, "Unknown file")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if file.OwnerUserID != callerID {
		writeMessage(w, http.StatusForbidden, "Unauthorized")
		return
	}

	if err := s.store.DeleteFile(r.Context(), req.FileID); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeMessage(w, http.StatusOK, "File deleted successfully")
}

func sharedAccessDTO(sa *models.SharedAccessRecord) *models.SharedAccessDTO {
	if sa == nil {
		return nil
	}
	return &models.SharedAccessDTO{
		EncryptedFEK:       fscrypto.B64Encode(sa.EncryptedFEK),
		EncryptedFEKNonce:  fscrypto.B64Encode(sa.EncryptedFEKNonce),
		EncryptedMEK:       fscrypto.B64Encode(sa.EncryptedMEK),
		EncryptedMEKNonce:  fscrypto.B64Encode(sa.EncryptedMEKNonce),
		EphemeralPublicKey: fscrypto.B64Encode(sa.EphemeralPublicKey),
		FileContentNonce:   fscrypto.B64Encode(sa.FileContentNonce),
		MetadataNonce:      fscrypto.B64Encode(sa.MetadataNonce),
	}
}
