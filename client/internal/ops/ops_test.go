package ops_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tomjoyce1/fileSharing-sub000/client/internal/keystore"
	"github.com/tomjoyce1/fileSharing-sub000/client/internal/ops"
	"github.com/tomjoyce1/fileSharing-sub000/client/internal/transport"
	"github.com/tomjoyce1/fileSharing-sub000/internal/crypto"
	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
	"github.com/tomjoyce1/fileSharing-sub000/internal/request"
)

// fakeServer is a minimal, in-memory stand-in for the file service: enough
// of the real HTTP surface (register/getbundle/upload/download/share) to
// exercise the client's ops layer end to end, including dual-signature
// verification on every authenticated request.
type fakeServer struct {
	mu    sync.Mutex
	users map[string]models.User
	files map[int64]models.FileRecord
	blobs map[int64][]byte
	owner map[int64]string
	// sharedWith[fileID][username] = SharedAccessRecord
	sharedWith map[int64]map[string]models.SharedAccessRecord
	next       int64
}

func newFakeServer(t *testing.T) (*httptest.Server, *fakeServer) {
	t.Helper()
	fs := &fakeServer{
		users:      make(map[string]models.User),
		files:      make(map[int64]models.FileRecord),
		blobs:      make(map[int64][]byte),
		owner:      make(map[int64]string),
		sharedWith: make(map[int64]map[string]models.SharedAccessRecord),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/keyhandler/register", fs.handleRegister)
	mux.HandleFunc("/api/keyhandler/getbundle", fs.authenticated(fs.handleGetBundle))
	mux.HandleFunc("/api/fs/upload", fs.authenticated(fs.handleUpload))
	mux.HandleFunc("/api/fs/download", fs.authenticated(fs.handleDownload))
	mux.HandleFunc("/api/fs/share", fs.authenticated(fs.handleShare))
	mux.HandleFunc("/api/fs/list", fs.authenticated(fs.handleList))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fs
}

func (fs *fakeServer) authenticated(next func(w http.ResponseWriter, r *http.Request, caller, body string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body := string(bodyBytes)

		username := r.Header.Get(request.HeaderUsername)
		fs.mu.Lock()
		user, ok := fs.users[username]
		fs.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(transport.ErrorResponse{Message: "unauthorized"})
			return
		}
		bundle, err := crypto.ParsePublicBundle(user.PublicKeyBundle)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		edPub, err1 := bundle.Ed25519PublicKey()
		mlPub, err2 := bundle.MLDSA87PublicKey()
		if err1 != nil || err2 != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		in := request.VerifyInput{
			Username:        username,
			TimestampHeader: r.Header.Get(request.HeaderTimestamp),
			Method:          r.Method,
			Path:            r.URL.Path,
			Body:            body,
			SignatureHeader: r.Header.Get(request.HeaderSignature),
		}
		if err := request.Verify(in, edPub, mlPub); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(transport.ErrorResponse{Message: "unauthorized"})
			return
		}

		next(w, r, username, body)
	}
}

func (fs *fakeServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req models.RegisterRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, exists := fs.users[req.Username]; exists {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(transport.ErrorResponse{Message: "Username already taken"})
		return
	}
	fs.users[req.Username] = models.User{Username: req.Username, PublicKeyBundle: []byte(req.KeyBundle)}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.MessageResponse{Message: "User registered"})
}

func (fs *fakeServer) handleGetBundle(w http.ResponseWriter, r *http.Request, caller, body string) {
	var req models.GetBundleRequest
	json.Unmarshal([]byte(body), &req)

	fs.mu.Lock()
	user, ok := fs.users[req.Username]
	fs.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(models.GetBundleResponse{KeyBundle: user.PublicKeyBundle})
}

func (fs *fakeServer) handleUpload(w http.ResponseWriter, r *http.Request, caller, body string) {
	var req models.UploadRequest
	json.Unmarshal([]byte(body), &req)

	fileCt, _ := crypto.B64Decode(req.FileContent)
	metaCt, _ := crypto.B64Decode(req.Metadata)
	preSig, _ := crypto.B64Decode(req.PreQuantumSignature)
	postSig, _ := crypto.B64Decode(req.PostQuantumSignature)

	fs.mu.Lock()
	fs.next++
	id := fs.next
	fs.files[id] = models.FileRecord{
		FileID:               id,
		Metadata:             metaCt,
		PreQuantumSignature:  preSig,
		PostQuantumSignature: postSig,
	}
	fs.blobs[id] = fileCt
	fs.owner[id] = caller
	fs.mu.Unlock()

	json.NewEncoder(w).Encode(models.UploadResponse{FileID: id})
}

func (fs *fakeServer) handleDownload(w http.ResponseWriter, r *http.Request, caller, body string) {
	var req models.DownloadRequest
	json.Unmarshal([]byte(body), &req)

	fs.mu.Lock()
	file, ok := fs.files[req.FileID]
	owner := fs.owner[req.FileID]
	blob := fs.blobs[req.FileID]
	fs.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resp := models.DownloadResponse{
		FileContent:          crypto.B64Encode(blob),
		Metadata:             crypto.B64Encode(file.Metadata),
		PreQuantumSignature:  crypto.B64Encode(file.PreQuantumSignature),
		PostQuantumSignature: crypto.B64Encode(file.PostQuantumSignature),
		IsOwner:              owner == caller,
		OwnerUsername:        owner,
	}

	if owner != caller {
		fs.mu.Lock()
		sa, shared := fs.sharedWith[req.FileID][caller]
		fs.mu.Unlock()
		if !shared {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		resp.SharedAccess = &models.SharedAccessDTO{
			EncryptedFEK:       crypto.B64Encode(sa.EncryptedFEK),
			EncryptedFEKNonce:  crypto.B64Encode(sa.EncryptedFEKNonce),
			EncryptedMEK:       crypto.B64Encode(sa.EncryptedMEK),
			EncryptedMEKNonce:  crypto.B64Encode(sa.EncryptedMEKNonce),
			EphemeralPublicKey: crypto.B64Encode(sa.EphemeralPublicKey),
			FileContentNonce:   crypto.B64Encode(sa.FileContentNonce),
			MetadataNonce:      crypto.B64Encode(sa.MetadataNonce),
		}
	}

	json.NewEncoder(w).Encode(resp)
}

func (fs *fakeServer) handleShare(w http.ResponseWriter, r *http.Request, caller, body string) {
	var req models.ShareRequest
	json.Unmarshal([]byte(body), &req)

	if req.SharedWithUsername == caller {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(transport.ErrorResponse{Message: "Cannot share file with self"})
		return
	}

	encFEK, _ := crypto.B64Decode(req.EncryptedFEK)
	encFEKNonce, _ := crypto.B64Decode(req.EncryptedFEKNonce)
	encMEK, _ := crypto.B64Decode(req.EncryptedMEK)
	encMEKNonce, _ := crypto.B64Decode(req.EncryptedMEKNonce)
	ephemeralPub, _ := crypto.B64Decode(req.EphemeralPublicKey)
	fileNonce, _ := crypto.B64Decode(req.FileContentNonce)
	metaNonce, _ := crypto.B64Decode(req.MetadataNonce)

	fs.mu.Lock()
	if fs.sharedWith[req.FileID] == nil {
		fs.sharedWith[req.FileID] = make(map[string]models.SharedAccessRecord)
	}
	fs.sharedWith[req.FileID][req.SharedWithUsername] = models.SharedAccessRecord{
		EncryptedFEK:       encFEK,
		EncryptedFEKNonce:  encFEKNonce,
		EncryptedMEK:       encMEK,
		EncryptedMEKNonce:  encMEKNonce,
		EphemeralPublicKey: ephemeralPub,
		FileContentNonce:   fileNonce,
		MetadataNonce:      metaNonce,
	}
	fs.mu.Unlock()

	json.NewEncoder(w).Encode(models.MessageResponse{Message: "File shared successfully"})
}

func (fs *fakeServer) handleList(w http.ResponseWriter, r *http.Request, caller, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var entries []models.ListEntry
	for id, file := range fs.files {
		owner := fs.owner[id]
		isOwner := owner == caller
		sa, shared := fs.sharedWith[id][caller]
		if !isOwner && !shared {
			continue
		}
		entry := models.ListEntry{
			FileID:        id,
			Metadata:      crypto.B64Encode(file.Metadata),
			IsOwner:       isOwner,
			OwnerUsername: owner,
		}
		if !isOwner {
			entry.SharedAccess = &models.SharedAccessDTO{
				EncryptedFEK:       crypto.B64Encode(sa.EncryptedFEK),
				EncryptedFEKNonce:  crypto.B64Encode(sa.EncryptedFEKNonce),
				EncryptedMEK:       crypto.B64Encode(sa.EncryptedMEK),
				EncryptedMEKNonce:  crypto.B64Encode(sa.EncryptedMEKNonce),
				EphemeralPublicKey: crypto.B64Encode(sa.EphemeralPublicKey),
				FileContentNonce:   crypto.B64Encode(sa.FileContentNonce),
				MetadataNonce:      crypto.B64Encode(sa.MetadataNonce),
			}
		}
		entries = append(entries, entry)
	}

	json.NewEncoder(w).Encode(models.ListResponse{FileData: entries, HasNextPage: false})
}

func registerUser(t *testing.T, baseURL, username string) (*keystore.Store, *transport.Transport) {
	t.Helper()
	identity, err := crypto.GenerateKeyBundle()
	if err != nil {
		t.Fatalf("GenerateKeyBundle: %v", err)
	}
	regTr := transport.New(baseURL, username, identity.Ed25519.PrivateKey, identity.MLDSA87.PrivateKey)
	if err := ops.Register(context.Background(), regTr, username, identity); err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	tr := transport.New(baseURL, username, identity.Ed25519.PrivateKey, identity.MLDSA87.PrivateKey)
	ks := keystore.New(username, identity)
	return ks, tr
}

func TestUploadDownloadRoundTripOwner(t *testing.T) {
	srv, _ := newFakeServer(t)

	aliceKS, aliceTr := registerUser(t, srv.URL, "alice")

	plaintext := []byte("hello, secret world")
	fileID, err := ops.Upload(context.Background(), aliceTr, aliceKS, plaintext, "note.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	dl, err := ops.Download(context.Background(), aliceTr, aliceKS, fileID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(dl.Plaintext) != string(plaintext) {
		t.Fatalf("Download plaintext = %q, want %q", dl.Plaintext, plaintext)
	}
	if dl.Filename != "note.txt" {
		t.Fatalf("Download filename = %q, want %q", dl.Filename, "note.txt")
	}
}

func TestShareThenRecipientCanDownload(t *testing.T) {
	srv, _ := newFakeServer(t)

	aliceKS, aliceTr := registerUser(t, srv.URL, "alice")
	bobKS, bobTr := registerUser(t, srv.URL, "bob")

	plaintext := []byte("shared payload")
	fileID, err := ops.Upload(context.Background(), aliceTr, aliceKS, plaintext, "shared.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := ops.Share(context.Background(), aliceTr, aliceKS, fileID, "bob"); err != nil {
		t.Fatalf("Share: %v", err)
	}

	dl, err := ops.Download(context.Background(), bobTr, bobKS, fileID)
	if err != nil {
		t.Fatalf("bob Download: %v", err)
	}
	if string(dl.Plaintext) != string(plaintext) {
		t.Fatalf("bob's decrypted plaintext = %q, want %q", dl.Plaintext, plaintext)
	}
}

func TestNonRecipientCannotDownload(t *testing.T) {
	srv, _ := newFakeServer(t)

	aliceKS, aliceTr := registerUser(t, srv.URL, "alice")
	_, eveTr := registerUser(t, srv.URL, "eve")
	eveKS := keystore.New("eve", nil)

	fileID, err := ops.Upload(context.Background(), aliceTr, aliceKS, []byte("private"), "f.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, err = ops.Download(context.Background(), eveTr, eveKS, fileID)
	if err == nil {
		t.Fatal("Download by a non-owner, non-recipient should fail")
	}
}

func TestShareWithSelfRejected(t *testing.T) {
	srv, _ := newFakeServer(t)

	aliceKS, aliceTr := registerUser(t, srv.URL, "alice")
	fileID, err := ops.Upload(context.Background(), aliceTr, aliceKS, []byte("x"), "f.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := ops.Share(context.Background(), aliceTr, aliceKS, fileID, "alice"); err == nil {
		t.Fatal("Share with self should fail")
	}
}

func TestDownloadDetectsTamperedCiphertext(t *testing.T) {
	srv, fs := newFakeServer(t)

	aliceKS, aliceTr := registerUser(t, srv.URL, "alice")
	fileID, err := ops.Upload(context.Background(), aliceTr, aliceKS, []byte("authentic content"), "f.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	fs.mu.Lock()
	fs.blobs[fileID][0] ^= 0xFF
	fs.mu.Unlock()

	_, err = ops.Download(context.Background(), aliceTr, aliceKS, fileID)
	if err == nil {
		t.Fatal("Download over tampered ciphertext should fail signature verification")
	}
}

func TestListDecryptsOwnedAndSharedEntries(t *testing.T) {
	srv, _ := newFakeServer(t)

	aliceKS, aliceTr := registerUser(t, srv.URL, "alice")
	bobKS, bobTr := registerUser(t, srv.URL, "bob")

	ownFileID, err := ops.Upload(context.Background(), aliceTr, aliceKS, []byte("alice's own file"), "mine.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	sharedFileID, err := ops.Upload(context.Background(), aliceTr, aliceKS, []byte("shared with bob"), "shared.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := ops.Share(context.Background(), aliceTr, aliceKS, sharedFileID, "bob"); err != nil {
		t.Fatalf("Share: %v", err)
	}

	page, err := ops.List(context.Background(), bobTr, bobKS, 1)
	if err != nil {
		t.Fatalf("bob List: %v", err)
	}

	var sawShared bool
	for _, f := range page.Files {
		if f.FileID == sharedFileID {
			sawShared = true
			if f.DecryptFailed {
				t.Fatalf("bob's shared entry failed to decrypt metadata")
			}
			if f.Filename != "shared.txt" {
				t.Fatalf("bob's shared entry filename = %q, want %q", f.Filename, "shared.txt")
			}
		}
		if f.FileID == ownFileID {
			t.Fatalf("bob's list page should not include alice's unshared file %d", ownFileID)
		}
	}
	if !sawShared {
		t.Fatal("bob's list page is missing the file shared with him")
	}

	alicePage, err := ops.List(context.Background(), aliceTr, aliceKS, 1)
	if err != nil {
		t.Fatalf("alice List: %v", err)
	}
	var sawOwn bool
	for _, f := range alicePage.Files {
		if f.FileID == ownFileID {
			sawOwn = true
			if f.DecryptFailed || f.Filename != "mine.txt" {
				t.Fatalf("alice's own entry: DecryptFailed=%v Filename=%q, want false/\"mine.txt\"", f.DecryptFailed, f.Filename)
			}
		}
	}
	if !sawOwn {
		t.Fatal("alice's list page is missing her own uploaded file")
	}
}
