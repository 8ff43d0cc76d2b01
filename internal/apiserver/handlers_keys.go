package apiserver

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/tomjoyce1/fileSharing-sub000/internal/auth"
	"github.com/tomjoyce1/fileSharing-sub000/internal/models"
	"github.com/tomjoyce1/fileSharing-sub000/internal/store"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)

// handleRegister implements POST /api/keyhandler/register. Not authenticated.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if !usernamePattern.MatchString(req.Username) {
		writeMessage(w, http.StatusBadRequest, "Invalid username")
		return
	}
	if len(req.KeyBundle) == 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid key bundle")
		return
	}

	_, err := s.store.CreateUser(r.Context(), req.Username, []byte(req.KeyBundle))
	if err == store.ErrUserExists {
		writeMessage(w, http.StatusBadRequest, "Username already taken")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeMessage(w, http.StatusCreated, "User registered")
}

// handleGetBundle implements POST /api/keyhandler/getbundle. Authenticated.
func (s *Server) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	var req models.GetBundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	caller, _ := auth.UsernameFromContext(r.Context())
	if s.rateLimiter != nil {
		if err := s.rateLimiter.CheckBundleFetch(r.Context(), caller, req.Username, r.RemoteAddr); err != nil {
			writeMessage(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err == store.ErrUserNotFound {
		writeMessage(w, http.StatusBadRequest, "Invalid username")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, models.GetBundleResponse{KeyBundle: user.PublicKeyBundle})
}
