// Package apiserver wires the file-service HTTP routes (C10): register,
// get-bundle, upload, download, list, share, revoke, delete.
package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tomjoyce1/fileSharing-sub000/internal/auth"
	"github.com/tomjoyce1/fileSharing-sub000/internal/db"
	"github.com/tomjoyce1/fileSharing-sub000/internal/store"
)

// Server holds the file service's dependencies and builds its router.
type Server struct {
	db          *db.DB
	store       *store.Service
	authMw      *auth.Middleware
	rateLimiter *auth.Limiter
}

// New builds a Server over an already-connected DB and file store.
func New(database *db.DB, fileStore *store.Service) *Server {
	replay := auth.NewReplayCache(database.Redis)
	return &Server{
		db:          database,
		store:       fileStore,
		authMw:      auth.NewMiddleware(fileStore, replay),
		rateLimiter: auth.NewLimiter(database.Redis),
	}
}

// Router builds the gorilla/mux router for the file-service HTTP surface.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	router.HandleFunc("/api/keyhandler/register", s.handleRegister).Methods("POST")
	router.HandleFunc("/api/keyhandler/getbundle", s.authMw.Authenticate(s.handleGetBundle)).Methods("POST")

	router.HandleFunc("/api/fs/upload", s.authMw.Authenticate(s.handleUpload)).Methods("POST")
	router.HandleFunc("/api/fs/download", s.authMw.Authenticate(s.handleDownload)).Methods("POST")
	router.HandleFunc("/api/fs/list", s.authMw.Authenticate(s.handleList)).Methods("POST")
	router.HandleFunc("/api/fs/share", s.authMw.Authenticate(s.handleShare)).Methods("POST")
	router.HandleFunc("/api/fs/revoke", s.authMw.Authenticate(s.handleRevoke)).Methods("POST")
	router.HandleFunc("/api/fs/delete", s.authMw.Authenticate(s.handleDelete)).Methods("POST")

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Username, X-Timestamp, X-Signature")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	if err := s.db.Health(ctx); err != nil {
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
