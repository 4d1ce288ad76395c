package server

import (
	"net/http"

	"github.com/teemow/mailfeed/internal/logging"
	"github.com/teemow/mailfeed/internal/store"
)

type credentialListResponse struct {
	Credentials []store.Credential `json:"credentials"`
}

// handleListCredentials returns every stored credential in its public view.
// Token ciphertext never leaves the store.
func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.credentials.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if creds == nil {
		creds = []store.Credential{}
	}
	s.writeJSON(w, http.StatusOK, credentialListResponse{Credentials: creds})
}

func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := s.credentials.Get(r.Context(), r.PathValue("email"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cred)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")

	existed, err := s.credentials.Delete(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !existed {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "credential not found"})
		return
	}

	s.logger.Info("credential deleted", logging.UserHash(email))
	w.WriteHeader(http.StatusNoContent)
}
