package server

import (
	"fmt"
	"net/http"

	"github.com/teemow/mailfeed/internal/google"
	"github.com/teemow/mailfeed/internal/logging"
)

// handleAuthorize starts the Google OAuth2 flow: it issues a state token
// and redirects the browser to Google's consent screen.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	secrets, err := google.ParseClientSecrets(s.config.ClientSecretsJSON)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	authURL, state, err := s.oauth.AuthorizationURL(secrets, s.config.RedirectURI)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.states.Issue(state)

	http.Redirect(w, r, authURL, http.StatusFound)
}

type callbackResponse struct {
	Status string `json:"status"`
	Email  string `json:"email"`
}

// handleCallback completes the flow: verify state, exchange the code,
// resolve the account identity, and store the encrypted token pair.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("authorization denied: %s", errParam),
		})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing authorization code"})
		return
	}

	if err := s.states.Verify(r.URL.Query().Get("state")); err != nil {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	secrets, err := google.ParseClientSecrets(s.config.ClientSecretsJSON)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tokens, err := s.oauth.ExchangeCode(ctx, secrets, s.config.RedirectURI, code)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.writeError(w, r, err)
		return
	}

	identity, err := s.oauth.FetchIdentity(ctx, tokens.AccessToken)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.writeError(w, r, err)
		return
	}

	if _, err := s.credentials.Upsert(ctx, identity.Email, tokens.AccessToken, tokens.RefreshToken, tokens.Expiry); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.RecordOAuthAuth(ctx, "success")
	s.logger.Info("google account connected",
		logging.Operation("oauth.callback"),
		logging.UserHash(identity.Email),
	)

	s.writeJSON(w, http.StatusOK, callbackResponse{
		Status: "connected",
		Email:  identity.Email,
	})
}
