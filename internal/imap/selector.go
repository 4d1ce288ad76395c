package imap

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teemow/mailfeed/internal/google"
	"github.com/teemow/mailfeed/internal/instrumentation"
	"github.com/teemow/mailfeed/internal/logging"
	"github.com/teemow/mailfeed/internal/store"
)

// GmailIMAPHost is the IMAP endpoint for which OAuth2 authentication is
// preferred over a stored password.
const GmailIMAPHost = "imap.gmail.com"

// Credentials is the outcome of connection selection: either a
// username/password pair or an XOAUTH2-shaped email/access-token pair,
// handed to the session opener.
type Credentials struct {
	Server   string
	Username string

	// Password branch
	Password string

	// OAuth2 branch
	OAuth2Email       string
	OAuth2AccessToken string
}

// UsesOAuth2 reports whether the bundle authenticates with XOAUTH2.
func (c *Credentials) UsesOAuth2() bool {
	return c.OAuth2Email != "" && c.OAuth2AccessToken != ""
}

// tokenRefresher is the slice of the OAuth2 client the selector needs.
type tokenRefresher interface {
	RefreshAccessToken(ctx context.Context, secrets *google.ClientSecrets, refreshToken string) (*google.TokenSet, error)
}

// Selector decides how a mail session authenticates. For the Gmail IMAP
// host with a stored OAuth2 credential it produces an XOAUTH2 bundle,
// silently refreshing an expired access token first; everything else, and
// every unusable OAuth2 state, falls back to the stored password.
type Selector struct {
	credentials       store.CredentialStore
	oauth             tokenRefresher
	clientSecretsJSON string
	metrics           *instrumentation.Metrics
	logger            *slog.Logger
}

// NewSelector creates a connection selector. clientSecretsJSON may be empty
// when Google OAuth2 is not configured; the selector then refuses only the
// paths that would need a token refresh.
func NewSelector(credentials store.CredentialStore, oauth tokenRefresher, clientSecretsJSON string, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		credentials:       credentials,
		oauth:             oauth,
		clientSecretsJSON: clientSecretsJSON,
		metrics:           &instrumentation.Metrics{},
		logger:            logger,
	}
}

// SetMetrics installs the metrics recorder for token refreshes.
func (s *Selector) SetMetrics(m *instrumentation.Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Select produces the credential bundle for one connection attempt.
//
// Missing or undecryptable OAuth2 state degrades to password authentication
// and must never hard-fail the connection attempt. An expired
// access token with no configured client secrets is the one terminal case,
// a *google.ConfigurationError, because a stale token with no refresh path
// must not proceed. A rejected refresh surfaces as *google.TokenRefreshError.
func (s *Selector) Select(ctx context.Context, server, username, password string) (*Credentials, error) {
	passwordCreds := &Credentials{
		Server:   server,
		Username: username,
		Password: password,
	}

	if strings.ToLower(strings.TrimSpace(server)) != GmailIMAPHost {
		return passwordCreds, nil
	}

	cred, err := s.credentials.Get(ctx, username)
	if err != nil {
		// No stored credential: password branch, no OAuth2 involvement.
		return passwordCreds, nil
	}

	tokens, err := s.credentials.GetDecrypted(ctx, username)
	if err != nil {
		s.logger.Warn("stored OAuth2 credential unusable, falling back to password auth",
			logging.UserHash(username),
			logging.Err(err),
		)
		return passwordCreds, nil
	}

	accessToken := tokens.AccessToken

	if google.IsExpired(cred.TokenExpiry) {
		secrets, err := google.ParseClientSecrets(s.clientSecretsJSON)
		if err != nil {
			// A stale token with no refresh path must not proceed.
			return nil, err
		}

		refreshed, err := s.oauth.RefreshAccessToken(ctx, secrets, tokens.RefreshToken)
		if err != nil {
			s.metrics.RecordOAuthTokenRefresh(ctx, "failure")
			return nil, err
		}
		s.metrics.RecordOAuthTokenRefresh(ctx, "success")

		if _, err := s.credentials.UpdateTokens(ctx, username, refreshed.AccessToken, refreshed.Expiry); err != nil {
			return nil, err
		}

		s.logger.Info("refreshed expired access token",
			logging.Operation("oauth.refresh"),
			logging.UserHash(username),
		)
		accessToken = refreshed.AccessToken
	}

	return &Credentials{
		Server:            server,
		Username:          username,
		OAuth2Email:       username,
		OAuth2AccessToken: accessToken,
	}, nil
}
