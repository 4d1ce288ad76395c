package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailfeed/internal/logging"
)

// Scopes requested during authorization. The OpenID Connect scopes are
// required for the userinfo identity lookup; the Gmail scopes cover mailbox
// access over IMAP XOAUTH2.
var Scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	gmail.GmailReadonlyScope,
	gmail.GmailModifyScope,
}

// DefaultUserinfoEndpoint is Google's OpenID Connect userinfo endpoint.
const DefaultUserinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// Identity is the authenticated account's identity as reported by the
// provider's userinfo endpoint.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"name"`
}

// TokenSet is the outcome of an authorization-code exchange. A nil Expiry
// means the provider reported a non-expiring or unknown-lifetime token.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
}

// Client performs the OAuth2 flows against Google: building authorization
// URLs, exchanging authorization codes, refreshing access tokens, and
// fetching the authenticated account's identity.
type Client struct {
	httpClient       *http.Client
	userinfoEndpoint string
	logger           *slog.Logger
}

// ClientOptions configures a Client. Zero values select defaults.
type ClientOptions struct {
	// HTTPClient is used for all provider calls. Defaults to a client with
	// a 30 second timeout.
	HTTPClient *http.Client

	// UserinfoEndpoint overrides the identity endpoint, mainly for tests.
	UserinfoEndpoint string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewClient creates an OAuth2 client.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		httpClient:       opts.HTTPClient,
		userinfoEndpoint: opts.UserinfoEndpoint,
		logger:           opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.userinfoEndpoint == "" {
		c.userinfoEndpoint = DefaultUserinfoEndpoint
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// oauthConfig builds the oauth2 configuration from resolved client secrets.
// Endpoint URLs missing from the secrets fall back to Google's.
func oauthConfig(secrets *ClientSecrets, redirectURI string) *oauth2.Config {
	endpoint := googleauth.Endpoint
	if secrets.AuthURI != "" {
		endpoint.AuthURL = secrets.AuthURI
	}
	if secrets.TokenURI != "" {
		endpoint.TokenURL = secrets.TokenURI
	}

	return &oauth2.Config{
		ClientID:     secrets.ClientID,
		ClientSecret: secrets.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
	}
}

// AuthorizationURL builds the provider authorization URL and a fresh
// anti-CSRF state. Offline access is requested so a refresh token is
// issued, and consent is forced so it is issued even for an account that
// authorized before.
func (c *Client) AuthorizationURL(secrets *ClientSecrets, redirectURI string) (string, string, error) {
	state, err := generateState()
	if err != nil {
		return "", "", fmt.Errorf("generating state: %w", err)
	}

	url := oauthConfig(secrets, redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return url, state, nil
}

// ExchangeCode performs the authorization-code grant. The redirect URI must
// exactly match the one used to build the authorization URL; a mismatch, an
// invalid code, an expired code, and a reused code all surface as a
// *TokenExchangeError.
func (c *Client) ExchangeCode(ctx context.Context, secrets *ClientSecrets, redirectURI, code string) (*TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := oauthConfig(secrets, redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, &TokenExchangeError{Err: err}
	}

	c.logger.Debug("exchanged authorization code",
		logging.Operation("oauth.exchange"),
		slog.String("access_token", logging.SanitizeToken(token.AccessToken)),
		slog.String("refresh_token", logging.SanitizeToken(token.RefreshToken)),
	)

	return &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       tokenExpiry(token),
	}, nil
}

// RefreshAccessToken performs the refresh-token grant and returns the new
// access token and expiry. The provider may also rotate the refresh token;
// when it does, the new one is returned so callers can persist it. A
// rejected refresh token is a *TokenRefreshError and is not recovered here:
// the account has to be re-authorized.
func (c *Client) RefreshAccessToken(ctx context.Context, secrets *ClientSecrets, refreshToken string) (*TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	src := oauthConfig(secrets, "").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, &TokenRefreshError{Err: err}
	}

	c.logger.Debug("refreshed access token",
		logging.Operation("oauth.refresh"),
		slog.String("access_token", logging.SanitizeToken(token.AccessToken)),
	)

	rotated := ""
	if token.RefreshToken != refreshToken {
		rotated = token.RefreshToken
	}

	return &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: rotated,
		Expiry:       tokenExpiry(token),
	}, nil
}

// FetchIdentity fetches the authenticated account's identity from the
// provider's userinfo endpoint. Any non-success response, including one
// caused by an access token without identity-read scope, is an
// *IdentityFetchError.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoEndpoint, nil)
	if err != nil {
		return nil, &IdentityFetchError{Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &IdentityFetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &IdentityFetchError{Err: fmt.Errorf("userinfo returned status %d", resp.StatusCode)}
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, &IdentityFetchError{Err: fmt.Errorf("decoding userinfo: %w", err)}
	}
	if identity.Email == "" {
		return nil, &IdentityFetchError{Err: fmt.Errorf("userinfo response carries no email")}
	}

	return &identity, nil
}

// tokenExpiry maps the oauth2 token expiry to the optional form used by the
// credential store. The zero time means the provider reported no lifetime.
func tokenExpiry(token *oauth2.Token) *time.Time {
	if token.Expiry.IsZero() {
		return nil
	}
	expiry := token.Expiry.UTC()
	return &expiry
}
