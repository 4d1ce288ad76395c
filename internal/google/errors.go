package google

import "fmt"

// ConfigurationError indicates missing or malformed OAuth2 client secrets.
// It is fatal to the current operation and requires operator action; it is
// never retried and never degraded around.
type ConfigurationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("oauth2 configuration error: %s", e.Reason)
}

// TokenExchangeError indicates the provider rejected an authorization-code
// exchange (invalid, expired, or reused code; redirect URI mismatch).
type TokenExchangeError struct {
	Err error
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *TokenExchangeError) Unwrap() error { return e.Err }

// TokenRefreshError indicates the provider rejected a refresh-token grant.
// A revoked or expired refresh token is not auto-recovered; the caller must
// require re-authorization.
type TokenRefreshError struct {
	Err error
}

// Error implements the error interface.
func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *TokenRefreshError) Unwrap() error { return e.Err }

// IdentityFetchError indicates the provider's identity endpoint returned a
// non-success response, including an access token without identity scope.
type IdentityFetchError struct {
	Err error
}

// Error implements the error interface.
func (e *IdentityFetchError) Error() string {
	return fmt.Sprintf("identity fetch failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *IdentityFetchError) Unwrap() error { return e.Err }
