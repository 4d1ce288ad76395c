package imap

import "fmt"

// AuthenticationError indicates the IMAP server rejected the credentials,
// via LOGIN or XOAUTH2. It is the caller's problem (wrong password, revoked
// token), not an operational fault.
type AuthenticationError struct {
	// User is the anonymized account identity.
	User string
	Err  error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("imap authentication failed for %s: %v", e.User, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error { return e.Err }
