package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Credential is a stored OAuth2 credential for one mailbox identity.
// Token fields hold ciphertext only.
type Credential struct {
	ID                    int64      `db:"id" json:"-"`
	Email                 string     `db:"email" json:"email"`
	EncryptedAccessToken  string     `db:"encrypted_access_token" json:"-"`
	EncryptedRefreshToken string     `db:"encrypted_refresh_token" json:"-"`
	TokenExpiry           *time.Time `db:"token_expiry" json:"token_expiry,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// DecryptedTokens carries the plaintext token pair for a mailbox.
// Values must not be persisted or logged.
type DecryptedTokens struct {
	AccessToken  string
	RefreshToken string
}

// Settings holds the IMAP configuration for the watched mailbox.
// Password is write/read internal only; the HTTP layer redacts it.
type Settings struct {
	ID                 int64  `db:"id" json:"-"`
	IMAPServer         string `db:"imap_server" json:"imap_server"`
	IMAPUsername       string `db:"imap_username" json:"imap_username"`
	IMAPPassword       string `db:"imap_password" json:"-"`
	SearchFolder       string `db:"search_folder" json:"search_folder"`
	MoveToFolder       string `db:"move_to_folder" json:"move_to_folder"`
	MarkAsRead         bool   `db:"mark_as_read" json:"mark_as_read"`
	EmailCheckInterval int    `db:"email_check_interval" json:"email_check_interval"`
	AutoAddNewSenders  bool   `db:"auto_add_new_senders" json:"auto_add_new_senders"`
}

// CredentialStore defines the persistence operations for OAuth2 credentials.
type CredentialStore interface {
	// Upsert encrypts both tokens and atomically creates or replaces the
	// credential for email, returning the stored record.
	Upsert(ctx context.Context, email, accessToken, refreshToken string, expiry *time.Time) (*Credential, error)

	// Get returns the credential for email, or ErrNotFound.
	Get(ctx context.Context, email string) (*Credential, error)

	// List returns all stored credentials ordered by email.
	List(ctx context.Context) ([]Credential, error)

	// Delete removes the credential for email. It reports whether a record
	// existed and never errors on a missing record.
	Delete(ctx context.Context, email string) (bool, error)

	// GetDecrypted returns the plaintext token pair for email.
	// Returns ErrNotFound when no record exists and a *secrets.DecryptionError
	// (wrapped) when a record exists but cannot be decrypted. Callers decide
	// whether to collapse the two.
	GetDecrypted(ctx context.Context, email string) (*DecryptedTokens, error)

	// UpdateTokens re-encrypts only the access token after a refresh,
	// leaving the refresh token untouched, and updates the expiry.
	// Returns ErrNotFound when no record exists; it never creates one.
	UpdateTokens(ctx context.Context, email, accessToken string, expiry *time.Time) (*Credential, error)
}

// SettingsStore defines the persistence operations for IMAP settings.
type SettingsStore interface {
	// GetSettings returns the single settings row, or ErrNotFound when the
	// mailbox has not been configured yet.
	GetSettings(ctx context.Context) (*Settings, error)

	// UpdateSettings creates or replaces the settings row. An empty password
	// on update preserves the previously stored one.
	UpdateSettings(ctx context.Context, s Settings) (*Settings, error)
}
