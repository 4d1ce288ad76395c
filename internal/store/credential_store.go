package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Upsert encrypts both tokens and atomically creates or replaces the
// credential for email. A single ON CONFLICT statement keeps the write
// atomic with respect to concurrent upserts for the same email.
func (s *SQLiteStore) Upsert(ctx context.Context, email, accessToken, refreshToken string, expiry *time.Time) (*Credential, error) {
	encryptedAccess, err := s.enc.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}
	encryptedRefresh, err := s.enc.Encrypt(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting refresh token: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO gmail_oauth2_credentials
			(email, encrypted_access_token, encrypted_refresh_token, token_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			encrypted_access_token = excluded.encrypted_access_token,
			encrypted_refresh_token = excluded.encrypted_refresh_token,
			token_expiry = excluded.token_expiry,
			updated_at = excluded.updated_at`,
		email, encryptedAccess, encryptedRefresh, expiry, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting credential: %w", err)
	}

	return s.Get(ctx, email)
}

// Get returns the credential for email, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, email string) (*Credential, error) {
	var cred Credential
	err := s.db.GetContext(ctx, &cred,
		"SELECT * FROM gmail_oauth2_credentials WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential: %w", err)
	}
	return &cred, nil
}

// List returns all stored credentials ordered by email for determinism.
func (s *SQLiteStore) List(ctx context.Context) ([]Credential, error) {
	var creds []Credential
	err := s.db.SelectContext(ctx, &creds,
		"SELECT * FROM gmail_oauth2_credentials ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	return creds, nil
}

// Delete removes the credential for email. It reports whether a record
// existed; a missing record is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, email string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM gmail_oauth2_credentials WHERE email = ?", email)
	if err != nil {
		return false, fmt.Errorf("deleting credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting credential: %w", err)
	}
	return affected > 0, nil
}

// GetDecrypted returns the plaintext token pair for email.
// Not-found and undecryptable are distinct outcomes: the former is
// ErrNotFound, the latter wraps *secrets.DecryptionError. Policy about
// collapsing them belongs to the caller.
func (s *SQLiteStore) GetDecrypted(ctx context.Context, email string) (*DecryptedTokens, error) {
	cred, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.enc.Decrypt(cred.EncryptedAccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypting access token for %s: %w", email, err)
	}
	refreshToken, err := s.enc.Decrypt(cred.EncryptedRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("decrypting refresh token for %s: %w", email, err)
	}

	return &DecryptedTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// UpdateTokens re-encrypts only the access token after a refresh, leaving
// the refresh token untouched, and updates expiry and updated_at.
// Returns ErrNotFound when no record exists; a refresh must never create one.
func (s *SQLiteStore) UpdateTokens(ctx context.Context, email, accessToken string, expiry *time.Time) (*Credential, error) {
	encryptedAccess, err := s.enc.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE gmail_oauth2_credentials
		SET encrypted_access_token = ?, token_expiry = ?, updated_at = ?
		WHERE email = ?`,
		encryptedAccess, expiry, time.Now().UTC(), email,
	)
	if err != nil {
		return nil, fmt.Errorf("updating tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating tokens: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, email)
}
