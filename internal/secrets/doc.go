// Package secrets provides symmetric encryption for credentials at rest.
//
// OAuth2 access and refresh tokens are encrypted with AES-256-GCM under a
// single process-wide key before they ever reach the database. Decryption
// failures are reported as a distinguishable *DecryptionError so that
// callers can treat an unreadable credential as missing instead of
// treating the process as corrupt.
package secrets
