// Package store provides SQLite-backed persistence for mailbox OAuth2
// credentials and IMAP settings.
//
// Tokens are encrypted through the secrets package before they are written
// and only decrypted inside GetDecrypted; no plaintext token ever reaches
// the database or leaves the store except through that method. Writes for a
// single email run inside one transaction (or a single upsert statement) so
// concurrent refreshes cannot interleave a token from one write with an
// expiry from another.
package store
