package config

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/teemow/mailfeed/internal/secrets"
)

// Default values for serve-mode configuration.
const (
	DefaultListenAddr   = ":8000"
	DefaultMetricsAddr  = ":9090"
	DefaultDatabasePath = "mailfeed.db"
)

// Config holds the explicit runtime configuration for the service.
// It is constructed once at startup and passed to component constructors;
// there is no package-level settings singleton.
type Config struct {
	// ListenAddr is the address the HTTP API binds to.
	ListenAddr string

	// DatabasePath is the path to the SQLite database file.
	DatabasePath string

	// EncryptionKey is the base64-encoded 32-byte AES key used to encrypt
	// tokens at rest. When empty, a fresh key is generated at startup.
	// A generated key is development-only: a restart invalidates every
	// stored ciphertext.
	EncryptionKey string

	// GoogleClientSecretsJSON is the raw JSON of the Google OAuth2 client
	// secrets, either flat or wrapped under "web"/"installed".
	GoogleClientSecretsJSON string

	// MetricsEnabled determines whether the dedicated metrics server runs.
	MetricsEnabled bool

	// MetricsAddr is the address the metrics server binds to.
	MetricsAddr string

	// Debug enables debug-level logging.
	Debug bool
}

// ResolveEncryptionKey returns the token encryption facade for this
// configuration. When no key is configured a fresh one is generated and a
// development-only warning is logged, since every stored ciphertext becomes
// unreadable after the process restarts.
func (c *Config) ResolveEncryptionKey(logger *slog.Logger) (*secrets.TokenEncryption, error) {
	if c.EncryptionKey != "" {
		enc, err := secrets.NewTokenEncryptionFromBase64(c.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		return enc, nil
	}

	key, err := secrets.GenerateEncryptionKey()
	if err != nil {
		return nil, err
	}

	logger.Warn("no encryption key configured, generated a volatile key; " +
		"stored credentials will be unreadable after restart (development only, " +
		"set MAILFEED_ENCRYPTION_KEY in production)")

	return secrets.NewTokenEncryption(key)
}

// Validate checks the configuration for obvious mistakes before startup.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
		if err != nil {
			return fmt.Errorf("encryption key is not valid base64: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key))
		}
	}
	return nil
}
