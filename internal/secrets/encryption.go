package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// DecryptionError indicates that a stored ciphertext could not be decrypted,
// typically because it was produced under a different key or has been
// truncated or tampered with. Callers should treat the affected credential
// as unusable rather than the process as corrupt.
type DecryptionError struct {
	Err error
}

// Error implements the error interface.
func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// TokenEncryption provides encryption/decryption for tokens at rest.
// Uses AES-256-GCM for authenticated encryption.
//
// Security Properties:
//   - AES-256 provides strong confidentiality
//   - GCM mode provides both encryption and authentication (AEAD)
//   - Random nonce for each encryption (never reused)
//   - Protects against tampering
//
// Key Management:
//   - Key must be 32 bytes (256 bits) for AES-256
//   - Key should come from a secure source (e.g., KMS, vault)
//   - Never hardcode keys in source code
type TokenEncryption struct {
	// key is the AES-256 encryption key (32 bytes)
	key []byte
}

// NewTokenEncryption creates a new token encryption instance.
func NewTokenEncryption(key []byte) (*TokenEncryption, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes (256 bits), got %d bytes", len(key))
	}

	return &TokenEncryption{key: key}, nil
}

// NewTokenEncryptionFromBase64 creates a token encryption instance from a
// base64-encoded key, as loaded from environment variables or config files.
func NewTokenEncryptionFromBase64(encoded string) (*TokenEncryption, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 key: %w", err)
	}
	return NewTokenEncryption(key)
}

// Encrypt encrypts data using AES-256-GCM.
// Returns base64-encoded: nonce || ciphertext || tag.
func (e *TokenEncryption) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// Nonce must be unique for each encryption with the same key
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// GCM automatically appends the authentication tag to the ciphertext
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts data encrypted with Encrypt.
// Expects base64-encoded: nonce || ciphertext || tag.
// Returns a *DecryptionError when the ciphertext is malformed, truncated,
// tampered with, or was produced under a different key.
func (e *TokenEncryption) Decrypt(encoded string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &DecryptionError{Err: fmt.Errorf("invalid base64: %w", err)}
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", &DecryptionError{Err: fmt.Errorf("ciphertext too short")}
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", &DecryptionError{Err: err}
	}

	return string(plaintext), nil
}

// GenerateEncryptionKey generates a secure 32-byte encryption key.
// This should be called once and the key stored securely (e.g., in a vault).
// DO NOT call this on every server start - the key must be persistent, or
// every stored ciphertext becomes unreadable after a restart.
func GenerateEncryptionKey() ([]byte, error) {
	key := make([]byte, 32) // 256 bits for AES-256
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return key, nil
}

// EncryptionKeyToBase64 converts a key to base64 for storage.
func EncryptionKeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}
