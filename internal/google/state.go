package google

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// StateTokenLength is the number of random bytes in an anti-CSRF state token.
const StateTokenLength = 32

// DefaultStateTTL bounds how long an issued state stays acceptable.
const DefaultStateTTL = 10 * time.Minute

// generateState generates a cryptographically secure random state token.
func generateState() (string, error) {
	b := make([]byte, StateTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

// StateVerifier is the contract point for verifying the anti-CSRF state
// round-tripped through the authorization callback. It is an explicit,
// pluggable step so the policy is auditable even where it is a no-op.
type StateVerifier interface {
	// Issue records a state produced for an authorization URL.
	Issue(state string)

	// Verify checks a state presented on the callback.
	Verify(state string) error
}

// InsecureStateVerifier accepts every callback state without checking it.
// This matches the historically observed flow; deployments that terminate
// the callback server-side should use MemoryStateVerifier instead.
type InsecureStateVerifier struct{}

// Issue is a no-op.
func (InsecureStateVerifier) Issue(string) {}

// Verify accepts any state.
func (InsecureStateVerifier) Verify(string) error { return nil }

// MemoryStateVerifier tracks issued states in memory and accepts each one
// exactly once within its TTL.
type MemoryStateVerifier struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
}

// NewMemoryStateVerifier creates a one-shot, TTL-bound state verifier.
// A non-positive ttl falls back to DefaultStateTTL.
func NewMemoryStateVerifier(ttl time.Duration) *MemoryStateVerifier {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &MemoryStateVerifier{
		states: make(map[string]time.Time),
		ttl:    ttl,
	}
}

// Issue records a state with its expiry, dropping any states already past
// theirs.
func (v *MemoryStateVerifier) Issue(state string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	for s, expiresAt := range v.states {
		if now.After(expiresAt) {
			delete(v.states, s)
		}
	}

	v.states[state] = now.Add(v.ttl)
}

// Verify consumes a previously issued state. Unknown, reused, and expired
// states are rejected.
func (v *MemoryStateVerifier) Verify(state string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	expiresAt, ok := v.states[state]
	if !ok {
		return fmt.Errorf("unknown or already used state")
	}
	delete(v.states, state)

	if time.Now().After(expiresAt) {
		return fmt.Errorf("state expired")
	}
	return nil
}
