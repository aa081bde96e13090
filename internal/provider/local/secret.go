package local

import (
	"crypto/ed25519"
	"runtime"
	"sync"

	"github.com/shadowlend/shadowlend/internal/pubkey"
)

// SecretKey holds an unlocked signing key in locked memory when the OS allows it.
type SecretKey struct {
	mu     sync.Mutex
	key    ed25519.PrivateKey
	locked bool
}

func newSecretKey(key ed25519.PrivateKey) *SecretKey {
	buf := make([]byte, len(key))
	copy(buf, key)
	zero(key)

	s := &SecretKey{key: buf, locked: mlock(buf)}
	runtime.SetFinalizer(s, func(s *SecretKey) { s.Destroy() })
	return s
}

// PublicKey returns the account identity of the key.
func (s *SecretKey) PublicKey() pubkey.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return pubkey.Zero
	}
	k, _ := pubkey.FromBytes(s.key.Public().(ed25519.PublicKey))
	return k
}

// Sign signs message. It returns nil once the key is destroyed.
func (s *SecretKey) Sign(message []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil
	}
	return ed25519.Sign(s.key, message)
}

// IsLocked reports whether the key memory is mlocked.
func (s *SecretKey) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Destroy zeroes and unlocks the key. Safe to call more than once.
func (s *SecretKey) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return
	}
	zero(s.key)
	if s.locked {
		munlock(s.key)
		s.locked = false
	}
	s.key = nil
}
