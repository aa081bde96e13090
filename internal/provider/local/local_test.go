package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/shadowlend/shadowlend/internal/pubkey"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestMain(m *testing.M) {
	// Keep scrypt fast in tests.
	scryptWorkFactor = 10
	os.Exit(m.Run())
}

// memKeyring is an in-memory Keyring.
type memKeyring struct {
	mu      sync.Mutex
	secrets map[string]string
	broken  bool
}

func newMemKeyring() *memKeyring {
	return &memKeyring{secrets: make(map[string]string)}
}

func (k *memKeyring) Set(service, user, secret string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.broken {
		return errors.New("keyring unavailable")
	}
	k.secrets[service+"/"+user] = secret
	return nil
}

func (k *memKeyring) Get(service, user string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.secrets[service+"/"+user]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (k *memKeyring) Delete(service, user string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.secrets[service+"/"+user]; !ok {
		return keyring.ErrNotFound
	}
	delete(k.secrets, service+"/"+user)
	return nil
}

func (k *memKeyring) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.secrets)
}

// testWallet builds a wallet with a keyring-backed key in a temp dir.
func testWallet(t *testing.T, approve Approver) (*Wallet, *Keystore, *TrustList) {
	t.Helper()
	dir := t.TempDir()
	store := NewKeystore(dir, newMemKeyring())
	if _, err := store.Create(testMnemonic, "", DefaultPath, fixedNow()); err != nil {
		t.Fatalf("creating wallet: %v", err)
	}
	trust := NewTrustList(filepath.Join(dir, TrustFile))
	return NewWallet(store, trust, "shadowlend-cli", approve), store, trust
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func approveAll(context.Context, string, pubkey.Key) (bool, error) { return true, nil }

func approveNone(context.Context, string, pubkey.Key) (bool, error) { return false, nil }
