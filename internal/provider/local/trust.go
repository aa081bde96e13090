package local

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shadowlend/shadowlend/internal/fileutil"
	"github.com/shadowlend/shadowlend/internal/pubkey"
)

// TrustFile is the trusted-origin list inside the wallet directory.
const TrustFile = "trusted.yaml"

// TrustEntry records that an origin was approved for an account.
type TrustEntry struct {
	Origin     string     `yaml:"origin" json:"origin"`
	Account    pubkey.Key `yaml:"account" json:"account"`
	ApprovedAt time.Time  `yaml:"approved_at" json:"approved_at"`
	AuthToken  string     `yaml:"auth_token,omitempty" json:"-"`
}

type trustDocument struct {
	Version int          `yaml:"version"`
	Entries []TrustEntry `yaml:"entries"`
}

// TrustList persists which origins may connect without prompting.
type TrustList struct {
	mu   sync.Mutex
	path string
}

// NewTrustList returns a trust list stored at path.
func NewTrustList(path string) *TrustList {
	return &TrustList{path: path}
}

// Path returns the backing file path.
func (t *TrustList) Path() string {
	return t.path
}

// List returns all entries sorted by origin.
func (t *TrustList) List() ([]TrustEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, err := t.read()
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Trusted reports whether origin was approved for account.
func (t *TrustList) Trusted(origin string, account pubkey.Key) (bool, error) {
	entry, err := t.lookup(origin)
	if err != nil || entry == nil {
		return false, err
	}
	return entry.Account == account, nil
}

// ByToken returns the entry holding authToken.
func (t *TrustList) ByToken(authToken string) (*TrustEntry, error) {
	if authToken == "" {
		return nil, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, err := t.read()
	if err != nil {
		return nil, err
	}
	for i := range doc.Entries {
		if doc.Entries[i].AuthToken == authToken {
			e := doc.Entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

// Add approves origin for account, replacing any previous entry for origin.
func (t *TrustList) Add(origin string, account pubkey.Key, now time.Time) error {
	return t.update(func(doc *trustDocument) bool {
		for i := range doc.Entries {
			if doc.Entries[i].Origin == origin {
				doc.Entries[i] = TrustEntry{Origin: origin, Account: account, ApprovedAt: now}
				return true
			}
		}
		doc.Entries = append(doc.Entries, TrustEntry{Origin: origin, Account: account, ApprovedAt: now})
		return true
	})
}

// SetToken attaches a native wallet auth token to origin's entry.
func (t *TrustList) SetToken(origin, authToken string) error {
	return t.update(func(doc *trustDocument) bool {
		for i := range doc.Entries {
			if doc.Entries[i].Origin == origin {
				doc.Entries[i].AuthToken = authToken
				return true
			}
		}
		return false
	})
}

// RevokeToken clears authToken wherever it is stored.
func (t *TrustList) RevokeToken(authToken string) error {
	if authToken == "" {
		return nil
	}
	return t.update(func(doc *trustDocument) bool {
		changed := false
		for i := range doc.Entries {
			if doc.Entries[i].AuthToken == authToken {
				doc.Entries[i].AuthToken = ""
				changed = true
			}
		}
		return changed
	})
}

// Remove deletes origin's entry and reports whether one existed.
func (t *TrustList) Remove(origin string) (bool, error) {
	removed := false
	err := t.update(func(doc *trustDocument) bool {
		kept := doc.Entries[:0]
		for _, e := range doc.Entries {
			if e.Origin == origin {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		doc.Entries = kept
		return removed
	})
	return removed, err
}

func (t *TrustList) lookup(origin string) (*TrustEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, err := t.read()
	if err != nil {
		return nil, err
	}
	for i := range doc.Entries {
		if doc.Entries[i].Origin == origin {
			e := doc.Entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (t *TrustList) update(fn func(doc *trustDocument) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.read()
	if err != nil {
		return err
	}
	if !fn(doc) {
		return nil
	}

	sort.Slice(doc.Entries, func(i, j int) bool { return doc.Entries[i].Origin < doc.Entries[j].Origin })
	doc.Version = 1

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding trust list: %w", err)
	}
	return fileutil.WriteAtomic(t.path, data, 0o600)
}

func (t *TrustList) read() (*trustDocument, error) {
	data, found, err := fileutil.ReadOptional(t.path)
	if err != nil {
		return nil, err
	}
	doc := &trustDocument{Version: 1}
	if !found {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing trust list: %w", err)
	}
	return doc, nil
}
