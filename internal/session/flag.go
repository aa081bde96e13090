package session

import (
	"sync"
	"sync/atomic"

	"github.com/shadowlend/shadowlend/internal/fileutil"
)

// DisconnectFlag records that the user disconnected on purpose. While it is
// set, trust-scoped reconnects are suppressed. It is the only state shared
// between session managers.
type DisconnectFlag interface {
	Get() bool
	Set(v bool) error
}

// MemoryFlag is an in-memory DisconnectFlag.
type MemoryFlag struct {
	v atomic.Bool
}

// Get implements DisconnectFlag.
func (f *MemoryFlag) Get() bool { return f.v.Load() }

// Set implements DisconnectFlag.
func (f *MemoryFlag) Set(v bool) error {
	f.v.Store(v)
	return nil
}

var processFlag MemoryFlag //nolint:gochecknoglobals // The one process-wide cell

// ProcessFlag returns the process-wide flag. Managers created without an
// explicit flag share it, so remounting never resurrects auto-reconnect.
func ProcessFlag() *MemoryFlag {
	return &processFlag
}

// FileFlag persists the flag as the presence of a file, so the intent
// survives between CLI invocations.
type FileFlag struct {
	mu   sync.Mutex
	path string
}

// NewFileFlag returns a flag stored at path.
func NewFileFlag(path string) *FileFlag {
	return &FileFlag{path: path}
}

// Get implements DisconnectFlag. An unreadable flag counts as set.
func (f *FileFlag) Get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, found, err := fileutil.ReadOptional(f.path)
	return found || err != nil
}

// Set implements DisconnectFlag.
func (f *FileFlag) Set(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v {
		return fileutil.WriteAtomic(f.path, []byte("manual\n"), 0o600)
	}
	return fileutil.RemoveIfExists(f.path)
}

// TokenStore caches the native wallet auth token between connects.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}

// MemoryTokens is an in-memory TokenStore.
type MemoryTokens struct {
	mu    sync.Mutex
	token string
}

// Load implements TokenStore.
func (m *MemoryTokens) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save implements TokenStore.
func (m *MemoryTokens) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// FileTokens persists the auth token at a path. Saving "" removes it.
type FileTokens struct {
	mu   sync.Mutex
	path string
}

// NewFileTokens returns a token store at path.
func NewFileTokens(path string) *FileTokens {
	return &FileTokens{path: path}
}

// Load implements TokenStore.
func (f *FileTokens) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _, err := fileutil.ReadOptional(f.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Save implements TokenStore.
func (f *FileTokens) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return fileutil.RemoveIfExists(f.path)
	}
	return fileutil.WriteAtomic(f.path, []byte(token), 0o600)
}
