package local

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/shadowlend/shadowlend/internal/fileutil"
	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// Files inside the wallet directory.
const (
	MetadataFile = "wallet.yaml"
	SecretFile   = "wallet.age"
)

// KeyringService is the OS keychain service name for stored mnemonics.
const KeyringService = "shadowlend"

// Storage backends for the mnemonic.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// scryptWorkFactor overrides age's scrypt cost when positive.
var scryptWorkFactor = 0 //nolint:gochecknoglobals // Lowered in tests

// ErrPassphraseRequired indicates the file backend needs a passphrase.
var ErrPassphraseRequired = errors.New("passphrase required for file storage")

// Keyring stores secrets in the OS keychain.
type Keyring interface {
	Set(service, user, secret string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

// OSKeyring implements Keyring with the platform keychain.
type OSKeyring struct{}

// Set implements Keyring.
func (OSKeyring) Set(service, user, secret string) error { return keyring.Set(service, user, secret) }

// Get implements Keyring.
func (OSKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }

// Delete implements Keyring.
func (OSKeyring) Delete(service, user string) error { return keyring.Delete(service, user) }

// ProbeKeyring reports whether kr can store and return a value.
func ProbeKeyring(kr Keyring) bool {
	if kr == nil {
		return false
	}
	const (
		probeService = KeyringService + "-probe"
		probeUser    = "probe"
		probeValue   = "ok"
	)
	if err := kr.Set(probeService, probeUser, probeValue); err != nil {
		return false
	}
	defer func() { _ = kr.Delete(probeService, probeUser) }()

	v, err := kr.Get(probeService, probeUser)
	return err == nil && v == probeValue
}

// Metadata is the public part of a stored wallet.
type Metadata struct {
	PublicKey pubkey.Key `yaml:"public_key" json:"public_key"`
	Path      string     `yaml:"path" json:"path"`
	Backend   string     `yaml:"backend" json:"backend"`
	CreatedAt time.Time  `yaml:"created_at" json:"created_at"`
}

// Keystore keeps one wallet: public metadata in YAML and the mnemonic in
// either the OS keyring or an age-encrypted file.
type Keystore struct {
	dir     string
	keyring Keyring
}

// NewKeystore returns a keystore in dir. A nil keyring forces file storage.
func NewKeystore(dir string, kr Keyring) *Keystore {
	return &Keystore{dir: dir, keyring: kr}
}

// Dir returns the wallet directory.
func (s *Keystore) Dir() string {
	return s.dir
}

// Exists reports whether a wallet has been created.
func (s *Keystore) Exists() bool {
	_, err := os.Stat(filepath.Join(s.dir, MetadataFile))
	return err == nil
}

// Create stores a new wallet derived from mnemonic at path.
// passphrase encrypts the file backend and is ignored by the keyring backend.
func (s *Keystore) Create(mnemonic, passphrase, path string, now time.Time) (Metadata, error) {
	if s.Exists() {
		return Metadata{}, lenderr.WithDetails(lenderr.ErrWalletExists, map[string]string{"dir": s.dir})
	}

	mnemonic = NormalizeMnemonic(mnemonic)
	key, err := DeriveKey(mnemonic, "", path)
	if err != nil {
		return Metadata{}, err
	}
	secret := newSecretKey(key)
	pub := secret.PublicKey()
	secret.Destroy()

	meta := Metadata{PublicKey: pub, Path: path, CreatedAt: now.UTC()}

	if ProbeKeyring(s.keyring) {
		if err := s.keyring.Set(KeyringService, keyringUser(pub), mnemonic); err != nil {
			return Metadata{}, fmt.Errorf("storing mnemonic in keyring: %w", err)
		}
		meta.Backend = BackendKeyring
	} else {
		if passphrase == "" {
			return Metadata{}, lenderr.WithSuggestion(
				lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"reason": ErrPassphraseRequired.Error()}),
				"set SHADOWLEND_PASSPHRASE or enter a passphrase when prompted",
			)
		}
		ciphertext, err := encrypt([]byte(mnemonic), passphrase)
		if err != nil {
			return Metadata{}, err
		}
		if err := fileutil.WriteAtomic(filepath.Join(s.dir, SecretFile), ciphertext, 0o600); err != nil {
			return Metadata{}, err
		}
		meta.Backend = BackendFile
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return Metadata{}, fmt.Errorf("encoding wallet metadata: %w", err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(s.dir, MetadataFile), data, 0o600); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Metadata loads the public wallet record.
func (s *Keystore) Metadata() (Metadata, error) {
	data, found, err := fileutil.ReadOptional(filepath.Join(s.dir, MetadataFile))
	if err != nil {
		return Metadata{}, err
	}
	if !found {
		return Metadata{}, lenderr.ErrWalletNotFound
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", lenderr.ErrConfigInvalid, err)
	}
	return meta, nil
}

// Unlock loads the mnemonic and derives the signing key.
func (s *Keystore) Unlock(passphrase string) (*SecretKey, error) {
	meta, err := s.Metadata()
	if err != nil {
		return nil, err
	}

	var mnemonic []byte
	switch meta.Backend {
	case BackendKeyring:
		if s.keyring == nil {
			return nil, lenderr.WithDetails(lenderr.ErrWalletNotFound, map[string]string{"backend": BackendKeyring})
		}
		m, err := s.keyring.Get(KeyringService, keyringUser(meta.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", lenderr.ErrWalletNotFound, err)
		}
		mnemonic = []byte(m)
	default:
		ciphertext, found, err := fileutil.ReadOptional(filepath.Join(s.dir, SecretFile))
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, lenderr.WithDetails(lenderr.ErrWalletNotFound, map[string]string{"file": SecretFile})
		}
		mnemonic, err = decrypt(ciphertext, passphrase)
		if err != nil {
			return nil, err
		}
	}
	defer zero(mnemonic)

	key, err := DeriveKey(string(mnemonic), "", meta.Path)
	if err != nil {
		return nil, err
	}
	secret := newSecretKey(key)
	if secret.PublicKey() != meta.PublicKey {
		secret.Destroy()
		return nil, lenderr.WithDetails(lenderr.ErrDecryptionFailed, map[string]string{"reason": "derived key does not match wallet"})
	}
	return secret, nil
}

// Delete removes the wallet and its stored secret.
func (s *Keystore) Delete() error {
	meta, err := s.Metadata()
	if err != nil {
		return err
	}
	if meta.Backend == BackendKeyring && s.keyring != nil {
		if err := s.keyring.Delete(KeyringService, keyringUser(meta.PublicKey)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("removing mnemonic from keyring: %w", err)
		}
	}
	if err := fileutil.RemoveIfExists(filepath.Join(s.dir, SecretFile)); err != nil {
		return err
	}
	return fileutil.RemoveIfExists(filepath.Join(s.dir, MetadataFile))
}

func keyringUser(k pubkey.Key) string {
	return "wallet:" + k.String()
}

func encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if scryptWorkFactor > 0 {
		recipient.SetWorkFactor(scryptWorkFactor)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lenderr.ErrDecryptionFailed, err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lenderr.ErrDecryptionFailed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lenderr.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
