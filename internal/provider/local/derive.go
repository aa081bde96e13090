package local

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip39"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// DefaultPath is the Solana account path used by browser and mobile wallets.
const DefaultPath = "m/44'/501'/0'/0'"

const hardenedOffset uint32 = 0x80000000

// slip10Curve is the HMAC key for the ed25519 master node.
var slip10Curve = []byte("ed25519 seed") //nolint:gochecknoglobals // Constant HMAC key

// GenerateMnemonic creates a new BIP39 mnemonic with the given entropy size
// (128 bits for 12 words, 256 bits for 24 words).
func GenerateMnemonic(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"entropy_bits": strconv.Itoa(bits)})
	}
	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic lowercases and collapses whitespace.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// DeriveKey derives the ed25519 key at path from a mnemonic.
// The caller must zero the returned key when done.
func DeriveKey(mnemonic, passphrase, path string) (ed25519.PrivateKey, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, lenderr.ErrInvalidMnemonic
	}

	indexes, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(mnemonic, passphrase)
	defer zero(seed)

	return deriveFromSeed(seed, indexes), nil
}

// AccountPath returns the derivation path of the given account index.
func AccountPath(account uint32) string {
	return fmt.Sprintf("m/44'/501'/%d'/0'", account)
}

func deriveFromSeed(seed []byte, indexes []uint32) ed25519.PrivateKey {
	key, chain := slip10Master(seed)
	for _, idx := range indexes {
		key, chain = slip10Child(key, chain, idx)
	}
	defer zero(chain)
	defer zero(key)

	return ed25519.NewKeyFromSeed(key)
}

// parsePath parses an all-hardened derivation path such as m/44'/501'/0'/0'.
func parsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"path": path})
	}

	indexes := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		// ed25519 only supports hardened derivation.
		if !strings.HasSuffix(p, "'") {
			return nil, lenderr.WithDetails(lenderr.ErrInvalidInput,
				map[string]string{"path": path, "reason": "all indexes must be hardened"})
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(p, "'"), 10, 31)
		if err != nil {
			return nil, lenderr.WithDetails(lenderr.ErrInvalidInput,
				map[string]string{"path": path, "index": p})
		}
		indexes = append(indexes, uint32(n)+hardenedOffset)
	}
	return indexes, nil
}

func slip10Master(seed []byte) (key, chain []byte) {
	mac := hmac.New(sha512.New, slip10Curve)
	_, _ = mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func slip10Child(key, chain []byte, index uint32) (childKey, childChain []byte) {
	data := make([]byte, 0, 1+len(key)+4)
	data = append(data, 0x00)
	data = append(data, key...)
	data = binary.BigEndian.AppendUint32(data, index)

	mac := hmac.New(sha512.New, chain)
	_, _ = mac.Write(data)
	sum := mac.Sum(nil)

	zero(data)
	zero(key)
	zero(chain)
	return sum[:32], sum[32:]
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
