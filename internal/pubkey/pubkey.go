// Package pubkey provides account identities for the ShadowLend program:
// 32-byte ed25519 public keys in their base58 text form, and
// program-derived addresses.
package pubkey

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// Size is the length of a public key in bytes.
const Size = 32

const (
	// MaxSeeds is the maximum number of seeds for a program address.
	MaxSeeds = 16

	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

// Key is an account identity.
type Key [Size]byte

// Zero is the all-zero key, used as "no account".
//
//nolint:gochecknoglobals // Immutable sentinel value
var Zero Key

// Well-known program identities used by the instruction builders.
//
//nolint:gochecknoglobals // Immutable program addresses
var (
	SystemProgram          = MustParse("11111111111111111111111111111111")
	TokenProgram           = MustParse("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgram = MustParse("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// Parse decodes a base58 public key.
func Parse(s string) (Key, error) {
	var k Key
	if s == "" {
		return k, fmt.Errorf("%w: empty", lenderr.ErrInvalidPublicKey)
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return k, fmt.Errorf("%w: %w", lenderr.ErrInvalidPublicKey, err)
	}
	if len(raw) != Size {
		return k, fmt.Errorf("%w: decoded length %d, want %d", lenderr.ErrInvalidPublicKey, len(raw), Size)
	}

	copy(k[:], raw)
	return k, nil
}

// MustParse is like Parse but panics on error. Use only for constants.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// FromBytes copies a 32-byte slice into a Key.
func FromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != Size {
		return k, fmt.Errorf("%w: length %d, want %d", lenderr.ErrInvalidPublicKey, len(b), Size)
	}
	copy(k[:], b)
	return k, nil
}

// String returns the base58 encoding of the key.
func (k Key) String() string {
	return base58.Encode(k[:])
}

// Short returns an abbreviated form for display, e.g. "Ci3x...PUvE".
func (k Key) Short() string {
	s := k.String()
	if len(s) <= 8 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Bytes returns the raw key bytes.
func (k Key) Bytes() []byte {
	return k[:]
}

// IsZero reports whether the key is the all-zero key.
func (k Key) IsZero() bool {
	return k == Zero
}

// Equal reports whether two keys are identical.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k[:], other[:])
}

// OnCurve reports whether the key is a valid ed25519 point.
// Program-derived addresses are never on the curve.
func (k Key) OnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(k[:])
	return err == nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalJSON encodes the key as a base58 JSON string.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a base58 JSON string.
func (k *Key) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", lenderr.ErrInvalidPublicKey, err)
	}
	return k.UnmarshalText([]byte(s))
}

// CreateProgramAddress derives a program address from seeds without a bump search.
// It fails if the result lies on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID Key) (Key, error) {
	if len(seeds) > MaxSeeds {
		return Zero, fmt.Errorf("%w: %d seeds exceeds max %d", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Zero, fmt.Errorf("%w: seed length %d exceeds max %d", ErrInvalidSeeds, len(seed), MaxSeedLength)
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var k Key
	copy(k[:], h.Sum(nil))
	if k.OnCurve() {
		return Zero, ErrOnCurve
	}
	return k, nil
}

// FindProgramAddress searches bumps from 255 down for the first off-curve address.
func FindProgramAddress(seeds [][]byte, programID Key) (Key, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		k, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return k, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}

	return Zero, 0, ErrNoViableBump
}

// Program address errors.
var (
	ErrInvalidSeeds = &lenderr.LendError{
		Code:     "INVALID_SEEDS",
		Message:  "invalid program address seeds",
		ExitCode: lenderr.ExitInput,
	}

	ErrOnCurve = &lenderr.LendError{
		Code:     "PDA_ON_CURVE",
		Message:  "derived address lies on the ed25519 curve",
		ExitCode: lenderr.ExitGeneral,
	}

	ErrNoViableBump = &lenderr.LendError{
		Code:     "PDA_NO_BUMP",
		Message:  "unable to find a viable program address bump seed",
		ExitCode: lenderr.ExitGeneral,
	}
)
