package instruction

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// EncryptionContext is a fresh X25519 key pair and nonce for one
// confidential instruction. The program encrypts the computation result
// to PublicKey; the caller keeps the private key to read it.
type EncryptionContext struct {
	privateKey [32]byte
	PublicKey  [32]byte
	Nonce      Uint128
}

// NewEncryptionContext draws a key pair and nonce from crypto/rand.
func NewEncryptionContext() (*EncryptionContext, error) {
	return newEncryptionContext(rand.Reader)
}

func newEncryptionContext(r io.Reader) (*EncryptionContext, error) {
	var ec EncryptionContext
	if _, err := io.ReadFull(r, ec.privateKey[:]); err != nil {
		return nil, fmt.Errorf("%w: reading key entropy: %w", lenderr.ErrGeneral, err)
	}
	pub, err := curve25519.X25519(ec.privateKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: deriving public key: %w", lenderr.ErrGeneral, err)
	}
	copy(ec.PublicKey[:], pub)

	var nonce [16]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: reading nonce: %w", lenderr.ErrGeneral, err)
	}
	ec.Nonce = Uint128FromBytes(nonce)
	return &ec, nil
}

// SharedSecret returns the X25519 shared secret with the MXE's public key.
func (ec *EncryptionContext) SharedSecret(mxePublicKey [32]byte) ([]byte, error) {
	secret, err := curve25519.X25519(ec.privateKey[:], mxePublicKey[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lenderr.ErrInvalidPublicKey, err)
	}
	return secret, nil
}

// Computation returns computation inputs carrying this context's public
// key and nonce.
func (ec *EncryptionContext) Computation(offset uint64, accounts ArciumAccounts) Computation {
	return Computation{
		Offset:        offset,
		UserPublicKey: ec.PublicKey,
		Nonce:         ec.Nonce,
		Accounts:      accounts,
	}
}

// Destroy zeroes the private key.
func (ec *EncryptionContext) Destroy() {
	for i := range ec.privateKey {
		ec.privateKey[i] = 0
	}
}

// NewComputationOffset returns a random computation offset.
func NewComputationOffset() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("%w: reading offset entropy: %w", lenderr.ErrGeneral, err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
