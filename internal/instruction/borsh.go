package instruction

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// Uint128 is an unsigned 128-bit integer, as used for encryption nonces.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

//nolint:gochecknoglobals // Constant bound
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Uint128FromBytes reads 16 little-endian bytes.
func Uint128FromBytes(b [16]byte) Uint128 {
	return Uint128{
		Lo: binary.LittleEndian.Uint64(b[:8]),
		Hi: binary.LittleEndian.Uint64(b[8:]),
	}
}

// ParseUint128 parses a decimal string.
func ParseUint128(s string) (Uint128, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || n.Sign() < 0 || n.Cmp(maxUint128) > 0 {
		return Uint128{}, lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"uint128": s})
	}
	lo := new(big.Int).And(n, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(n, 64)
	return Uint128{Lo: lo.Uint64(), Hi: hi.Uint64()}, nil
}

// Big returns the value as a big.Int.
func (u Uint128) Big() *big.Int {
	n := new(big.Int).SetUint64(u.Hi)
	n.Lsh(n, 64)
	return n.Or(n, new(big.Int).SetUint64(u.Lo))
}

// String formats the value in decimal.
func (u Uint128) String() string {
	return u.Big().String()
}

// MarshalText implements encoding.TextMarshaler.
func (u Uint128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// encoder appends Borsh-encoded values after a discriminator.
type encoder struct {
	buf []byte
}

func newEncoder(name string, size int) *encoder {
	d := Discriminator(name)
	buf := make([]byte, 0, DiscriminatorSize+size)
	return &encoder{buf: append(buf, d[:]...)}
}

func (e *encoder) u16(v uint16) *encoder {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
	return e
}

func (e *encoder) u64(v uint64) *encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	return e
}

func (e *encoder) u128(v Uint128) *encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v.Lo)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v.Hi)
	return e
}

func (e *encoder) fixed32(v [32]byte) *encoder {
	e.buf = append(e.buf, v[:]...)
	return e
}

func (e *encoder) bytes() []byte {
	return e.buf
}

// decoder reads Borsh values back; used to describe instruction data.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.err = fmt.Errorf("%w: instruction data truncated at byte %d", lenderr.ErrInvalidInput, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) u128() Uint128 {
	var v Uint128
	v.Lo = d.u64()
	v.Hi = d.u64()
	return v
}

func (d *decoder) fixed32() [32]byte {
	var v [32]byte
	if b := d.take(32); b != nil {
		copy(v[:], b)
	}
	return v
}
