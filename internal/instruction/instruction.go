// Package instruction builds ShadowLend program instructions.
//
// Instruction data follows the Anchor layout: an 8-byte discriminator,
// sha256("global:<name>")[:8], followed by the arguments in Borsh
// (little-endian) encoding. Builders validate their parameters and derive
// every program address they can; Arcium computation accounts are supplied
// by the caller.
package instruction

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"

	"github.com/shadowlend/shadowlend/internal/pubkey"
)

// Instruction names as declared by the program.
const (
	NameInitializePool = "initialize_pool"
	NameUpdatePool     = "update_pool"
	NameClosePool      = "close_pool"
	NameDeposit        = "deposit"
	NameWithdraw       = "withdraw"
	NameBorrow         = "borrow"
	NameRepay          = "repay"
	NameLiquidate      = "liquidate"
	NameSpend          = "spend"
)

// DiscriminatorSize is the length of an Anchor instruction discriminator.
const DiscriminatorSize = 8

// AccountMeta is one account reference of an instruction.
type AccountMeta struct {
	Key        pubkey.Key `json:"pubkey"`
	IsSigner   bool       `json:"is_signer"`
	IsWritable bool       `json:"is_writable"`
}

// Instruction is a program invocation ready to be placed in a transaction.
type Instruction struct {
	Name      string        `json:"name"`
	ProgramID pubkey.Key    `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// Encode returns the instruction data as base64.
func (ix *Instruction) Encode() string {
	return base64.StdEncoding.EncodeToString(ix.Data)
}

// Discriminator returns the Anchor discriminator for an instruction name.
func Discriminator(name string) [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	sum := sha256.Sum256([]byte("global:" + name))
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// Names lists every instruction this package builds.
func Names() []string {
	return []string{
		NameInitializePool, NameUpdatePool, NameClosePool,
		NameDeposit, NameWithdraw, NameBorrow, NameRepay, NameLiquidate, NameSpend,
	}
}

// Identify returns the instruction name whose discriminator prefixes data.
func Identify(data []byte) (string, bool) {
	if len(data) < DiscriminatorSize {
		return "", false
	}
	for _, name := range Names() {
		d := Discriminator(name)
		if bytes.Equal(data[:DiscriminatorSize], d[:]) {
			return name, true
		}
	}
	return "", false
}

func signer(k pubkey.Key) AccountMeta   { return AccountMeta{Key: k, IsSigner: true, IsWritable: true} }
func writable(k pubkey.Key) AccountMeta { return AccountMeta{Key: k, IsWritable: true} }
func readonly(k pubkey.Key) AccountMeta { return AccountMeta{Key: k} }
