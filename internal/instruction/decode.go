package instruction

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// Decoded is instruction data broken into its named arguments.
type Decoded struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// DecodeBase64 decodes base64 instruction data, as printed by Encode.
func DecodeBase64(s string) (*Decoded, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lenderr.ErrInvalidInput, err)
	}
	return Decode(data)
}

// Decode identifies the instruction and reads its arguments.
func Decode(data []byte) (*Decoded, error) {
	name, ok := Identify(data)
	if !ok {
		return nil, lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"reason": "unknown discriminator"})
	}

	d := &decoder{buf: data, off: DiscriminatorSize}
	args := make(map[string]string)
	u16 := func(k string) { args[k] = strconv.FormatUint(uint64(d.u16()), 10) }
	u64 := func(k string) { args[k] = strconv.FormatUint(d.u64(), 10) }

	switch name {
	case NameInitializePool:
		u16("ltv_bps")
		u16("liquidation_threshold_bps")
		u16("liquidation_bonus_bps")
		u64("fixed_borrow_rate_bps")
	case NameUpdatePool:
		u16("ltv_bps")
		u16("liquidation_threshold_bps")
	case NameClosePool:
	case NameBorrow:
		u64("computation_offset")
		ct := d.fixed32()
		args["ciphertext"] = hex.EncodeToString(ct[:])
		pk := d.fixed32()
		args["user_pubkey"] = hex.EncodeToString(pk[:])
		args["user_nonce"] = d.u128().String()
	default:
		u64("computation_offset")
		u64("amount")
		pk := d.fixed32()
		args["user_pubkey"] = hex.EncodeToString(pk[:])
		args["user_nonce"] = d.u128().String()
	}

	if d.err != nil {
		return nil, d.err
	}
	if d.off != len(data) {
		return nil, lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{
			"reason": fmt.Sprintf("%d trailing bytes", len(data)-d.off),
		})
	}
	return &Decoded{Name: name, Args: args}, nil
}
