package cluster

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/shadowlend/shadowlend/internal/pubkey"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// Commitment levels accepted by the node.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Health returns nil when the node reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.Call(ctx, "getHealth")
	if err != nil {
		return err
	}
	if res.String() != "ok" {
		return fmt.Errorf("%w: node health %q", ErrRPCResponse, res.String())
	}
	return nil
}

// Slot returns the current confirmed slot.
func (c *Client) Slot(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, "getSlot", map[string]string{"commitment": CommitmentConfirmed})
	if err != nil {
		return 0, err
	}
	return res.Uint(), nil
}

// Version returns the node software version.
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.Call(ctx, "getVersion")
	if err != nil {
		return "", err
	}
	v := res.Get("solana-core")
	if !v.Exists() {
		return "", fmt.Errorf("%w: missing solana-core", ErrRPCResponse)
	}
	return v.String(), nil
}

// Balance is an account's lamport balance at a slot.
type Balance struct {
	Account  pubkey.Key `json:"account"`
	Lamports uint64     `json:"lamports"`
	Slot     uint64     `json:"slot"`
}

// Balance returns the lamport balance of key.
func (c *Client) Balance(ctx context.Context, key pubkey.Key) (*Balance, error) {
	res, err := c.Call(ctx, "getBalance", key.String(), map[string]string{"commitment": CommitmentConfirmed})
	if err != nil {
		return nil, err
	}
	value := res.Get("value")
	if !value.Exists() {
		return nil, fmt.Errorf("%w: missing balance value", ErrRPCResponse)
	}
	return &Balance{
		Account:  key,
		Lamports: value.Uint(),
		Slot:     res.Get("context.slot").Uint(),
	}, nil
}

// AccountInfo summarizes an on-chain account.
type AccountInfo struct {
	Account    pubkey.Key `json:"account"`
	Owner      pubkey.Key `json:"owner"`
	Lamports   uint64     `json:"lamports"`
	Executable bool       `json:"executable"`
	Data       []byte     `json:"-"`
	DataLen    int        `json:"data_len"`
}

// Account returns the account at key, or nil when it does not exist.
func (c *Client) Account(ctx context.Context, key pubkey.Key) (*AccountInfo, error) {
	res, err := c.Call(ctx, "getAccountInfo", key.String(), map[string]string{
		"encoding":   "base64",
		"commitment": CommitmentConfirmed,
	})
	if err != nil {
		return nil, err
	}
	value := res.Get("value")
	if !value.Exists() || value.Type == gjson.Null {
		return nil, nil //nolint:nilnil // absent account is not an error
	}

	owner, err := pubkey.Parse(value.Get("owner").String())
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %w", ErrRPCResponse, err)
	}
	data, err := base64.StdEncoding.DecodeString(value.Get("data.0").String())
	if err != nil {
		return nil, fmt.Errorf("%w: data: %w", ErrRPCResponse, err)
	}
	return &AccountInfo{
		Account:    key,
		Owner:      owner,
		Lamports:   value.Get("lamports").Uint(),
		Executable: value.Get("executable").Bool(),
		Data:       data,
		DataLen:    len(data),
	}, nil
}
