package instruction

import (
	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// ArciumAccounts are the MPC network accounts a computation is queued
// against. They depend on the cluster the program's MXE is bound to, so
// the caller resolves them.
type ArciumAccounts struct {
	MXE           pubkey.Key `json:"mxe" yaml:"mxe"`
	Mempool       pubkey.Key `json:"mempool" yaml:"mempool"`
	ExecutingPool pubkey.Key `json:"executing_pool" yaml:"executing_pool"`
	Computation   pubkey.Key `json:"computation" yaml:"computation"`
	CompDef       pubkey.Key `json:"comp_def" yaml:"comp_def"`
	Cluster       pubkey.Key `json:"cluster" yaml:"cluster"`
	FeePool       pubkey.Key `json:"fee_pool" yaml:"fee_pool"`
	Clock         pubkey.Key `json:"clock" yaml:"clock"`
	Program       pubkey.Key `json:"program" yaml:"program"`
}

func (a ArciumAccounts) validate() error {
	return requireAccounts(map[string]pubkey.Key{
		"arcium.mxe":            a.MXE,
		"arcium.mempool":        a.Mempool,
		"arcium.executing_pool": a.ExecutingPool,
		"arcium.computation":    a.Computation,
		"arcium.comp_def":       a.CompDef,
		"arcium.cluster":        a.Cluster,
		"arcium.fee_pool":       a.FeePool,
		"arcium.clock":          a.Clock,
		"arcium.program":        a.Program,
	})
}

// queue returns the computation accounts in program order, starting with
// the program's signer account.
func (a ArciumAccounts) queue(signerPDA pubkey.Key) []AccountMeta {
	return []AccountMeta{
		writable(signerPDA),
		readonly(a.MXE),
		writable(a.Mempool),
		writable(a.ExecutingPool),
		writable(a.Computation),
		readonly(a.CompDef),
		writable(a.Cluster),
		writable(a.FeePool),
		writable(a.Clock),
	}
}

// Computation carries what every confidential instruction sends besides
// its amount: a unique offset for the Arcium computation and the user's
// encryption inputs for the result.
type Computation struct {
	Offset        uint64
	UserPublicKey [32]byte
	Nonce         Uint128
	Accounts      ArciumAccounts
}

func (c Computation) validate() error {
	if c.UserPublicKey == [32]byte{} {
		return lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"field": "user_pubkey"})
	}
	return c.Accounts.validate()
}

// Oracles are the price feed accounts read by health checks.
type Oracles struct {
	SOLPrice  pubkey.Key `json:"sol_price" yaml:"sol_price"`
	USDCPrice pubkey.Key `json:"usdc_price" yaml:"usdc_price"`
}

func (o Oracles) validate() error {
	return requireAccounts(map[string]pubkey.Key{"oracle.sol_price": o.SOLPrice, "oracle.usdc_price": o.USDCPrice})
}

// Request is a confidential operation by User on the market's pool.
type Request struct {
	Market
	User        pubkey.Key
	Amount      uint64
	Computation Computation
}

// userAccounts holds the addresses shared by user instructions.
type userAccounts struct {
	pool       pubkey.Key
	obligation pubkey.Key
	signer     pubkey.Key
}

func (r Request) resolve(requireAmount bool) (*userAccounts, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := requireAccounts(map[string]pubkey.Key{"user": r.User}); err != nil {
		return nil, err
	}
	if requireAmount && r.Amount == 0 {
		return nil, lenderr.ErrInvalidAmount
	}
	if err := r.Computation.validate(); err != nil {
		return nil, err
	}

	var (
		ua  userAccounts
		err error
	)
	if ua.pool, err = r.Pool(); err != nil {
		return nil, err
	}
	if ua.obligation, err = r.Obligation(r.User); err != nil {
		return nil, err
	}
	if ua.signer, err = r.Signer(); err != nil {
		return nil, err
	}
	return &ua, nil
}

// data encodes (computation_offset u64, amount u64, user_pubkey [32]u8, user_nonce u128).
func (r Request) data(name string) []byte {
	return newEncoder(name, 64).
		u64(r.Computation.Offset).
		u64(r.Amount).
		fixed32(r.Computation.UserPublicKey).
		u128(r.Computation.Nonce).
		bytes()
}

// collateralTransfer builds Deposit and Withdraw, which move collateral
// between the user's token account and the collateral vault.
func collateralTransfer(name string, r Request) (*Instruction, error) {
	ua, err := r.resolve(true)
	if err != nil {
		return nil, err
	}
	userToken, err := AssociatedTokenAddress(r.User, r.CollateralMint)
	if err != nil {
		return nil, err
	}
	vault, err := r.Vault(VaultCollateral)
	if err != nil {
		return nil, err
	}

	accounts := []AccountMeta{signer(r.User)}
	accounts = append(accounts, r.Computation.Accounts.queue(ua.signer)...)
	accounts = append(accounts,
		writable(ua.pool),
		writable(ua.obligation),
		readonly(r.CollateralMint),
		writable(userToken),
		writable(vault),
		readonly(pubkey.TokenProgram),
		readonly(pubkey.AssociatedTokenProgram),
		readonly(pubkey.SystemProgram),
		readonly(r.Computation.Accounts.Program),
	)

	return &Instruction{Name: name, ProgramID: r.ProgramID, Accounts: accounts, Data: r.data(name)}, nil
}

// Deposit moves collateral into the pool and queues the encrypted balance update.
func Deposit(r Request) (*Instruction, error) {
	return collateralTransfer(NameDeposit, r)
}

// Withdraw queues a health-checked collateral withdrawal.
func Withdraw(r Request) (*Instruction, error) {
	return collateralTransfer(NameWithdraw, r)
}

// BorrowRequest is a borrow of an encrypted amount.
type BorrowRequest struct {
	Market
	User pubkey.Key
	// Ciphertext is the borrow amount encrypted for the MXE.
	Ciphertext  [32]byte
	Computation Computation
	Oracles     Oracles
}

// Borrow queues a confidential health check that raises the user's debt
// and internal balance when approved.
func Borrow(b BorrowRequest) (*Instruction, error) {
	if b.Ciphertext == [32]byte{} {
		return nil, lenderr.WithDetails(lenderr.ErrInvalidAmount, map[string]string{"field": "ciphertext"})
	}
	r := Request{Market: b.Market, User: b.User, Computation: b.Computation}
	ua, err := r.resolve(false)
	if err != nil {
		return nil, err
	}
	if err := b.Oracles.validate(); err != nil {
		return nil, err
	}

	accounts := []AccountMeta{
		signer(b.User),
		readonly(ua.pool),
		writable(ua.obligation),
	}
	accounts = append(accounts, b.Computation.Accounts.queue(ua.signer)...)
	accounts = append(accounts,
		readonly(b.Oracles.SOLPrice),
		readonly(b.Oracles.USDCPrice),
		readonly(pubkey.SystemProgram),
		readonly(b.Computation.Accounts.Program),
	)

	data := newEncoder(NameBorrow, 88).
		u64(b.Computation.Offset).
		fixed32(b.Ciphertext).
		fixed32(b.Computation.UserPublicKey).
		u128(b.Computation.Nonce).
		bytes()

	return &Instruction{Name: NameBorrow, ProgramID: b.ProgramID, Accounts: accounts, Data: data}, nil
}

// Repay moves borrow tokens into the borrow vault and queues the debt update.
func Repay(r Request) (*Instruction, error) {
	ua, err := r.resolve(true)
	if err != nil {
		return nil, err
	}
	userToken, err := AssociatedTokenAddress(r.User, r.BorrowMint)
	if err != nil {
		return nil, err
	}
	vault, err := r.Vault(VaultBorrow)
	if err != nil {
		return nil, err
	}

	accounts := []AccountMeta{
		signer(r.User),
		readonly(ua.pool),
		writable(ua.obligation),
		readonly(r.BorrowMint),
		writable(userToken),
		writable(vault),
	}
	accounts = append(accounts, r.Computation.Accounts.queue(ua.signer)...)
	accounts = append(accounts,
		readonly(pubkey.SystemProgram),
		readonly(pubkey.TokenProgram),
		readonly(r.Computation.Accounts.Program),
	)

	return &Instruction{Name: NameRepay, ProgramID: r.ProgramID, Accounts: accounts, Data: r.data(NameRepay)}, nil
}

// LiquidateRequest repays part of Borrower's debt on behalf of the
// liquidator (Request.User).
type LiquidateRequest struct {
	Request
	Borrower pubkey.Key
	Oracles  Oracles
}

// Liquidate escrows the repayment and queues the confidential health
// check; an unhealthy position's collateral is seized, otherwise the
// repayment is refunded.
func Liquidate(l LiquidateRequest) (*Instruction, error) {
	ua, err := l.resolve(true)
	if err != nil {
		return nil, err
	}
	if err := requireAccounts(map[string]pubkey.Key{"borrower": l.Borrower}); err != nil {
		return nil, err
	}
	if err := l.Oracles.validate(); err != nil {
		return nil, err
	}
	target, err := l.Obligation(l.Borrower)
	if err != nil {
		return nil, err
	}
	vault, err := l.Vault(VaultBorrow)
	if err != nil {
		return nil, err
	}
	liquidatorToken, err := AssociatedTokenAddress(l.User, l.BorrowMint)
	if err != nil {
		return nil, err
	}

	accounts := []AccountMeta{
		signer(l.User),
		writable(ua.pool),
		writable(target),
	}
	accounts = append(accounts, l.Computation.Accounts.queue(ua.signer)...)
	accounts = append(accounts,
		readonly(l.BorrowMint),
		writable(vault),
		writable(liquidatorToken),
		readonly(l.Oracles.SOLPrice),
		readonly(l.Oracles.USDCPrice),
		readonly(pubkey.SystemProgram),
		readonly(pubkey.TokenProgram),
		readonly(l.Computation.Accounts.Program),
	)

	return &Instruction{Name: NameLiquidate, ProgramID: l.ProgramID, Accounts: accounts, Data: l.data(NameLiquidate)}, nil
}

// SpendRequest pays out of the user's internal balance. A zero
// Destination pays the user's own borrow-mint token account.
type SpendRequest struct {
	Request
	Destination pubkey.Key
}

// Spend queues a check of the internal balance and, when approved, a
// transfer from the borrow vault to Destination.
func Spend(s SpendRequest) (*Instruction, error) {
	ua, err := s.resolve(true)
	if err != nil {
		return nil, err
	}
	dest := s.Destination
	if dest.IsZero() {
		if dest, err = AssociatedTokenAddress(s.User, s.BorrowMint); err != nil {
			return nil, err
		}
	}
	vault, err := s.Vault(VaultBorrow)
	if err != nil {
		return nil, err
	}

	accounts := []AccountMeta{signer(s.User)}
	accounts = append(accounts, s.Computation.Accounts.queue(ua.signer)...)
	accounts = append(accounts,
		writable(ua.pool),
		writable(ua.obligation),
		writable(dest),
		writable(vault),
		readonly(pubkey.TokenProgram),
		readonly(pubkey.SystemProgram),
		readonly(s.Computation.Accounts.Program),
	)

	return &Instruction{Name: NameSpend, ProgramID: s.ProgramID, Accounts: accounts, Data: s.data(NameSpend)}, nil
}
