package instruction

import (
	"sort"

	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// Program address seeds.
const (
	seedPool       = "pool"
	seedVault      = "vault"
	seedObligation = "obligation"
	seedSigner     = "ArciumSignerAccount"
)

// VaultKind selects one of the two pool vaults.
type VaultKind string

// Pool vaults.
const (
	VaultCollateral VaultKind = "collateral"
	VaultBorrow     VaultKind = "borrow"
)

// Market identifies one lending pool: the program and its mint pair.
type Market struct {
	ProgramID      pubkey.Key
	CollateralMint pubkey.Key
	BorrowMint     pubkey.Key
}

// Validate reports a missing program or mint.
func (m Market) Validate() error {
	return requireAccounts(map[string]pubkey.Key{
		"program":         m.ProgramID,
		"collateral_mint": m.CollateralMint,
		"borrow_mint":     m.BorrowMint,
	})
}

// Pool returns the pool address ["pool", collateral mint, borrow mint].
func (m Market) Pool() (pubkey.Key, error) {
	k, _, err := pubkey.FindProgramAddress(
		[][]byte{[]byte(seedPool), m.CollateralMint[:], m.BorrowMint[:]},
		m.ProgramID,
	)
	return k, err
}

// Vault returns the token vault ["vault", collateral mint, borrow mint, kind].
func (m Market) Vault(kind VaultKind) (pubkey.Key, error) {
	switch kind {
	case VaultCollateral, VaultBorrow:
	default:
		return pubkey.Zero, lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"vault": string(kind)})
	}
	k, _, err := pubkey.FindProgramAddress(
		[][]byte{[]byte(seedVault), m.CollateralMint[:], m.BorrowMint[:], []byte(kind)},
		m.ProgramID,
	)
	return k, err
}

// Obligation returns the user's position ["obligation", user, pool].
func (m Market) Obligation(user pubkey.Key) (pubkey.Key, error) {
	pool, err := m.Pool()
	if err != nil {
		return pubkey.Zero, err
	}
	k, _, err := pubkey.FindProgramAddress(
		[][]byte{[]byte(seedObligation), user[:], pool[:]},
		m.ProgramID,
	)
	return k, err
}

// Signer returns the program's Arcium signer account.
func (m Market) Signer() (pubkey.Key, error) {
	k, _, err := pubkey.FindProgramAddress([][]byte{[]byte(seedSigner)}, m.ProgramID)
	return k, err
}

// AssociatedTokenAddress returns the owner's associated token account for mint.
func AssociatedTokenAddress(owner, mint pubkey.Key) (pubkey.Key, error) {
	k, _, err := pubkey.FindProgramAddress(
		[][]byte{owner[:], pubkey.TokenProgram[:], mint[:]},
		pubkey.AssociatedTokenProgram,
	)
	return k, err
}

// Addresses is every derived address of a market, for display.
type Addresses struct {
	Pool            pubkey.Key  `json:"pool"`
	CollateralVault pubkey.Key  `json:"collateral_vault"`
	BorrowVault     pubkey.Key  `json:"borrow_vault"`
	Signer          pubkey.Key  `json:"signer"`
	Obligation      *pubkey.Key `json:"obligation,omitempty"`
}

// Derive computes the market addresses, and the obligation of user when
// user is not zero.
func (m Market) Derive(user pubkey.Key) (*Addresses, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var (
		a   Addresses
		err error
	)
	if a.Pool, err = m.Pool(); err != nil {
		return nil, err
	}
	if a.CollateralVault, err = m.Vault(VaultCollateral); err != nil {
		return nil, err
	}
	if a.BorrowVault, err = m.Vault(VaultBorrow); err != nil {
		return nil, err
	}
	if a.Signer, err = m.Signer(); err != nil {
		return nil, err
	}
	if !user.IsZero() {
		ob, err := m.Obligation(user)
		if err != nil {
			return nil, err
		}
		a.Obligation = &ob
	}
	return &a, nil
}

// requireAccounts fails on the first zero key, in name order.
func requireAccounts(accounts map[string]pubkey.Key) error {
	var missing []string
	for name, k := range accounts {
		if k.IsZero() {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return lenderr.WithDetails(lenderr.ErrMissingAccount, map[string]string{"account": missing[0]})
}
