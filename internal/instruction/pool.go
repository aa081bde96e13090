package instruction

import (
	"strconv"

	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10000

// RiskParams are the public risk settings of a pool, in basis points
// except FixedBorrowRate which is an annual rate in basis points.
type RiskParams struct {
	LTV                  uint16 `json:"ltv_bps" yaml:"ltv_bps"`
	LiquidationThreshold uint16 `json:"liquidation_threshold_bps" yaml:"liquidation_threshold_bps"`
	LiquidationBonus     uint16 `json:"liquidation_bonus_bps" yaml:"liquidation_bonus_bps"`
	FixedBorrowRate      uint64 `json:"fixed_borrow_rate_bps" yaml:"fixed_borrow_rate_bps"`
}

// DefaultRiskParams are the launch settings: 80% LTV, 85% threshold,
// 5% bonus and 5% APY.
func DefaultRiskParams() RiskParams {
	return RiskParams{LTV: 8000, LiquidationThreshold: 8500, LiquidationBonus: 500, FixedBorrowRate: 500}
}

// Validate checks the basis-point bounds and that liquidation does not
// start below the borrowing limit.
func (r RiskParams) Validate() error {
	if err := checkBPS("liquidation_bonus", r.LiquidationBonus); err != nil {
		return err
	}
	return validateLTV(r.LTV, r.LiquidationThreshold)
}

func checkBPS(field string, v uint16) error {
	if v > MaxBasisPoints {
		return lenderr.WithDetails(lenderr.ErrInvalidBasisPoints, map[string]string{
			"field": field, "value": strconv.Itoa(int(v)),
		})
	}
	return nil
}

func validateLTV(ltv, threshold uint16) error {
	if err := checkBPS("ltv", ltv); err != nil {
		return err
	}
	if err := checkBPS("liquidation_threshold", threshold); err != nil {
		return err
	}
	if threshold < ltv {
		return lenderr.WithSuggestion(
			lenderr.WithDetails(lenderr.ErrInvalidBasisPoints, map[string]string{
				"ltv": strconv.Itoa(int(ltv)), "liquidation_threshold": strconv.Itoa(int(threshold)),
			}),
			"liquidation threshold must be at least the LTV",
		)
	}
	return nil
}

// InitializePool creates the pool and both vaults for the market's mint pair.
func InitializePool(m Market, authority pubkey.Key, risk RiskParams) (*Instruction, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := requireAccounts(map[string]pubkey.Key{"authority": authority}); err != nil {
		return nil, err
	}
	if err := risk.Validate(); err != nil {
		return nil, err
	}

	pool, err := m.Pool()
	if err != nil {
		return nil, err
	}
	collateralVault, err := m.Vault(VaultCollateral)
	if err != nil {
		return nil, err
	}
	borrowVault, err := m.Vault(VaultBorrow)
	if err != nil {
		return nil, err
	}

	data := newEncoder(NameInitializePool, 14).
		u16(risk.LTV).
		u16(risk.LiquidationThreshold).
		u16(risk.LiquidationBonus).
		u64(risk.FixedBorrowRate).
		bytes()

	return &Instruction{
		Name:      NameInitializePool,
		ProgramID: m.ProgramID,
		Accounts: []AccountMeta{
			signer(authority),
			writable(pool),
			readonly(m.CollateralMint),
			readonly(m.BorrowMint),
			writable(collateralVault),
			writable(borrowVault),
			readonly(pubkey.TokenProgram),
			readonly(pubkey.SystemProgram),
		},
		Data: data,
	}, nil
}

// UpdatePool changes the pool's LTV and liquidation threshold.
func UpdatePool(m Market, authority pubkey.Key, ltv, liquidationThreshold uint16) (*Instruction, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := requireAccounts(map[string]pubkey.Key{"authority": authority}); err != nil {
		return nil, err
	}
	if err := validateLTV(ltv, liquidationThreshold); err != nil {
		return nil, err
	}
	pool, err := m.Pool()
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name:      NameUpdatePool,
		ProgramID: m.ProgramID,
		Accounts:  []AccountMeta{signer(authority), writable(pool)},
		Data:      newEncoder(NameUpdatePool, 4).u16(ltv).u16(liquidationThreshold).bytes(),
	}, nil
}

// ClosePool closes the pool account and returns its rent to authority.
func ClosePool(m Market, authority pubkey.Key) (*Instruction, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := requireAccounts(map[string]pubkey.Key{"authority": authority}); err != nil {
		return nil, err
	}
	pool, err := m.Pool()
	if err != nil {
		return nil, err
	}

	return &Instruction{
		Name:      NameClosePool,
		ProgramID: m.ProgramID,
		Accounts: []AccountMeta{
			signer(authority),
			writable(pool),
			readonly(pubkey.SystemProgram),
		},
		Data: newEncoder(NameClosePool, 0).bytes(),
	}, nil
}
