package instruction

import (
	"math/big"
	"strings"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// Token decimals of the default mints.
const (
	DecimalsSOL  = 9
	DecimalsUSDC = 6
)

// ParseAmount converts a decimal token amount to base units. "1.5" with
// 9 decimals is 1500000000. Extra fractional digits are truncated; the
// result must fit in a u64 and be non-zero.
func ParseAmount(amount string, decimals int) (uint64, error) {
	invalid := lenderr.WithDetails(lenderr.ErrInvalidAmount, map[string]string{"amount": amount})
	if amount == "" || strings.HasPrefix(amount, "-") {
		return 0, invalid
	}

	intPart, fracPart, hasFrac := strings.Cut(amount, ".")
	if hasFrac && strings.Contains(fracPart, ".") {
		return 0, invalid
	}
	if intPart == "" {
		intPart = "0"
	}
	if !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return 0, invalid
	}

	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	n, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok || n.Sign() == 0 || !n.IsUint64() {
		return 0, invalid
	}
	return n.Uint64(), nil
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FormatAmount renders base units as a decimal string without trailing
// zeros. 1500000000 with 9 decimals is "1.5".
func FormatAmount(amount uint64, decimals int) string {
	str := new(big.Int).SetUint64(amount).String()
	if decimals <= 0 {
		return str
	}
	if len(str) <= decimals {
		str = strings.Repeat("0", decimals-len(str)+1) + str
	}
	point := len(str) - decimals
	whole, frac := str[:point], strings.TrimRight(str[point:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
