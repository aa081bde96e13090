package instruction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	dep, err := Deposit(testRequest(1234))
	require.NoError(t, err)
	d, err := DecodeBase64(dep.Encode())
	require.NoError(t, err)
	assert.Equal(t, NameDeposit, d.Name)
	assert.Equal(t, "42", d.Args["computation_offset"])
	assert.Equal(t, "1234", d.Args["amount"])
	assert.Equal(t, "18446744073709551623", d.Args["user_nonce"])

	pool, err := InitializePool(testMarket, alice, DefaultRiskParams())
	require.NoError(t, err)
	d, err = Decode(pool.Data)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"ltv_bps":                   "8000",
		"liquidation_threshold_bps": "8500",
		"liquidation_bonus_bps":     "500",
		"fixed_borrow_rate_bps":     "500",
	}, d.Args)
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	_, err := DecodeBase64("not base64!")
	require.ErrorIs(t, err, lenderr.ErrInvalidInput)

	_, err = Decode([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.ErrorIs(t, err, lenderr.ErrInvalidInput)

	dep, err := Deposit(testRequest(1))
	require.NoError(t, err)
	_, err = Decode(dep.Data[:40])
	require.ErrorIs(t, err, lenderr.ErrInvalidInput)

	_, err = Decode(append(dep.Data, 0))
	require.ErrorIs(t, err, lenderr.ErrInvalidInput)
}

func TestUint128(t *testing.T) {
	t.Parallel()

	top, err := ParseUint128("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.Equal(t, Uint128{Lo: ^uint64(0), Hi: ^uint64(0)}, top)
	assert.Equal(t, "340282366920938463463374607431768211455", top.String())

	v, err := ParseUint128("18446744073709551616")
	require.NoError(t, err)
	assert.Equal(t, Uint128{Lo: 0, Hi: 1}, v)

	for _, s := range []string{"340282366920938463463374607431768211456", "-1", "x"} {
		_, err := ParseUint128(s)
		require.ErrorIs(t, err, lenderr.ErrInvalidInput, s)
	}
}
