package instruction

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

//nolint:gochecknoglobals // Test fixtures
var (
	testMarket = Market{
		ProgramID:      pubkey.MustParse("CiCw5JPuC7oHRvEzhcmKYYBmYDVSUZxQG4hHMAarPUvE"),
		CollateralMint: pubkey.MustParse("So11111111111111111111111111111111111111112"),
		BorrowMint:     pubkey.MustParse("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
	}
	alice = pubkey.MustParse("SysvarC1ock11111111111111111111111111111111")
	bob   = pubkey.MustParse("SysvarRent111111111111111111111111111111111")
)

func testArcium() ArciumAccounts {
	return ArciumAccounts{
		MXE:           pubkey.Key{1},
		Mempool:       pubkey.Key{2},
		ExecutingPool: pubkey.Key{3},
		Computation:   pubkey.Key{4},
		CompDef:       pubkey.Key{5},
		Cluster:       pubkey.Key{6},
		FeePool:       pubkey.Key{7},
		Clock:         pubkey.Key{8},
		Program:       pubkey.Key{9},
	}
}

func testComputation() Computation {
	return Computation{
		Offset:        42,
		UserPublicKey: [32]byte{0xaa, 0xbb},
		Nonce:         Uint128{Lo: 7, Hi: 1},
		Accounts:      testArcium(),
	}
}

func testRequest(amount uint64) Request {
	return Request{Market: testMarket, User: alice, Amount: amount, Computation: testComputation()}
}

func signers(ix *Instruction) []pubkey.Key {
	var out []pubkey.Key
	for _, a := range ix.Accounts {
		if a.IsSigner {
			out = append(out, a.Key)
		}
	}
	return out
}

func hasAccount(ix *Instruction, k pubkey.Key, writable bool) bool {
	for _, a := range ix.Accounts {
		if a.Key == k && a.IsWritable == writable {
			return true
		}
	}
	return false
}

func TestDiscriminator(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		NameInitializePool: "5fb40aac54aee828",
		NameUpdatePool:     "efd6aa4e24231e22",
		NameClosePool:      "8cbdd117ef3eef0b",
		NameDeposit:        "f223c68952e1f2b6",
		NameWithdraw:       "b712469c946da122",
		NameBorrow:         "e4fd83cacf745912",
		NameRepay:          "ea674352d0eadba6",
		NameLiquidate:      "dfb3e27d302e274a",
		NameSpend:          "f2cdff5765d9f539",
	}
	for name, want := range tests {
		d := Discriminator(name)
		assert.Equal(t, want, hex.EncodeToString(d[:]), name)
	}
	assert.Len(t, Names(), len(tests))
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	d := Discriminator(NameRepay)
	name, ok := Identify(append(d[:], 1, 2, 3))
	assert.True(t, ok)
	assert.Equal(t, NameRepay, name)

	_, ok = Identify([]byte{1, 2, 3})
	assert.False(t, ok)
	_, ok = Identify(make([]byte, 16))
	assert.False(t, ok)
}

func TestMarketAddresses(t *testing.T) {
	t.Parallel()

	pool, err := testMarket.Pool()
	require.NoError(t, err)
	want, _, err := pubkey.FindProgramAddress(
		[][]byte{[]byte("pool"), testMarket.CollateralMint[:], testMarket.BorrowMint[:]},
		testMarket.ProgramID,
	)
	require.NoError(t, err)
	assert.Equal(t, want, pool)
	assert.False(t, pool.OnCurve())

	cv, err := testMarket.Vault(VaultCollateral)
	require.NoError(t, err)
	bv, err := testMarket.Vault(VaultBorrow)
	require.NoError(t, err)
	assert.NotEqual(t, cv, bv)

	_, err = testMarket.Vault("fees")
	require.ErrorIs(t, err, lenderr.ErrInvalidInput)

	obA, err := testMarket.Obligation(alice)
	require.NoError(t, err)
	obB, err := testMarket.Obligation(bob)
	require.NoError(t, err)
	assert.NotEqual(t, obA, obB)

	swapped := Market{ProgramID: testMarket.ProgramID, CollateralMint: testMarket.BorrowMint, BorrowMint: testMarket.CollateralMint}
	other, err := swapped.Pool()
	require.NoError(t, err)
	assert.NotEqual(t, pool, other, "mint order is part of the pool identity")
}

func TestMarketDerive(t *testing.T) {
	t.Parallel()

	a, err := testMarket.Derive(pubkey.Zero)
	require.NoError(t, err)
	assert.Nil(t, a.Obligation)

	a, err = testMarket.Derive(alice)
	require.NoError(t, err)
	require.NotNil(t, a.Obligation)
	ob, err := testMarket.Obligation(alice)
	require.NoError(t, err)
	assert.Equal(t, ob, *a.Obligation)

	_, err = Market{ProgramID: testMarket.ProgramID}.Derive(alice)
	require.ErrorIs(t, err, lenderr.ErrMissingAccount)
}

func TestAssociatedTokenAddress(t *testing.T) {
	t.Parallel()

	a, err := AssociatedTokenAddress(alice, testMarket.BorrowMint)
	require.NoError(t, err)
	b, err := AssociatedTokenAddress(alice, testMarket.CollateralMint)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.False(t, a.OnCurve())
}

func TestEncode(t *testing.T) {
	t.Parallel()

	ix := &Instruction{Data: []byte{0, 1, 2, 3}}
	assert.Equal(t, "AAECAw==", ix.Encode())
}
