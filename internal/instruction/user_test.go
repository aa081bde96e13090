package instruction

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

func TestDeposit(t *testing.T) {
	t.Parallel()

	ix, err := Deposit(testRequest(1_500_000_000))
	require.NoError(t, err)

	require.Len(t, ix.Data, 72)
	assert.Equal(t,
		"f223c68952e1f2b6"+
			"2a00000000000000"+ // offset 42
			"002f685900000000"+ // 1.5 SOL
			"aabb"+hex.EncodeToString(make([]byte, 30))+
			"0700000000000000"+"0100000000000000",
		hex.EncodeToString(ix.Data))

	assert.Equal(t, []pubkey.Key{alice}, signers(ix))
	assert.Len(t, ix.Accounts, 19)

	signerPDA, err := testMarket.Signer()
	require.NoError(t, err)
	assert.Equal(t, signerPDA, ix.Accounts[1].Key, "computation accounts follow the payer")

	ob, err := testMarket.Obligation(alice)
	require.NoError(t, err)
	ata, err := AssociatedTokenAddress(alice, testMarket.CollateralMint)
	require.NoError(t, err)
	vault, err := testMarket.Vault(VaultCollateral)
	require.NoError(t, err)
	assert.True(t, hasAccount(ix, ob, true))
	assert.True(t, hasAccount(ix, ata, true))
	assert.True(t, hasAccount(ix, vault, true))
	assert.True(t, hasAccount(ix, testArcium().Program, false))
}

func TestWithdraw_SharesDepositLayout(t *testing.T) {
	t.Parallel()

	dep, err := Deposit(testRequest(10))
	require.NoError(t, err)
	wd, err := Withdraw(testRequest(10))
	require.NoError(t, err)

	assert.Equal(t, dep.Accounts, wd.Accounts)
	assert.Equal(t, dep.Data[DiscriminatorSize:], wd.Data[DiscriminatorSize:])
	assert.NotEqual(t, dep.Data[:DiscriminatorSize], wd.Data[:DiscriminatorSize])
}

func TestUserInstructions_Validation(t *testing.T) {
	t.Parallel()

	builders := map[string]func(Request) (*Instruction, error){
		NameDeposit:  Deposit,
		NameWithdraw: Withdraw,
		NameRepay:    Repay,
		NameSpend:    func(r Request) (*Instruction, error) { return Spend(SpendRequest{Request: r}) },
		NameLiquidate: func(r Request) (*Instruction, error) {
			return Liquidate(LiquidateRequest{Request: r, Borrower: bob, Oracles: Oracles{SOLPrice: pubkey.Key{10}, USDCPrice: pubkey.Key{11}}})
		},
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := build(testRequest(0))
			require.ErrorIs(t, err, lenderr.ErrInvalidAmount)

			r := testRequest(5)
			r.User = pubkey.Zero
			_, err = build(r)
			require.ErrorIs(t, err, lenderr.ErrMissingAccount)

			r = testRequest(5)
			r.Computation.Accounts.Mempool = pubkey.Zero
			_, err = build(r)
			require.ErrorIs(t, err, lenderr.ErrMissingAccount)
			assert.Contains(t, err.Error(), "arcium.mempool")

			r = testRequest(5)
			r.Computation.UserPublicKey = [32]byte{}
			_, err = build(r)
			require.ErrorIs(t, err, lenderr.ErrInvalidInput)

			ix, err := build(testRequest(5))
			require.NoError(t, err)
			assert.Equal(t, name, ix.Name)
			assert.Equal(t, []pubkey.Key{alice}, signers(ix))
		})
	}
}

func TestBorrow(t *testing.T) {
	t.Parallel()

	req := BorrowRequest{
		Market:      testMarket,
		User:        alice,
		Ciphertext:  [32]byte{0x01, 0x02},
		Computation: testComputation(),
		Oracles:     Oracles{SOLPrice: pubkey.Key{10}, USDCPrice: pubkey.Key{11}},
	}
	ix, err := Borrow(req)
	require.NoError(t, err)
	require.Len(t, ix.Data, 96)
	assert.Equal(t, "0102", hex.EncodeToString(ix.Data[16:18]), "ciphertext follows the offset")
	assert.True(t, hasAccount(ix, pubkey.Key{10}, false))

	pool, err := testMarket.Pool()
	require.NoError(t, err)
	assert.True(t, hasAccount(ix, pool, false), "borrow only reads the pool")

	noAmount := req
	noAmount.Ciphertext = [32]byte{}
	_, err = Borrow(noAmount)
	require.ErrorIs(t, err, lenderr.ErrInvalidAmount)

	noOracle := req
	noOracle.Oracles.USDCPrice = pubkey.Zero
	_, err = Borrow(noOracle)
	require.ErrorIs(t, err, lenderr.ErrMissingAccount)
}

func TestRepay(t *testing.T) {
	t.Parallel()

	ix, err := Repay(testRequest(250))
	require.NoError(t, err)

	ata, err := AssociatedTokenAddress(alice, testMarket.BorrowMint)
	require.NoError(t, err)
	vault, err := testMarket.Vault(VaultBorrow)
	require.NoError(t, err)
	assert.True(t, hasAccount(ix, ata, true))
	assert.True(t, hasAccount(ix, vault, true))
	assert.True(t, hasAccount(ix, testMarket.BorrowMint, false))
}

func TestLiquidate_TargetsBorrowerObligation(t *testing.T) {
	t.Parallel()

	ix, err := Liquidate(LiquidateRequest{
		Request:  testRequest(100),
		Borrower: bob,
		Oracles:  Oracles{SOLPrice: pubkey.Key{10}, USDCPrice: pubkey.Key{11}},
	})
	require.NoError(t, err)

	target, err := testMarket.Obligation(bob)
	require.NoError(t, err)
	own, err := testMarket.Obligation(alice)
	require.NoError(t, err)
	assert.True(t, hasAccount(ix, target, true))
	assert.False(t, hasAccount(ix, own, true))

	_, err = Liquidate(LiquidateRequest{Request: testRequest(100), Oracles: Oracles{SOLPrice: pubkey.Key{10}, USDCPrice: pubkey.Key{11}}})
	require.ErrorIs(t, err, lenderr.ErrMissingAccount)
}

func TestSpend_Destination(t *testing.T) {
	t.Parallel()

	ix, err := Spend(SpendRequest{Request: testRequest(1)})
	require.NoError(t, err)
	ata, err := AssociatedTokenAddress(alice, testMarket.BorrowMint)
	require.NoError(t, err)
	assert.True(t, hasAccount(ix, ata, true), "defaults to the user's borrow token account")

	dest := pubkey.Key{12}
	ix, err = Spend(SpendRequest{Request: testRequest(1), Destination: dest})
	require.NoError(t, err)
	assert.True(t, hasAccount(ix, dest, true))
	assert.False(t, hasAccount(ix, ata, true))
}
