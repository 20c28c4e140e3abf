package bank

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"zusdchain/core/state"
	"zusdchain/crypto"
	"zusdchain/storage"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger := NewLedger(state.NewManager(storage.NewMemDB()))
	require.NoError(t, ledger.RegisterDenom("zusd", 6))
	return ledger
}

func addr(tag byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = tag
	return crypto.MustNewAddress(crypto.AccountPrefix, raw)
}

func TestRegisterDenomRejectsDuplicates(t *testing.T) {
	ledger := newLedger(t)
	require.ErrorIs(t, ledger.RegisterDenom("zusd", 6), ErrDenomExists)

	decimals, err := ledger.DenomDecimals("zusd")
	require.NoError(t, err)
	require.Equal(t, uint8(6), decimals)
}

func TestMintTransferBurn(t *testing.T) {
	ledger := newLedger(t)
	alice, bob := addr(1), addr(2)

	require.NoError(t, ledger.Mint("zusd", alice, big.NewInt(1_000)))
	require.NoError(t, ledger.Transfer("zusd", alice, bob, big.NewInt(400)))

	aliceBal, err := ledger.Balance("zusd", alice)
	require.NoError(t, err)
	require.Zero(t, aliceBal.Cmp(big.NewInt(600)))

	bobBal, err := ledger.Balance("zusd", bob)
	require.NoError(t, err)
	require.Zero(t, bobBal.Cmp(big.NewInt(400)))

	require.NoError(t, ledger.Burn("zusd", bob, big.NewInt(400)))
	bobBal, err = ledger.Balance("zusd", bob)
	require.NoError(t, err)
	require.Zero(t, bobBal.Sign())
}

func TestTransferInsufficientFunds(t *testing.T) {
	ledger := newLedger(t)
	alice, bob := addr(1), addr(2)
	require.NoError(t, ledger.Mint("zusd", alice, big.NewInt(100)))

	require.ErrorIs(t, ledger.Transfer("zusd", alice, bob, big.NewInt(101)), ErrInsufficientFunds)
	require.ErrorIs(t, ledger.Burn("zusd", alice, big.NewInt(101)), ErrInsufficientFunds)

	// A failed transfer must not touch either balance.
	aliceBal, err := ledger.Balance("zusd", alice)
	require.NoError(t, err)
	require.Zero(t, aliceBal.Cmp(big.NewInt(100)))
}

func TestUnregisteredDenomRejected(t *testing.T) {
	ledger := newLedger(t)
	alice := addr(1)
	require.ErrorIs(t, ledger.Mint("weth", alice, big.NewInt(1)), ErrDenomNotRegistered)
	_, err := ledger.Balance("weth", alice)
	require.ErrorIs(t, err, ErrDenomNotRegistered)
}

func TestAmountValidation(t *testing.T) {
	ledger := newLedger(t)
	alice, bob := addr(1), addr(2)
	require.ErrorIs(t, ledger.Mint("zusd", alice, big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(t, ledger.Transfer("zusd", alice, bob, big.NewInt(-5)), ErrInvalidAmount)
	require.ErrorIs(t, ledger.Burn("zusd", alice, nil), ErrInvalidAmount)
}

func TestBalancesKeyedByOwnerAndDenom(t *testing.T) {
	ledger := newLedger(t)
	require.NoError(t, ledger.RegisterDenom("wbtc", 8))
	alice := addr(1)

	require.NoError(t, ledger.Mint("zusd", alice, big.NewInt(500)))
	require.NoError(t, ledger.Mint("wbtc", alice, big.NewInt(7)))

	zusdBal, err := ledger.Balance("zusd", alice)
	require.NoError(t, err)
	require.Zero(t, zusdBal.Cmp(big.NewInt(500)))
	wbtcBal, err := ledger.Balance("wbtc", alice)
	require.NoError(t, err)
	require.Zero(t, wbtcBal.Cmp(big.NewInt(7)))
}
