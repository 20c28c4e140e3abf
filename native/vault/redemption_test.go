package vault

import (
	"errors"
	"math/big"
	"testing"

	"zusdchain/crypto"
)

func redemptionEnv(t *testing.T) (*testEnv, crypto.Address, crypto.Address, crypto.Address) {
	env := newTestEnv(t)
	alice, bob, dave := testAddr(1), testAddr(2), testAddr(4)
	env.open(alice, wbtc(2), zusd(100), NeighborHints{})
	env.open(bob, wbtc(4), zusd(100), NeighborHints{Next: &alice})
	env.fund(dave, testStableDenom, zusd(300))
	return env, alice, bob, dave
}

func TestRedeemEnforcesAscendingOrder(t *testing.T) {
	env, alice, bob, dave := redemptionEnv(t)

	// Bob (400%) listed before Alice (200%) contradicts the required order.
	_, err := env.engine.Redeem(dave, testCollateralDenom, zusd(50), []crypto.Address{bob, alice})
	if !errors.Is(err, ErrInvalidRedemptionOrder) {
		t.Fatalf("got %v, want ErrInvalidRedemptionOrder", err)
	}

	// No funds may move on a failed redemption.
	if got := env.balance(testStableDenom, dave); got.Cmp(zusd(300)) != 0 {
		t.Fatalf("redeemer balance changed: %s", got)
	}
}

func TestRedeemClosesAndPartiallyRedeems(t *testing.T) {
	env, alice, bob, dave := redemptionEnv(t)

	redeemed, err := env.engine.Redeem(dave, testCollateralDenom, zusd(150), []crypto.Address{alice, bob})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if redeemed.Cmp(zusd(150)) != 0 {
		t.Fatalf("redeemed = %s, want %s", redeemed, zusd(150))
	}

	// At $100 the redeemer receives 1.5 tokens for 150 stable.
	if got := env.balance(testCollateralDenom, dave); got.Cmp(big.NewInt(150_000_000)) != 0 {
		t.Fatalf("redeemer collateral = %s, want 150000000", got)
	}
	if got := env.balance(testStableDenom, dave); got.Cmp(zusd(150)) != 0 {
		t.Fatalf("redeemer stable = %s, want %s", got, zusd(150))
	}

	// Alice was fully redeemed: trove closed, leftover token returned.
	if _, err := env.engine.GetTrove(testCollateralDenom, alice); !errors.Is(err, ErrTroveNotFound) {
		t.Fatalf("alice trove should be closed, got %v", err)
	}
	if got := env.balance(testCollateralDenom, alice); got.Cmp(wbtc(1)) != 0 {
		t.Fatalf("alice leftover = %s, want %s", got, wbtc(1))
	}

	// Bob absorbed the remaining 50 at par.
	trove, err := env.engine.GetTrove(testCollateralDenom, bob)
	if err != nil {
		t.Fatalf("GetTrove: %v", err)
	}
	if trove.Debt.Cmp(zusd(50)) != 0 {
		t.Fatalf("bob debt = %s, want %s", trove.Debt, zusd(50))
	}
	wantColl := new(big.Int).Sub(wbtc(4), big.NewInt(50_000_000))
	if trove.Collateral.Cmp(wantColl) != 0 {
		t.Fatalf("bob collateral = %s, want %s", trove.Collateral, wantColl)
	}
}

func TestRedeemClampsToAvailableDebt(t *testing.T) {
	env, alice, bob, dave := redemptionEnv(t)

	redeemed, err := env.engine.Redeem(dave, testCollateralDenom, zusd(300), []crypto.Address{alice, bob})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if redeemed.Cmp(zusd(200)) != 0 {
		t.Fatalf("redeemed = %s, want %s", redeemed, zusd(200))
	}
	if got := env.balance(testStableDenom, dave); got.Cmp(zusd(100)) != 0 {
		t.Fatalf("remaining stable = %s, want %s", got, zusd(100))
	}
	// Both troves closed; leftovers returned to their owners.
	if got := env.balance(testCollateralDenom, alice); got.Cmp(wbtc(1)) != 0 {
		t.Fatalf("alice leftover = %s, want %s", got, wbtc(1))
	}
	if got := env.balance(testCollateralDenom, bob); got.Cmp(wbtc(3)) != 0 {
		t.Fatalf("bob leftover = %s, want %s", got, wbtc(3))
	}
}

func TestRedeemRejectsUndercollateralizedTrove(t *testing.T) {
	env, alice, _, dave := redemptionEnv(t)

	// At $40 Alice's 2 tokens cover only 80% of her 100 debt; redeeming the
	// full debt at par would require 2.5 tokens she does not hold.
	env.setPrice(40)
	_, err := env.engine.Redeem(dave, testCollateralDenom, zusd(100), []crypto.Address{alice})
	if !errors.Is(err, ErrInsufficientVaultBalance) {
		t.Fatalf("got %v, want ErrInsufficientVaultBalance", err)
	}

	if got := env.balance(testStableDenom, dave); got.Cmp(zusd(300)) != 0 {
		t.Fatalf("redeemer stable = %s, want %s", got, zusd(300))
	}
	if got := env.balance(testCollateralDenom, dave); got.Sign() != 0 {
		t.Fatalf("redeemer collateral = %s, want 0", got)
	}
	trove, err := env.engine.GetTrove(testCollateralDenom, alice)
	if err != nil {
		t.Fatalf("GetTrove: %v", err)
	}
	if trove.Collateral.Cmp(wbtc(2)) != 0 || trove.Debt.Cmp(zusd(100)) != 0 {
		t.Fatalf("trove mutated: collateral %s, debt %s", trove.Collateral, trove.Debt)
	}
}

func TestRedeemRejectsUnknownTrove(t *testing.T) {
	env, alice, _, dave := redemptionEnv(t)
	ghost := testAddr(7)
	_, err := env.engine.Redeem(dave, testCollateralDenom, zusd(50), []crypto.Address{alice, ghost})
	if !errors.Is(err, ErrTroveNotFound) {
		t.Fatalf("got %v, want ErrTroveNotFound", err)
	}
}

func TestRedeemValidatesAmountAndBatch(t *testing.T) {
	env, alice, _, dave := redemptionEnv(t)
	if _, err := env.engine.Redeem(dave, testCollateralDenom, big.NewInt(0), []crypto.Address{alice}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := env.engine.Redeem(dave, testCollateralDenom, zusd(10), nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("empty list: got %v, want ErrEmptyBatch", err)
	}
}
