package vault

import (
	"errors"
	"math/big"
	"testing"

	cerrs "zusdchain/core/errors"
	"zusdchain/core/pricing"
	"zusdchain/core/state"
	"zusdchain/crypto"
	"zusdchain/native/bank"
	"zusdchain/native/common"
	"zusdchain/native/stability"
	"zusdchain/storage"
)

const (
	testCollateralDenom = "wbtc"
	testStableDenom     = "zusd"
)

func testAddr(tag byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = tag
	return crypto.MustNewAddress(crypto.AccountPrefix, raw)
}

// wbtc converts whole tokens into 8-decimal base units.
func wbtc(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), big.NewInt(100_000_000))
}

// zusd converts whole stablecoin units into 6-decimal base units.
func zusd(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), big.NewInt(1_000_000))
}

type testEnv struct {
	t      *testing.T
	ledger *bank.Ledger
	feed   *pricing.StaticFeed
	pool   *stability.Manager
	engine *Engine
}

type staticPauses map[string]bool

func (p staticPauses) IsPaused(module string) bool { return p[module] }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	ledger := bank.NewLedger(manager)
	if err := ledger.RegisterDenom(testStableDenom, 6); err != nil {
		t.Fatalf("register stable denom: %v", err)
	}
	if err := ledger.RegisterDenom(testCollateralDenom, 8); err != nil {
		t.Fatalf("register collateral denom: %v", err)
	}

	feed := pricing.NewStaticFeed()
	feed.SetQuote(testCollateralDenom, pricing.PriceQuote{Price: big.NewInt(100), TokenDecimals: 8})

	pool := stability.NewManager(crypto.ModuleAddress("stability"), testStableDenom)
	pool.SetState(stability.NewState(manager))
	pool.SetLedger(ledger)

	engine := NewEngine(crypto.ModuleAddress("vault"), testStableDenom, RiskParameters{
		MinCollateralRatio: big.NewInt(110_000_000),
		TargetDecimals:     6,
	})
	engine.SetState(NewState(manager))
	engine.SetLedger(ledger)
	engine.SetStabilityPool(pool)
	engine.SetPriceFeed(feed)

	return &testEnv{t: t, ledger: ledger, feed: feed, pool: pool, engine: engine}
}

func (env *testEnv) fund(addr crypto.Address, denom string, amount *big.Int) {
	env.t.Helper()
	if err := env.ledger.Mint(denom, addr, amount); err != nil {
		env.t.Fatalf("fund %s: %v", denom, err)
	}
}

func (env *testEnv) setPrice(price int64) {
	env.feed.SetQuote(testCollateralDenom, pricing.PriceQuote{Price: big.NewInt(price), TokenDecimals: 8})
}

func (env *testEnv) balance(denom string, addr crypto.Address) *big.Int {
	env.t.Helper()
	bal, err := env.ledger.Balance(denom, addr)
	if err != nil {
		env.t.Fatalf("balance %s: %v", denom, err)
	}
	return bal
}

func (env *testEnv) open(owner crypto.Address, collateral, debt *big.Int, hints NeighborHints) {
	env.t.Helper()
	env.fund(owner, testCollateralDenom, collateral)
	if _, err := env.engine.Open(owner, testCollateralDenom, collateral, debt, hints); err != nil {
		env.t.Fatalf("open trove: %v", err)
	}
}

func TestOpenCloseRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	alice := testAddr(1)

	env.open(alice, wbtc(2), zusd(100), NeighborHints{})

	if got := env.balance(testStableDenom, alice); got.Cmp(zusd(100)) != 0 {
		t.Fatalf("minted stable = %s, want %s", got, zusd(100))
	}
	if got := env.balance(testCollateralDenom, env.engine.Treasury()); got.Cmp(wbtc(2)) != 0 {
		t.Fatalf("vault collateral = %s, want %s", got, wbtc(2))
	}

	trove, err := env.engine.GetTrove(testCollateralDenom, alice)
	if err != nil {
		t.Fatalf("GetTrove: %v", err)
	}
	if trove.Debt.Cmp(zusd(100)) != 0 {
		t.Fatalf("trove debt = %s, want %s", trove.Debt, zusd(100))
	}

	returned, err := env.engine.Close(alice, testCollateralDenom)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if returned.Cmp(wbtc(2)) != 0 {
		t.Fatalf("returned collateral = %s, want %s", returned, wbtc(2))
	}
	if got := env.balance(testCollateralDenom, alice); got.Cmp(wbtc(2)) != 0 {
		t.Fatalf("collateral back = %s, want %s", got, wbtc(2))
	}
	if got := env.balance(testStableDenom, alice); got.Sign() != 0 {
		t.Fatalf("stable after close = %s, want 0", got)
	}
	if _, err := env.engine.GetTrove(testCollateralDenom, alice); !errors.Is(err, ErrTroveNotFound) {
		t.Fatalf("trove after close: got %v, want ErrTroveNotFound", err)
	}
}

func TestOpenRejectsBelowMinimumRatio(t *testing.T) {
	env := newTestEnv(t)
	alice := testAddr(1)
	env.fund(alice, testCollateralDenom, wbtc(1))

	// 1 token at $100 against 95 debt is ~105%, below the 110% minimum.
	_, err := env.engine.Open(alice, testCollateralDenom, wbtc(1), zusd(95), NeighborHints{})
	if !errors.Is(err, ErrBelowMinimumCollateralRatio) {
		t.Fatalf("got %v, want ErrBelowMinimumCollateralRatio", err)
	}
	if got := env.balance(testCollateralDenom, alice); got.Cmp(wbtc(1)) != 0 {
		t.Fatalf("collateral moved on failed open: %s", got)
	}
	if _, err := env.engine.GetTrove(testCollateralDenom, alice); !errors.Is(err, ErrTroveNotFound) {
		t.Fatalf("trove exists after failed open")
	}
}

func TestOpenFoldsOriginationFee(t *testing.T) {
	env := newTestEnv(t)
	env.engine.params.OriginationFeeBps = 50
	alice := testAddr(1)

	env.open(alice, wbtc(2), zusd(100), NeighborHints{})

	trove, err := env.engine.GetTrove(testCollateralDenom, alice)
	if err != nil {
		t.Fatalf("GetTrove: %v", err)
	}
	wantDebt := new(big.Int).Add(zusd(100), big.NewInt(500_000)) // 0.50% of 100
	if trove.Debt.Cmp(wantDebt) != 0 {
		t.Fatalf("trove debt = %s, want %s", trove.Debt, wantDebt)
	}
	// Only the requested principal is minted; the fee is pure debt.
	if got := env.balance(testStableDenom, alice); got.Cmp(zusd(100)) != 0 {
		t.Fatalf("minted = %s, want %s", got, zusd(100))
	}
}

func TestAdjustRejectsNonOwner(t *testing.T) {
	env := newTestEnv(t)
	alice, mallory := testAddr(1), testAddr(2)
	env.open(alice, wbtc(2), zusd(100), NeighborHints{})
	env.fund(mallory, testCollateralDenom, wbtc(1))

	err := env.engine.AddCollateral(mallory, alice, testCollateralDenom, wbtc(1), NeighborHints{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if cerrs.KindOf(err) != cerrs.KindAuthorization {
		t.Fatalf("kind = %v, want authorization", cerrs.KindOf(err))
	}
}

func TestRepayToZeroRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := testAddr(1)
	env.open(alice, wbtc(2), zusd(100), NeighborHints{})

	err := env.engine.Repay(alice, alice, testCollateralDenom, zusd(100), NeighborHints{})
	if !errors.Is(err, ErrZeroDebtNotAllowed) {
		t.Fatalf("got %v, want ErrZeroDebtNotAllowed", err)
	}
}

func TestRemoveCollateralGuardsRatio(t *testing.T) {
	env := newTestEnv(t)
	alice := testAddr(1)
	env.open(alice, wbtc(2), zusd(100), NeighborHints{})

	// Dropping to 1 token leaves 100% which is below the 110% minimum.
	err := env.engine.RemoveCollateral(alice, alice, testCollateralDenom, wbtc(1), NeighborHints{})
	if !errors.Is(err, ErrBelowMinimumCollateralRatio) {
		t.Fatalf("got %v, want ErrBelowMinimumCollateralRatio", err)
	}
}

func TestHintsMandatoryWithPeers(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := testAddr(1), testAddr(2)
	env.open(alice, wbtc(2), zusd(100), NeighborHints{})
	env.fund(bob, testCollateralDenom, wbtc(4))

	// A second trove may not omit hints.
	if _, err := env.engine.Open(bob, testCollateralDenom, wbtc(4), zusd(100), NeighborHints{}); !errors.Is(err, ErrInvalidNeighborHint) {
		t.Fatalf("missing hints: got %v, want ErrInvalidNeighborHint", err)
	}

	// Bob's 400% sits above Alice's 200%, so Alice is the next neighbor.
	if _, err := env.engine.Open(bob, testCollateralDenom, wbtc(4), zusd(100), NeighborHints{Next: &alice}); err != nil {
		t.Fatalf("open with valid hints: %v", err)
	}

	// Declaring Alice as the safer neighbor contradicts the recomputed order.
	_, err := env.engine.Borrow(bob, bob, testCollateralDenom, zusd(10), NeighborHints{Prev: &alice})
	if !errors.Is(err, ErrInvalidNeighborHint) {
		t.Fatalf("inverted hints: got %v, want ErrInvalidNeighborHint", err)
	}
}

func TestSelfHintRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := testAddr(1)
	env.open(alice, wbtc(2), zusd(100), NeighborHints{})

	err := env.engine.AddCollateral(alice, alice, testCollateralDenom, wbtc(1), NeighborHints{Prev: &alice})
	if !errors.Is(err, ErrInvalidNeighborHint) {
		t.Fatalf("got %v, want ErrInvalidNeighborHint", err)
	}
}

func TestPausedModuleBlocksOperations(t *testing.T) {
	env := newTestEnv(t)
	alice := testAddr(1)
	env.open(alice, wbtc(2), zusd(100), NeighborHints{})

	env.engine.SetPauses(staticPauses{"vault": true})
	if err := env.engine.Repay(alice, alice, testCollateralDenom, zusd(10), NeighborHints{}); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("got %v, want ErrModulePaused", err)
	}
}

func TestQuotaLimitsRequests(t *testing.T) {
	env := newTestEnv(t)
	alice := testAddr(1)
	env.open(alice, wbtc(10), zusd(100), NeighborHints{})

	env.engine.SetQuota(common.Quota{MaxRequestsPerMin: 1, EpochSeconds: 60})
	env.fund(alice, testCollateralDenom, wbtc(2))
	if err := env.engine.AddCollateral(alice, alice, testCollateralDenom, wbtc(1), NeighborHints{}); err != nil {
		t.Fatalf("first call within quota: %v", err)
	}
	err := env.engine.AddCollateral(alice, alice, testCollateralDenom, wbtc(1), NeighborHints{})
	if !errors.Is(err, common.ErrQuotaRequestsExceeded) {
		t.Fatalf("got %v, want ErrQuotaRequestsExceeded", err)
	}
}

func TestStaleQuoteBlocksOperations(t *testing.T) {
	env := newTestEnv(t)
	alice := testAddr(1)
	env.open(alice, wbtc(2), zusd(100), NeighborHints{})

	guarded, err := pricing.NewGuardedFeed(env.feed, 1)
	if err != nil {
		t.Fatalf("NewGuardedFeed: %v", err)
	}
	env.engine.SetPriceFeed(guarded)
	if _, err := env.engine.Borrow(alice, alice, testCollateralDenom, zusd(1), NeighborHints{}); !errors.Is(err, pricing.ErrPriceUnavailable) {
		t.Fatalf("got %v, want ErrPriceUnavailable", err)
	}
}
