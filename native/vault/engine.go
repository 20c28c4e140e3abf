package vault

import (
	"math"
	"math/big"
	"sync"
	"time"

	"zusdchain/core/events"
	"zusdchain/core/pricing"
	"zusdchain/crypto"
	"zusdchain/native/common"
	"zusdchain/observability"
)

const moduleName = "vault"

// vaultState is the persistence surface the engine depends on.
type vaultState interface {
	GetTrove(denom string, owner crypto.Address) (*Trove, bool, error)
	PutTrove(trove *Trove) error
	DeleteTrove(denom string, owner crypto.Address) error
	GetAccumulator(denom string) (*RedistributionAccumulator, error)
	PutAccumulator(acc *RedistributionAccumulator) error
	GetQuota(addr crypto.Address) (common.QuotaNow, error)
	PutQuota(addr crypto.Address, now common.QuotaNow) error
}

// tokenLedger is the external ledger contract: atomic transfer, mint and burn
// keyed by account and denom. The engine performs its own denom binding
// checks before calling it and never relies on the ledger to catch a
// mismatch it could have caught itself.
type tokenLedger interface {
	Transfer(denom string, from, to crypto.Address, amount *big.Int) error
	Mint(denom string, to crypto.Address, amount *big.Int) error
	Burn(denom string, from crypto.Address, amount *big.Int) error
	Balance(denom string, addr crypto.Address) (*big.Int, error)
}

// stabilityPool is the offset capacity the liquidation engine consults.
type stabilityPool interface {
	TotalStake(denom string) (*big.Int, error)
	Offset(denom string, debtToCancel, collateralGain *big.Int) error
	Treasury() crypto.Address
}

// Engine orchestrates trove lifecycle, liquidation and redemption state
// transitions. All mutating operations serialize on one mutex: the
// redistribution accumulators and the stability pool must never observe a
// read-modify-write gap.
type Engine struct {
	mu          sync.Mutex
	state       vaultState
	ledger      tokenLedger
	pool        stabilityPool
	feed        pricing.PriceOracle
	params      RiskParameters
	emitter     events.Emitter
	pauses      common.PauseView
	quota       common.Quota
	metrics     *observability.VaultMetrics
	stableDenom string
	treasury    crypto.Address
	nowFn       func() time.Time
}

// NewEngine constructs a vault engine configured with the collateral treasury
// address, stablecoin denom and risk parameters.
func NewEngine(treasury crypto.Address, stableDenom string, params RiskParameters) *Engine {
	return &Engine{
		treasury:    treasury,
		stableDenom: stableDenom,
		params:      params.Clone(),
		emitter:     events.NoopEmitter{},
		nowFn:       time.Now,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state vaultState) { e.state = state }

// SetLedger wires the token ledger used for all fund movements.
func (e *Engine) SetLedger(ledger tokenLedger) { e.ledger = ledger }

// SetStabilityPool wires the stability pool consulted during liquidation.
func (e *Engine) SetStabilityPool(pool stabilityPool) { e.pool = pool }

// SetPriceFeed wires the oracle feed. A feed failure is fatal to the calling
// operation; the engine never falls back to a stale price.
func (e *Engine) SetPriceFeed(feed pricing.PriceOracle) { e.feed = feed }

// SetEmitter configures the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause view.
func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetQuota configures the per-address quota applied to mutating operations.
func (e *Engine) SetQuota(q common.Quota) {
	if e == nil {
		return
	}
	e.quota = q
}

// SetMetrics wires the prometheus instrumentation.
func (e *Engine) SetMetrics(m *observability.VaultMetrics) {
	if e == nil {
		return
	}
	e.metrics = m
}

// SetNowFunc overrides the clock used for quota epochs in tests.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// Treasury returns the collateral vault module account.
func (e *Engine) Treasury() crypto.Address { return e.treasury }

// GetTrove exposes a read-only view of a trove with pending redistribution
// rewards applied.
func (e *Engine) GetTrove(denom string, owner crypto.Address) (*Trove, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	trove, found, err := e.state.GetTrove(denom, owner)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTroveNotFound
	}
	acc, err := e.state.GetAccumulator(denom)
	if err != nil {
		return nil, err
	}
	applyPendingRewards(trove, acc)
	return trove, nil
}

// Open creates a trove for the caller: collateral is locked in the vault
// treasury and the requested debt is minted to the caller. The origination
// fee is folded into the trove's recorded debt.
func (e *Engine) Open(caller crypto.Address, denom string, collateral, debt *big.Int, hints NeighborHints) (fee *big.Int, err error) {
	start := e.now()
	defer func() { e.observe(events.TroveOperationOpen, start, err) }()

	if e == nil || e.state == nil || e.ledger == nil {
		return nil, ErrNilState
	}
	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if debt == nil || debt.Sign() <= 0 {
		return nil, ErrZeroDebtNotAllowed
	}
	if collateral == nil || collateral.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, found, ferr := e.state.GetTrove(denom, caller); ferr != nil {
		return nil, ferr
	} else if found {
		return nil, ErrTroveExists
	}

	quotaNow, err := e.checkQuota(caller, debt)
	if err != nil {
		return nil, err
	}

	fee = mulDiv(debt, new(big.Int).SetUint64(e.params.OriginationFeeBps), big.NewInt(10_000))
	totalDebt := new(big.Int).Add(debt, fee)

	quote, err := e.quote(denom)
	if err != nil {
		return nil, err
	}
	value, err := collateralValue(collateral, quote, e.params.TargetDecimals)
	if err != nil {
		return nil, err
	}
	icr, err := computeICR(value, totalDebt)
	if err != nil {
		return nil, err
	}
	if icr.Cmp(e.params.MinCollateralRatio) < 0 {
		return nil, ErrBelowMinimumCollateralRatio
	}

	acc, err := e.state.GetAccumulator(denom)
	if err != nil {
		return nil, err
	}
	if err = e.validateHints(denom, caller, icr, hints, quote, acc, false); err != nil {
		return nil, err
	}

	if err = e.ledger.Transfer(denom, caller, e.treasury, collateral); err != nil {
		return nil, err
	}
	if err = e.ledger.Mint(e.stableDenom, caller, debt); err != nil {
		return nil, err
	}

	trove := &Trove{
		Owner:                    caller,
		CollateralDenom:          denom,
		Collateral:               new(big.Int).Set(collateral),
		Debt:                     totalDebt,
		CollateralRewardSnapshot: new(big.Int).Set(acc.CollateralPerUnitStaked),
		DebtRewardSnapshot:       new(big.Int).Set(acc.DebtPerUnitStaked),
	}
	if err = e.state.PutTrove(trove); err != nil {
		return nil, err
	}

	acc.TotalCollateral = new(big.Int).Add(acc.TotalCollateral, collateral)
	acc.TotalDebt = new(big.Int).Add(acc.TotalDebt, totalDebt)
	acc.TroveCount++
	if err = e.state.PutAccumulator(acc); err != nil {
		return nil, err
	}
	if err = e.putQuota(caller, quotaNow); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.TroveOpened{Owner: caller, Denom: denom, Collateral: collateral, Debt: totalDebt, Fee: fee})
	return fee, nil
}

// AddCollateral locks additional collateral into an open trove.
func (e *Engine) AddCollateral(caller, owner crypto.Address, denom string, amount *big.Int, hints NeighborHints) (err error) {
	start := e.now()
	defer func() { e.observe(events.TroveOperationAddCollateral, start, err) }()
	return e.mutateTrove(caller, owner, denom, hints, events.TroveOperationAddCollateral, nil,
		func(trove *Trove) error {
			if amount == nil || amount.Sign() <= 0 {
				return ErrInvalidAmount
			}
			trove.Collateral = new(big.Int).Add(trove.Collateral, amount)
			return nil
		},
		func(acc *RedistributionAccumulator) error {
			acc.TotalCollateral = new(big.Int).Add(acc.TotalCollateral, amount)
			return e.ledger.Transfer(denom, owner, e.treasury, amount)
		})
}

// RemoveCollateral releases collateral back to the owner while the trove
// remains above the minimum collateral ratio.
func (e *Engine) RemoveCollateral(caller, owner crypto.Address, denom string, amount *big.Int, hints NeighborHints) (err error) {
	start := e.now()
	defer func() { e.observe(events.TroveOperationRemoveCollateral, start, err) }()
	return e.mutateTrove(caller, owner, denom, hints, events.TroveOperationRemoveCollateral, nil,
		func(trove *Trove) error {
			if amount == nil || amount.Sign() <= 0 {
				return ErrInvalidAmount
			}
			if trove.Collateral.Cmp(amount) < 0 {
				return ErrInsufficientVaultBalance
			}
			trove.Collateral = new(big.Int).Sub(trove.Collateral, amount)
			return nil
		},
		func(acc *RedistributionAccumulator) error {
			acc.TotalCollateral = new(big.Int).Sub(acc.TotalCollateral, amount)
			return e.ledger.Transfer(denom, e.treasury, owner, amount)
		})
}

// Borrow mints additional debt against an open trove. The origination fee is
// folded into the trove's recorded debt and the returned value.
func (e *Engine) Borrow(caller, owner crypto.Address, denom string, amount *big.Int, hints NeighborHints) (fee *big.Int, err error) {
	start := e.now()
	defer func() { e.observe(events.TroveOperationBorrow, start, err) }()
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	fee = mulDiv(amount, new(big.Int).SetUint64(e.params.OriginationFeeBps), big.NewInt(10_000))
	totalNew := new(big.Int).Add(amount, fee)
	err = e.mutateTrove(caller, owner, denom, hints, events.TroveOperationBorrow, amount,
		func(trove *Trove) error {
			trove.Debt = new(big.Int).Add(trove.Debt, totalNew)
			return nil
		},
		func(acc *RedistributionAccumulator) error {
			acc.TotalDebt = new(big.Int).Add(acc.TotalDebt, totalNew)
			return e.ledger.Mint(e.stableDenom, owner, amount)
		})
	if err != nil {
		return nil, err
	}
	return fee, nil
}

// Repay burns stablecoin against an open trove's debt. Repaying the full debt
// must go through Close; a trove never holds zero debt while open.
func (e *Engine) Repay(caller, owner crypto.Address, denom string, amount *big.Int, hints NeighborHints) (err error) {
	start := e.now()
	defer func() { e.observe(events.TroveOperationRepay, start, err) }()
	return e.mutateTrove(caller, owner, denom, hints, events.TroveOperationRepay, nil,
		func(trove *Trove) error {
			if amount == nil || amount.Sign() <= 0 {
				return ErrInvalidAmount
			}
			if amount.Cmp(trove.Debt) >= 0 {
				return ErrZeroDebtNotAllowed
			}
			trove.Debt = new(big.Int).Sub(trove.Debt, amount)
			return nil
		},
		func(acc *RedistributionAccumulator) error {
			acc.TotalDebt = new(big.Int).Sub(acc.TotalDebt, amount)
			return e.ledger.Burn(e.stableDenom, owner, amount)
		})
}

// Close repays the trove's full debt, returns its collateral to the owner and
// destroys the record.
func (e *Engine) Close(caller crypto.Address, denom string) (returned *big.Int, err error) {
	start := e.now()
	defer func() { e.observe(events.TroveOperationClose, start, err) }()

	if e == nil || e.state == nil || e.ledger == nil {
		return nil, ErrNilState
	}
	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	trove, found, err := e.state.GetTrove(denom, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTroveNotFound
	}
	acc, err := e.state.GetAccumulator(denom)
	if err != nil {
		return nil, err
	}
	applyPendingRewards(trove, acc)

	if err = e.ledger.Burn(e.stableDenom, caller, trove.Debt); err != nil {
		return nil, err
	}
	vaultBal, err := e.ledger.Balance(denom, e.treasury)
	if err != nil {
		return nil, err
	}
	if vaultBal.Cmp(trove.Collateral) < 0 {
		return nil, ErrInsufficientVaultBalance
	}
	if trove.Collateral.Sign() > 0 {
		if err = e.ledger.Transfer(denom, e.treasury, caller, trove.Collateral); err != nil {
			return nil, err
		}
	}

	acc.TotalCollateral = new(big.Int).Sub(acc.TotalCollateral, trove.Collateral)
	acc.TotalDebt = new(big.Int).Sub(acc.TotalDebt, trove.Debt)
	if acc.TroveCount > 0 {
		acc.TroveCount--
	}
	if err = e.state.PutAccumulator(acc); err != nil {
		return nil, err
	}
	if err = e.state.DeleteTrove(denom, caller); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.TroveClosed{Owner: caller, Denom: denom, CollateralReturned: trove.Collateral, DebtRepaid: trove.Debt})
	return trove.Collateral, nil
}

// mutateTrove is the shared adjustment path: ownership check, pending reward
// sync, the mutation, the post-state health check, hint validation, and only
// then fund movement and persistence. Stale unapplied rewards are folded in
// before the mutation so an operation cannot be timed around a liquidation.
func (e *Engine) mutateTrove(caller, owner crypto.Address, denom string, hints NeighborHints, op string, stableDelta *big.Int, apply func(*Trove) error, commit func(*RedistributionAccumulator) error) error {
	if e == nil || e.state == nil || e.ledger == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !caller.Equal(owner) {
		return ErrUnauthorized
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	quotaNow, err := e.checkQuota(caller, stableDelta)
	if err != nil {
		return err
	}

	trove, found, err := e.state.GetTrove(denom, owner)
	if err != nil {
		return err
	}
	if !found {
		return ErrTroveNotFound
	}
	acc, err := e.state.GetAccumulator(denom)
	if err != nil {
		return err
	}
	applyPendingRewards(trove, acc)

	if err := apply(trove); err != nil {
		return err
	}

	quote, err := e.quote(denom)
	if err != nil {
		return err
	}
	icr, err := troveICR(trove, quote, e.params.TargetDecimals)
	if err != nil {
		return err
	}
	if icr.Cmp(e.params.MinCollateralRatio) < 0 {
		return ErrBelowMinimumCollateralRatio
	}
	if err := e.validateHints(denom, owner, icr, hints, quote, acc, true); err != nil {
		return err
	}

	if err := commit(acc); err != nil {
		return err
	}
	if err := e.state.PutTrove(trove); err != nil {
		return err
	}
	if err := e.state.PutAccumulator(acc); err != nil {
		return err
	}
	if err := e.putQuota(caller, quotaNow); err != nil {
		return err
	}

	e.emitter.Emit(events.TroveUpdated{Owner: owner, Denom: denom, Operation: op, Collateral: trove.Collateral, Debt: trove.Debt})
	return nil
}

// applyPendingRewards folds accrued redistribution rewards into the trove and
// refreshes its snapshots. Pending reward is the accumulator delta since the
// trove's last sync, scaled by the trove's collateral.
func applyPendingRewards(trove *Trove, acc *RedistributionAccumulator) (pendingColl, pendingDebt *big.Int) {
	pendingColl = big.NewInt(0)
	pendingDebt = big.NewInt(0)
	if trove == nil || acc == nil {
		return pendingColl, pendingDebt
	}
	collDelta := new(big.Int).Sub(acc.CollateralPerUnitStaked, trove.CollateralRewardSnapshot)
	debtDelta := new(big.Int).Sub(acc.DebtPerUnitStaked, trove.DebtRewardSnapshot)
	// Entitlement is measured against the collateral the trove held when the
	// redistribution was booked, before its own reward is folded in.
	base := trove.Collateral
	if collDelta.Sign() > 0 {
		pendingColl = mulDiv(collDelta, base, rewardScale)
		trove.Collateral = new(big.Int).Add(trove.Collateral, pendingColl)
	}
	if debtDelta.Sign() > 0 {
		pendingDebt = mulDiv(debtDelta, base, rewardScale)
		trove.Debt = new(big.Int).Add(trove.Debt, pendingDebt)
	}
	trove.CollateralRewardSnapshot = new(big.Int).Set(acc.CollateralPerUnitStaked)
	trove.DebtRewardSnapshot = new(big.Int).Set(acc.DebtPerUnitStaked)
	return pendingColl, pendingDebt
}

func (e *Engine) quote(denom string) (pricing.PriceQuote, error) {
	if e.feed == nil {
		return pricing.PriceQuote{}, pricing.ErrPriceUnavailable
	}
	return e.feed.GetPrice(denom)
}

func (e *Engine) now() time.Time {
	if e == nil || e.nowFn == nil {
		return time.Now()
	}
	return e.nowFn()
}

func (e *Engine) quotaEnabled() bool {
	return e.quota != (common.Quota{})
}

func (e *Engine) checkQuota(addr crypto.Address, stableDelta *big.Int) (common.QuotaNow, error) {
	if !e.quotaEnabled() {
		return common.QuotaNow{}, nil
	}
	prev, err := e.state.GetQuota(addr)
	if err != nil {
		return common.QuotaNow{}, err
	}
	var epoch uint64
	if e.quota.EpochSeconds > 0 {
		epoch = uint64(e.now().Unix()) / uint64(e.quota.EpochSeconds)
	}
	var delta uint64
	if stableDelta != nil && stableDelta.Sign() > 0 {
		if stableDelta.IsUint64() {
			delta = stableDelta.Uint64()
		} else {
			delta = math.MaxUint64
		}
	}
	return common.CheckQuota(e.quota, epoch, prev, 1, delta)
}

func (e *Engine) putQuota(addr crypto.Address, now common.QuotaNow) error {
	if !e.quotaEnabled() {
		return nil
	}
	return e.state.PutQuota(addr, now)
}

func (e *Engine) observe(op string, start time.Time, err error) {
	if e == nil || e.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.ObserveOp(op, outcome, e.now().Sub(start))
}
