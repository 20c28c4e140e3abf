package stability

import (
	"math/big"

	cerrs "zusdchain/core/errors"
	"zusdchain/core/events"
	"zusdchain/crypto"
	"zusdchain/native/common"
	"zusdchain/observability"
)

var (
	// productScale is the 1e18 precision of the running product factor P.
	productScale = mustBigInt("1000000000000000000")
	// scaleFactor multiplies P when it would underflow below scaleThreshold;
	// snapshot readers shift by the scale difference to compensate.
	scaleFactor    = big.NewInt(1_000_000_000)
	scaleThreshold = big.NewInt(1_000_000_000)
)

const moduleName = "stability"

var (
	ErrNilState           = cerrs.New(cerrs.KindValidation, "stability: state not configured")
	ErrInvalidAmount      = cerrs.New(cerrs.KindValidation, "stability: amount must be positive")
	ErrNothingToWithdraw  = cerrs.New(cerrs.KindResource, "stability: nothing to withdraw")
	ErrOffsetExceedsStake = cerrs.New(cerrs.KindSolvency, "stability: offset exceeds pool stake")
	ErrPoolEmpty          = cerrs.New(cerrs.KindSolvency, "stability: pool has no stake")
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// poolState is the persistence surface the manager depends on.
type poolState interface {
	GetPool(denom string) (*Pool, error)
	PutPool(pool *Pool) error
	GetDeposit(denom string, owner crypto.Address) (*Deposit, bool, error)
	PutDeposit(denom string, deposit *Deposit) error
	DeleteDeposit(denom string, owner crypto.Address) error
	GetSum(denom string, epoch, scale uint64) (*big.Int, error)
	PutSum(denom string, epoch, scale uint64, value *big.Int) error
}

// tokenLedger is the external transfer primitive used to move stake and gains
// through the pool treasury.
type tokenLedger interface {
	Transfer(denom string, from, to crypto.Address, amount *big.Int) error
}

// Manager distributes liquidation gains proportionally across depositors
// without per-depositor iteration, using the product/sum construction: a
// single running product P compounds dilution, and a per-epoch sum series S
// accumulates collateral gain per unit staked.
type Manager struct {
	state       poolState
	ledger      tokenLedger
	treasury    crypto.Address
	stableDenom string
	emitter     events.Emitter
	pauses      common.PauseView
	metrics     *observability.StabilityMetrics
}

// NewManager constructs a stability pool manager. The treasury address holds
// both staked stablecoin and collateral gains awaiting withdrawal.
func NewManager(treasury crypto.Address, stableDenom string) *Manager {
	return &Manager{treasury: treasury, stableDenom: stableDenom, emitter: events.NoopEmitter{}}
}

// SetState wires the manager to the external persistence layer.
func (m *Manager) SetState(state poolState) { m.state = state }

// SetLedger wires the token ledger used for stake and gain movements.
func (m *Manager) SetLedger(ledger tokenLedger) { m.ledger = ledger }

// SetEmitter configures the event sink.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if m == nil {
		return
	}
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

// SetPauses wires the module pause view.
func (m *Manager) SetPauses(p common.PauseView) {
	if m == nil {
		return
	}
	m.pauses = p
}

// SetMetrics wires the prometheus instrumentation.
func (m *Manager) SetMetrics(metrics *observability.StabilityMetrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

// Treasury returns the pool's module account.
func (m *Manager) Treasury() crypto.Address { return m.treasury }

// TotalStake reports the pool's aggregate deposit value for a denom.
func (m *Manager) TotalStake(denom string) (*big.Int, error) {
	if m == nil || m.state == nil {
		return nil, ErrNilState
	}
	pool, err := m.state.GetPool(denom)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(pool.TotalStake), nil
}

// Deposit stakes stablecoin into the denom pool. An existing position is
// compounded first: accrued collateral gain is paid out and the surviving
// stake folded into the new deposit before snapshots are refreshed.
func (m *Manager) Deposit(denom string, depositor crypto.Address, amount *big.Int) error {
	if m == nil || m.state == nil || m.ledger == nil {
		return ErrNilState
	}
	if err := common.Guard(m.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	pool, err := m.state.GetPool(denom)
	if err != nil {
		return err
	}

	compounded := big.NewInt(0)
	gain := big.NewInt(0)
	existing, found, err := m.state.GetDeposit(denom, depositor)
	if err != nil {
		return err
	}
	if found {
		compounded, err = m.compoundedStake(existing, pool)
		if err != nil {
			return err
		}
		gain, err = m.collateralGain(denom, existing)
		if err != nil {
			return err
		}
	}

	if err := m.ledger.Transfer(m.stableDenom, depositor, m.treasury, amount); err != nil {
		return err
	}
	if gain.Sign() > 0 {
		if err := m.ledger.Transfer(denom, m.treasury, depositor, gain); err != nil {
			return err
		}
	}

	snapshotS, err := m.state.GetSum(denom, pool.CurrentEpoch, pool.CurrentScale)
	if err != nil {
		return err
	}
	newAmount := new(big.Int).Add(compounded, amount)
	deposit := &Deposit{
		Owner:         depositor,
		Amount:        newAmount,
		SnapshotP:     new(big.Int).Set(pool.P),
		SnapshotS:     snapshotS,
		SnapshotEpoch: pool.CurrentEpoch,
		SnapshotScale: pool.CurrentScale,
	}
	if err := m.state.PutDeposit(denom, deposit); err != nil {
		return err
	}

	// The stale portion of a compounded position is already reflected in
	// TotalStake by earlier offsets; only the fresh amount is added.
	pool.TotalStake = new(big.Int).Add(pool.TotalStake, amount)
	if err := m.state.PutPool(pool); err != nil {
		return err
	}

	m.emitter.Emit(events.StabilityDeposited{
		Depositor:  depositor,
		Denom:      denom,
		Amount:     amount,
		NewDeposit: newAmount,
		GainPaid:   gain,
	})
	m.metrics.RecordStake(denom, pool.TotalStake)
	return nil
}

// Withdraw pays out the depositor's compounded stake and accrued collateral
// gain and removes the position. Fails with ErrNothingToWithdraw only when
// both the surviving stake and the accrued gain are zero.
func (m *Manager) Withdraw(denom string, depositor crypto.Address) (*big.Int, *big.Int, error) {
	if m == nil || m.state == nil || m.ledger == nil {
		return nil, nil, ErrNilState
	}
	if err := common.Guard(m.pauses, moduleName); err != nil {
		return nil, nil, err
	}

	deposit, found, err := m.state.GetDeposit(denom, depositor)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrNothingToWithdraw
	}
	pool, err := m.state.GetPool(denom)
	if err != nil {
		return nil, nil, err
	}

	stake, err := m.compoundedStake(deposit, pool)
	if err != nil {
		return nil, nil, err
	}
	gain, err := m.collateralGain(denom, deposit)
	if err != nil {
		return nil, nil, err
	}
	// A fully consumed deposit still holds its accrued collateral gain.
	if stake.Sign() == 0 && gain.Sign() == 0 {
		return nil, nil, ErrNothingToWithdraw
	}

	if stake.Sign() > 0 {
		if err := m.ledger.Transfer(m.stableDenom, m.treasury, depositor, stake); err != nil {
			return nil, nil, err
		}
	}
	if gain.Sign() > 0 {
		if err := m.ledger.Transfer(denom, m.treasury, depositor, gain); err != nil {
			return nil, nil, err
		}
	}

	pool.TotalStake = new(big.Int).Sub(pool.TotalStake, stake)
	if pool.TotalStake.Sign() < 0 {
		pool.TotalStake = big.NewInt(0)
	}
	if err := m.state.PutPool(pool); err != nil {
		return nil, nil, err
	}
	if err := m.state.DeleteDeposit(denom, depositor); err != nil {
		return nil, nil, err
	}

	m.emitter.Emit(events.StabilityWithdrawn{
		Depositor:      depositor,
		Denom:          denom,
		Stake:          stake,
		CollateralGain: gain,
	})
	m.metrics.RecordStake(denom, pool.TotalStake)
	return stake, gain, nil
}

// Offset absorbs liquidated debt into the pool and credits the seized
// collateral to depositors through the sum series. Only the liquidation
// engine calls this; the caller is responsible for burning the cancelled
// stablecoin and moving the collateral into the pool treasury. Invoked at
// most once per liquidation event.
func (m *Manager) Offset(denom string, debtToCancel, collateralGain *big.Int) error {
	if m == nil || m.state == nil {
		return ErrNilState
	}
	if debtToCancel == nil || debtToCancel.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if collateralGain == nil || collateralGain.Sign() < 0 {
		return ErrInvalidAmount
	}

	pool, err := m.state.GetPool(denom)
	if err != nil {
		return err
	}
	stakeBefore := new(big.Int).Set(pool.TotalStake)
	if stakeBefore.Sign() == 0 {
		return ErrPoolEmpty
	}
	if debtToCancel.Cmp(stakeBefore) > 0 {
		return ErrOffsetExceedsStake
	}

	// Fold the gain into the current sum term: S captures gain per unit
	// staked at this point of the P sequence, so depositors who arrive later
	// get zero share of it.
	gainPerUnit := mulDivFloor(collateralGain, productScale, stakeBefore)
	sumDelta := mulDivFloor(pool.P, gainPerUnit, productScale)
	current, err := m.state.GetSum(denom, pool.CurrentEpoch, pool.CurrentScale)
	if err != nil {
		return err
	}
	if err := m.state.PutSum(denom, pool.CurrentEpoch, pool.CurrentScale, new(big.Int).Add(current, sumDelta)); err != nil {
		return err
	}

	if debtToCancel.Cmp(stakeBefore) == 0 {
		// Pool fully wiped: restart the sequence in a new epoch so future S
		// accumulation is not polluted by a degenerate zero-P state.
		pool.CurrentEpoch++
		pool.CurrentScale = 0
		pool.P = new(big.Int).Set(productScale)
		pool.TotalStake = big.NewInt(0)
		if err := m.state.PutPool(pool); err != nil {
			return err
		}
		m.emitter.Emit(events.StabilityEpochAdvanced{Denom: denom, NewEpoch: pool.CurrentEpoch})
		m.emitter.Emit(events.StabilityOffset{
			Denom:          denom,
			DebtCancelled:  debtToCancel,
			CollateralGain: collateralGain,
			RemainingStake: pool.TotalStake,
		})
		m.metrics.RecordOffset(denom, pool.TotalStake, pool.CurrentEpoch)
		return nil
	}

	remaining := new(big.Int).Sub(stakeBefore, debtToCancel)
	newP := mulDivFloor(pool.P, remaining, stakeBefore)
	if newP.Sign() == 0 {
		newP = big.NewInt(1)
	}
	for newP.Cmp(scaleThreshold) < 0 {
		newP.Mul(newP, scaleFactor)
		pool.CurrentScale++
	}
	pool.P = newP
	pool.TotalStake = remaining
	if err := m.state.PutPool(pool); err != nil {
		return err
	}

	m.emitter.Emit(events.StabilityOffset{
		Denom:          denom,
		DebtCancelled:  debtToCancel,
		CollateralGain: collateralGain,
		RemainingStake: remaining,
	})
	m.metrics.RecordOffset(denom, pool.TotalStake, pool.CurrentEpoch)
	return nil
}

// compoundedStake derives the depositor's surviving stake from the product
// factor movement since their snapshot. A newer epoch means the deposit was
// fully wiped; a scale gap of more than one step means the position was
// diluted below representable precision.
func (m *Manager) compoundedStake(deposit *Deposit, pool *Pool) (*big.Int, error) {
	if deposit == nil || deposit.Amount == nil || deposit.Amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if deposit.SnapshotEpoch < pool.CurrentEpoch {
		return big.NewInt(0), nil
	}
	if deposit.SnapshotP == nil || deposit.SnapshotP.Sign() == 0 {
		return big.NewInt(0), nil
	}
	scaleDiff := pool.CurrentScale - deposit.SnapshotScale
	stake := mulDivFloor(deposit.Amount, pool.P, deposit.SnapshotP)
	switch scaleDiff {
	case 0:
	case 1:
		stake.Quo(stake, scaleFactor)
	default:
		return big.NewInt(0), nil
	}
	if stake.Cmp(deposit.Amount) > 0 {
		stake = new(big.Int).Set(deposit.Amount)
	}
	return stake, nil
}

// collateralGain derives the accrued gain from the sum series between the
// depositor's snapshot and now. Gain stops accruing past the snapshot epoch
// boundary: a later epoch means an intervening full offset consumed the
// entire deposit, so only the snapshot epoch's sums apply.
func (m *Manager) collateralGain(denom string, deposit *Deposit) (*big.Int, error) {
	if deposit == nil || deposit.Amount == nil || deposit.Amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if deposit.SnapshotP == nil || deposit.SnapshotP.Sign() == 0 {
		return big.NewInt(0), nil
	}
	first, err := m.state.GetSum(denom, deposit.SnapshotEpoch, deposit.SnapshotScale)
	if err != nil {
		return nil, err
	}
	firstPortion := new(big.Int).Sub(first, deposit.SnapshotS)
	if firstPortion.Sign() < 0 {
		firstPortion = big.NewInt(0)
	}
	second, err := m.state.GetSum(denom, deposit.SnapshotEpoch, deposit.SnapshotScale+1)
	if err != nil {
		return nil, err
	}
	secondPortion := new(big.Int).Quo(second, scaleFactor)

	portions := new(big.Int).Add(firstPortion, secondPortion)
	return mulDivFloor(deposit.Amount, portions, deposit.SnapshotP), nil
}

// PendingGain exposes the accrued collateral gain without mutating state.
func (m *Manager) PendingGain(denom string, depositor crypto.Address) (*big.Int, error) {
	if m == nil || m.state == nil {
		return nil, ErrNilState
	}
	deposit, found, err := m.state.GetDeposit(denom, depositor)
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	return m.collateralGain(denom, deposit)
}

// CompoundedStake exposes the current withdrawable stake without mutating
// state.
func (m *Manager) CompoundedStake(denom string, depositor crypto.Address) (*big.Int, error) {
	if m == nil || m.state == nil {
		return nil, ErrNilState
	}
	deposit, found, err := m.state.GetDeposit(denom, depositor)
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	pool, err := m.state.GetPool(denom)
	if err != nil {
		return nil, err
	}
	return m.compoundedStake(deposit, pool)
}

// mulDivFloor returns a*b/den, flooring. Floor is the uniform rounding policy
// for distribution math: under-distribute rather than over-distribute.
func mulDivFloor(a, b, den *big.Int) *big.Int {
	if a == nil || b == nil || den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}
