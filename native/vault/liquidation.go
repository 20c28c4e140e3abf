package vault

import (
	"math/big"

	"zusdchain/core/events"
	"zusdchain/core/pricing"
	"zusdchain/crypto"
	"zusdchain/native/common"
)

// liquidationPlan is the precomputed outcome for a single trove in a batch.
// The plan phase computes every amount on copies of stored state; the apply
// phase only executes what the plan recorded, so a validation failure
// anywhere in the batch moves no funds.
type liquidationPlan struct {
	trove          *Trove
	covered        *big.Int
	uncovered      *big.Int
	collToPool     *big.Int
	collRemainder  *big.Int
	collPerUnitInc *big.Int
	debtPerUnitInc *big.Int
}

// Liquidate closes a single undercollateralized trove.
func (e *Engine) Liquidate(caller crypto.Address, denom string, owner crypto.Address) error {
	return e.LiquidateMany(caller, denom, []crypto.Address{owner})
}

// LiquidateMany processes a batch of troves atomically. Each trove's debt is
// covered by the stability pool up to the pool's stake at that point in the
// batch; exactly the covered amount of stablecoin is burned from the pool
// treasury, never more. Uncovered debt and the matching collateral remainder
// are redistributed pro rata to the remaining open troves of the denom via
// the per-unit-staked accumulators.
func (e *Engine) LiquidateMany(caller crypto.Address, denom string, owners []crypto.Address) (err error) {
	start := e.now()
	defer func() { e.observe("liquidate", start, err) }()

	if e == nil || e.state == nil || e.ledger == nil || e.pool == nil {
		return ErrNilState
	}
	if err = common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if len(owners) == 0 {
		return ErrEmptyBatch
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	quote, err := e.quote(denom)
	if err != nil {
		return err
	}
	acc, err := e.state.GetAccumulator(denom)
	if err != nil {
		return err
	}
	poolStake, err := e.pool.TotalStake(denom)
	if err != nil {
		return err
	}

	plans, err := e.planLiquidations(denom, owners, quote, acc, poolStake)
	if err != nil {
		return err
	}
	return e.executeLiquidations(denom, acc, plans)
}

// planLiquidations validates every trove in the batch and computes the
// coverage split for each without touching stored state.
func (e *Engine) planLiquidations(denom string, owners []crypto.Address, quote pricing.PriceQuote, acc *RedistributionAccumulator, poolStake *big.Int) ([]liquidationPlan, error) {
	seen := make(map[string]struct{}, len(owners))
	troves := make([]*Trove, 0, len(owners))
	batchColl := big.NewInt(0)
	for _, owner := range owners {
		key := string(owner.Bytes())
		if _, dup := seen[key]; dup {
			return nil, ErrDuplicateTrove
		}
		seen[key] = struct{}{}

		stored, found, err := e.state.GetTrove(denom, owner)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ErrTroveNotFound
		}
		if stored.CollateralDenom != denom {
			return nil, ErrDenomMismatch
		}
		trove := stored.Clone()
		applyPendingRewards(trove, acc)

		icr, err := troveICR(trove, quote, e.params.TargetDecimals)
		if err != nil {
			return nil, err
		}
		if icr.Cmp(e.params.MinCollateralRatio) >= 0 {
			return nil, ErrTroveNotLiquidatable
		}
		troves = append(troves, trove)
		batchColl.Add(batchColl, trove.Collateral)
	}

	// Redistribution base: every batch trove is removed before any remainder
	// is spread, so a trove being liquidated never receives debt from an
	// earlier entry in the same batch.
	baseColl := new(big.Int).Sub(acc.TotalCollateral, batchColl)
	stakeLeft := new(big.Int).Set(bigOrZero(poolStake))

	plans := make([]liquidationPlan, 0, len(troves))
	for _, trove := range troves {
		covered := new(big.Int).Set(trove.Debt)
		if covered.Cmp(stakeLeft) > 0 {
			covered.Set(stakeLeft)
		}
		uncovered := new(big.Int).Sub(trove.Debt, covered)
		stakeLeft.Sub(stakeLeft, covered)

		collToPool := mulDiv(trove.Collateral, covered, trove.Debt)
		collRemainder := new(big.Int).Sub(trove.Collateral, collToPool)

		plan := liquidationPlan{
			trove:          trove,
			covered:        covered,
			uncovered:      uncovered,
			collToPool:     collToPool,
			collRemainder:  collRemainder,
			collPerUnitInc: big.NewInt(0),
			debtPerUnitInc: big.NewInt(0),
		}
		if uncovered.Sign() > 0 {
			if baseColl.Sign() <= 0 {
				return nil, ErrNoRedistributionTarget
			}
			plan.collPerUnitInc = mulDiv(collRemainder, rewardScale, baseColl)
			plan.debtPerUnitInc = mulDiv(uncovered, rewardScale, baseColl)
			// Redistributed collateral joins the base for later entries: the
			// earlier trove is closed by then and its collateral belongs to
			// the survivors.
			baseColl.Add(baseColl, collRemainder)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// executeLiquidations performs the fund movements and state writes recorded
// in the plan.
func (e *Engine) executeLiquidations(denom string, acc *RedistributionAccumulator, plans []liquidationPlan) error {
	receiptID := events.NewReceiptID()
	poolTreasury := e.pool.Treasury()

	for _, plan := range plans {
		trove := plan.trove
		if plan.covered.Sign() > 0 {
			if err := e.ledger.Burn(e.stableDenom, poolTreasury, plan.covered); err != nil {
				return err
			}
			if plan.collToPool.Sign() > 0 {
				if err := e.ledger.Transfer(denom, e.treasury, poolTreasury, plan.collToPool); err != nil {
					return err
				}
			}
			if err := e.pool.Offset(denom, plan.covered, plan.collToPool); err != nil {
				return err
			}
		}

		acc.TotalCollateral = new(big.Int).Sub(acc.TotalCollateral, trove.Collateral)
		acc.TotalDebt = new(big.Int).Sub(acc.TotalDebt, trove.Debt)
		if acc.TroveCount > 0 {
			acc.TroveCount--
		}
		if plan.uncovered.Sign() > 0 {
			acc.CollateralPerUnitStaked = new(big.Int).Add(acc.CollateralPerUnitStaked, plan.collPerUnitInc)
			acc.DebtPerUnitStaked = new(big.Int).Add(acc.DebtPerUnitStaked, plan.debtPerUnitInc)
			acc.TotalCollateral = new(big.Int).Add(acc.TotalCollateral, plan.collRemainder)
			acc.TotalDebt = new(big.Int).Add(acc.TotalDebt, plan.uncovered)
		}

		if err := e.state.DeleteTrove(denom, trove.Owner); err != nil {
			return err
		}

		e.emitter.Emit(events.TroveLiquidated{
			Owner:            trove.Owner,
			Denom:            denom,
			Covered:          plan.covered,
			Uncovered:        plan.uncovered,
			CollateralSeized: trove.Collateral,
			ReceiptID:        receiptID,
		})
		if e.metrics != nil {
			e.metrics.RecordLiquidation(denom, plan.covered, plan.uncovered)
		}
	}
	return e.state.PutAccumulator(acc)
}
