package vault

import (
	"math/big"

	"zusdchain/core/events"
	"zusdchain/crypto"
	"zusdchain/native/common"
)

// redemptionPlan is the precomputed outcome for a single trove in a
// redemption pass.
type redemptionPlan struct {
	trove         *Trove
	debtRedeemed  *big.Int
	collateralOut *big.Int
	closed        bool
}

// Redeem burns the caller's stablecoin against the supplied troves in
// exchange for collateral at par value. The trove list must be ordered by
// ascending collateral ratio as recomputed from current state; the riskiest
// troves are redeemed against first. Troves whose debt is fully redeemed are
// closed and their leftover collateral returned to their owners. Returns the
// amount of stablecoin actually redeemed, which may be less than requested
// when the listed troves carry less total debt.
func (e *Engine) Redeem(caller crypto.Address, denom string, amount *big.Int, troves []crypto.Address) (redeemed *big.Int, err error) {
	start := e.now()
	defer func() { e.observe("redeem", start, err) }()

	if e == nil || e.state == nil || e.ledger == nil {
		return nil, ErrNilState
	}
	if err = common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(troves) == 0 {
		return nil, ErrEmptyBatch
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	quote, err := e.quote(denom)
	if err != nil {
		return nil, err
	}
	acc, err := e.state.GetAccumulator(denom)
	if err != nil {
		return nil, err
	}

	plans := make([]redemptionPlan, 0, len(troves))
	seen := make(map[string]struct{}, len(troves))
	remaining := new(big.Int).Set(amount)
	var prevICR *big.Int
	for _, owner := range troves {
		key := string(owner.Bytes())
		if _, dup := seen[key]; dup {
			return nil, ErrDuplicateTrove
		}
		seen[key] = struct{}{}

		stored, found, ferr := e.state.GetTrove(denom, owner)
		if ferr != nil {
			return nil, ferr
		}
		if !found {
			return nil, ErrTroveNotFound
		}
		if stored.CollateralDenom != denom {
			return nil, ErrDenomMismatch
		}
		trove := stored.Clone()
		applyPendingRewards(trove, acc)

		icr, ierr := troveICR(trove, quote, e.params.TargetDecimals)
		if ierr != nil {
			return nil, ierr
		}
		if prevICR != nil && icr.Cmp(prevICR) < 0 {
			return nil, ErrInvalidRedemptionOrder
		}
		prevICR = icr

		if remaining.Sign() == 0 {
			continue
		}
		debtRedeemed := new(big.Int).Set(remaining)
		if debtRedeemed.Cmp(trove.Debt) > 0 {
			debtRedeemed.Set(trove.Debt)
		}
		collateralOut, cerr := collateralFromValue(debtRedeemed, quote, e.params.TargetDecimals)
		if cerr != nil {
			return nil, cerr
		}
		if collateralOut.Cmp(trove.Collateral) > 0 {
			return nil, ErrInsufficientVaultBalance
		}
		remaining.Sub(remaining, debtRedeemed)

		closed := debtRedeemed.Cmp(trove.Debt) == 0
		trove.Debt = new(big.Int).Sub(trove.Debt, debtRedeemed)
		trove.Collateral = new(big.Int).Sub(trove.Collateral, collateralOut)
		plans = append(plans, redemptionPlan{trove: trove, debtRedeemed: debtRedeemed, collateralOut: collateralOut, closed: closed})
	}

	redeemed = new(big.Int).Sub(amount, remaining)
	if redeemed.Sign() == 0 {
		return nil, ErrNothingToRedeem
	}

	if err = e.ledger.Burn(e.stableDenom, caller, redeemed); err != nil {
		return nil, err
	}

	receiptID := events.NewReceiptID()
	for _, plan := range plans {
		trove := plan.trove
		if plan.collateralOut.Sign() > 0 {
			if err = e.ledger.Transfer(denom, e.treasury, caller, plan.collateralOut); err != nil {
				return nil, err
			}
		}
		if plan.closed {
			if trove.Collateral.Sign() > 0 {
				if err = e.ledger.Transfer(denom, e.treasury, trove.Owner, trove.Collateral); err != nil {
					return nil, err
				}
			}
			acc.TotalCollateral = new(big.Int).Sub(acc.TotalCollateral, new(big.Int).Add(plan.collateralOut, trove.Collateral))
			acc.TotalDebt = new(big.Int).Sub(acc.TotalDebt, plan.debtRedeemed)
			if acc.TroveCount > 0 {
				acc.TroveCount--
			}
			if err = e.state.DeleteTrove(denom, trove.Owner); err != nil {
				return nil, err
			}
		} else {
			acc.TotalCollateral = new(big.Int).Sub(acc.TotalCollateral, plan.collateralOut)
			acc.TotalDebt = new(big.Int).Sub(acc.TotalDebt, plan.debtRedeemed)
			if err = e.state.PutTrove(trove); err != nil {
				return nil, err
			}
		}

		e.emitter.Emit(events.TroveRedeemed{
			Owner:         trove.Owner,
			Redeemer:      caller,
			Denom:         denom,
			DebtRedeemed:  plan.debtRedeemed,
			CollateralOut: plan.collateralOut,
			Closed:        plan.closed,
			ReceiptID:     receiptID,
		})
	}
	if err = e.state.PutAccumulator(acc); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordRedemption(denom, redeemed)
	}
	return redeemed, nil
}
