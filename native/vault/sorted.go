package vault

import (
	"math/big"

	"zusdchain/core/pricing"
	"zusdchain/crypto"
)

// validateHints checks the caller-supplied neighbor hints against freshly
// recomputed ratios. The sorted trove index lives off-node; the engine only
// verifies that the claimed insertion position is consistent with current
// state: ICR(prev) >= ICR(target) >= ICR(next). Neighbor ratios are computed
// with pending redistribution rewards folded in, so a hint cannot become
// valid or invalid depending on whether a neighbor happened to be synced.
//
// troveInIndex reports whether the target trove itself is already counted in
// the accumulator's trove count; hints may only be omitted when the target
// would be the sole trove of the denom.
func (e *Engine) validateHints(denom string, owner crypto.Address, icr *big.Int, hints NeighborHints, quote pricing.PriceQuote, acc *RedistributionAccumulator, troveInIndex bool) error {
	others := acc.TroveCount
	if troveInIndex && others > 0 {
		others--
	}
	if hints.Prev == nil && hints.Next == nil {
		if others > 0 {
			return ErrInvalidNeighborHint
		}
		return nil
	}
	if hints.Prev != nil {
		prevICR, err := e.neighborICR(denom, owner, *hints.Prev, quote, acc)
		if err != nil {
			return err
		}
		if prevICR.Cmp(icr) < 0 {
			return ErrInvalidNeighborHint
		}
	}
	if hints.Next != nil {
		nextICR, err := e.neighborICR(denom, owner, *hints.Next, quote, acc)
		if err != nil {
			return err
		}
		if icr.Cmp(nextICR) < 0 {
			return ErrInvalidNeighborHint
		}
	}
	return nil
}

// neighborICR recomputes a hinted neighbor's collateral ratio from stored
// state. The neighbor's stored record is never mutated; pending rewards are
// applied to a copy.
func (e *Engine) neighborICR(denom string, owner, neighbor crypto.Address, quote pricing.PriceQuote, acc *RedistributionAccumulator) (*big.Int, error) {
	if neighbor.Equal(owner) {
		return nil, ErrInvalidNeighborHint
	}
	trove, found, err := e.state.GetTrove(denom, neighbor)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInvalidNeighborHint
	}
	copy := trove.Clone()
	applyPendingRewards(copy, acc)
	return troveICR(copy, quote, e.params.TargetDecimals)
}
