package vault

import (
	"math/big"

	"zusdchain/crypto"
)

// Trove is a single user's collateral and debt position. Amount values are in
// base units and expressed as big integers to keep accounting deterministic.
type Trove struct {
	// Owner is the principal that opened the trove.
	Owner crypto.Address
	// CollateralDenom identifies which registered collateral type the trove
	// is denominated in.
	CollateralDenom string
	// Collateral is the locked collateral amount in base units.
	Collateral *big.Int
	// Debt is the outstanding stablecoin debt, always including the
	// origination fee charged at open or borrow time.
	Debt *big.Int
	// CollateralRewardSnapshot records the global collateral-per-unit
	// accumulator value at the trove's last sync, so rewards accrued before
	// the trove existed are never applied retroactively.
	CollateralRewardSnapshot *big.Int
	// DebtRewardSnapshot is the debt-per-unit accumulator snapshot.
	DebtRewardSnapshot *big.Int
}

// Clone returns a deep copy of the trove.
func (t *Trove) Clone() *Trove {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Collateral != nil {
		clone.Collateral = new(big.Int).Set(t.Collateral)
	}
	if t.Debt != nil {
		clone.Debt = new(big.Int).Set(t.Debt)
	}
	if t.CollateralRewardSnapshot != nil {
		clone.CollateralRewardSnapshot = new(big.Int).Set(t.CollateralRewardSnapshot)
	}
	if t.DebtRewardSnapshot != nil {
		clone.DebtRewardSnapshot = new(big.Int).Set(t.DebtRewardSnapshot)
	}
	return &clone
}

// RedistributionAccumulator tracks pending collateral and debt rewards from
// redistributed troves for one collateral denom, plus the aggregate totals the
// per-unit math divides over. Per-unit values are 1e18 scaled.
type RedistributionAccumulator struct {
	Denom string
	// CollateralPerUnitStaked accumulates redistributed collateral per unit
	// of trove collateral.
	CollateralPerUnitStaked *big.Int
	// DebtPerUnitStaked accumulates redistributed debt per unit of trove
	// collateral.
	DebtPerUnitStaked *big.Int
	// TotalCollateral is the effective collateral across all open troves of
	// the denom, pending rewards included.
	TotalCollateral *big.Int
	// TotalDebt is the effective stablecoin debt across all open troves.
	TotalDebt *big.Int
	// TroveCount is the number of open troves for the denom.
	TroveCount uint64
}

// NeighborHints carries the caller-supplied placement for the externally
// maintained ICR ordering. Hints are mandatory on every operation that moves
// an ordering-relevant field; nil entries represent the list head or tail.
type NeighborHints struct {
	Prev *crypto.Address
	Next *crypto.Address
}

// RiskParameters groups the protocol safety limits governing trove activity.
type RiskParameters struct {
	// MinCollateralRatio is the liquidation threshold in micro-percent
	// (percentage times 1e6, so 115% is 115_000_000).
	MinCollateralRatio *big.Int
	// OriginationFeeBps is charged on newly minted debt and folded into the
	// trove's debt amount, expressed in basis points.
	OriginationFeeBps uint64
	// TargetDecimals is the canonical precision collateral values are
	// normalised to; it matches the stablecoin's base-unit precision.
	TargetDecimals uint8
}

// Clone returns a copy safe to hold past the setter call.
func (p RiskParameters) Clone() RiskParameters {
	clone := p
	if p.MinCollateralRatio != nil {
		clone.MinCollateralRatio = new(big.Int).Set(p.MinCollateralRatio)
	}
	return clone
}
