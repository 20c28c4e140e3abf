package events

import (
	"math/big"
	"strconv"

	"zusdchain/core/types"
	"zusdchain/crypto"
)

const (
	// TypeStabilityDeposited captures a stability pool deposit or top-up.
	TypeStabilityDeposited = "stability.deposited"
	// TypeStabilityWithdrawn captures a full withdrawal of stake and gains.
	TypeStabilityWithdrawn = "stability.withdrawn"
	// TypeStabilityOffset records pool state after absorbing liquidated debt.
	TypeStabilityOffset = "stability.offset"
	// TypeStabilityEpochAdvanced signals the pool was fully depleted and the
	// product/sum sequence restarted.
	TypeStabilityEpochAdvanced = "stability.epochAdvanced"
)

// StabilityDeposited captures the depositor's refreshed position.
type StabilityDeposited struct {
	Depositor  crypto.Address
	Denom      string
	Amount     *big.Int
	NewDeposit *big.Int
	GainPaid   *big.Int
}

// EventType satisfies the Event interface.
func (StabilityDeposited) EventType() string { return TypeStabilityDeposited }

// Event converts the structured payload into a broadcastable event.
func (e StabilityDeposited) Event() *types.Event {
	return &types.Event{Type: TypeStabilityDeposited, Attributes: map[string]string{
		"depositor":  e.Depositor.String(),
		"denom":      e.Denom,
		"amount":     formatAmount(e.Amount),
		"newDeposit": formatAmount(e.NewDeposit),
		"gainPaid":   formatAmount(e.GainPaid),
	}}
}

// StabilityWithdrawn captures the compounded stake and collateral gain paid out.
type StabilityWithdrawn struct {
	Depositor      crypto.Address
	Denom          string
	Stake          *big.Int
	CollateralGain *big.Int
}

// EventType satisfies the Event interface.
func (StabilityWithdrawn) EventType() string { return TypeStabilityWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e StabilityWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeStabilityWithdrawn, Attributes: map[string]string{
		"depositor":      e.Depositor.String(),
		"denom":          e.Denom,
		"stake":          formatAmount(e.Stake),
		"collateralGain": formatAmount(e.CollateralGain),
	}}
}

// StabilityOffset records the pool accounting applied for a liquidation.
type StabilityOffset struct {
	Denom          string
	DebtCancelled  *big.Int
	CollateralGain *big.Int
	RemainingStake *big.Int
}

// EventType satisfies the Event interface.
func (StabilityOffset) EventType() string { return TypeStabilityOffset }

// Event converts the structured payload into a broadcastable event.
func (e StabilityOffset) Event() *types.Event {
	return &types.Event{Type: TypeStabilityOffset, Attributes: map[string]string{
		"denom":          e.Denom,
		"debtCancelled":  formatAmount(e.DebtCancelled),
		"collateralGain": formatAmount(e.CollateralGain),
		"remainingStake": formatAmount(e.RemainingStake),
	}}
}

// StabilityEpochAdvanced marks a full-depletion reset of the product sequence.
type StabilityEpochAdvanced struct {
	Denom    string
	NewEpoch uint64
}

// EventType satisfies the Event interface.
func (StabilityEpochAdvanced) EventType() string { return TypeStabilityEpochAdvanced }

// Event converts the structured payload into a broadcastable event.
func (e StabilityEpochAdvanced) Event() *types.Event {
	return &types.Event{Type: TypeStabilityEpochAdvanced, Attributes: map[string]string{
		"denom":    e.Denom,
		"newEpoch": strconv.FormatUint(e.NewEpoch, 10),
	}}
}
