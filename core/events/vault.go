package events

import (
	"math/big"

	"zusdchain/core/types"
	"zusdchain/crypto"
)

const (
	// TypeTroveOpened is emitted when a new trove is created.
	TypeTroveOpened = "vault.troveOpened"
	// TypeTroveUpdated captures collateral or debt adjustments on an open trove.
	TypeTroveUpdated = "vault.troveUpdated"
	// TypeTroveClosed is emitted when a trove is closed by full repayment.
	TypeTroveClosed = "vault.troveClosed"
	// TypeTroveLiquidated records the coverage split of a liquidation.
	TypeTroveLiquidated = "vault.troveLiquidated"
	// TypeTroveRedeemed records stablecoin redeemed against a trove.
	TypeTroveRedeemed = "vault.troveRedeemed"

	// TroveOperationOpen identifies the open flow.
	TroveOperationOpen = "open"
	// TroveOperationAddCollateral identifies collateral top-ups.
	TroveOperationAddCollateral = "addCollateral"
	// TroveOperationRemoveCollateral identifies collateral withdrawals.
	TroveOperationRemoveCollateral = "removeCollateral"
	// TroveOperationBorrow identifies debt increases.
	TroveOperationBorrow = "borrow"
	// TroveOperationRepay identifies debt decreases.
	TroveOperationRepay = "repay"
	// TroveOperationClose identifies full repayment closes.
	TroveOperationClose = "close"
)

// TroveOpened captures the initial position of a newly created trove.
type TroveOpened struct {
	Owner      crypto.Address
	Denom      string
	Collateral *big.Int
	Debt       *big.Int
	Fee        *big.Int
}

// EventType satisfies the Event interface.
func (TroveOpened) EventType() string { return TypeTroveOpened }

// Event converts the structured payload into a broadcastable event.
func (e TroveOpened) Event() *types.Event {
	return &types.Event{Type: TypeTroveOpened, Attributes: map[string]string{
		"owner":      e.Owner.String(),
		"denom":      e.Denom,
		"collateral": formatAmount(e.Collateral),
		"debt":       formatAmount(e.Debt),
		"fee":        formatAmount(e.Fee),
	}}
}

// TroveUpdated captures the post-operation position after an adjustment.
type TroveUpdated struct {
	Owner      crypto.Address
	Denom      string
	Operation  string
	Collateral *big.Int
	Debt       *big.Int
}

// EventType satisfies the Event interface.
func (TroveUpdated) EventType() string { return TypeTroveUpdated }

// Event converts the structured payload into a broadcastable event.
func (e TroveUpdated) Event() *types.Event {
	return &types.Event{Type: TypeTroveUpdated, Attributes: map[string]string{
		"owner":      e.Owner.String(),
		"denom":      e.Denom,
		"operation":  e.Operation,
		"collateral": formatAmount(e.Collateral),
		"debt":       formatAmount(e.Debt),
	}}
}

// TroveClosed is emitted when a trove's debt reaches zero and the record is
// destroyed.
type TroveClosed struct {
	Owner              crypto.Address
	Denom              string
	CollateralReturned *big.Int
	DebtRepaid         *big.Int
}

// EventType satisfies the Event interface.
func (TroveClosed) EventType() string { return TypeTroveClosed }

// Event converts the structured payload into a broadcastable event.
func (e TroveClosed) Event() *types.Event {
	return &types.Event{Type: TypeTroveClosed, Attributes: map[string]string{
		"owner":              e.Owner.String(),
		"denom":              e.Denom,
		"collateralReturned": formatAmount(e.CollateralReturned),
		"debtRepaid":         formatAmount(e.DebtRepaid),
	}}
}

// TroveLiquidated records the observable outcome of a liquidation: the debt
// covered by the stability pool, the debt redistributed to remaining troves,
// and the collateral seized from the trove.
type TroveLiquidated struct {
	Owner            crypto.Address
	Denom            string
	Covered          *big.Int
	Uncovered        *big.Int
	CollateralSeized *big.Int
	ReceiptID        string
}

// EventType satisfies the Event interface.
func (TroveLiquidated) EventType() string { return TypeTroveLiquidated }

// Event converts the structured payload into a broadcastable event.
func (e TroveLiquidated) Event() *types.Event {
	attrs := map[string]string{
		"owner":            e.Owner.String(),
		"denom":            e.Denom,
		"covered":          formatAmount(e.Covered),
		"uncovered":        formatAmount(e.Uncovered),
		"collateralSeized": formatAmount(e.CollateralSeized),
	}
	if e.ReceiptID != "" {
		attrs["receiptId"] = e.ReceiptID
	}
	return &types.Event{Type: TypeTroveLiquidated, Attributes: attrs}
}

// TroveRedeemed records stablecoin burned against a trove in exchange for
// collateral at par value.
type TroveRedeemed struct {
	Owner         crypto.Address
	Redeemer      crypto.Address
	Denom         string
	DebtRedeemed  *big.Int
	CollateralOut *big.Int
	Closed        bool
	ReceiptID     string
}

// EventType satisfies the Event interface.
func (TroveRedeemed) EventType() string { return TypeTroveRedeemed }

// Event converts the structured payload into a broadcastable event.
func (e TroveRedeemed) Event() *types.Event {
	attrs := map[string]string{
		"owner":         e.Owner.String(),
		"redeemer":      e.Redeemer.String(),
		"denom":         e.Denom,
		"debtRedeemed":  formatAmount(e.DebtRedeemed),
		"collateralOut": formatAmount(e.CollateralOut),
	}
	if e.Closed {
		attrs["closed"] = "true"
	}
	if e.ReceiptID != "" {
		attrs["receiptId"] = e.ReceiptID
	}
	return &types.Event{Type: TypeTroveRedeemed, Attributes: attrs}
}
