package events

import (
	"math/big"

	"github.com/google/uuid"
)

// NewReceiptID returns a unique identifier attached to liquidation batches and
// redemption receipts so indexers can correlate the per-trove events.
func NewReceiptID() string {
	return uuid.NewString()
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
