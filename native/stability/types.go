package stability

import (
	"math/big"

	"zusdchain/crypto"
)

// Pool is the per-collateral-denom global state of the stability pool.
// TotalStake tracks the aggregate deposit value after offsets; P is the
// running product factor (1e18 scaled, starts at 1e18) and decays with each
// partial offset. Epoch and scale identify which era of the product/sum
// sequence is current.
type Pool struct {
	Denom        string
	TotalStake   *big.Int
	P            *big.Int
	CurrentEpoch uint64
	CurrentScale uint64
}

// Deposit is a depositor's position. The withdrawable stake and collateral
// gain are derivable from global state plus these snapshots alone; no
// per-depositor work happens during a liquidation.
type Deposit struct {
	Owner crypto.Address
	// Amount is the deposit value at snapshot time.
	Amount *big.Int
	// SnapshotP is the product factor at deposit time.
	SnapshotP *big.Int
	// SnapshotS is the sum factor of the snapshot epoch/scale at deposit time.
	SnapshotS *big.Int
	// SnapshotEpoch and SnapshotScale tag which era the snapshot belongs to.
	// The product can underflow toward zero and be rescaled, so the scale tag
	// is needed to interpret SnapshotP; a newer epoch means the deposit was
	// fully consumed by a pool-wiping offset.
	SnapshotEpoch uint64
	SnapshotScale uint64
}

// Clone returns a deep copy of the deposit.
func (d *Deposit) Clone() *Deposit {
	if d == nil {
		return nil
	}
	clone := *d
	if d.Amount != nil {
		clone.Amount = new(big.Int).Set(d.Amount)
	}
	if d.SnapshotP != nil {
		clone.SnapshotP = new(big.Int).Set(d.SnapshotP)
	}
	if d.SnapshotS != nil {
		clone.SnapshotS = new(big.Int).Set(d.SnapshotS)
	}
	return &clone
}
