package stability

import (
	"fmt"
	"math/big"

	"zusdchain/crypto"
)

// stateKV abstracts the subset of state manager functionality required by the
// stability pool.
type stateKV interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var (
	poolPrefix    = []byte("stability/pool/")
	depositPrefix = []byte("stability/deposit/")
	sumPrefix     = []byte("stability/sum/")
)

func poolKey(denom string) []byte {
	return append(append([]byte(nil), poolPrefix...), []byte(denom)...)
}

func depositKey(denom string, owner crypto.Address) []byte {
	return []byte(fmt.Sprintf("%s%s/%x", depositPrefix, denom, owner.Bytes()))
}

func sumKey(denom string, epoch, scale uint64) []byte {
	return []byte(fmt.Sprintf("%s%s/%d/%d", sumPrefix, denom, epoch, scale))
}

type storedPool struct {
	Denom        string
	TotalStake   *big.Int
	P            *big.Int
	CurrentEpoch uint64
	CurrentScale uint64
}

type storedDeposit struct {
	Owner         []byte
	OwnerPrefix   string
	Amount        *big.Int
	SnapshotP     *big.Int
	SnapshotS     *big.Int
	SnapshotEpoch uint64
	SnapshotScale uint64
}

type storedSum struct {
	Value *big.Int
}

// State persists pool singletons, deposits and the epoch/scale sum series.
type State struct {
	kv stateKV
}

// NewState constructs a stability state store bound to the provided backend.
func NewState(kv stateKV) *State {
	return &State{kv: kv}
}

// GetPool loads the pool for a denom, returning a fresh pool (P=1) when none
// has been written yet.
func (s *State) GetPool(denom string) (*Pool, error) {
	if s == nil || s.kv == nil {
		return nil, ErrNilState
	}
	var stored storedPool
	found, err := s.kv.KVGet(poolKey(denom), &stored)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Pool{
			Denom:      denom,
			TotalStake: big.NewInt(0),
			P:          new(big.Int).Set(productScale),
		}, nil
	}
	pool := &Pool{
		Denom:        denom,
		TotalStake:   bigOrZero(stored.TotalStake),
		P:            bigOrZero(stored.P),
		CurrentEpoch: stored.CurrentEpoch,
		CurrentScale: stored.CurrentScale,
	}
	if pool.P.Sign() == 0 {
		pool.P = new(big.Int).Set(productScale)
	}
	return pool, nil
}

// PutPool persists the pool record.
func (s *State) PutPool(pool *Pool) error {
	if s == nil || s.kv == nil {
		return ErrNilState
	}
	stored := storedPool{
		Denom:        pool.Denom,
		TotalStake:   bigOrZero(pool.TotalStake),
		P:            bigOrZero(pool.P),
		CurrentEpoch: pool.CurrentEpoch,
		CurrentScale: pool.CurrentScale,
	}
	return s.kv.KVPut(poolKey(pool.Denom), &stored)
}

// GetDeposit loads a depositor's position in the denom pool.
func (s *State) GetDeposit(denom string, owner crypto.Address) (*Deposit, bool, error) {
	if s == nil || s.kv == nil {
		return nil, false, ErrNilState
	}
	var stored storedDeposit
	found, err := s.kv.KVGet(depositKey(denom, owner), &stored)
	if err != nil || !found {
		return nil, false, err
	}
	return &Deposit{
		Owner:         crypto.NewAddress(crypto.AddressPrefix(stored.OwnerPrefix), stored.Owner),
		Amount:        bigOrZero(stored.Amount),
		SnapshotP:     bigOrZero(stored.SnapshotP),
		SnapshotS:     bigOrZero(stored.SnapshotS),
		SnapshotEpoch: stored.SnapshotEpoch,
		SnapshotScale: stored.SnapshotScale,
	}, true, nil
}

// PutDeposit persists a depositor's position.
func (s *State) PutDeposit(denom string, deposit *Deposit) error {
	if s == nil || s.kv == nil {
		return ErrNilState
	}
	stored := storedDeposit{
		Owner:         deposit.Owner.Bytes(),
		OwnerPrefix:   string(deposit.Owner.Prefix()),
		Amount:        bigOrZero(deposit.Amount),
		SnapshotP:     bigOrZero(deposit.SnapshotP),
		SnapshotS:     bigOrZero(deposit.SnapshotS),
		SnapshotEpoch: deposit.SnapshotEpoch,
		SnapshotScale: deposit.SnapshotScale,
	}
	return s.kv.KVPut(depositKey(denom, deposit.Owner), &stored)
}

// DeleteDeposit removes a depositor's position.
func (s *State) DeleteDeposit(denom string, owner crypto.Address) error {
	if s == nil || s.kv == nil {
		return ErrNilState
	}
	return s.kv.KVDelete(depositKey(denom, owner))
}

// GetSum loads the S accumulator for an epoch/scale pair, zero when unset.
func (s *State) GetSum(denom string, epoch, scale uint64) (*big.Int, error) {
	if s == nil || s.kv == nil {
		return nil, ErrNilState
	}
	var stored storedSum
	found, err := s.kv.KVGet(sumKey(denom, epoch, scale), &stored)
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	return bigOrZero(stored.Value), nil
}

// PutSum persists the S accumulator for an epoch/scale pair.
func (s *State) PutSum(denom string, epoch, scale uint64, value *big.Int) error {
	if s == nil || s.kv == nil {
		return ErrNilState
	}
	return s.kv.KVPut(sumKey(denom, epoch, scale), &storedSum{Value: bigOrZero(value)})
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
