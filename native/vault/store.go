package vault

import (
	"fmt"
	"math/big"

	"zusdchain/crypto"
	"zusdchain/native/common"
)

// stateKV abstracts the subset of state manager functionality required by the
// trove store.
type stateKV interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var (
	trovePrefix = []byte("vault/trove/")
	accPrefix   = []byte("vault/acc/")
	quotaPrefix = []byte("vault/quota/")
)

func troveKey(denom string, owner crypto.Address) []byte {
	return []byte(fmt.Sprintf("%s%s/%x", trovePrefix, denom, owner.Bytes()))
}

func accKey(denom string) []byte {
	return append(append([]byte(nil), accPrefix...), []byte(denom)...)
}

func quotaKey(addr crypto.Address) []byte {
	return []byte(fmt.Sprintf("%s%x", quotaPrefix, addr.Bytes()))
}

type storedTrove struct {
	Owner              []byte
	OwnerPrefix        string
	CollateralDenom    string
	Collateral         *big.Int
	Debt               *big.Int
	CollateralSnapshot *big.Int
	DebtSnapshot       *big.Int
}

type storedAccumulator struct {
	Denom             string
	CollateralPerUnit *big.Int
	DebtPerUnit       *big.Int
	TotalCollateral   *big.Int
	TotalDebt         *big.Int
	TroveCount        uint64
}

type storedQuota struct {
	ReqCount   uint32
	StableUsed uint64
	EpochID    uint64
}

// State persists troves and redistribution accumulators through the shared
// key-value manager.
type State struct {
	kv stateKV
}

// NewState constructs a vault state store bound to the provided backend.
func NewState(kv stateKV) *State {
	return &State{kv: kv}
}

// GetTrove loads the trove keyed by (denom, owner).
func (s *State) GetTrove(denom string, owner crypto.Address) (*Trove, bool, error) {
	if s == nil || s.kv == nil {
		return nil, false, ErrNilState
	}
	var stored storedTrove
	found, err := s.kv.KVGet(troveKey(denom, owner), &stored)
	if err != nil || !found {
		return nil, false, err
	}
	trove := &Trove{
		Owner:                    crypto.NewAddress(crypto.AddressPrefix(stored.OwnerPrefix), stored.Owner),
		CollateralDenom:          stored.CollateralDenom,
		Collateral:               bigOrZero(stored.Collateral),
		Debt:                     bigOrZero(stored.Debt),
		CollateralRewardSnapshot: bigOrZero(stored.CollateralSnapshot),
		DebtRewardSnapshot:       bigOrZero(stored.DebtSnapshot),
	}
	return trove, true, nil
}

// PutTrove persists the trove record.
func (s *State) PutTrove(trove *Trove) error {
	if s == nil || s.kv == nil {
		return ErrNilState
	}
	if trove == nil {
		return ErrTroveNotFound
	}
	stored := storedTrove{
		Owner:              trove.Owner.Bytes(),
		OwnerPrefix:        string(trove.Owner.Prefix()),
		CollateralDenom:    trove.CollateralDenom,
		Collateral:         bigOrZero(trove.Collateral),
		Debt:               bigOrZero(trove.Debt),
		CollateralSnapshot: bigOrZero(trove.CollateralRewardSnapshot),
		DebtSnapshot:       bigOrZero(trove.DebtRewardSnapshot),
	}
	return s.kv.KVPut(troveKey(trove.CollateralDenom, trove.Owner), &stored)
}

// DeleteTrove removes the trove record.
func (s *State) DeleteTrove(denom string, owner crypto.Address) error {
	if s == nil || s.kv == nil {
		return ErrNilState
	}
	return s.kv.KVDelete(troveKey(denom, owner))
}

// GetAccumulator loads the redistribution accumulator for a denom, returning
// a zeroed record when none has been written yet.
func (s *State) GetAccumulator(denom string) (*RedistributionAccumulator, error) {
	if s == nil || s.kv == nil {
		return nil, ErrNilState
	}
	var stored storedAccumulator
	found, err := s.kv.KVGet(accKey(denom), &stored)
	if err != nil {
		return nil, err
	}
	if !found {
		return &RedistributionAccumulator{
			Denom:                   denom,
			CollateralPerUnitStaked: big.NewInt(0),
			DebtPerUnitStaked:       big.NewInt(0),
			TotalCollateral:         big.NewInt(0),
			TotalDebt:               big.NewInt(0),
		}, nil
	}
	return &RedistributionAccumulator{
		Denom:                   denom,
		CollateralPerUnitStaked: bigOrZero(stored.CollateralPerUnit),
		DebtPerUnitStaked:       bigOrZero(stored.DebtPerUnit),
		TotalCollateral:         bigOrZero(stored.TotalCollateral),
		TotalDebt:               bigOrZero(stored.TotalDebt),
		TroveCount:              stored.TroveCount,
	}, nil
}

// PutAccumulator persists the accumulator record.
func (s *State) PutAccumulator(acc *RedistributionAccumulator) error {
	if s == nil || s.kv == nil {
		return ErrNilState
	}
	if acc == nil {
		return ErrNilState
	}
	stored := storedAccumulator{
		Denom:             acc.Denom,
		CollateralPerUnit: bigOrZero(acc.CollateralPerUnitStaked),
		DebtPerUnit:       bigOrZero(acc.DebtPerUnitStaked),
		TotalCollateral:   bigOrZero(acc.TotalCollateral),
		TotalDebt:         bigOrZero(acc.TotalDebt),
		TroveCount:        acc.TroveCount,
	}
	return s.kv.KVPut(accKey(acc.Denom), &stored)
}

// GetQuota loads the quota counters for an address.
func (s *State) GetQuota(addr crypto.Address) (common.QuotaNow, error) {
	if s == nil || s.kv == nil {
		return common.QuotaNow{}, ErrNilState
	}
	var stored storedQuota
	if _, err := s.kv.KVGet(quotaKey(addr), &stored); err != nil {
		return common.QuotaNow{}, err
	}
	return common.QuotaNow{ReqCount: stored.ReqCount, StableUsed: stored.StableUsed, EpochID: stored.EpochID}, nil
}

// PutQuota persists the quota counters for an address.
func (s *State) PutQuota(addr crypto.Address, now common.QuotaNow) error {
	if s == nil || s.kv == nil {
		return ErrNilState
	}
	stored := storedQuota{ReqCount: now.ReqCount, StableUsed: now.StableUsed, EpochID: now.EpochID}
	return s.kv.KVPut(quotaKey(addr), &stored)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
