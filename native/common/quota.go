package common

import (
	"math"

	cerrs "zusdchain/core/errors"
)

var (
	ErrQuotaRequestsExceeded = cerrs.New(cerrs.KindResource, "quota requests exceeded")
	ErrQuotaMintCapExceeded  = cerrs.New(cerrs.KindResource, "quota stablecoin cap exceeded")
	ErrQuotaCounterOverflow  = cerrs.New(cerrs.KindResource, "quota counter overflow")
)

// QuotaNow captures the current quota usage counters for an address.
type QuotaNow struct {
	ReqCount   uint32
	StableUsed uint64
	EpochID    uint64
}

// Quota defines the limits enforced for a module interaction per address.
type Quota struct {
	MaxRequestsPerMin uint32
	MaxStablePerEpoch uint64
	EpochSeconds      uint32
}

// CheckQuota verifies whether the additional request and stablecoin usage fit
// within the configured quota. The returned QuotaNow reflects the updated
// counters when the quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32, addStable uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerMin > 0 && next.ReqCount > q.MaxRequestsPerMin {
		return prev, ErrQuotaRequestsExceeded
	}

	if addStable > 0 {
		if next.StableUsed > math.MaxUint64-addStable {
			return prev, ErrQuotaCounterOverflow
		}
		next.StableUsed += addStable
	}
	if q.MaxStablePerEpoch > 0 && next.StableUsed > q.MaxStablePerEpoch {
		return prev, ErrQuotaMintCapExceeded
	}

	return next, nil
}
