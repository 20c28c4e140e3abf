package common

import (
	"errors"
	"math"
	"testing"
)

func TestCheckQuotaResetsOnNewEpoch(t *testing.T) {
	q := Quota{MaxRequestsPerMin: 2, MaxStablePerEpoch: 100, EpochSeconds: 60}
	now := QuotaNow{ReqCount: 2, StableUsed: 100, EpochID: 1}

	if _, err := CheckQuota(q, 1, now, 1, 0); !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("same epoch: got %v, want ErrQuotaRequestsExceeded", err)
	}

	next, err := CheckQuota(q, 2, now, 1, 50)
	if err != nil {
		t.Fatalf("new epoch: %v", err)
	}
	if next.ReqCount != 1 || next.StableUsed != 50 || next.EpochID != 2 {
		t.Fatalf("counters = %+v", next)
	}
}

func TestCheckQuotaStableCap(t *testing.T) {
	q := Quota{MaxStablePerEpoch: 100}
	now := QuotaNow{StableUsed: 60}
	if _, err := CheckQuota(q, 0, now, 0, 41); !errors.Is(err, ErrQuotaMintCapExceeded) {
		t.Fatalf("got %v, want ErrQuotaMintCapExceeded", err)
	}
	next, err := CheckQuota(q, 0, now, 0, 40)
	if err != nil {
		t.Fatalf("within cap: %v", err)
	}
	if next.StableUsed != 100 {
		t.Fatalf("stable used = %d, want 100", next.StableUsed)
	}
}

func TestCheckQuotaOverflow(t *testing.T) {
	q := Quota{MaxStablePerEpoch: 0}
	now := QuotaNow{StableUsed: math.MaxUint64}
	if _, err := CheckQuota(q, 0, now, 0, 1); !errors.Is(err, ErrQuotaCounterOverflow) {
		t.Fatalf("got %v, want ErrQuotaCounterOverflow", err)
	}
}

type pauseMap map[string]bool

func (p pauseMap) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, "vault"); err != nil {
		t.Fatalf("nil view: %v", err)
	}
	if err := Guard(pauseMap{"vault": true}, "vault"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("paused: got %v, want ErrModulePaused", err)
	}
	if err := Guard(pauseMap{"vault": true}, "stability"); err != nil {
		t.Fatalf("other module: %v", err)
	}
}
