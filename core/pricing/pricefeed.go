package pricing

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	cerrs "zusdchain/core/errors"
)

// ErrPriceUnavailable is returned whenever a usable quote cannot be produced.
// The engine treats it as fatal to the calling operation; there is no stale
// fallback inside the core.
var ErrPriceUnavailable = cerrs.New(cerrs.KindResource, "pricing: price unavailable")

// PriceStatus captures the health classification assigned to an oracle quote.
type PriceStatus string

const (
	// PriceStatusOK indicates the quote passed all configured guardrails.
	PriceStatusOK PriceStatus = "ok"
	// PriceStatusStale signals the quote exceeded the configured freshness window.
	PriceStatusStale PriceStatus = "stale"
)

// PriceQuote is the oracle response for one collateral denom. The quoted
// price is Price × 10^Exponent stablecoin units per whole collateral token;
// TokenDecimals describes the collateral's own base-unit precision so ratio
// math can normalise both sides to a single convention.
type PriceQuote struct {
	Price         *big.Int
	Exponent      int32
	TokenDecimals uint8
	Timestamp     time.Time
}

// PriceOracle resolves the latest quote for a collateral denom.
type PriceOracle interface {
	GetPrice(denom string) (PriceQuote, error)
}

// GuardedFeed wraps an oracle with a freshness window. Quotes older than the
// window are rejected rather than classified and passed through: the engine
// must never compute ratios from stale data.
type GuardedFeed struct {
	oracle PriceOracle
	maxAge time.Duration
	nowFn  func() time.Time
}

// NewGuardedFeed constructs the canonical feed backed by the supplied oracle.
// A zero maxAge disables the freshness check.
func NewGuardedFeed(oracle PriceOracle, maxAge time.Duration) (*GuardedFeed, error) {
	if oracle == nil {
		return nil, fmt.Errorf("pricing: oracle required")
	}
	return &GuardedFeed{oracle: oracle, maxAge: maxAge, nowFn: time.Now}, nil
}

// SetNowFunc overrides the clock used for freshness checks in tests.
func (f *GuardedFeed) SetNowFunc(now func() time.Time) {
	if f == nil || now == nil {
		return
	}
	f.nowFn = now
}

// GetPrice resolves the guarded quote for the denom.
func (f *GuardedFeed) GetPrice(denom string) (PriceQuote, error) {
	if f == nil || f.oracle == nil {
		return PriceQuote{}, ErrPriceUnavailable
	}
	denom = strings.TrimSpace(denom)
	if denom == "" {
		return PriceQuote{}, ErrPriceUnavailable
	}
	quote, err := f.oracle.GetPrice(denom)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return PriceQuote{}, fmt.Errorf("%w: non-positive rate for %s", ErrPriceUnavailable, denom)
	}
	if f.maxAge > 0 {
		now := f.nowFn().UTC()
		observed := quote.Timestamp.UTC()
		if observed.IsZero() || now.Sub(observed) > f.maxAge {
			return PriceQuote{}, fmt.Errorf("%w: quote for %s is %s", ErrPriceUnavailable, denom, PriceStatusStale)
		}
	}
	return quote, nil
}
