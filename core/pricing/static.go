package pricing

import (
	"sync"
	"time"
)

// StaticFeed serves operator-configured quotes. Quotes are stamped at set
// time, so a GuardedFeed wrapping a static feed still enforces freshness when
// the operator stops refreshing prices.
type StaticFeed struct {
	mu     sync.RWMutex
	quotes map[string]PriceQuote
	nowFn  func() time.Time
}

// NewStaticFeed constructs an empty static feed.
func NewStaticFeed() *StaticFeed {
	return &StaticFeed{quotes: make(map[string]PriceQuote), nowFn: time.Now}
}

// SetNowFunc overrides the clock used to stamp quotes in tests.
func (f *StaticFeed) SetNowFunc(now func() time.Time) {
	if f == nil || now == nil {
		return
	}
	f.mu.Lock()
	f.nowFn = now
	f.mu.Unlock()
}

// SetQuote installs or refreshes the quote for a denom. A zero timestamp is
// stamped with the current time.
func (f *StaticFeed) SetQuote(denom string, quote PriceQuote) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if quote.Timestamp.IsZero() {
		quote.Timestamp = f.nowFn()
	}
	f.quotes[denom] = quote
}

// GetPrice satisfies PriceOracle.
func (f *StaticFeed) GetPrice(denom string) (PriceQuote, error) {
	if f == nil {
		return PriceQuote{}, ErrPriceUnavailable
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	quote, ok := f.quotes[denom]
	if !ok {
		return PriceQuote{}, ErrPriceUnavailable
	}
	return quote, nil
}
