package vault

import (
	"math/big"

	cerrs "zusdchain/core/errors"
	"zusdchain/core/pricing"
)

var (
	// icrScale places ratios in the micro-percent convention: 100% == 1e8.
	// MCR values are stored in the same convention so eligibility checks are
	// plain integer comparisons.
	icrScale = big.NewInt(100_000_000)
	// rewardScale is the 1e18 precision used by the redistribution
	// accumulators and the stability pool product factor.
	rewardScale = mustBigInt("1000000000000000000")
)

var (
	ErrZeroDebtDivision = cerrs.New(cerrs.KindArithmetic, "vault: division by zero debt")
	ErrNegativeValue    = cerrs.New(cerrs.KindArithmetic, "vault: negative value in fixed-point math")
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}

// collateralValue normalises a collateral amount to the canonical stablecoin
// precision using the oracle quote. The quoted price is Price * 10^Exponent,
// so the base-unit conversion divides by
//
//	10^(token_decimals - price_exponent - target_decimals)
//
// Floor division throughout; a negative adjusted exponent multiplies instead.
func collateralValue(amount *big.Int, quote pricing.PriceQuote, targetDecimals uint8) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, pricing.ErrPriceUnavailable
	}
	value := new(big.Int).Mul(amount, quote.Price)
	adjusted := int(quote.TokenDecimals) - int(quote.Exponent) - int(targetDecimals)
	if adjusted > 0 {
		value.Quo(value, pow10(adjusted))
	} else if adjusted < 0 {
		value.Mul(value, pow10(-adjusted))
	}
	return value, nil
}

// collateralFromValue is the inverse mapping used by redemption: it converts
// a stablecoin value back into collateral base units at the quoted price.
func collateralFromValue(value *big.Int, quote pricing.PriceQuote, targetDecimals uint8) (*big.Int, error) {
	if value == nil || value.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, pricing.ErrPriceUnavailable
	}
	adjusted := int(quote.TokenDecimals) - int(quote.Exponent) - int(targetDecimals)
	amount := new(big.Int).Set(value)
	if adjusted > 0 {
		amount.Mul(amount, pow10(adjusted))
	} else if adjusted < 0 {
		amount.Quo(amount, pow10(-adjusted))
	}
	return amount.Quo(amount, quote.Price), nil
}

// computeICR returns the individual collateral ratio in micro-percent. A zero
// or negative debt is an arithmetic error, never a sentinel ratio.
func computeICR(collValue, debt *big.Int) (*big.Int, error) {
	if debt == nil || debt.Sign() <= 0 {
		return nil, ErrZeroDebtDivision
	}
	if collValue == nil || collValue.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	icr := new(big.Int).Mul(collValue, icrScale)
	return icr.Quo(icr, debt), nil
}

// troveICR computes the ratio for a trove's current collateral and debt at
// the supplied quote.
func troveICR(trove *Trove, quote pricing.PriceQuote, targetDecimals uint8) (*big.Int, error) {
	value, err := collateralValue(trove.Collateral, quote, targetDecimals)
	if err != nil {
		return nil, err
	}
	return computeICR(value, trove.Debt)
}

// mulDiv returns a*b/den with floor rounding, the uniform policy for all
// reward and redemption distribution math.
func mulDiv(a, b, den *big.Int) *big.Int {
	if a == nil || b == nil || den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}
