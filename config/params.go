package config

import (
	"fmt"
	"math/big"
	"strings"

	"zusdchain/native/common"
	"zusdchain/native/vault"
)

// MinCollateralRatioMicro converts the configured basis-point ratio into the
// micro-percent convention used by the trove engine (100% == 1e8).
func (c Collateral) MinCollateralRatioMicro() *big.Int {
	micro := new(big.Int).SetUint64(c.MinCollateralRatioBPS)
	return micro.Mul(micro, big.NewInt(10_000))
}

// RiskParameters converts the collateral policy into engine risk parameters.
// targetDecimals is the stablecoin's base-unit precision.
func (c Collateral) RiskParameters(targetDecimals uint8) vault.RiskParameters {
	return vault.RiskParameters{
		MinCollateralRatio: c.MinCollateralRatioMicro(),
		OriginationFeeBps:  c.OriginationFeeBPS,
		TargetDecimals:     targetDecimals,
	}
}

// VaultQuota converts the configured quota into the runtime representation.
func (cfg *Config) VaultQuota() common.Quota {
	if cfg == nil {
		return common.Quota{}
	}
	return common.Quota{
		MaxRequestsPerMin: cfg.Quota.MaxRequestsPerMin,
		MaxStablePerEpoch: cfg.Quota.MaxStablePerEpoch,
		EpochSeconds:      cfg.Quota.EpochSeconds,
	}
}

// ParsedPrice returns the static price as a big integer.
func (p StaticPrice) ParsedPrice() (*big.Int, error) {
	return parseAmount(p.Price)
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty amount")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}
