package config

import (
	"fmt"
	"strings"
)

// ValidateConfig checks the runtime configuration before any state is opened.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.StableDenom) == "" {
		return fmt.Errorf("config: StableDenom empty")
	}
	if cfg.StableDecimals > 18 {
		return fmt.Errorf("config: StableDecimals > 18")
	}
	if len(cfg.Collaterals) == 0 {
		return fmt.Errorf("config: no collaterals configured")
	}
	seen := make(map[string]struct{}, len(cfg.Collaterals))
	for _, coll := range cfg.Collaterals {
		denom := strings.TrimSpace(coll.Denom)
		if denom == "" {
			return fmt.Errorf("config: collateral denom empty")
		}
		if denom == cfg.StableDenom {
			return fmt.Errorf("config: collateral %q collides with stable denom", denom)
		}
		if _, dup := seen[denom]; dup {
			return fmt.Errorf("config: duplicate collateral denom %q", denom)
		}
		seen[denom] = struct{}{}
		if coll.Decimals > 18 {
			return fmt.Errorf("config: collateral %q decimals > 18", denom)
		}
		if coll.MinCollateralRatioBPS < 10000 {
			return fmt.Errorf("config: collateral %q min ratio below 100%%", denom)
		}
		if coll.OriginationFeeBPS >= 10000 {
			return fmt.Errorf("config: collateral %q origination fee >= 100%%", denom)
		}
	}
	if cfg.Oracle.MaxQuoteAgeSecs == 0 {
		return fmt.Errorf("config: oracle MaxQuoteAgeSecs zero")
	}
	for _, price := range cfg.Oracle.Static {
		if _, err := parseAmount(price.Price); err != nil {
			return fmt.Errorf("config: static price for %q: %w", price.Denom, err)
		}
	}
	if cfg.Quota != (Quota{}) {
		if cfg.Quota.MaxRequestsPerMin == 0 {
			return fmt.Errorf("config: quota MaxRequestsPerMin zero")
		}
		if cfg.Quota.EpochSeconds == 0 {
			return fmt.Errorf("config: quota EpochSeconds zero")
		}
	}
	return nil
}
