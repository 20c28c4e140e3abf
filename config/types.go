package config

// Collateral configures one accepted collateral denom and its risk policy.
type Collateral struct {
	Denom    string `toml:"Denom"`
	Decimals uint8  `toml:"Decimals"`
	// MinCollateralRatioBPS is the minimum collateral ratio in basis points,
	// e.g. 11000 for 110%.
	MinCollateralRatioBPS uint64 `toml:"MinCollateralRatioBPS"`
	// OriginationFeeBPS is charged on new debt and folded into the trove.
	OriginationFeeBPS uint64 `toml:"OriginationFeeBPS"`
}

// StaticPrice seeds the static oracle feed with a fixed quote for a denom.
// Price is a decimal integer string scaled by 10^Exponent.
type StaticPrice struct {
	Denom    string `toml:"Denom"`
	Price    string `toml:"Price"`
	Exponent int32  `toml:"Exponent"`
}

// Oracle configures price feed freshness and the optional static feed.
type Oracle struct {
	MaxQuoteAgeSecs uint64        `toml:"MaxQuoteAgeSecs"`
	Static          []StaticPrice `toml:"Static"`
}

// Pauses toggles module-level circuit breakers.
type Pauses struct {
	Vault     bool `toml:"Vault"`
	Stability bool `toml:"Stability"`
}

// Quota defines rate limits for vault interactions on a per-address basis.
type Quota struct {
	MaxRequestsPerMin uint32 `toml:"MaxRequestsPerMin"`
	MaxStablePerEpoch uint64 `toml:"MaxStablePerEpoch"`
	EpochSeconds      uint32 `toml:"EpochSeconds"`
}

// Log configures structured logging output and rotation.
type Log struct {
	Env        string `toml:"Env"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}
