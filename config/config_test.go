package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validConfig = `
DataDir = "/tmp/zusd-test"
StableDenom = "zusd"
StableDecimals = 6

[[Collaterals]]
Denom = "wbtc"
Decimals = 8
MinCollateralRatioBPS = 11000
OriginationFeeBPS = 50

[Oracle]
MaxQuoteAgeSecs = 120

[[Oracle.Static]]
Denom = "wbtc"
Price = "65000"
Exponent = 0
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.Equal(t, "zusd", cfg.StableDenom)
	require.Len(t, cfg.Collaterals, 1)
	require.Equal(t, uint64(11000), cfg.Collaterals[0].MinCollateralRatioBPS)
	require.Equal(t, uint64(120), cfg.Oracle.MaxQuoteAgeSecs)

	price, err := cfg.Oracle.Static[0].ParsedPrice()
	require.NoError(t, err)
	require.Equal(t, "65000", price.String())
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "zusd", cfg.StableDenom)
	require.FileExists(t, path)

	// A second load round-trips the persisted defaults.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.StableDenom, reloaded.StableDenom)
	require.Equal(t, cfg.Collaterals, reloaded.Collaterals)
}

func TestValidateRejectsBadCollaterals(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no collaterals", func(c *Config) { c.Collaterals = nil }},
		{"ratio below par", func(c *Config) { c.Collaterals[0].MinCollateralRatioBPS = 9000 }},
		{"duplicate denom", func(c *Config) { c.Collaterals = append(c.Collaterals, c.Collaterals[0]) }},
		{"stable collision", func(c *Config) { c.Collaterals[0].Denom = "zusd" }},
		{"fee too high", func(c *Config) { c.Collaterals[0].OriginationFeeBPS = 10000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validConfig))
			require.NoError(t, err)
			tc.mutate(cfg)
			require.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestValidateRejectsBadStaticPrice(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	cfg.Oracle.Static[0].Price = "not-a-number"
	require.Error(t, ValidateConfig(cfg))
	cfg.Oracle.Static[0].Price = "-5"
	require.Error(t, ValidateConfig(cfg))
}

func TestRiskParameterConversion(t *testing.T) {
	coll := Collateral{Denom: "wbtc", Decimals: 8, MinCollateralRatioBPS: 11000, OriginationFeeBPS: 50}
	params := coll.RiskParameters(6)
	require.Equal(t, "110000000", params.MinCollateralRatio.String())
	require.Equal(t, uint64(50), params.OriginationFeeBps)
	require.Equal(t, uint8(6), params.TargetDecimals)
}
