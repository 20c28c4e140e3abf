package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk daemon configuration.
type Config struct {
	DataDir        string       `toml:"DataDir"`
	MetricsAddress string       `toml:"MetricsAddress"`
	StableDenom    string       `toml:"StableDenom"`
	StableDecimals uint8        `toml:"StableDecimals"`
	Collaterals    []Collateral `toml:"Collaterals"`
	Oracle         Oracle       `toml:"Oracle"`
	Pauses         Pauses       `toml:"Pauses"`
	Quota          Quota        `toml:"Quota"`
	Log            Log          `toml:"Log"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./zusd-data"
	}
	if strings.TrimSpace(cfg.StableDenom) == "" {
		cfg.StableDenom = "zusd"
	}
	if cfg.StableDecimals == 0 {
		cfg.StableDecimals = 6
	}
	if cfg.Oracle.MaxQuoteAgeSecs == 0 {
		cfg.Oracle.MaxQuoteAgeSecs = 300
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:        "./zusd-data",
		MetricsAddress: ":9464",
		StableDenom:    "zusd",
		StableDecimals: 6,
		Collaterals: []Collateral{{
			Denom:                 "wbtc",
			Decimals:              8,
			MinCollateralRatioBPS: 11000,
			OriginationFeeBPS:     50,
		}},
		Oracle: Oracle{MaxQuoteAgeSecs: 300},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
