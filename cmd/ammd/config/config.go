package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr  = ":8545"
	DefaultMetricsAddr = ":9090"
	DefaultFeeBps      = 30
	DefaultFactory     = "0xfac7000000000000000000000000000000000001"

	nativeDecimals = 18
)

// Config is the daemon configuration. Balances are keyed by holder address
// and given in whole units of the asset, e.g. "1.5" for 1.5 ETH.
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	LogLevel       string        `yaml:"log_level"`
	FeeBps         *uint16       `yaml:"fee_bps"`
	FactoryAddress string        `yaml:"factory_address"`
	Native         *NativeConfig `yaml:"native"`
	Tokens         []TokenConfig `yaml:"tokens"`
	// Pairs lists the pairs created at start-up, by asset symbol.
	Pairs [][2]string `yaml:"pairs"`
}

type NativeConfig struct {
	Symbol   string            `yaml:"symbol"`
	Balances map[string]string `yaml:"balances"`
}

type TokenConfig struct {
	Name     string            `yaml:"name"`
	Symbol   string            `yaml:"symbol"`
	Decimals uint8             `yaml:"decimals"`
	Balances map[string]string `yaml:"balances"`
}

// LoadConfig reads a configuration file from the given path, fills in defaults
// and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.FeeBps == nil {
		fee := uint16(DefaultFeeBps)
		c.FeeBps = &fee
	}
	if c.FactoryAddress == "" {
		c.FactoryAddress = DefaultFactory
	}
}

func (c *Config) validate() error {
	if *c.FeeBps >= 10000 {
		return fmt.Errorf("config: fee_bps must be below 10000, got %d", *c.FeeBps)
	}
	if !common.IsHexAddress(c.FactoryAddress) {
		return fmt.Errorf("config: factory_address %q is not an address", c.FactoryAddress)
	}

	symbols := make(map[string]uint8)
	if c.Native != nil {
		if c.Native.Symbol == "" {
			return errors.New("config: native.symbol is required")
		}
		if _, err := Balances(c.Native.Balances, nativeDecimals); err != nil {
			return fmt.Errorf("config: native: %w", err)
		}
		symbols[c.Native.Symbol] = nativeDecimals
	}
	for i, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("config: tokens[%d].symbol is required", i)
		}
		if _, dup := symbols[t.Symbol]; dup {
			return fmt.Errorf("config: duplicate symbol %s", t.Symbol)
		}
		if _, err := Balances(t.Balances, t.Decimals); err != nil {
			return fmt.Errorf("config: token %s: %w", t.Symbol, err)
		}
		symbols[t.Symbol] = t.Decimals
	}
	for _, p := range c.Pairs {
		for _, s := range p {
			if _, ok := symbols[s]; !ok {
				return fmt.Errorf("config: pair %s/%s references unknown symbol %s", p[0], p[1], s)
			}
		}
	}
	return nil
}

// Fee returns the configured swap fee in basis points.
func (c *Config) Fee() uint16 { return *c.FeeBps }

// Factory returns the factory address.
func (c *Config) Factory() common.Address { return common.HexToAddress(c.FactoryAddress) }

// NativeDecimals is the number of decimals of the native currency.
func NativeDecimals() uint8 { return nativeDecimals }

// Balances converts a holder -> whole-unit amount map into base units.
func Balances(in map[string]string, decimals uint8) (map[common.Address]*uint256.Int, error) {
	out := make(map[common.Address]*uint256.Int, len(in))
	for holder, amount := range in {
		if !common.IsHexAddress(holder) {
			return nil, fmt.Errorf("holder %q is not an address", holder)
		}
		v, err := ParseAmount(amount, decimals)
		if err != nil {
			return nil, fmt.Errorf("holder %s: %w", holder, err)
		}
		out[common.HexToAddress(holder)] = v
	}
	return out, nil
}

// ParseAmount converts a decimal amount in whole units into base units.
func ParseAmount(amount string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	base := d.Shift(int32(decimals))
	if !base.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}
	v, overflow := uint256.FromBig(base.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q exceeds 256 bits", amount)
	}
	return v, nil
}
