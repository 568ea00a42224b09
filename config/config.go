// Package config holds the settings of a simnet session: the storage
// backend, the funded accounts and the contracts deployed at start.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/govm-net/simnet/security"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DeployerName is the account that deploys the configured contracts.
const DeployerName = "deployer"

// DefaultBalance is the uSTX balance of every default account.
const DefaultBalance uint64 = 100_000_000_000_000

// DefaultWallets is the number of wallet_N accounts in the default plan.
const DefaultWallets = 8

var ErrInvalidConfig = errors.New("invalid config")

// Config is the settings of one session.
type Config struct {
	Network   Network         `yaml:"network"`
	Accounts  []Account       `yaml:"accounts"`
	Contracts []Contract      `yaml:"contracts"`
	Limits    security.Limits `yaml:"limits"`
	LogLevel  string          `yaml:"log_level"`
}

// Network selects the storage backend.
type Network struct {
	Context      string `yaml:"context"`       // memory or db
	DBPath       string `yaml:"db_path"`       // sqlite file or DSN for the db backend
	ContractsDir string `yaml:"contracts_dir"` // contract records; temporary when empty
	GenesisTime  int64  `yaml:"genesis_time"`
}

// Account is a funded account of the session.
type Account struct {
	Name    string `yaml:"name"`
	Balance uint64 `yaml:"balance"`
}

// Contract is deployed by the deployer when the session starts.
type Contract struct {
	Name   string         `yaml:"name"`
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params"`
}

// Default returns the standard devnet plan: deployer and wallet_1 to
// wallet_8 funded with DefaultBalance, and the counter contract deployed
// with a count of 1.
func Default() *Config {
	accounts := []Account{{Name: DeployerName, Balance: DefaultBalance}}
	for i := 1; i <= DefaultWallets; i++ {
		accounts = append(accounts, Account{Name: fmt.Sprintf("wallet_%d", i), Balance: DefaultBalance})
	}
	return &Config{
		Network:  Network{Context: "memory"},
		Accounts: accounts,
		Contracts: []Contract{{
			Name:   "counter",
			Kind:   "counter",
			Params: map[string]any{"initial": 1},
		}},
		Limits:   security.DefaultLimits(),
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that accounts and contracts are well formed.
func (c *Config) Validate() error {
	names := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.Name == "" {
			return fmt.Errorf("%w: account without name", ErrInvalidConfig)
		}
		if names[a.Name] {
			return fmt.Errorf("%w: duplicate account %s", ErrInvalidConfig, a.Name)
		}
		names[a.Name] = true
	}
	if len(c.Contracts) > 0 && !names[DeployerName] {
		return fmt.Errorf("%w: contracts need a %s account", ErrInvalidConfig, DeployerName)
	}
	contracts := make(map[string]bool, len(c.Contracts))
	for _, ct := range c.Contracts {
		if ct.Name == "" || ct.Kind == "" {
			return fmt.Errorf("%w: contract needs a name and a kind", ErrInvalidConfig)
		}
		if contracts[ct.Name] {
			return fmt.Errorf("%w: duplicate contract %s", ErrInvalidConfig, ct.Name)
		}
		contracts[ct.Name] = true
	}
	switch c.Network.Context {
	case "", "memory", "db":
	default:
		return fmt.Errorf("%w: unknown context %q", ErrInvalidConfig, c.Network.Context)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ContextParams returns the parameters of the storage backend.
func (c *Config) ContextParams() map[string]any {
	params := map[string]any{}
	if c.Network.DBPath != "" {
		params["db_path"] = c.Network.DBPath
	}
	return params
}

// NewLogger builds a console logger writing to stderr at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	return zc.Build()
}
