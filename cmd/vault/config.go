package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

// Config is a configuration of the vault CLI read from YAML file. Command
// line flags override the values from the file.
type Config struct {
	RPC      RPCConfig    `yaml:"rpc"`
	Wallet   WalletConfig `yaml:"wallet"`
	Contract string       `yaml:"contract"`
	// Time to wait for the transaction to be accepted.
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// RPCConfig groups Neo RPC connection parameters.
type RPCConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// WalletConfig groups NEP-6 wallet parameters.
type WalletConfig struct {
	Path string `yaml:"path"`
	// Address of the account signing transactions. Defaults to the wallet
	// default account.
	Address string `yaml:"address"`
	// Address of the committee multi-signature account. Used by contract
	// updates only.
	Committee string `yaml:"committee"`
}

const (
	defaultDialTimeout    = 15 * time.Second
	defaultRequestTimeout = 15 * time.Second
	defaultWaitTimeout    = time.Minute
)

func defaultConfig() Config {
	return Config{
		RPC: RPCConfig{
			DialTimeout:    defaultDialTimeout,
			RequestTimeout: defaultRequestTimeout,
		},
		WaitTimeout: defaultWaitTimeout,
	}
}

// loadConfig reads configuration from the YAML file at path. Empty path
// means default configuration.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("decode config file %s: %w", path, err)
	}

	return cfg, nil
}

// applyFlags overrides config values with global flags set in c.
func (cfg *Config) applyFlags(c *cli.Context) {
	if s := c.GlobalString("rpc-endpoint"); s != "" {
		cfg.RPC.Endpoint = s
	}
	if s := c.GlobalString("wallet"); s != "" {
		cfg.Wallet.Path = s
	}
	if s := c.GlobalString("address"); s != "" {
		cfg.Wallet.Address = s
	}
	if s := c.GlobalString("contract"); s != "" {
		cfg.Contract = s
	}
}

func (cfg Config) validateRPC() error {
	if cfg.RPC.Endpoint == "" {
		return errors.New("missing Neo RPC endpoint")
	}
	return nil
}

func (cfg Config) validateWallet() error {
	if cfg.Wallet.Path == "" {
		return errors.New("missing wallet path")
	}
	return nil
}
