// Package config loads the harness settings from the environment.
package config

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"raffle/internal/keys"
	"raffle/network"
	"raffle/raffle"
)

// DefaultLocalhostURL is the JSON-RPC endpoint of a local development node.
const DefaultLocalhostURL = "http://127.0.0.1:8545"

// Config holds the harness configuration. Secrets are never serialised.
type Config struct {
	Network        string `json:"network"`
	RPCURL         string `json:"rpc_url,omitempty"`
	DeploymentsDir string `json:"deployments_dir"`

	PrivateKey       string `json:"-"`
	PlayerPrivateKey string `json:"-"`
	EtherscanAPIKey  string `json:"-"`
	EtherscanAPIURL  string `json:"etherscan_api_url,omitempty"`

	// EntryValue is the ether amount the enter command pays, e.g. "0.01".
	// Empty means the contract's entrance fee.
	EntryValue string `json:"entry_value,omitempty"`
	// WinnerTimeout bounds the live winner wait. Zero waits indefinitely.
	WinnerTimeout time.Duration `json:"winner_timeout,omitempty"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// FromEnv reads the configuration from environment variables and applies defaults.
// The result is not validated.
func FromEnv() (*Config, error) {
	c := &Config{
		Network:          os.Getenv("RAFFLE_NETWORK"),
		RPCURL:           os.Getenv("RAFFLE_RPC_URL"),
		DeploymentsDir:   os.Getenv("RAFFLE_DEPLOYMENTS_DIR"),
		PrivateKey:       os.Getenv("PRIVATE_KEY"),
		PlayerPrivateKey: os.Getenv("PLAYER_PRIVATE_KEY"),
		EtherscanAPIKey:  os.Getenv("ETHERSCAN_API_KEY"),
		EtherscanAPIURL:  os.Getenv("ETHERSCAN_API_URL"),
		EntryValue:       os.Getenv("RAFFLE_ENTRY_VALUE"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
	}

	if s := os.Getenv("RAFFLE_WINNER_TIMEOUT"); s != "" {
		d, err := parseTimeout(s)
		if err != nil {
			return nil, fmt.Errorf("RAFFLE_WINNER_TIMEOUT: %w", err)
		}
		c.WinnerTimeout = d
	}

	c.applyDefaults()
	return c, nil
}

// parseTimeout accepts a Go duration ("5m") or whole seconds ("300").
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func (c *Config) applyDefaults() {
	if c.Network == "" {
		c.Network = network.Hardhat
	}
	if c.Network == network.Localhost && c.RPCURL == "" {
		c.RPCURL = DefaultLocalhostURL
	}
	if c.DeploymentsDir == "" {
		c.DeploymentsDir = "deployments"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Network == "" {
		return fmt.Errorf("network required")
	}
	if _, ok := network.ByName(c.Network); !ok {
		return fmt.Errorf("unknown network %q", c.Network)
	}

	if c.Network != network.Hardhat && c.RPCURL == "" {
		return fmt.Errorf("rpc_url required for network %s", c.Network)
	}
	if c.RPCURL != "" && !IsValidRPCURL(c.RPCURL) {
		return fmt.Errorf("invalid rpc_url %q", c.RPCURL)
	}
	if !c.IsDevelopment() && c.PrivateKey == "" {
		return fmt.Errorf("private key required for network %s", c.Network)
	}
	if c.PrivateKey != "" && !IsValidPrivateKey(c.PrivateKey) {
		return fmt.Errorf("private key must be 32 hex encoded bytes")
	}
	if c.PlayerPrivateKey != "" && !IsValidPrivateKey(c.PlayerPrivateKey) {
		return fmt.Errorf("player private key must be 32 hex encoded bytes")
	}

	if c.EntryValue != "" {
		if _, err := raffle.ParseEther(c.EntryValue); err != nil {
			return fmt.Errorf("entry_value: %w", err)
		}
	}
	if c.WinnerTimeout < 0 {
		return fmt.Errorf("winner_timeout must not be negative, got %s", c.WinnerTimeout)
	}
	switch c.LogFormat {
	case "", "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// IsDevelopment reports whether the configured network is a development chain.
func (c *Config) IsDevelopment() bool {
	return network.IsDevelopment(c.Network)
}

// Profile returns the network profile of the configured network.
func (c *Config) Profile() (network.ChainProfile, bool) {
	return network.ByName(c.Network)
}

// Keys returns the configured signing keys, deployer first. Development
// networks without keys use the derived development accounts.
func (c *Config) Keys() ([]*ecdsa.PrivateKey, error) {
	if c.PrivateKey == "" {
		if !c.IsDevelopment() {
			return nil, fmt.Errorf("private key required for network %s", c.Network)
		}
		return keys.DeriveN(keys.DefaultMnemonic, keys.DevAccounts)
	}

	deployer, err := keys.FromHex(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	out := []*ecdsa.PrivateKey{deployer}
	if c.PlayerPrivateKey != "" {
		player, err := keys.FromHex(c.PlayerPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("player private key: %w", err)
		}
		out = append(out, player)
	}
	return out, nil
}

// EntryWei returns EntryValue in wei, or nil when unset.
func (c *Config) EntryWei() (*big.Int, error) {
	if strings.TrimSpace(c.EntryValue) == "" {
		return nil, nil
	}
	return raffle.ParseEther(strings.TrimSpace(c.EntryValue))
}
