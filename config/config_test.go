package config

import (
	"strings"
	"testing"
	"time"

	"raffle/internal/keys"
)

const testKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RAFFLE_NETWORK", "RAFFLE_RPC_URL", "RAFFLE_DEPLOYMENTS_DIR", "PRIVATE_KEY",
		"PLAYER_PRIVATE_KEY", "ETHERSCAN_API_KEY", "ETHERSCAN_API_URL", "RAFFLE_ENTRY_VALUE",
		"RAFFLE_WINNER_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

// ====================
// FromEnv
// ====================

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error: %v", err)
	}
	if c.Network != "hardhat" {
		t.Errorf("Network = %q, want hardhat", c.Network)
	}
	if c.DeploymentsDir != "deployments" {
		t.Errorf("DeploymentsDir = %q, want deployments", c.DeploymentsDir)
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", c.LogLevel)
	}
	if c.WinnerTimeout != 0 {
		t.Errorf("WinnerTimeout = %s, want 0", c.WinnerTimeout)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if !c.IsDevelopment() {
		t.Error("hardhat should be a development network")
	}
}

func TestFromEnv_LocalhostDefaultsRPC(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAFFLE_NETWORK", "localhost")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error: %v", err)
	}
	if c.RPCURL != DefaultLocalhostURL {
		t.Errorf("RPCURL = %q, want %q", c.RPCURL, DefaultLocalhostURL)
	}
	p, ok := c.Profile()
	if !ok || p.ChainID != 31337 {
		t.Errorf("Profile() = %+v, %v; want hardhat profile", p, ok)
	}
}

func TestFromEnv_WinnerTimeout(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{value: "300", want: 5 * time.Minute},
		{value: "90s", want: 90 * time.Second},
		{value: "2m30s", want: 150 * time.Second},
		{value: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("RAFFLE_WINNER_TIMEOUT", tt.value)

			c, err := FromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromEnv() error: %v", err)
			}
			if c.WinnerTimeout != tt.want {
				t.Errorf("WinnerTimeout = %s, want %s", c.WinnerTimeout, tt.want)
			}
		})
	}
}

// ====================
// Validate
// ====================

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Network:    "sepolia",
			RPCURL:     "https://rpc.sepolia.org",
			PrivateKey: testKey,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid live", mutate: func(c *Config) {}},
		{name: "missing network", mutate: func(c *Config) { c.Network = "" }, wantErr: "network required"},
		{name: "unknown network", mutate: func(c *Config) { c.Network = "mainnet" }, wantErr: "unknown network"},
		{name: "live without rpc", mutate: func(c *Config) { c.RPCURL = "" }, wantErr: "rpc_url required"},
		{name: "bad rpc scheme", mutate: func(c *Config) { c.RPCURL = "ftp://node" }, wantErr: "invalid rpc_url"},
		{name: "live without key", mutate: func(c *Config) { c.PrivateKey = "" }, wantErr: "private key required"},
		{name: "short key", mutate: func(c *Config) { c.PrivateKey = "0x1234" }, wantErr: "32 hex"},
		{name: "bad player key", mutate: func(c *Config) { c.PlayerPrivateKey = "zz" }, wantErr: "player private key"},
		{name: "bad entry value", mutate: func(c *Config) { c.EntryValue = "-1" }, wantErr: "entry_value"},
		{name: "negative timeout", mutate: func(c *Config) { c.WinnerTimeout = -time.Second }, wantErr: "winner_timeout"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "log_format"},
		{name: "hardhat needs nothing", mutate: func(c *Config) { *c = Config{Network: "hardhat"} }},
		{name: "localhost needs rpc", mutate: func(c *Config) { *c = Config{Network: "localhost"} }, wantErr: "rpc_url required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	var nilCfg *Config
	if err := nilCfg.Validate(); err == nil {
		t.Error("expected error for nil config")
	}
}

// ====================
// Keys
// ====================

func TestKeys(t *testing.T) {
	dev := &Config{Network: "hardhat"}
	ks, err := dev.Keys()
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	want, _ := keys.Derive(keys.DefaultMnemonic, 0)
	if len(ks) != keys.DevAccounts || keys.Address(ks[0]) != keys.Address(want) {
		t.Errorf("development keys do not start with the derived deployer")
	}

	local := &Config{Network: "localhost", RPCURL: DefaultLocalhostURL}
	ks, err = local.Keys()
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	// a local node funds exactly these accounts
	if got := keys.Address(ks[0]).Hex(); got != "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" {
		t.Errorf("localhost deployer = %s, want the node's account #0", got)
	}
	if len(ks) < 5 {
		t.Errorf("got %d localhost keys, want enough for five entrants", len(ks))
	}

	live := &Config{Network: "sepolia", PrivateKey: testKey, PlayerPrivateKey: testKey}
	ks, err = live.Keys()
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	if len(ks) != 2 {
		t.Errorf("got %d keys, want 2", len(ks))
	}

	if _, err := (&Config{Network: "sepolia"}).Keys(); err == nil {
		t.Error("expected error for live network without key")
	}
}

func TestEntryWei(t *testing.T) {
	c := &Config{EntryValue: " 0.01 "}
	wei, err := c.EntryWei()
	if err != nil {
		t.Fatalf("EntryWei() error: %v", err)
	}
	if wei.String() != "10000000000000000" {
		t.Errorf("EntryWei() = %s, want 1e16", wei)
	}

	wei, err = (&Config{}).EntryWei()
	if err != nil || wei != nil {
		t.Errorf("EntryWei() on unset value = %v, %v; want nil, nil", wei, err)
	}
}

func TestIsValidRPCURL(t *testing.T) {
	tests := map[string]bool{
		"http://127.0.0.1:8545":        true,
		"wss://sepolia.example.io/ws":  true,
		"127.0.0.1:8545":               false,
		"":                             false,
		"https://":                     false,
	}
	for in, want := range tests {
		if got := IsValidRPCURL(in); got != want {
			t.Errorf("IsValidRPCURL(%q) = %v, want %v", in, got, want)
		}
	}
}
