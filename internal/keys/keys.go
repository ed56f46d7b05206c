// Package keys derives and parses the secp256k1 account keys used by the harness.
package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// DefaultMnemonic is the mnemonic hardhat and anvil fund their accounts from.
const DefaultMnemonic = "test test test test test test test test test test test junk"

// DevAccounts is how many development accounts are derived when none are configured.
const DevAccounts = 10

// Ethereum account path m/44'/60'/0'/0
var accountPath = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
}

// Derive returns the key at m/44'/60'/0'/0/index for mnemonic.
func Derive(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	keys, err := derive(mnemonic, index, 1)
	if err != nil {
		return nil, err
	}
	return keys[0], nil
}

// DeriveN returns the first n keys for mnemonic.
func DeriveN(mnemonic string, n int) ([]*ecdsa.PrivateKey, error) {
	return derive(mnemonic, 0, n)
}

func derive(mnemonic string, first uint32, n int) ([]*ecdsa.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	ext, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	for _, i := range accountPath {
		if ext, err = ext.Derive(i); err != nil {
			return nil, fmt.Errorf("derive account path: %w", err)
		}
	}

	out := make([]*ecdsa.PrivateKey, 0, n)
	for i := 0; i < n; i++ {
		index := first + uint32(i)
		child, err := ext.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("derive key %d: %w", index, err)
		}
		priv, err := child.ECPrivKey()
		if err != nil {
			return nil, fmt.Errorf("derive key %d: %w", index, err)
		}
		key, err := crypto.ToECDSA(priv.Serialize())
		if err != nil {
			return nil, fmt.Errorf("derive key %d: %w", index, err)
		}
		out = append(out, key)
	}
	return out, nil
}

// FromHex parses a hex encoded private key, with or without 0x prefix.
func FromHex(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex encoding: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("invalid private key length: expected 32 bytes, got %d", len(b))
	}
	return crypto.ToECDSA(b)
}

// Address returns the account address controlled by key.
func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
