// Package network holds the static per-chain parameters of the raffle deployment
// and the classification of a network name as development or live.
package network

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain identifiers with a known profile
const (
	ChainIDHardhat int64 = 31337
	ChainIDRinkeby int64 = 4
	ChainIDSepolia int64 = 11155111
)

// ChainProfile is the deployment configuration of the raffle on one chain.
// A zero VRFCoordinator means the coordinator is a mock deployed by the fixtures.
type ChainProfile struct {
	ChainID          int64
	Name             string
	VRFCoordinator   common.Address
	EntranceFee      *big.Int
	GasLane          common.Hash
	SubscriptionID   uint64
	CallbackGasLimit uint32
	Interval         time.Duration
}

// HasCoordinator reports whether the profile points at a real VRF coordinator.
func (p ChainProfile) HasCoordinator() bool {
	return p.VRFCoordinator != (common.Address{})
}

func (p ChainProfile) clone() ChainProfile {
	if p.EntranceFee != nil {
		p.EntranceFee = new(big.Int).Set(p.EntranceFee)
	}
	return p
}

// 0.01 ETH
var defaultEntranceFee = big.NewInt(10_000_000_000_000_000)

var profiles = map[int64]ChainProfile{
	ChainIDHardhat: {
		ChainID:          ChainIDHardhat,
		Name:             "hardhat",
		EntranceFee:      defaultEntranceFee,
		GasLane:          common.HexToHash("0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc"),
		CallbackGasLimit: 500_000,
		Interval:         30 * time.Second,
	},
	ChainIDRinkeby: {
		ChainID:          ChainIDRinkeby,
		Name:             "rinkeby",
		VRFCoordinator:   common.HexToAddress("0x271682deb8c4e0901d1a1550ad2e64d568e69909"),
		EntranceFee:      defaultEntranceFee,
		GasLane:          common.HexToHash("0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc"),
		CallbackGasLimit: 500_000,
		Interval:         30 * time.Second,
	},
	ChainIDSepolia: {
		ChainID:          ChainIDSepolia,
		Name:             "sepolia",
		VRFCoordinator:   common.HexToAddress("0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625"),
		EntranceFee:      defaultEntranceFee,
		GasLane:          common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"),
		CallbackGasLimit: 500_000,
		Interval:         30 * time.Second,
	},
}

// Lookup returns the profile registered for chainID. The boolean is false when
// the chain is unknown; callers must check it before using the profile.
func Lookup(chainID int64) (ChainProfile, bool) {
	p, ok := profiles[chainID]
	if !ok {
		return ChainProfile{}, false
	}
	return p.clone(), true
}

// ByName returns the profile whose Name matches name. The localhost network
// shares the hardhat profile since it runs the same development node.
func ByName(name string) (ChainProfile, bool) {
	if name == Localhost {
		name = Hardhat
	}
	for _, p := range profiles {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return ChainProfile{}, false
}
