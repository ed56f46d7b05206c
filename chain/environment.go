package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	// ErrUnsupported is returned for operations a network cannot perform,
	// such as time travel or fixture resets on a live chain.
	ErrUnsupported = errors.New("not supported on this network")
	// ErrNoDeployment is returned when a named contract has not been deployed.
	ErrNoDeployment = errors.New("no deployment")
	// ErrUnknownAccount is returned for a named account without a signer.
	ErrUnknownAccount = errors.New("unknown named account")
)

// Named accounts
const (
	AccountDeployer = "deployer"
	AccountPlayer   = "player"
)

var namedAccounts = map[string]int{
	AccountDeployer: 0,
	AccountPlayer:   1,
}

// Environment is a network the suites can run against.
type Environment interface {
	// Name is the network name, e.g. "hardhat" or "sepolia".
	Name() string
	ChainID() *big.Int
	Backend() Backend
	// Fixture brings the chain to the state produced by the deploy scripts
	// tagged with tags. Repeated calls reset to that state.
	Fixture(ctx context.Context, tags ...string) error
	Deployment(name string) (*Deployment, error)
	NamedAccount(name string) (*Signer, error)
	Signers() []*Signer
	// IncreaseTime moves the clock of the next block forward by d.
	IncreaseTime(ctx context.Context, d time.Duration) error
	// Mine produces a block.
	Mine(ctx context.Context) error
	Close()
}

// NamedAccount resolves a named account against an ordered signer list.
func NamedAccount(signers []*Signer, name string) (*Signer, error) {
	idx, ok := namedAccounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	if idx >= len(signers) {
		return nil, fmt.Errorf("%w: %s needs signer #%d, have %d", ErrUnknownAccount, name, idx, len(signers))
	}
	return signers[idx], nil
}
