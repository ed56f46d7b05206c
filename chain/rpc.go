package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"raffle/network"
)

// RPCOptions configures an environment reached over JSON-RPC.
type RPCOptions struct {
	Network        string
	URL            string
	DeploymentsDir string
	Keys           []*ecdsa.PrivateKey
	Logger         *zap.Logger
}

// RPCEnvironment is a node reached over JSON-RPC: a live network, or a local
// development node (hardhat node, anvil) when the network name is "localhost".
type RPCEnvironment struct {
	name           string
	chainID        *big.Int
	rpc            *rpc.Client
	client         *ethclient.Client
	deploymentsDir string
	signers        []*Signer
	logger         *zap.Logger

	mu          sync.Mutex
	deployments map[string]*Deployment
	snapshotID  string
}

// DialRPC connects to opts.URL and resolves the chain id.
func DialRPC(ctx context.Context, opts RPCOptions) (*RPCEnvironment, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	rc, err := rpc.DialContext(ctx, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	client := ethclient.NewClient(rc)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}

	env := &RPCEnvironment{
		name:           opts.Network,
		chainID:        chainID,
		rpc:            rc,
		client:         client,
		deploymentsDir: opts.DeploymentsDir,
		logger:         opts.Logger.With(zap.String("network", opts.Network)),
		deployments:    make(map[string]*Deployment),
	}
	for _, key := range opts.Keys {
		env.signers = append(env.signers, NewSigner(key))
	}

	env.logger.Info("Connected to network",
		zap.String("url", opts.URL),
		zap.String("chain_id", chainID.String()),
		zap.Int("signers", len(env.signers)),
	)
	return env, nil
}

func (e *RPCEnvironment) Name() string       { return e.name }
func (e *RPCEnvironment) ChainID() *big.Int  { return new(big.Int).Set(e.chainID) }
func (e *RPCEnvironment) Backend() Backend   { return e.client }
func (e *RPCEnvironment) Signers() []*Signer { return e.signers }

func (e *RPCEnvironment) NamedAccount(name string) (*Signer, error) {
	return NamedAccount(e.signers, name)
}

// Deployment loads the named deployment from the deployments directory.
func (e *RPCEnvironment) Deployment(name string) (*Deployment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d, ok := e.deployments[name]; ok {
		return d, nil
	}
	d, err := LoadDeployment(e.deploymentsDir, e.name, name)
	if err != nil {
		return nil, err
	}
	e.deployments[name] = d
	return d, nil
}

// Fixture resets a development node to the state right after its deploy scripts ran.
// The node runs the scripts itself on startup; the first call snapshots that state
// and later calls revert to it. Live networks have no fixtures.
func (e *RPCEnvironment) Fixture(ctx context.Context, tags ...string) error {
	if !network.IsDevelopment(e.name) {
		return fmt.Errorf("fixture %v: %w", tags, ErrUnsupported)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshotID != "" {
		var reverted bool
		if err := e.rpc.CallContext(ctx, &reverted, "evm_revert", e.snapshotID); err != nil {
			return fmt.Errorf("evm_revert: %w", err)
		}
		if !reverted {
			return fmt.Errorf("evm_revert: snapshot %s not found", e.snapshotID)
		}
		e.logger.Debug("Reverted to fixture snapshot", zap.String("snapshot", e.snapshotID))
	}

	// a snapshot can only be reverted to once
	var id string
	if err := e.rpc.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return fmt.Errorf("evm_snapshot: %w", err)
	}
	e.snapshotID = id
	e.deployments = make(map[string]*Deployment)

	e.logger.Debug("Fixture ready",
		zap.Strings("tags", tags),
		zap.String("snapshot", id),
	)
	return nil
}

// IncreaseTime issues evm_increaseTime on development nodes.
func (e *RPCEnvironment) IncreaseTime(ctx context.Context, d time.Duration) error {
	if !network.IsDevelopment(e.name) {
		return fmt.Errorf("increase time: %w", ErrUnsupported)
	}
	var offset interface{}
	if err := e.rpc.CallContext(ctx, &offset, "evm_increaseTime", int64(d/time.Second)); err != nil {
		return fmt.Errorf("evm_increaseTime: %w", err)
	}
	return nil
}

// Mine issues evm_mine on development nodes.
func (e *RPCEnvironment) Mine(ctx context.Context) error {
	if !network.IsDevelopment(e.name) {
		return fmt.Errorf("mine: %w", ErrUnsupported)
	}
	var result interface{}
	if err := e.rpc.CallContext(ctx, &result, "evm_mine"); err != nil {
		return fmt.Errorf("evm_mine: %w", err)
	}
	return nil
}

func (e *RPCEnvironment) Close() {
	e.rpc.Close()
}

// String implements fmt.Stringer for log output.
func (e *RPCEnvironment) String() string {
	return strings.Join([]string{e.name, e.chainID.String()}, "/")
}
