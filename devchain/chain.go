// Package devchain is an in-process development chain. It stands in for a local
// hardhat node: funded accounts, one block per transaction, an adjustable clock,
// snapshots, and Go implementations of the Raffle and VRFCoordinatorV2Mock
// contracts deployed by tagged fixtures.
package devchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"raffle/chain"
	"raffle/internal/keys"
	"raffle/network"
)

// ErrClosed is returned by a chain after Close.
var ErrClosed = errors.New("devchain closed")

const (
	blockGasLimit = 30_000_000
	txGas         = 21_000
	// returned by EstimateGas for calls that do not revert
	callGas = 500_000
)

// Options configures a development chain. Zero values select the defaults.
type Options struct {
	// Accounts is the number of funded accounts (default 10).
	Accounts int
	// Balance of each funded account (default 10000 ETH).
	Balance *big.Int
	// Mnemonic the account keys are derived from (default keys.DefaultMnemonic).
	Mnemonic string
	// GenesisTime is the timestamp of block 0 (default now).
	GenesisTime time.Time
	Logger      *zap.Logger
}

func (o *Options) setDefaults() {
	if o.Accounts <= 0 {
		o.Accounts = keys.DevAccounts
	}
	if o.Balance == nil {
		o.Balance = new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1e18))
	}
	if o.Mnemonic == "" {
		o.Mnemonic = keys.DefaultMnemonic
	}
	if o.GenesisTime.IsZero() {
		o.GenesisTime = time.Now()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Chain is a development chain. It implements chain.Environment; its Backend
// serves the contract bindings.
type Chain struct {
	chainID *big.Int
	signers []*chain.Signer
	logger  *zap.Logger
	genesis *state

	// fixtureMu serialises Fixture; deploy scripts send transactions and take mu.
	fixtureMu sync.Mutex

	mu        sync.Mutex
	st        *state
	snapshots map[string]*state
	fixtures  map[string]string
	closed    bool

	logsFeed event.Feed
	scope    event.SubscriptionScope

	backend *Backend
}

var (
	_ chain.Backend     = (*Backend)(nil)
	_ chain.Environment = (*Chain)(nil)
)

// New creates a chain whose genesis block funds the derived accounts.
func New(opts Options) (*Chain, error) {
	opts.setDefaults()

	privs, err := keys.DeriveN(opts.Mnemonic, opts.Accounts)
	if err != nil {
		return nil, err
	}

	genesis := newState(&types.Header{
		Number:     new(big.Int),
		Time:       uint64(opts.GenesisTime.Unix()),
		GasLimit:   blockGasLimit,
		Difficulty: new(big.Int),
	})
	signers := make([]*chain.Signer, len(privs))
	for i, k := range privs {
		signers[i] = chain.NewSigner(k)
		genesis.account(signers[i].Address).balance.Set(opts.Balance)
	}

	c := &Chain{
		chainID:   big.NewInt(network.ChainIDHardhat),
		signers:   signers,
		logger:    opts.Logger.With(zap.String("network", network.Hardhat)),
		genesis:   genesis,
		st:        genesis.clone(),
		snapshots: make(map[string]*state),
		fixtures:  make(map[string]string),
	}
	c.backend = &Backend{c: c}
	c.logger.Debug("Development chain started",
		zap.Int("accounts", len(signers)),
		zap.Time("genesis_time", opts.GenesisTime))
	return c, nil
}

// ====================
// Environment
// ====================

func (c *Chain) Name() string             { return network.Hardhat }
func (c *Chain) ChainID() *big.Int        { return new(big.Int).Set(c.chainID) }
func (c *Chain) Backend() chain.Backend   { return c.backend }
func (c *Chain) Signers() []*chain.Signer { return c.signers }
func (c *Chain) String() string           { return "devchain(" + network.Hardhat + ")" }

func (c *Chain) NamedAccount(name string) (*chain.Signer, error) {
	return chain.NamedAccount(c.signers, name)
}

func (c *Chain) Deployment(name string) (*chain.Deployment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.st.deployments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", chain.ErrNoDeployment, name, network.Hardhat)
	}
	return d, nil
}

// Fixture runs the deploy scripts selected by tags on a fresh chain and
// snapshots the result. Later calls with the same tags revert to that snapshot.
func (c *Chain) Fixture(ctx context.Context, tags ...string) error {
	c.fixtureMu.Lock()
	defer c.fixtureMu.Unlock()

	key := fixtureKey(tags)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if id, ok := c.fixtures[key]; ok {
		c.st = c.snapshots[id].clone()
		c.mu.Unlock()
		c.logger.Debug("Fixture restored", zap.String("tags", key), zap.String("snapshot", id))
		return nil
	}
	c.st = c.genesis.clone()
	c.mu.Unlock()

	scripts, err := selectScripts(tags)
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if err := s.run(ctx, c); err != nil {
			return fmt.Errorf("deploy script %s: %w", s.name, err)
		}
		c.logger.Debug("Deploy script finished", zap.String("script", s.name))
	}

	id := c.Snapshot()
	c.mu.Lock()
	c.fixtures[key] = id
	c.mu.Unlock()

	c.logger.Info("Fixture deployed",
		zap.String("tags", key),
		zap.Int("scripts", len(scripts)),
		zap.String("snapshot", id))
	return nil
}

func fixtureKey(tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Snapshot records the current state and returns its id.
func (c *Chain) Snapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.NewString()
	c.snapshots[id] = c.st.clone()
	return id
}

// Revert restores the state recorded by Snapshot. The snapshot stays usable.
func (c *Chain) Revert(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.snapshots[id]
	if !ok {
		return fmt.Errorf("unknown snapshot %q", id)
	}
	c.st = snap.clone()
	return nil
}

// IncreaseTime moves the timestamp of the next block forward by d.
func (c *Chain) IncreaseTime(_ context.Context, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("cannot move time backwards by %s", d)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.st.timeOffset += uint64(d / time.Second)
	return nil
}

// Mine produces an empty block.
func (c *Chain) Mine(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.st.seal(c.st.pendingHeader(), nil)
	blocksMined.Inc()
	return nil
}

// SetBalance overwrites the balance of addr.
func (c *Chain) SetBalance(addr common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.st.account(addr).balance.Set(amount)
}

// Close ends all log subscriptions. The chain rejects transactions afterwards.
func (c *Chain) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.scope.Close()
}
