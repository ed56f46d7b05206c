// Package orchestrator prepares the raffle suites: it connects to the configured
// network, selects the suite variant, resets fixtures, reads contract snapshots
// and waits for the winner.
package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"raffle/chain"
	"raffle/config"
	"raffle/devchain"
	"raffle/network"
	"raffle/raffle"
)

// Connect opens the environment for cfg.Network: the in-process chain for
// hardhat, a JSON-RPC node for everything else.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chain.Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Network == network.Hardhat {
		dev, err := devchain.New(devchain.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
		return dev, nil
	}

	keys, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	env, err := chain.DialRPC(ctx, chain.RPCOptions{
		Network:        cfg.Network,
		URL:            cfg.RPCURL,
		DeploymentsDir: cfg.DeploymentsDir,
		Keys:           keys,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// RequireDevelopment skips the test unless name is a development chain.
func RequireDevelopment(t testing.TB, name string) {
	t.Helper()
	if !network.IsDevelopment(name) {
		t.Skipf("%s is a live network; development suite skipped", name)
	}
}

// RequireLive skips the test unless name is a live network.
func RequireLive(t testing.TB, name string) {
	t.Helper()
	if network.IsDevelopment(name) {
		t.Skipf("%s is a development chain; live suite skipped", name)
	}
}

// Fixture is the per-scenario state of a suite.
type Fixture struct {
	Env         chain.Environment
	Deployer    *chain.Signer
	Player      *chain.Signer
	Raffle      *raffle.Raffle
	Coordinator *raffle.Coordinator
	EntranceFee *big.Int
	Interval    time.Duration

	logger *zap.Logger
}

// SetupDevelopment resets env to the "all" fixture and binds the contracts to
// the deployer.
func SetupDevelopment(ctx context.Context, env chain.Environment, logger *zap.Logger) (*Fixture, error) {
	if !network.IsDevelopment(env.Name()) {
		return nil, fmt.Errorf("%w: fixtures on %s", chain.ErrUnsupported, env.Name())
	}
	if err := env.Fixture(ctx, devchain.TagAll); err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}

	f, err := bind(ctx, env, logger)
	if err != nil {
		return nil, err
	}
	mock, err := env.Deployment(raffle.ContractCoordinator)
	if err != nil {
		return nil, err
	}
	f.Coordinator = raffle.NewCoordinator(mock.Address, env.Backend(), f.Deployer)
	return f, nil
}

// SetupLive binds the already deployed raffle. Nothing is deployed or reset.
func SetupLive(ctx context.Context, env chain.Environment, logger *zap.Logger) (*Fixture, error) {
	if network.IsDevelopment(env.Name()) {
		return nil, fmt.Errorf("%s is not a live network", env.Name())
	}
	return bind(ctx, env, logger)
}

func bind(ctx context.Context, env chain.Environment, logger *zap.Logger) (*Fixture, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deployer, err := env.NamedAccount(chain.AccountDeployer)
	if err != nil {
		return nil, err
	}
	player, err := env.NamedAccount(chain.AccountPlayer)
	if err != nil {
		player = deployer
	}
	d, err := env.Deployment(raffle.ContractRaffle)
	if err != nil {
		return nil, err
	}

	r := raffle.NewRaffle(d.Address, env.Backend(), deployer)
	fee, err := r.EntranceFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("entrance fee: %w", err)
	}
	interval, err := r.Interval(ctx)
	if err != nil {
		return nil, fmt.Errorf("interval: %w", err)
	}

	logger.Debug("Raffle bound",
		zap.String("network", env.Name()),
		zap.String("raffle", d.Address.Hex()),
		zap.String("entrance_fee", raffle.FormatEther(fee)),
		zap.String("interval", interval.String()))

	return &Fixture{
		Env:         env,
		Deployer:    deployer,
		Player:      player,
		Raffle:      r,
		EntranceFee: fee,
		Interval:    time.Duration(interval.Int64()) * time.Second,
		logger:      logger,
	}, nil
}

// AdvancePastInterval moves the clock one second beyond the raffle interval
// and mines a block.
func (f *Fixture) AdvancePastInterval(ctx context.Context) error {
	return f.Advance(ctx, f.Interval+time.Second)
}

// Advance moves the clock by d and mines a block.
func (f *Fixture) Advance(ctx context.Context, d time.Duration) error {
	if err := f.Env.IncreaseTime(ctx, d); err != nil {
		return err
	}
	return f.Env.Mine(ctx)
}

// PickWinner runs the round to completion on a development chain: upkeep,
// then fulfillment by the coordinator mock with the emitted request id.
func (f *Fixture) PickWinner(ctx context.Context) error {
	if f.Coordinator == nil {
		return fmt.Errorf("%w: no coordinator mock on %s", chain.ErrUnsupported, f.Env.Name())
	}
	receipt, err := f.Raffle.PerformUpkeep(ctx, nil)
	if err != nil {
		return fmt.Errorf("perform upkeep: %w", err)
	}
	requestID, err := f.Raffle.RequestID(receipt)
	if err != nil {
		return err
	}
	if _, err := f.Coordinator.FulfillRandomWords(ctx, requestID, f.Raffle.Address()); err != nil {
		return fmt.Errorf("fulfill request %s: %w", requestID, err)
	}
	f.logger.Debug("Random words fulfilled", zap.String("request_id", requestID.String()))
	return nil
}

// Snapshot reads the raffle's observable state.
func (f *Fixture) Snapshot(ctx context.Context) (*Snapshot, error) {
	return ReadSnapshot(ctx, f.Raffle, f.Env.Backend())
}

// Balance returns the current balance of addr.
func (f *Fixture) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return f.Env.Backend().BalanceAt(ctx, addr, nil)
}
