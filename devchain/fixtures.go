package devchain

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"go.uber.org/zap"

	"raffle/chain"
	"raffle/network"
	"raffle/raffle"
)

// Deploy script tags.
const (
	TagAll    = "all"
	TagMocks  = "mocks"
	TagRaffle = "raffle"
)

var (
	// BaseFee is the flat LINK premium the coordinator mock charges per request (0.25 LINK).
	BaseFee = big.NewInt(250_000_000_000_000_000)
	// GasPriceLink is the LINK charged per unit of callback gas.
	GasPriceLink = big.NewInt(1_000_000_000)
	// SubscriptionFund is the LINK credited to the raffle's subscription (2 LINK).
	SubscriptionFund = new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))
)

type deployScript struct {
	name string
	tags []string
	// tags of scripts that must run first
	dependencies []string
	run          func(ctx context.Context, c *Chain) error
}

// deployScripts are listed in execution order.
var deployScripts = []deployScript{
	{
		name: "00-deploy-mocks",
		tags: []string{TagAll, TagMocks},
		run:  deployMocks,
	},
	{
		name:         "01-deploy-raffle",
		tags:         []string{TagAll, TagRaffle},
		dependencies: []string{TagMocks},
		run:          deployRaffle,
	},
}

// selectScripts returns the scripts carrying any of tags plus their
// dependencies. No tags selects every script.
func selectScripts(tags []string) ([]deployScript, error) {
	if len(tags) == 0 {
		return deployScripts, nil
	}

	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	selected := func(s deployScript) bool {
		return slices.ContainsFunc(s.tags, func(t string) bool { return want[t] })
	}
	for changed := true; changed; {
		changed = false
		for _, s := range deployScripts {
			if !selected(s) {
				continue
			}
			for _, dep := range s.dependencies {
				if !want[dep] {
					want[dep] = true
					changed = true
				}
			}
		}
	}

	var out []deployScript
	for _, s := range deployScripts {
		if selected(s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no deploy script tagged %v", tags)
	}
	return out, nil
}

func deployMocks(_ context.Context, c *Chain) error {
	deployer, err := c.NamedAccount(chain.AccountDeployer)
	if err != nil {
		return err
	}
	c.logger.Info("Local network detected! Deploying mocks...")
	_, err = c.deploy(deployer, raffle.ContractCoordinator, raffle.CoordinatorABI, newCoordinatorContract,
		new(big.Int).Set(BaseFee), new(big.Int).Set(GasPriceLink))
	return err
}

func deployRaffle(ctx context.Context, c *Chain) error {
	deployer, err := c.NamedAccount(chain.AccountDeployer)
	if err != nil {
		return err
	}
	profile, ok := network.Lookup(network.ChainIDHardhat)
	if !ok {
		return fmt.Errorf("no network profile for chain %d", network.ChainIDHardhat)
	}
	mock, err := c.Deployment(raffle.ContractCoordinator)
	if err != nil {
		return err
	}

	coordinator := raffle.NewCoordinator(mock.Address, c.Backend(), deployer)
	subID, err := coordinator.CreateSubscription(ctx)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	if _, err := coordinator.FundSubscription(ctx, subID, SubscriptionFund); err != nil {
		return fmt.Errorf("fund subscription %d: %w", subID, err)
	}

	addr, err := c.deploy(deployer, raffle.ContractRaffle, raffle.RaffleABI, newRaffleContract,
		mock.Address,
		subID,
		[32]byte(profile.GasLane),
		big.NewInt(int64(profile.Interval/time.Second)),
		profile.EntranceFee,
		profile.CallbackGasLimit,
	)
	if err != nil {
		return err
	}

	if _, err := coordinator.AddConsumer(ctx, subID, addr); err != nil {
		return fmt.Errorf("add consumer: %w", err)
	}
	c.logger.Debug("Raffle registered as VRF consumer",
		zap.Uint64("subscription", subID),
		zap.String("raffle", addr.Hex()))
	return nil
}
