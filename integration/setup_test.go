package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"raffle/chain"
	"raffle/config"
	"raffle/orchestrator"
	"raffle/raffle"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

func connect(t *testing.T, cfg *config.Config) (chain.Environment, *zap.Logger) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	env, err := orchestrator.Connect(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env, logger
}

// playersCleared checks the player list is empty and reading index 0 reverts.
func playersCleared(ctx context.Context, f *orchestrator.Fixture) error {
	n, err := f.Raffle.NumberOfPlayers(ctx)
	if err != nil {
		return err
	}
	if n.Sign() != 0 {
		return fmt.Errorf("players not reset: %s", n)
	}
	if _, err := f.Raffle.Player(ctx, 0); !errors.Is(err, raffle.ErrReverted) {
		return fmt.Errorf("getPlayer(0) after reset: got %v, want revert", err)
	}
	return nil
}
