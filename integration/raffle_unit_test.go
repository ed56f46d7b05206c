package integration

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raffle/network"
	"raffle/orchestrator"
	"raffle/raffle"
)

func TestRaffleUnit(t *testing.T) {
	cfg := loadConfig(t)
	orchestrator.RequireDevelopment(t, cfg.Network)

	env, logger := connect(t, cfg)
	profile, ok := network.Lookup(env.ChainID().Int64())
	require.True(t, ok, "no profile for chain %s", env.ChainID())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	setup := func(t *testing.T) *orchestrator.Fixture {
		t.Helper()
		f, err := orchestrator.SetupDevelopment(ctx, env, logger)
		require.NoError(t, err)
		return f
	}
	enter := func(t *testing.T, f *orchestrator.Fixture) {
		t.Helper()
		_, err := f.Raffle.Connect(f.Player).EnterRaffle(ctx, f.EntranceFee)
		require.NoError(t, err)
	}

	t.Run("constructor", func(t *testing.T) {
		t.Run("initializes the raffle correctly", func(t *testing.T) {
			f := setup(t)

			state, err := f.Raffle.RaffleState(ctx)
			require.NoError(t, err)
			assert.Equal(t, raffle.StateOpen, state)
			assert.Equal(t, profile.Interval, f.Interval)
			assert.Zero(t, f.EntranceFee.Cmp(profile.EntranceFee))

			words, err := f.Raffle.NumWords(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), words.Int64())
			confirmations, err := f.Raffle.RequestConfirmations(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), confirmations.Int64())
		})
	})

	t.Run("enterRaffle", func(t *testing.T) {
		t.Run("reverts when you don't pay enough", func(t *testing.T) {
			f := setup(t)
			_, err := f.Raffle.EnterRaffle(ctx, nil)
			assert.ErrorIs(t, err, raffle.ErrNotEnoughETHEntered)
		})

		t.Run("records players when they enter", func(t *testing.T) {
			f := setup(t)
			enter(t, f)

			player, err := f.Raffle.Player(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, f.Player.Address, player)
		})

		t.Run("emits event on enter", func(t *testing.T) {
			f := setup(t)
			subscribe := func(ctx context.Context, sink chan<- *raffle.RaffleEnter) (event.Subscription, error) {
				return f.Raffle.WatchRaffleEnter(ctx, sink, f.Player.Address)
			}

			err := orchestrator.AwaitEvent(ctx, subscribe,
				func(ctx context.Context) error {
					receipt, err := f.Raffle.Connect(f.Player).EnterRaffle(ctx, f.EntranceFee)
					if err != nil {
						return err
					}
					_, err = f.Raffle.EnteredIn(receipt)
					return err
				},
				func(ev *raffle.RaffleEnter) error {
					if ev.Player != f.Player.Address {
						return fmt.Errorf("entered %s, want %s", ev.Player.Hex(), f.Player.Address.Hex())
					}
					return nil
				})
			require.NoError(t, err)
		})

		t.Run("doesn't allow entrance when raffle is calculating", func(t *testing.T) {
			f := setup(t)
			enter(t, f)
			require.NoError(t, f.AdvancePastInterval(ctx))
			_, err := f.Raffle.PerformUpkeep(ctx, nil)
			require.NoError(t, err)

			_, err = f.Raffle.Connect(f.Player).EnterRaffle(ctx, f.EntranceFee)
			assert.ErrorIs(t, err, raffle.ErrNotOpen)
		})
	})

	t.Run("checkUpkeep", func(t *testing.T) {
		t.Run("returns false if people haven't sent any ETH", func(t *testing.T) {
			f := setup(t)
			require.NoError(t, f.AdvancePastInterval(ctx))

			needed, err := f.Raffle.CheckUpkeep(ctx, nil)
			require.NoError(t, err)
			assert.False(t, needed)
		})

		t.Run("returns false if raffle isn't open", func(t *testing.T) {
			f := setup(t)
			enter(t, f)
			require.NoError(t, f.AdvancePastInterval(ctx))
			_, err := f.Raffle.PerformUpkeep(ctx, []byte{})
			require.NoError(t, err)

			state, err := f.Raffle.RaffleState(ctx)
			require.NoError(t, err)
			needed, err := f.Raffle.CheckUpkeep(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, raffle.StateCalculating, state)
			assert.False(t, needed)
		})

		t.Run("returns false if enough time hasn't passed", func(t *testing.T) {
			f := setup(t)
			enter(t, f)
			require.NoError(t, f.Advance(ctx, f.Interval-5*time.Second))

			needed, err := f.Raffle.CheckUpkeep(ctx, nil)
			require.NoError(t, err)
			assert.False(t, needed)
		})

		t.Run("returns true if enough time has passed, has players, eth, and is open", func(t *testing.T) {
			f := setup(t)
			enter(t, f)
			require.NoError(t, f.AdvancePastInterval(ctx))

			needed, err := f.Raffle.CheckUpkeep(ctx, nil)
			require.NoError(t, err)
			assert.True(t, needed)
		})
	})

	t.Run("performUpkeep", func(t *testing.T) {
		t.Run("can only run if checkUpkeep is true", func(t *testing.T) {
			f := setup(t)
			enter(t, f)
			require.NoError(t, f.AdvancePastInterval(ctx))

			_, err := f.Raffle.PerformUpkeep(ctx, nil)
			assert.NoError(t, err)
		})

		t.Run("reverts if checkUpkeep is false", func(t *testing.T) {
			f := setup(t)

			_, err := f.Raffle.PerformUpkeep(ctx, nil)
			require.ErrorIs(t, err, raffle.ErrUpkeepNotNeeded)
			status, ok := raffle.UpkeepNotNeeded(err)
			require.True(t, ok)
			assert.Zero(t, status.Balance.Sign())
			assert.Zero(t, status.Players.Sign())
			assert.Equal(t, raffle.StateOpen, status.State)
		})

		t.Run("updates the raffle state and emits a requestId", func(t *testing.T) {
			f := setup(t)
			enter(t, f)
			require.NoError(t, f.AdvancePastInterval(ctx))

			receipt, err := f.Raffle.PerformUpkeep(ctx, nil)
			require.NoError(t, err)
			requestID, err := f.Raffle.RequestID(receipt)
			require.NoError(t, err)
			assert.Positive(t, requestID.Sign())

			state, err := f.Raffle.RaffleState(ctx)
			require.NoError(t, err)
			assert.Equal(t, raffle.StateCalculating, state)
		})
	})

	t.Run("fulfillRandomWords", func(t *testing.T) {
		t.Run("can only be called after performUpkeep", func(t *testing.T) {
			f := setup(t)
			enter(t, f)
			require.NoError(t, f.AdvancePastInterval(ctx))

			for _, id := range []int64{0, 1} {
				_, err := f.Coordinator.FulfillRandomWords(ctx, big.NewInt(id), f.Raffle.Address())
				require.Error(t, err)
				assert.Equal(t, "nonexistent request", raffle.RevertReason(err))
			}
		})

		t.Run("picks a winner and pays a single entrant", func(t *testing.T) {
			f := setup(t)
			enter(t, f)
			require.NoError(t, f.AdvancePastInterval(ctx))

			start, err := f.Balance(ctx, f.Player.Address)
			require.NoError(t, err)

			err = orchestrator.AwaitWinner(ctx, f.Raffle, orchestrator.DefaultWinnerTimeout, f.PickWinner,
				func(ev *raffle.WinnerPicked) error {
					if ev.Player != f.Player.Address {
						return fmt.Errorf("winner %s, want %s", ev.Player.Hex(), f.Player.Address.Hex())
					}
					if err := playersCleared(ctx, f); err != nil {
						return err
					}
					end, err := f.Balance(ctx, ev.Player)
					if err != nil {
						return err
					}
					if want := new(big.Int).Add(start, f.EntranceFee); end.Cmp(want) != 0 {
						return fmt.Errorf("winner balance %s, want %s", end, want)
					}
					return nil
				})
			require.NoError(t, err)
		})

		t.Run("picks a winner, resets the lottery, and sends money", func(t *testing.T) {
			f := setup(t)
			signers := f.Env.Signers()
			if len(signers) < 5 {
				t.Skipf("need 5 signers, have %d", len(signers))
			}
			entrants := signers[1:5]
			for _, s := range entrants {
				_, err := f.Raffle.Connect(s).EnterRaffle(ctx, f.EntranceFee)
				require.NoError(t, err)
			}
			require.NoError(t, f.AdvancePastInterval(ctx))

			before, err := f.Snapshot(ctx)
			require.NoError(t, err)
			starting := make(map[common.Address]*big.Int, len(entrants))
			for _, s := range entrants {
				starting[s.Address], err = f.Balance(ctx, s.Address)
				require.NoError(t, err)
			}

			err = orchestrator.AwaitWinner(ctx, f.Raffle, orchestrator.DefaultWinnerTimeout, f.PickWinner,
				func(ev *raffle.WinnerPicked) error {
					after, err := f.Snapshot(ctx)
					if err != nil {
						return err
					}
					if after.RecentWinner != ev.Player {
						return fmt.Errorf("recent winner %s, event winner %s", after.RecentWinner.Hex(), ev.Player.Hex())
					}
					if after.State != raffle.StateOpen {
						return fmt.Errorf("state %s, want OPEN", after.State)
					}
					if after.Balance.Sign() != 0 {
						return fmt.Errorf("raffle balance %s, want 0", after.Balance)
					}
					if after.LatestTimestamp.Cmp(before.LatestTimestamp) <= 0 {
						return fmt.Errorf("timestamp %s did not advance past %s", after.LatestTimestamp, before.LatestTimestamp)
					}
					if err := playersCleared(ctx, f); err != nil {
						return err
					}

					start, ok := starting[ev.Player]
					if !ok {
						return fmt.Errorf("winner %s did not enter", ev.Player.Hex())
					}
					pot := new(big.Int).Mul(f.EntranceFee, big.NewInt(int64(len(entrants))))
					end, err := f.Balance(ctx, ev.Player)
					if err != nil {
						return err
					}
					if want := new(big.Int).Add(start, pot); end.Cmp(want) != 0 {
						return fmt.Errorf("winner balance %s, want %s", end, want)
					}
					return nil
				})
			require.NoError(t, err)
		})
	})
}
