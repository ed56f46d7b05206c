package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"raffle/chain"
	"raffle/raffle"
)

// Snapshot is the raffle state observable through the contract interface.
type Snapshot struct {
	EntranceFee     *big.Int
	State           raffle.State
	RecentWinner    common.Address
	LatestTimestamp *big.Int
	Players         *big.Int
	Balance         *big.Int
}

// ReadSnapshot reads all snapshot fields from the latest block.
func ReadSnapshot(ctx context.Context, r *raffle.Raffle, b chain.Backend) (*Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.EntranceFee, err = r.EntranceFee(ctx); err != nil {
		return nil, fmt.Errorf("entrance fee: %w", err)
	}
	if s.State, err = r.RaffleState(ctx); err != nil {
		return nil, fmt.Errorf("raffle state: %w", err)
	}
	if s.RecentWinner, err = r.RecentWinner(ctx); err != nil {
		return nil, fmt.Errorf("recent winner: %w", err)
	}
	if s.LatestTimestamp, err = r.LatestTimestamp(ctx); err != nil {
		return nil, fmt.Errorf("latest timestamp: %w", err)
	}
	if s.Players, err = r.NumberOfPlayers(ctx); err != nil {
		return nil, fmt.Errorf("number of players: %w", err)
	}
	if s.Balance, err = b.BalanceAt(ctx, r.Address(), nil); err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	return &s, nil
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("state=%s players=%s balance=%s winner=%s timestamp=%s",
		s.State, s.Players, raffle.FormatEther(s.Balance), s.RecentWinner.Hex(), s.LatestTimestamp)
}
