// Package raffle is the client binding of the Raffle lottery contract and of the
// VRF coordinator mock it draws randomness from on development chains.
package raffle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"raffle/chain"
)

// Raffle is a binding of a deployed Raffle contract.
type Raffle struct {
	c boundContract
}

// NewRaffle binds the Raffle at address. A nil signer gives a read-only binding.
func NewRaffle(address common.Address, backend chain.Backend, signer *chain.Signer) *Raffle {
	return &Raffle{c: boundContract{
		address: address,
		abi:     &raffleABI,
		backend: backend,
		signer:  signer,
	}}
}

// Address returns the contract address.
func (r *Raffle) Address() common.Address { return r.c.address }

// Signer returns the account transactions are sent from, or nil.
func (r *Raffle) Signer() *chain.Signer { return r.c.signer }

// Connect returns a binding of the same contract that sends from signer.
func (r *Raffle) Connect(signer *chain.Signer) *Raffle {
	return NewRaffle(r.c.address, r.c.backend, signer)
}

// EnterRaffle pays value into the raffle.
func (r *Raffle) EnterRaffle(ctx context.Context, value *big.Int) (*types.Receipt, error) {
	return r.c.transact(ctx, value, "enterRaffle")
}

// CheckUpkeep reports whether performUpkeep would run.
func (r *Raffle) CheckUpkeep(ctx context.Context, data []byte) (bool, error) {
	if data == nil {
		data = []byte{}
	}
	out, err := r.c.call(ctx, "checkUpkeep", data)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// PerformUpkeep closes the round and requests a random winner.
func (r *Raffle) PerformUpkeep(ctx context.Context, data []byte) (*types.Receipt, error) {
	if data == nil {
		data = []byte{}
	}
	return r.c.transact(ctx, nil, "performUpkeep", data)
}

func (r *Raffle) EntranceFee(ctx context.Context) (*big.Int, error) {
	return r.uintCall(ctx, "getEntranceFee")
}

// Interval is the minimum round length in seconds.
func (r *Raffle) Interval(ctx context.Context) (*big.Int, error) {
	return r.uintCall(ctx, "getInterval")
}

func (r *Raffle) LatestTimestamp(ctx context.Context) (*big.Int, error) {
	return r.uintCall(ctx, "getLatestTimeStamp")
}

func (r *Raffle) NumberOfPlayers(ctx context.Context) (*big.Int, error) {
	return r.uintCall(ctx, "getNumberOfPlayers")
}

func (r *Raffle) NumWords(ctx context.Context) (*big.Int, error) {
	return r.uintCall(ctx, "getNumWords")
}

func (r *Raffle) RequestConfirmations(ctx context.Context) (*big.Int, error) {
	return r.uintCall(ctx, "getRequestConfirmations")
}

func (r *Raffle) RaffleState(ctx context.Context) (State, error) {
	out, err := r.c.call(ctx, "getRaffleState")
	if err != nil {
		return 0, err
	}
	return State(out[0].(uint8)), nil
}

func (r *Raffle) RecentWinner(ctx context.Context) (common.Address, error) {
	out, err := r.c.call(ctx, "getRecentWinner")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// Player returns the player at index; reads past the end revert.
func (r *Raffle) Player(ctx context.Context, index uint64) (common.Address, error) {
	out, err := r.c.call(ctx, "getPlayer", new(big.Int).SetUint64(index))
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (r *Raffle) uintCall(ctx context.Context, method string) (*big.Int, error) {
	out, err := r.c.call(ctx, method)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// RequestID extracts the VRF request id from a performUpkeep receipt.
func (r *Raffle) RequestID(receipt *types.Receipt) (*big.Int, error) {
	var ev RequestedRaffleWinner
	if err := r.c.findLog(receipt, &ev, "RequestedRaffleWinner"); err != nil {
		return nil, err
	}
	return ev.RequestId, nil
}

// ParseRaffleEnter decodes a RaffleEnter log.
func (r *Raffle) ParseRaffleEnter(l types.Log) (*RaffleEnter, error) {
	ev := new(RaffleEnter)
	if err := r.c.unpackLog(ev, "RaffleEnter", l); err != nil {
		return nil, err
	}
	ev.Raw = l
	return ev, nil
}

// EnteredIn returns the RaffleEnter event of a receipt.
func (r *Raffle) EnteredIn(receipt *types.Receipt) (*RaffleEnter, error) {
	ev := new(RaffleEnter)
	if err := r.c.findLog(receipt, ev, "RaffleEnter"); err != nil {
		return nil, err
	}
	return ev, nil
}

// WatchRaffleEnter streams RaffleEnter events, optionally only for the given players.
func (r *Raffle) WatchRaffleEnter(ctx context.Context, sink chan<- *RaffleEnter, player ...common.Address) (event.Subscription, error) {
	return watchEvent(ctx, &r.c, "RaffleEnter", sink, addressRule(player))
}

// WatchRequestedRaffleWinner streams RequestedRaffleWinner events.
func (r *Raffle) WatchRequestedRaffleWinner(ctx context.Context, sink chan<- *RequestedRaffleWinner) (event.Subscription, error) {
	return watchEvent(ctx, &r.c, "RequestedRaffleWinner", sink)
}

// WatchWinnerPicked streams WinnerPicked events, optionally only for the given winners.
func (r *Raffle) WatchWinnerPicked(ctx context.Context, sink chan<- *WinnerPicked, player ...common.Address) (event.Subscription, error) {
	return watchEvent(ctx, &r.c, "WinnerPicked", sink, addressRule(player))
}

// FilterWinnerPicked returns past WinnerPicked events between the given blocks.
func (r *Raffle) FilterWinnerPicked(ctx context.Context, from, to *big.Int) ([]*WinnerPicked, error) {
	return filterEvent[WinnerPicked](ctx, &r.c, "WinnerPicked", from, to)
}

func addressRule(addrs []common.Address) []interface{} {
	rule := make([]interface{}, 0, len(addrs))
	for _, a := range addrs {
		rule = append(rule, a)
	}
	return rule
}

func (r *Raffle) String() string {
	return fmt.Sprintf("Raffle(%s)", r.c.address.Hex())
}
