package raffle

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RaffleEnter is emitted when a player enters the raffle.
type RaffleEnter struct {
	Player common.Address
	Raw    types.Log
}

// RequestedRaffleWinner is emitted by performUpkeep with the VRF request id.
type RequestedRaffleWinner struct {
	RequestId *big.Int
	Raw       types.Log
}

// WinnerPicked is emitted once the randomness is fulfilled and the pot is paid out.
type WinnerPicked struct {
	Player common.Address
	Raw    types.Log
}

// SubscriptionCreated is emitted by the coordinator mock.
type SubscriptionCreated struct {
	SubId uint64
	Owner common.Address
	Raw   types.Log
}

// RandomWordsFulfilled is emitted by the coordinator mock after calling the consumer.
type RandomWordsFulfilled struct {
	RequestId  *big.Int
	OutputSeed *big.Int
	Payment    *big.Int
	Success    bool
	Raw        types.Log
}

func (e *RaffleEnter) setRaw(l types.Log)           { e.Raw = l }
func (e *RequestedRaffleWinner) setRaw(l types.Log) { e.Raw = l }
func (e *WinnerPicked) setRaw(l types.Log)          { e.Raw = l }
func (e *SubscriptionCreated) setRaw(l types.Log)   { e.Raw = l }
func (e *RandomWordsFulfilled) setRaw(l types.Log)  { e.Raw = l }
