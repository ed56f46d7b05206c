package devchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"raffle/raffle"
)

const (
	raffleRequestConfirmations = 3
	raffleNumWords             = 1

	// Solidity panic code for division or modulo by zero.
	panicDivisionByZero = 0x12
)

// raffleContract mirrors the Raffle contract: players pay the entrance fee,
// upkeep requests a random word once the interval has passed and the
// coordinator callback pays the whole balance to the picked player.
type raffleContract struct {
	coordinator      common.Address
	subscriptionID   uint64
	gasLane          [32]byte
	interval         *big.Int
	entranceFee      *big.Int
	callbackGasLimit uint32

	players       []common.Address
	recentWinner  common.Address
	state         raffle.State
	lastTimestamp *big.Int
}

func newRaffleContract(x *execContext, args []interface{}) (contract, error) {
	if len(args) != 6 {
		return nil, fmt.Errorf("raffle constructor: got %d args, want 6", len(args))
	}
	coordinator, ok1 := args[0].(common.Address)
	subID, ok2 := args[1].(uint64)
	gasLane, ok3 := args[2].([32]byte)
	interval, ok4 := args[3].(*big.Int)
	fee, ok5 := args[4].(*big.Int)
	gasLimit, ok6 := args[5].(uint32)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, fmt.Errorf("raffle constructor: unexpected argument types")
	}

	return &raffleContract{
		coordinator:      coordinator,
		subscriptionID:   subID,
		gasLane:          gasLane,
		interval:         new(big.Int).Set(interval),
		entranceFee:      new(big.Int).Set(fee),
		callbackGasLimit: gasLimit,
		state:            raffle.StateOpen,
		lastTimestamp:    x.timestamp(),
	}, nil
}

func (r *raffleContract) abi() *abi.ABI { return raffle.ParsedRaffleABI() }

func (r *raffleContract) copy() contract {
	cpy := *r
	cpy.players = append([]common.Address(nil), r.players...)
	cpy.interval = new(big.Int).Set(r.interval)
	cpy.entranceFee = new(big.Int).Set(r.entranceFee)
	cpy.lastTimestamp = new(big.Int).Set(r.lastTimestamp)
	return &cpy
}

func (r *raffleContract) restore(from contract) {
	*r = *from.copy().(*raffleContract)
}

func (r *raffleContract) call(x *execContext, m *abi.Method, args []interface{}) ([]interface{}, error) {
	switch m.Name {
	case "enterRaffle":
		return nil, r.enter(x)
	case "checkUpkeep":
		return []interface{}{r.upkeepNeeded(x), []byte{}}, nil
	case "performUpkeep":
		return nil, r.performUpkeep(x)
	case "rawFulfillRandomWords":
		return nil, r.rawFulfillRandomWords(x, args[0].(*big.Int), args[1].([]*big.Int))
	case "getEntranceFee":
		return []interface{}{new(big.Int).Set(r.entranceFee)}, nil
	case "getInterval":
		return []interface{}{new(big.Int).Set(r.interval)}, nil
	case "getLatestTimeStamp":
		return []interface{}{new(big.Int).Set(r.lastTimestamp)}, nil
	case "getNumWords":
		return []interface{}{big.NewInt(raffleNumWords)}, nil
	case "getNumberOfPlayers":
		return []interface{}{big.NewInt(int64(len(r.players)))}, nil
	case "getPlayer":
		idx := args[0].(*big.Int)
		if !idx.IsUint64() || idx.Uint64() >= uint64(len(r.players)) {
			// array index out of bounds
			return nil, panicError(0x32)
		}
		return []interface{}{r.players[idx.Uint64()]}, nil
	case "getRaffleState":
		return []interface{}{uint8(r.state)}, nil
	case "getRecentWinner":
		return []interface{}{r.recentWinner}, nil
	case "getRequestConfirmations":
		return []interface{}{big.NewInt(raffleRequestConfirmations)}, nil
	}
	return nil, &revertError{}
}

func (r *raffleContract) enter(x *execContext) error {
	a := r.abi()
	if x.value.Cmp(r.entranceFee) < 0 {
		return customError(a, "Raffle__NotEnoughETHEntered")
	}
	if r.state != raffle.StateOpen {
		return customError(a, "Raffle__NotOpen")
	}
	r.players = append(r.players, x.caller)
	return x.emit(a, "RaffleEnter", x.caller)
}

func (r *raffleContract) upkeepNeeded(x *execContext) bool {
	isOpen := r.state == raffle.StateOpen
	elapsed := new(big.Int).Sub(x.timestamp(), r.lastTimestamp)
	timePassed := elapsed.Cmp(r.interval) > 0
	hasPlayers := len(r.players) > 0
	hasBalance := x.balance(x.self).Sign() > 0
	return isOpen && timePassed && hasPlayers && hasBalance
}

func (r *raffleContract) performUpkeep(x *execContext) error {
	a := r.abi()
	if !r.upkeepNeeded(x) {
		return customError(a, "Raffle__UpkeepNotNeeded",
			x.balance(x.self),
			big.NewInt(int64(len(r.players))),
			big.NewInt(int64(r.state)),
		)
	}
	r.state = raffle.StateCalculating

	out, err := x.callContract(r.coordinator, nil, "requestRandomWords",
		r.gasLane,
		r.subscriptionID,
		uint16(raffleRequestConfirmations),
		r.callbackGasLimit,
		uint32(raffleNumWords),
	)
	if err != nil {
		return err
	}
	return x.emit(a, "RequestedRaffleWinner", out[0].(*big.Int))
}

func (r *raffleContract) rawFulfillRandomWords(x *execContext, requestID *big.Int, words []*big.Int) error {
	a := r.abi()
	if x.caller != r.coordinator {
		return customError(a, "OnlyCoordinatorCanFulfill", x.caller, r.coordinator)
	}
	if len(r.players) == 0 {
		return panicError(panicDivisionByZero)
	}
	if len(words) == 0 {
		return panicError(0x32)
	}

	idx := new(big.Int).Mod(words[0], big.NewInt(int64(len(r.players))))
	winner := r.players[idx.Uint64()]
	r.recentWinner = winner
	r.state = raffle.StateOpen
	r.players = nil
	r.lastTimestamp = x.timestamp()

	if err := x.transfer(x.self, winner, x.balance(x.self)); err != nil {
		return customError(a, "Raffle__TransferFailed")
	}
	return x.emit(a, "WinnerPicked", winner)
}
