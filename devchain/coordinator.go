package devchain

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"raffle/raffle"
)

// Gas charged to a subscription for one fulfillment. The mock has no metering,
// so a fixed amount stands in for the callback's gas use.
const fulfillGas = 100_000

type subscription struct {
	owner     common.Address
	balance   *big.Int
	consumers []common.Address
}

type randomWordsRequest struct {
	subID            uint64
	callbackGasLimit uint32
	numWords         uint32
}

// coordinatorContract mirrors VRFCoordinatorV2Mock. Requests are answered only
// when fulfillRandomWords is called explicitly.
type coordinatorContract struct {
	baseFee      *big.Int
	gasPriceLink *big.Int

	currentSubID  uint64
	nextRequestID *big.Int
	nextPreSeed   *big.Int
	subscriptions map[uint64]*subscription
	requests      map[string]randomWordsRequest
}

func newCoordinatorContract(_ *execContext, args []interface{}) (contract, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("coordinator constructor: got %d args, want 2", len(args))
	}
	baseFee, ok1 := args[0].(*big.Int)
	gasPriceLink, ok2 := args[1].(*big.Int)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("coordinator constructor: unexpected argument types")
	}
	return &coordinatorContract{
		baseFee:       new(big.Int).Set(baseFee),
		gasPriceLink:  new(big.Int).Set(gasPriceLink),
		nextRequestID: big.NewInt(1),
		nextPreSeed:   big.NewInt(100),
		subscriptions: make(map[uint64]*subscription),
		requests:      make(map[string]randomWordsRequest),
	}, nil
}

func (c *coordinatorContract) abi() *abi.ABI { return raffle.ParsedCoordinatorABI() }

func (c *coordinatorContract) copy() contract {
	cpy := &coordinatorContract{
		baseFee:       c.baseFee,
		gasPriceLink:  c.gasPriceLink,
		currentSubID:  c.currentSubID,
		nextRequestID: new(big.Int).Set(c.nextRequestID),
		nextPreSeed:   new(big.Int).Set(c.nextPreSeed),
		subscriptions: make(map[uint64]*subscription, len(c.subscriptions)),
		requests:      make(map[string]randomWordsRequest, len(c.requests)),
	}
	for id, s := range c.subscriptions {
		cpy.subscriptions[id] = &subscription{
			owner:     s.owner,
			balance:   new(big.Int).Set(s.balance),
			consumers: append([]common.Address(nil), s.consumers...),
		}
	}
	for id, r := range c.requests {
		cpy.requests[id] = r
	}
	return cpy
}

func (c *coordinatorContract) restore(from contract) {
	*c = *from.copy().(*coordinatorContract)
}

func (c *coordinatorContract) call(x *execContext, m *abi.Method, args []interface{}) ([]interface{}, error) {
	switch m.Name {
	case "createSubscription":
		id, err := c.createSubscription(x)
		if err != nil {
			return nil, err
		}
		return []interface{}{id}, nil
	case "fundSubscription":
		return nil, c.fundSubscription(x, args[0].(uint64), args[1].(*big.Int))
	case "addConsumer":
		return nil, c.addConsumer(x, args[0].(uint64), args[1].(common.Address))
	case "requestRandomWords":
		id, err := c.requestRandomWords(x,
			args[0].([32]byte), args[1].(uint64), args[2].(uint16), args[3].(uint32), args[4].(uint32))
		if err != nil {
			return nil, err
		}
		return []interface{}{id}, nil
	case "fulfillRandomWords":
		return nil, c.fulfillRandomWords(x, args[0].(*big.Int), args[1].(common.Address))
	case "getSubscription":
		s, ok := c.subscriptions[args[0].(uint64)]
		if !ok {
			return nil, customError(c.abi(), "InvalidSubscription")
		}
		return []interface{}{
			new(big.Int).Set(s.balance),
			uint64(0),
			s.owner,
			append([]common.Address{}, s.consumers...),
		}, nil
	}
	return nil, &revertError{}
}

func (c *coordinatorContract) createSubscription(x *execContext) (uint64, error) {
	c.currentSubID++
	id := c.currentSubID
	c.subscriptions[id] = &subscription{owner: x.caller, balance: new(big.Int)}
	return id, x.emit(c.abi(), "SubscriptionCreated", id, x.caller)
}

func (c *coordinatorContract) fundSubscription(x *execContext, subID uint64, amount *big.Int) error {
	s, ok := c.subscriptions[subID]
	if !ok {
		return customError(c.abi(), "InvalidSubscription")
	}
	old := new(big.Int).Set(s.balance)
	s.balance.Add(s.balance, amount)
	return x.emit(c.abi(), "SubscriptionFunded", subID, old, new(big.Int).Set(s.balance))
}

func (c *coordinatorContract) addConsumer(x *execContext, subID uint64, consumer common.Address) error {
	s, ok := c.subscriptions[subID]
	if !ok {
		return customError(c.abi(), "InvalidSubscription")
	}
	if s.owner != x.caller {
		return customError(c.abi(), "MustBeSubOwner", s.owner)
	}
	if slices.Contains(s.consumers, consumer) {
		return nil
	}
	s.consumers = append(s.consumers, consumer)
	return x.emit(c.abi(), "ConsumerAdded", subID, consumer)
}

func (c *coordinatorContract) requestRandomWords(x *execContext, keyHash [32]byte, subID uint64, minConf uint16, gasLimit, numWords uint32) (*big.Int, error) {
	s, ok := c.subscriptions[subID]
	if !ok {
		return nil, customError(c.abi(), "InvalidSubscription")
	}
	if !slices.Contains(s.consumers, x.caller) {
		return nil, customError(c.abi(), "InvalidConsumer", subID, x.caller)
	}

	requestID := new(big.Int).Set(c.nextRequestID)
	preSeed := new(big.Int).Set(c.nextPreSeed)
	c.nextRequestID.Add(c.nextRequestID, big.NewInt(1))
	c.nextPreSeed.Add(c.nextPreSeed, big.NewInt(1))
	c.requests[requestID.String()] = randomWordsRequest{subID: subID, callbackGasLimit: gasLimit, numWords: numWords}

	err := x.emit(c.abi(), "RandomWordsRequested",
		common.Hash(keyHash), requestID, preSeed, subID, minConf, gasLimit, numWords, x.caller)
	return requestID, err
}

func (c *coordinatorContract) fulfillRandomWords(x *execContext, requestID *big.Int, consumer common.Address) error {
	req, ok := c.requests[requestID.String()]
	if !ok {
		return requireError("nonexistent request")
	}
	delete(c.requests, requestID.String())

	words := make([]*big.Int, req.numWords)
	for i := range words {
		words[i] = randomWord(requestID, uint64(i))
	}
	success := x.tryCall(consumer, "rawFulfillRandomWords", requestID, words) == nil

	payment := new(big.Int).Mul(c.gasPriceLink, big.NewInt(fulfillGas))
	payment.Add(payment, c.baseFee)
	s, ok := c.subscriptions[req.subID]
	if !ok {
		return customError(c.abi(), "InvalidSubscription")
	}
	if s.balance.Cmp(payment) < 0 {
		return customError(c.abi(), "InsufficientBalance")
	}
	s.balance.Sub(s.balance, payment)

	return x.emit(c.abi(), "RandomWordsFulfilled", requestID, requestID, payment, success)
}

// randomWord is keccak256(abi.encode(requestID, i)).
func randomWord(requestID *big.Int, i uint64) *big.Int {
	var buf [64]byte
	requestID.FillBytes(buf[:32])
	new(big.Int).SetUint64(i).FillBytes(buf[32:])

	h := sha3.NewLegacyKeccak256()
	h.Write(buf[:])
	return new(big.Int).SetBytes(h.Sum(nil))
}
