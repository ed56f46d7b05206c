package raffle

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"raffle/chain"
)

// Coordinator binds a VRFCoordinatorV2Mock. Only development chains have one.
type Coordinator struct {
	c boundContract
}

// Subscription is the state of a VRF subscription.
type Subscription struct {
	Balance   *big.Int
	ReqCount  uint64
	Owner     common.Address
	Consumers []common.Address
}

func NewCoordinator(address common.Address, backend chain.Backend, signer *chain.Signer) *Coordinator {
	return &Coordinator{c: boundContract{
		address: address,
		abi:     &coordinatorABI,
		backend: backend,
		signer:  signer,
	}}
}

func (c *Coordinator) Address() common.Address { return c.c.address }

// CreateSubscription opens a subscription owned by the signer and returns its id.
func (c *Coordinator) CreateSubscription(ctx context.Context) (uint64, error) {
	receipt, err := c.c.transact(ctx, nil, "createSubscription")
	if err != nil {
		return 0, err
	}
	var ev SubscriptionCreated
	if err := c.c.findLog(receipt, &ev, "SubscriptionCreated"); err != nil {
		return 0, err
	}
	return ev.SubId, nil
}

// FundSubscription credits amount LINK juels to the subscription.
func (c *Coordinator) FundSubscription(ctx context.Context, subID uint64, amount *big.Int) (*types.Receipt, error) {
	return c.c.transact(ctx, nil, "fundSubscription", subID, amount)
}

func (c *Coordinator) AddConsumer(ctx context.Context, subID uint64, consumer common.Address) (*types.Receipt, error) {
	return c.c.transact(ctx, nil, "addConsumer", subID, consumer)
}

// FulfillRandomWords answers requestID by calling back consumer.
func (c *Coordinator) FulfillRandomWords(ctx context.Context, requestID *big.Int, consumer common.Address) (*types.Receipt, error) {
	return c.c.transact(ctx, nil, "fulfillRandomWords", requestID, consumer)
}

// Fulfilled returns the RandomWordsFulfilled event of a fulfillRandomWords receipt.
func (c *Coordinator) Fulfilled(receipt *types.Receipt) (*RandomWordsFulfilled, error) {
	ev := new(RandomWordsFulfilled)
	if err := c.c.findLog(receipt, ev, "RandomWordsFulfilled"); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Coordinator) GetSubscription(ctx context.Context, subID uint64) (*Subscription, error) {
	out, err := c.c.call(ctx, "getSubscription", subID)
	if err != nil {
		return nil, err
	}
	return &Subscription{
		Balance:   out[0].(*big.Int),
		ReqCount:  out[1].(uint64),
		Owner:     out[2].(common.Address),
		Consumers: out[3].([]common.Address),
	}, nil
}
