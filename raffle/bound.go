package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"raffle/chain"
)

// ErrNoSigner is returned when a transaction is attempted on a read-only binding.
var ErrNoSigner = errors.New("binding has no signer")

// boundContract packs calls and transactions for one deployed contract.
type boundContract struct {
	address common.Address
	abi     *abi.ABI
	backend chain.Backend
	signer  *chain.Signer
}

func (c *boundContract) from() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address
}

// call executes a read-only method against the latest block.
func (c *boundContract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{From: c.from(), To: &c.address, Data: data}
	result, err := c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, wrapCallError(err))
	}

	out, err := c.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// transact signs and sends a method call, then waits for it to be mined.
// Reverts are caught at gas estimation and returned as *RevertError.
func (c *boundContract) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	if value == nil {
		value = new(big.Int)
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{From: c.signer.Address, To: &c.address, Value: value, Data: data}
	gas, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, wrapCallError(err))
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	nonce, err := c.backend.PendingNonceAt(ctx, c.signer.Address)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas + gas/5,
		To:       &c.address,
		Value:    value,
		Data:     data,
	})
	signed, err := c.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, wrapCallError(err))
	}

	receipt, err := chain.WaitMined(ctx, c.backend, signed.Hash())
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%s: %w in transaction %s", method, ErrReverted, signed.Hash().Hex())
	}
	return receipt, nil
}

// unpackLog decodes l into out, which must be a pointer to the event struct.
func (c *boundContract) unpackLog(out interface{}, name string, l types.Log) error {
	ev, ok := c.abi.Events[name]
	if !ok {
		return fmt.Errorf("unknown event %s", name)
	}
	if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
		return fmt.Errorf("log is not a %s event", name)
	}
	if len(l.Data) > 0 {
		if err := c.abi.UnpackIntoInterface(out, name, l.Data); err != nil {
			return fmt.Errorf("unpack %s: %w", name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return abi.ParseTopics(out, indexed, l.Topics[1:])
}

func (c *boundContract) query(name string, rules ...[]interface{}) (ethereum.FilterQuery, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return ethereum.FilterQuery{}, fmt.Errorf("unknown event %s", name)
	}
	topics, err := abi.MakeTopics(append([][]interface{}{{ev.ID}}, rules...)...)
	if err != nil {
		return ethereum.FilterQuery{}, err
	}
	return ethereum.FilterQuery{Addresses: []common.Address{c.address}, Topics: topics}, nil
}

// findLog returns the first log of event name emitted by this contract in receipt.
func (c *boundContract) findLog(receipt *types.Receipt, out interface{}, name string) error {
	ev, ok := c.abi.Events[name]
	if !ok {
		return fmt.Errorf("unknown event %s", name)
	}
	for _, l := range receipt.Logs {
		if l.Address != c.address || len(l.Topics) == 0 || l.Topics[0] != ev.ID {
			continue
		}
		return c.unpackLog(out, name, *l)
	}
	return fmt.Errorf("no %s event in transaction %s", name, receipt.TxHash.Hex())
}

// watchEvent streams decoded events into sink until the subscription is closed.
func watchEvent[T any](ctx context.Context, c *boundContract, name string, sink chan<- *T, rules ...[]interface{}) (event.Subscription, error) {
	q, err := c.query(name, rules...)
	if err != nil {
		return nil, err
	}
	logs := make(chan types.Log, 16)
	sub, err := chain.SubscribeLogs(ctx, c.backend, q, logs)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", name, err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				ev := new(T)
				if err := c.unpackLog(ev, name, l); err != nil {
					return err
				}
				if raw, ok := any(ev).(interface{ setRaw(types.Log) }); ok {
					raw.setRaw(l)
				}
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// filterEvent returns the decoded events in [from, to]; a nil bound is open.
func filterEvent[T any](ctx context.Context, c *boundContract, name string, from, to *big.Int, rules ...[]interface{}) ([]*T, error) {
	q, err := c.query(name, rules...)
	if err != nil {
		return nil, err
	}
	q.FromBlock, q.ToBlock = from, to

	logs, err := c.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", name, err)
	}
	out := make([]*T, 0, len(logs))
	for _, l := range logs {
		ev := new(T)
		if err := c.unpackLog(ev, name, l); err != nil {
			return nil, err
		}
		if raw, ok := any(ev).(interface{ setRaw(types.Log) }); ok {
			raw.setRaw(l)
		}
		out = append(out, ev)
	}
	return out, nil
}
