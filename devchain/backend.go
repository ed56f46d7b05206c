package devchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"raffle/chain"
)

// Backend is the node interface of a Chain, the counterpart of an
// ethclient.Client connected to a local node.
type Backend struct {
	c *Chain
}

func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.c.chainID), nil
}

func (b *Backend) BlockNumber(context.Context) (uint64, error) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.st.head().Number.Uint64(), nil
}

func (b *Backend) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if number == nil || number.Sign() < 0 {
		return types.CopyHeader(c.st.head()), nil
	}
	if !number.IsUint64() || number.Uint64() >= uint64(len(c.st.blocks)) {
		return nil, ethereum.NotFound
	}
	return types.CopyHeader(c.st.blocks[number.Uint64()]), nil
}

// BalanceAt returns the current balance. Historical state is not kept.
func (b *Backend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.st.balance(account), nil
}

func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.st.accounts[account]; ok {
		return a.nonce, nil
	}
	return 0, nil
}

// CallContract executes msg against a copy of the latest state.
func (b *Backend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c := b.c
	c.mu.Lock()
	st := c.st.clone()
	header := st.head()
	c.mu.Unlock()

	return call(st, header, msg)
}

// EstimateGas executes msg in the context of the next block and reports a
// fixed gas amount when it succeeds.
func (b *Backend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	c := b.c
	c.mu.Lock()
	st := c.st.clone()
	header := st.pendingHeader()
	c.mu.Unlock()

	if _, err := call(st, header, msg); err != nil {
		return 0, err
	}
	return callGas, nil
}

func call(st *state, header *types.Header, msg ethereum.CallMsg) ([]byte, error) {
	if msg.To == nil {
		return nil, errors.New("contract creation calls are not supported")
	}
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}

	var logs []*types.Log
	x := &execContext{st: st, header: header, caller: msg.From, self: *msg.To, value: value, logs: &logs}
	if err := x.transfer(msg.From, *msg.To, value); err != nil {
		return nil, err
	}
	return dispatch(x, msg.Data)
}

// SuggestGasPrice is zero so balance changes equal the transferred values.
func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int), nil
}

// SendTransaction executes tx in a new block. Reverted transactions are mined
// with a failed receipt, like on a real node.
func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c := b.c
	receipt, err := c.apply(tx)
	if err != nil {
		transactionsTotal.WithLabelValues("rejected").Inc()
		return err
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		transactionsTotal.WithLabelValues("success").Inc()
	} else {
		transactionsTotal.WithLabelValues("reverted").Inc()
	}
	blocksMined.Inc()

	if len(receipt.Logs) > 0 {
		c.logsFeed.Send(receipt.Logs)
	}
	return nil
}

func (c *Chain) apply(tx *types.Transaction) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if tx.To() == nil {
		return nil, errors.New("contract creation transactions are not supported")
	}
	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}

	st := c.st
	sender := st.account(from)
	if tx.Nonce() != sender.nonce {
		return nil, fmt.Errorf("invalid nonce for %s: have %d, want %d", from.Hex(), tx.Nonce(), sender.nonce)
	}
	gasUsed := min(tx.Gas(), txGas+16*uint64(len(tx.Data())))
	fee := new(big.Int).Mul(tx.GasPrice(), new(big.Int).SetUint64(gasUsed))
	cost := new(big.Int).Add(fee, tx.Value())
	if sender.balance.Cmp(cost) < 0 {
		return nil, fmt.Errorf("insufficient funds for gas * price + value: have %s want %s", sender.balance, cost)
	}
	sender.nonce++
	sender.balance.Sub(sender.balance, fee)

	header := st.pendingHeader()
	var logs []*types.Log
	cp := st.checkpoint(logs)
	x := &execContext{st: st, header: header, caller: from, self: *tx.To(), value: tx.Value(), logs: &logs}

	status := types.ReceiptStatusSuccessful
	err = x.transfer(from, *tx.To(), tx.Value())
	if err == nil {
		_, err = dispatch(x, tx.Data())
	}
	if err != nil {
		st.revertTo(cp, &logs)
		status = types.ReceiptStatusFailed
		c.logger.Debug("Transaction reverted",
			zap.String("tx", tx.Hash().Hex()),
			zap.String("from", from.Hex()),
			zap.Error(err))
	}

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		CumulativeGasUsed: gasUsed,
		Logs:              logs,
		TxHash:            tx.Hash(),
		GasUsed:           gasUsed,
		EffectiveGasPrice: tx.GasPrice(),
	}
	if receipt.Logs == nil {
		receipt.Logs = []*types.Log{}
	}
	st.seal(header, receipt)

	c.logger.Debug("Transaction mined",
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("block", header.Number.Uint64()),
		zap.Uint64("status", status),
		zap.Int("logs", len(logs)))
	return receipt, nil
}

// constructor builds a contract's initial state from its constructor arguments.
type constructor func(x *execContext, args []interface{}) (contract, error)

// deploy creates a contract from signer the way a deployment transaction would
// and records it under name.
func (c *Chain) deploy(from *chain.Signer, name, abiJSON string, ctor constructor, args ...interface{}) (common.Address, error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return common.Address{}, ErrClosed
	}
	st := c.st
	sender := st.account(from.Address)
	addr := crypto.CreateAddress(from.Address, sender.nonce)
	header := st.pendingHeader()

	var logs []*types.Log
	x := &execContext{st: st, header: header, caller: from.Address, self: addr, value: new(big.Int), logs: &logs}
	con, err := ctor(x, args)
	if err != nil {
		c.mu.Unlock()
		return common.Address{}, fmt.Errorf("deploy %s: %w", name, err)
	}
	sender.nonce++
	st.contracts[addr] = con

	txHash := crypto.Keccak256Hash(from.Address.Bytes(), addr.Bytes())
	receipt := &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: txGas,
		GasUsed:           txGas,
		Logs:              logs,
		TxHash:            txHash,
		ContractAddress:   addr,
		EffectiveGasPrice: new(big.Int),
	}
	if receipt.Logs == nil {
		receipt.Logs = []*types.Log{}
	}
	st.seal(header, receipt)

	d := chain.NewDeployment(name, addr, abiJSON, args...)
	d.TransactionHash = &txHash
	st.deployments[name] = d
	c.mu.Unlock()

	blocksMined.Inc()
	if len(logs) > 0 {
		c.logsFeed.Send(logs)
	}
	c.logger.Info("Deployed contract",
		zap.String("contract", name),
		zap.String("address", addr.Hex()),
		zap.String("from", from.Address.Hex()))
	return addr, nil
}

func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.st.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// FilterLogs returns the stored logs matching q. Nil block bounds mean the
// latest block, as with eth_getLogs.
func (b *Backend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()

	head := c.st.head().Number
	if q.BlockHash == nil {
		if q.FromBlock == nil {
			q.FromBlock = head
		}
		if q.ToBlock == nil {
			q.ToBlock = head
		}
	}

	var out []types.Log
	for _, l := range c.st.logs {
		if matchLog(q, l) {
			out = append(out, *l)
		}
	}
	return out, nil
}

// SubscribeFilterLogs streams logs of transactions mined after the call.
func (b *Backend) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c := b.c
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	batches := make(chan []*types.Log, 16)
	feedSub := c.scope.Track(c.logsFeed.Subscribe(batches))

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer feedSub.Unsubscribe()
		for {
			select {
			case logs := <-batches:
				for _, l := range logs {
					if !matchLog(q, l) {
						continue
					}
					select {
					case ch <- *l:
					case <-quit:
						return nil
					}
				}
			case err := <-feedSub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func matchLog(q ethereum.FilterQuery, l *types.Log) bool {
	if q.BlockHash != nil && l.BlockHash != *q.BlockHash {
		return false
	}
	if q.FromBlock != nil && q.FromBlock.Sign() >= 0 && l.BlockNumber < q.FromBlock.Uint64() {
		return false
	}
	if q.ToBlock != nil && q.ToBlock.Sign() >= 0 && l.BlockNumber > q.ToBlock.Uint64() {
		return false
	}
	if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
		return false
	}
	for i, set := range q.Topics {
		if len(set) == 0 {
			continue
		}
		if i >= len(l.Topics) || !containsHash(set, l.Topics[i]) {
			return false
		}
	}
	return true
}

func containsAddress(set []common.Address, a common.Address) bool {
	for _, s := range set {
		if s == a {
			return true
		}
	}
	return false
}

func containsHash(set []common.Hash, h common.Hash) bool {
	for _, s := range set {
		if s == h {
			return true
		}
	}
	return false
}
