package devchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"raffle/chain"
)

type account struct {
	balance *big.Int
	nonce   uint64
}

// state is everything a fixture snapshot restores.
type state struct {
	accounts    map[common.Address]*account
	contracts   map[common.Address]contract
	deployments map[string]*chain.Deployment
	blocks      []*types.Header
	receipts    map[common.Hash]*types.Receipt
	logs        []*types.Log
	// seconds added to the timestamp of the next block
	timeOffset uint64
}

func newState(genesis *types.Header) *state {
	return &state{
		accounts:    make(map[common.Address]*account),
		contracts:   make(map[common.Address]contract),
		deployments: make(map[string]*chain.Deployment),
		blocks:      []*types.Header{genesis},
		receipts:    make(map[common.Hash]*types.Receipt),
	}
}

// clone deep copies the mutable parts. Headers, receipts, logs and deployments
// are never modified once stored and are shared.
func (s *state) clone() *state {
	cpy := &state{
		accounts:    copyAccounts(s.accounts),
		contracts:   make(map[common.Address]contract, len(s.contracts)),
		deployments: make(map[string]*chain.Deployment, len(s.deployments)),
		blocks:      append([]*types.Header(nil), s.blocks...),
		receipts:    make(map[common.Hash]*types.Receipt, len(s.receipts)),
		logs:        append([]*types.Log(nil), s.logs...),
		timeOffset:  s.timeOffset,
	}
	for addr, c := range s.contracts {
		cpy.contracts[addr] = c.copy()
	}
	for name, d := range s.deployments {
		cpy.deployments[name] = d
	}
	for hash, r := range s.receipts {
		cpy.receipts[hash] = r
	}
	return cpy
}

func copyAccounts(in map[common.Address]*account) map[common.Address]*account {
	out := make(map[common.Address]*account, len(in))
	for addr, a := range in {
		out[addr] = &account{balance: new(big.Int).Set(a.balance), nonce: a.nonce}
	}
	return out
}

func (s *state) head() *types.Header {
	return s.blocks[len(s.blocks)-1]
}

func (s *state) account(addr common.Address) *account {
	a, ok := s.accounts[addr]
	if !ok {
		a = &account{balance: new(big.Int)}
		s.accounts[addr] = a
	}
	return a
}

func (s *state) balance(addr common.Address) *big.Int {
	if a, ok := s.accounts[addr]; ok {
		return new(big.Int).Set(a.balance)
	}
	return new(big.Int)
}

// pendingHeader is the header of the block the next transaction lands in.
func (s *state) pendingHeader() *types.Header {
	parent := s.head()
	return &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number, big.NewInt(1)),
		Time:       parent.Time + 1 + s.timeOffset,
		GasLimit:   parent.GasLimit,
		Difficulty: new(big.Int),
	}
}

// seal appends header to the chain and stamps the receipt and its logs with it.
func (s *state) seal(header *types.Header, receipt *types.Receipt) {
	s.blocks = append(s.blocks, header)
	s.timeOffset = 0
	if receipt == nil {
		return
	}

	hash := header.Hash()
	receipt.BlockHash = hash
	receipt.BlockNumber = new(big.Int).Set(header.Number)
	for i, l := range receipt.Logs {
		l.BlockNumber = header.Number.Uint64()
		l.BlockHash = hash
		l.TxHash = receipt.TxHash
		l.TxIndex = 0
		l.Index = uint(i)
	}
	s.receipts[receipt.TxHash] = receipt
	s.logs = append(s.logs, receipt.Logs...)
}

// checkpoint captures what a reverted call must undo.
type checkpoint struct {
	accounts  map[common.Address]*account
	contracts map[common.Address]contract
	logs      int
}

func (s *state) checkpoint(logs []*types.Log) *checkpoint {
	cp := &checkpoint{
		accounts:  copyAccounts(s.accounts),
		contracts: make(map[common.Address]contract, len(s.contracts)),
		logs:      len(logs),
	}
	for addr, c := range s.contracts {
		cp.contracts[addr] = c.copy()
	}
	return cp
}

// revertTo restores cp. Contract objects keep their identity so that callers
// up the stack still hold the live instance.
func (s *state) revertTo(cp *checkpoint, logs *[]*types.Log) {
	s.accounts = cp.accounts
	for addr, c := range s.contracts {
		saved, ok := cp.contracts[addr]
		if !ok {
			delete(s.contracts, addr)
			continue
		}
		c.restore(saved)
	}
	*logs = (*logs)[:cp.logs]
}
