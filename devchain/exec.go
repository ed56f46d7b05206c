package devchain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// contract is a Go implementation of a deployed contract.
type contract interface {
	abi() *abi.ABI
	call(x *execContext, m *abi.Method, args []interface{}) ([]interface{}, error)
	copy() contract
	// restore overwrites the receiver with a value produced by copy.
	restore(from contract)
}

// execContext is the environment of one message call.
type execContext struct {
	st     *state
	header *types.Header
	caller common.Address
	self   common.Address
	value  *big.Int
	logs   *[]*types.Log
}

func (x *execContext) timestamp() *big.Int {
	return new(big.Int).SetUint64(x.header.Time)
}

func (x *execContext) balance(addr common.Address) *big.Int {
	return x.st.balance(addr)
}

func (x *execContext) transfer(from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	src := x.st.account(from)
	if src.balance.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient funds for transfer: have %s want %s", src.balance, amount)
	}
	src.balance.Sub(src.balance, amount)
	dst := x.st.account(to)
	dst.balance.Add(dst.balance, amount)
	return nil
}

// emit appends a log of event name with args in declaration order.
func (x *execContext) emit(a *abi.ABI, name string, args ...interface{}) error {
	ev, ok := a.Events[name]
	if !ok {
		return fmt.Errorf("unknown event %s", name)
	}
	if len(args) != len(ev.Inputs) {
		return fmt.Errorf("event %s: got %d args, want %d", name, len(args), len(ev.Inputs))
	}

	topics := []common.Hash{ev.ID}
	var data []interface{}
	for i, in := range ev.Inputs {
		if !in.Indexed {
			data = append(data, args[i])
			continue
		}
		t, err := abi.MakeTopics([]interface{}{args[i]})
		if err != nil {
			return fmt.Errorf("event %s topic %s: %w", name, in.Name, err)
		}
		topics = append(topics, t[0][0])
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return fmt.Errorf("event %s: %w", name, err)
	}

	*x.logs = append(*x.logs, &types.Log{Address: x.self, Topics: topics, Data: packed})
	return nil
}

// callContract calls method on the contract at to with this contract as sender.
// A revert in the callee reverts the caller too.
func (x *execContext) callContract(to common.Address, value *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	c, ok := x.st.contracts[to]
	if !ok {
		return nil, &revertError{}
	}
	m, ok := c.abi().Methods[method]
	if !ok {
		return nil, &revertError{}
	}
	if value == nil {
		value = new(big.Int)
	}
	if err := x.transfer(x.self, to, value); err != nil {
		return nil, err
	}
	sub := &execContext{st: x.st, header: x.header, caller: x.self, self: to, value: value, logs: x.logs}
	return c.call(sub, &m, args)
}

// tryCall is callContract with the callee's effects undone on failure,
// like a low level call whose success flag is checked.
func (x *execContext) tryCall(to common.Address, method string, args ...interface{}) error {
	cp := x.st.checkpoint(*x.logs)
	if _, err := x.callContract(to, nil, method, args...); err != nil {
		x.st.revertTo(cp, x.logs)
		return err
	}
	return nil
}

// dispatch decodes calldata for the contract at x.self and runs it.
// Calls to accounts without code succeed with no output.
func dispatch(x *execContext, data []byte) ([]byte, error) {
	c, ok := x.st.contracts[x.self]
	if !ok {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, &revertError{}
	}
	m, err := c.abi().MethodById(data[:4])
	if err != nil {
		return nil, &revertError{}
	}
	if x.value.Sign() > 0 && !m.IsPayable() {
		return nil, &revertError{}
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, &revertError{}
	}
	out, err := c.call(x, m, args)
	if err != nil {
		return nil, err
	}
	return m.Outputs.Pack(out...)
}

// revertError carries revert data the way a JSON-RPC node reports it.
type revertError struct {
	data   []byte
	reason string
}

func (e *revertError) Error() string {
	if e.reason != "" {
		return "execution reverted: " + e.reason
	}
	return "execution reverted"
}

// ErrorData returns the hex encoded revert payload.
func (e *revertError) ErrorData() interface{} {
	return hexutil.Encode(e.data)
}

func isRevert(err error) bool {
	var re *revertError
	return errors.As(err, &re)
}

// customError builds the revert of a Solidity custom error declared in a.
func customError(a *abi.ABI, name string, args ...interface{}) error {
	e, ok := a.Errors[name]
	if !ok {
		return fmt.Errorf("unknown error %s", name)
	}
	packed, err := e.Inputs.Pack(args...)
	if err != nil {
		return fmt.Errorf("error %s: %w", name, err)
	}
	data := append(append([]byte{}, e.ID[:4]...), packed...)
	return &revertError{data: data, reason: name}
}

var (
	stringArgs  = abi.Arguments{{Type: mustType("string")}}
	uint256Args = abi.Arguments{{Type: mustType("uint256")}}
)

// requireError builds the revert of require(false, reason).
func requireError(reason string) error {
	packed, _ := stringArgs.Pack(reason)
	data := append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)
	return &revertError{data: data, reason: reason}
}

// panicError builds the revert of a Solidity panic with code.
func panicError(code uint64) error {
	packed, _ := uint256Args.Pack(new(big.Int).SetUint64(code))
	data := append([]byte{0x4e, 0x48, 0x7b, 0x71}, packed...)
	return &revertError{data: data}
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
