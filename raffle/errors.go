package raffle

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"raffle/chain"
)

// Contract revert kinds. A *RevertError unwraps to the matching sentinel,
// so callers test with errors.Is.
var (
	ErrReverted            = errors.New("execution reverted")
	ErrNotEnoughETHEntered = errors.New("Raffle__NotEnoughETHEntered")
	ErrNotOpen             = errors.New("Raffle__NotOpen")
	ErrUpkeepNotNeeded     = errors.New("Raffle__UpkeepNotNeeded")
	ErrTransferFailed      = errors.New("Raffle__TransferFailed")
	ErrOnlyCoordinator     = errors.New("OnlyCoordinatorCanFulfill")
	ErrInvalidSubscription = errors.New("InvalidSubscription")
	ErrInsufficientBalance = errors.New("InsufficientBalance")
	ErrInvalidConsumer     = errors.New("InvalidConsumer")
)

var sentinels = map[string]error{
	"Raffle__NotEnoughETHEntered": ErrNotEnoughETHEntered,
	"Raffle__NotOpen":             ErrNotOpen,
	"Raffle__UpkeepNotNeeded":     ErrUpkeepNotNeeded,
	"Raffle__TransferFailed":      ErrTransferFailed,
	"OnlyCoordinatorCanFulfill":   ErrOnlyCoordinator,
	"InvalidSubscription":         ErrInvalidSubscription,
	"InsufficientBalance":         ErrInsufficientBalance,
	"InvalidConsumer":             ErrInvalidConsumer,
}

var (
	errorStringSelector = []byte{0x08, 0xc3, 0x79, 0xa0}
	panicSelector       = []byte{0x4e, 0x48, 0x7b, 0x71}
)

// RevertError is a decoded contract revert.
type RevertError struct {
	// Name is the custom error name, "Error" for require messages, "Panic" for
	// assertion failures and empty when the payload could not be matched.
	Name   string
	Reason string
	Args   []interface{}
	Data   []byte
}

func (e *RevertError) Error() string {
	switch {
	case e.Reason != "":
		return "execution reverted: " + e.Reason
	case e.Name != "" && len(e.Args) > 0:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = fmt.Sprint(a)
		}
		return fmt.Sprintf("execution reverted: %s(%s)", e.Name, strings.Join(parts, ", "))
	case e.Name != "":
		return "execution reverted: " + e.Name
	default:
		return "execution reverted"
	}
}

func (e *RevertError) Unwrap() []error {
	if s, ok := sentinels[e.Name]; ok {
		return []error{ErrReverted, s}
	}
	return []error{ErrReverted}
}

// DecodeRevert matches revert data against the raffle and coordinator errors.
func DecodeRevert(data []byte) *RevertError {
	re := &RevertError{Data: data}
	if len(data) < 4 {
		return re
	}

	selector := data[:4]
	switch {
	case bytes.Equal(selector, errorStringSelector):
		re.Name = "Error"
		re.Reason, _ = abi.UnpackRevert(data)
		return re
	case bytes.Equal(selector, panicSelector):
		re.Name = "Panic"
		re.Reason, _ = abi.UnpackRevert(data)
		return re
	}

	for _, a := range []*abi.ABI{&raffleABI, &coordinatorABI} {
		for name, e := range a.Errors {
			if !bytes.Equal(e.ID[:4], selector) {
				continue
			}
			re.Name = name
			if args, err := e.Inputs.Unpack(data[4:]); err == nil {
				re.Args = args
			}
			return re
		}
	}
	return re
}

// wrapCallError turns backend errors carrying revert data into *RevertError.
func wrapCallError(err error) error {
	if err == nil {
		return nil
	}
	if data, ok := chain.RevertData(err); ok {
		return DecodeRevert(data)
	}
	if msg := err.Error(); strings.HasPrefix(msg, "execution reverted") {
		reason := strings.TrimPrefix(strings.TrimPrefix(msg, "execution reverted"), ": ")
		return &RevertError{Reason: reason}
	}
	return err
}

// RevertReason returns the require message of a revert, or "".
func RevertReason(err error) string {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}

// UpkeepStatus is the payload of Raffle__UpkeepNotNeeded.
type UpkeepStatus struct {
	Balance *big.Int
	Players *big.Int
	State   State
}

// UpkeepNotNeeded extracts the payload of a Raffle__UpkeepNotNeeded revert.
func UpkeepNotNeeded(err error) (*UpkeepStatus, bool) {
	var re *RevertError
	if !errors.As(err, &re) || re.Name != "Raffle__UpkeepNotNeeded" || len(re.Args) != 3 {
		return nil, false
	}
	balance, ok1 := re.Args[0].(*big.Int)
	players, ok2 := re.Args[1].(*big.Int)
	state, ok3 := re.Args[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return nil, false
	}
	return &UpkeepStatus{Balance: balance, Players: players, State: State(state.Uint64())}, true
}
