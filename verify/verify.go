package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Outcome is the result of a best-effort verification.
type Outcome int

const (
	OutcomeVerified Outcome = iota
	OutcomeAlreadyVerified
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeAlreadyVerified:
		return "already_verified"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

var verifyAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "raffle_verify_attempts_total",
		Help: "Contract verification attempts by outcome",
	},
	[]string{"outcome"},
)

// IsAlreadyVerified reports whether err says the contract is already verified.
func IsAlreadyVerified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already verified")
}

// Contract verifies req with svc on a best-effort basis. An already verified
// contract counts as success. Other failures are logged, never returned.
func Contract(ctx context.Context, logger *zap.Logger, svc Service, req Request) Outcome {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("attempt", uuid.NewString()),
		zap.String("address", req.Address.Hex()),
		zap.String("contract", req.ContractName))
	logger.Info("Verifying contract...")

	var outcome Outcome
	err := svc.Verify(ctx, req)
	switch {
	case err == nil:
		outcome = OutcomeVerified
		logger.Info("Contract verified")
	case IsAlreadyVerified(err):
		outcome = OutcomeAlreadyVerified
		logger.Info("Already verified!")
	default:
		outcome = OutcomeFailed
		logger.Warn("Verification failed", zap.Error(err))
	}
	verifyAttempts.WithLabelValues(outcome.String()).Inc()
	return outcome
}

// EncodeConstructorArgs ABI-encodes constructor arguments as deployed.
func EncodeConstructorArgs(a *abi.ABI, args ...interface{}) ([]byte, error) {
	return a.Pack("", args...)
}

// TypedArgs converts the string form of constructor arguments, as stored in a
// deployment record, into the Go values the constructor inputs expect.
func TypedArgs(a *abi.ABI, args []string) ([]interface{}, error) {
	inputs := a.Constructor.Inputs
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("got %d constructor args, want %d", len(args), len(inputs))
	}

	out := make([]interface{}, len(args))
	for i, in := range inputs {
		v, err := typedArg(in.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("arg %d (%s): %w", i, in.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

func typedArg(t abi.Type, s string) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.StringTy:
		return s, nil
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if t.Size != 32 || len(b) != 32 {
			return nil, errors.New("only bytes32 is supported")
		}
		return [32]byte(b), nil
	case abi.UintTy:
		n, ok := new(big.Int).SetString(s, 0)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("invalid uint %q", s)
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s overflows uint%d", s, t.Size)
		}
		switch t.Size {
		case 8:
			return uint8(n.Uint64()), nil
		case 16:
			return uint16(n.Uint64()), nil
		case 32:
			return uint32(n.Uint64()), nil
		case 64:
			return n.Uint64(), nil
		default:
			return n, nil
		}
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}
