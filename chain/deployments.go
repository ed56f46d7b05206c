package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Deployment is a deployed contract as recorded by hardhat-deploy under
// deployments/<network>/<Name>.json.
type Deployment struct {
	Name            string            `json:"-"`
	Address         common.Address    `json:"address"`
	ABI             json.RawMessage   `json:"abi"`
	Args            []json.RawMessage `json:"args,omitempty"`
	TransactionHash *common.Hash      `json:"transactionHash,omitempty"`
}

// NewDeployment records a contract deployed with the given constructor arguments.
func NewDeployment(name string, address common.Address, abiJSON string, args ...interface{}) *Deployment {
	d := &Deployment{
		Name:    name,
		Address: address,
		ABI:     json.RawMessage(abiJSON),
	}
	for _, a := range args {
		raw, _ := json.Marshal(formatArg(a))
		d.Args = append(d.Args, raw)
	}
	return d
}

// ParseABI parses the recorded ABI.
func (d *Deployment) ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(string(d.ABI)))
}

// StringArgs returns the constructor arguments as strings. Quoted JSON values are
// unquoted, numbers and booleans keep their literal form.
func (d *Deployment) StringArgs() ([]string, error) {
	out := make([]string, 0, len(d.Args))
	for i, raw := range d.Args {
		if len(raw) > 0 && raw[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			out = append(out, s)
			continue
		}
		out = append(out, string(raw))
	}
	return out, nil
}

// LoadDeployment reads deployments/<network>/<name>.json below dir.
func LoadDeployment(dir, network, name string) (*Deployment, error) {
	path := filepath.Join(dir, network, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s on %s", ErrNoDeployment, name, network)
		}
		return nil, fmt.Errorf("read deployment %s: %w", path, err)
	}

	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse deployment %s: %w", path, err)
	}
	if d.Address == (common.Address{}) {
		return nil, fmt.Errorf("deployment %s has no address", path)
	}
	d.Name = name
	return &d, nil
}

func formatArg(v interface{}) string {
	switch a := v.(type) {
	case common.Address:
		return a.Hex()
	case common.Hash:
		return a.Hex()
	case [32]byte:
		return hexutil.Encode(a[:])
	case []byte:
		return hexutil.Encode(a)
	case *big.Int:
		return a.String()
	case uint64:
		return strconv.FormatUint(a, 10)
	case uint32:
		return strconv.FormatUint(uint64(a), 10)
	case bool:
		return strconv.FormatBool(a)
	case string:
		return a
	default:
		return fmt.Sprint(a)
	}
}
