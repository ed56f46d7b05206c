package raffle

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// ToEther converts a wei amount to ether.
func ToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -etherDecimals)
}

// FormatEther renders a wei amount in ether, e.g. "0.01".
func FormatEther(wei *big.Int) string {
	return ToEther(wei).String()
}

// ParseEther converts an ether amount such as "0.01" to wei.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid ether amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid ether amount %q: negative", s)
	}
	wei := d.Shift(etherDecimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("invalid ether amount %q: more than %d decimals", s, etherDecimals)
	}
	return wei.BigInt(), nil
}
