// Package helpers provides common utility functions used across the codebase.
package helpers

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ScaledAmount renders a raw on-chain integer amount (wei, satoshis, or any
// ERC-20 base unit) as a decimal string scaled by the token's decimals, e.g.
// ScaledAmount(1500000000000000000, 18) -> "1.5". Arithmetic stays on
// big.Int/decimal throughout; float64 never touches an on-chain amount.
func ScaledAmount(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, int32(-decimals)).String()
}

// UnscaledAmount parses a human decimal string into its raw base-unit
// representation for the given number of decimals, e.g.
// UnscaledAmount("1.5", 18) -> 1500000000000000000. Used when a caller needs
// to submit an amount back onto the chain rather than just display it.
func UnscaledAmount(s string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d.Shift(int32(decimals)).BigInt(), nil
}
