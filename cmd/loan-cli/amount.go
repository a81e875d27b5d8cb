package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// nativeDecimals is the number of base units per whole coin.
const nativeDecimals = 18

// parseAmount converts a decimal coin amount into base units. With baseUnits
// set the value is taken as an integer count of base units instead.
func parseAmount(value string, baseUnits bool) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}
	if !baseUnits {
		d = d.Mul(decimal.New(1, nativeDecimals))
	}
	if !d.Equal(d.Truncate(0)) {
		if baseUnits {
			return nil, fmt.Errorf("amount %q must be a whole number of base units", value)
		}
		return nil, fmt.Errorf("amount %q has more than %d decimal places", value, nativeDecimals)
	}
	return d.BigInt(), nil
}

// formatAmount renders base units as a decimal coin amount.
func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -nativeDecimals).String()
}

// parseUnits parses a positive integer count of registry units.
func parseUnits(value string) (*big.Int, error) {
	units, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || units.Sign() <= 0 {
		return nil, fmt.Errorf("units must be a positive integer, got %q", value)
	}
	return units, nil
}

func parseBigString(value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return v, nil
}
