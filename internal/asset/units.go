package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrTooManyDecimals is returned when a decimal string is more precise than
// the token.
var ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")

// ParseUnits converts a decimal string ("0.05") into signed base units at the
// given precision. Values with more fractional digits than decimals are
// rejected rather than rounded.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("asset: invalid decimal string %q: %w", s, err)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrTooManyDecimals, s, decimals)
	}
	return scaled.BigInt(), nil
}

// MustParseUnits is ParseUnits for constants and tests.
func MustParseUnits(s string, decimals uint8) *big.Int {
	v, err := ParseUnits(s, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// UnitsToDecimal renders signed base units as a decimal for display.
func UnitsToDecimal(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// FormatUnits renders signed base units ("-0.0007").
func FormatUnits(raw *big.Int, decimals uint8) string {
	return UnitsToDecimal(raw, decimals).String()
}
