package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultDecimals int32 = 18

// maxExponent bounds scientific notation before scaling; anything beyond it
// cannot fit a uint256 amount anyway.
const maxExponent = 100

var errInvalidAmount = errors.New("invalid amount")

// ParseUnits converts a human amount ("10.5") into atomic units using the
// given number of decimals. Negative values and values with more fractional
// digits than decimals are rejected, as are values that do not fit a uint256.
func ParseUnits(amount string, decimals int32) (*big.Int, error) {
	amount = strings.TrimSpace(amount)

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w %q", errInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w %q: negative", errInvalidAmount, amount)
	}

	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return nil, fmt.Errorf("%w %q: exponent out of range", errInvalidAmount, amount)
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w %q: more than %d decimals", errInvalidAmount, amount, decimals)
	}
	v := scaled.BigInt()
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("%w %q: exceeds uint256", errInvalidAmount, amount)
	}
	return v, nil
}

// FormatUnits is the inverse of ParseUnits, trailing zeros trimmed.
func FormatUnits(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}
