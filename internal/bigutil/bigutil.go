// Package bigutil centralizes the arbitrary-precision integer handling
// mandated by spec.md §9 ("Numeric discipline"): every token amount in the
// engine is a *big.Int, never a float, and the wire representation is always
// a decimal string.
//
// math/big is used directly rather than a third-party decimal type because
// none of the example repos in the retrieval pack (or the wider corpus this
// teacher draws from) import a big-decimal library for protocol amounts —
// they use math/big (geth's core/types) or fixed-width integer types
// (dcrutil.Amount) for on-chain quantities. big.Int is the closest fit for
// an arbitrary-precision unsigned integer with no native Go alternative.
package bigutil

import (
	"fmt"
	"math/big"
)

// ErrNegative is returned when a decimal string parses to a negative value.
var ErrNegative = fmt.Errorf("amount must not be negative")

// ParseAmount parses a decimal string into a non-negative *big.Int. It
// rejects empty strings, non-numeric input, and negative values, matching
// the InvalidAmountFormat / InvalidAmountValue error kinds of spec.md §7.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a valid integer", s)
	}
	if v.Sign() < 0 {
		return nil, ErrNegative
	}
	return v, nil
}

// FormatAmount renders v as a decimal string for wire transport.
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// SubOrZero returns a-b, saturating at zero instead of going negative. This
// realizes the `saturating_sub` operation spec.md §4.1 requires for
// availableToClaim.
func SubOrZero(a, b *big.Int) *big.Int {
	d := new(big.Int).Sub(a, b)
	if d.Sign() < 0 {
		return big.NewInt(0)
	}
	return d
}

// Pow10 returns 10^exp as a *big.Int.
func Pow10(exp uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(exp)), nil)
}

// MulPow10 returns v * 10^decimals, the raw-unit scaling spec.md §4.3
// requires when turning a whole-token claim amount into the raw amount a
// mint instruction expects.
func MulPow10(v *big.Int, decimals uint8) *big.Int {
	return new(big.Int).Mul(v, Pow10(uint(decimals)))
}

// DivPow10 returns v / 10^decimals (integer division, truncating), the
// inverse of MulPow10 used when turning an on-chain raw supply back into
// whole-token units for EligibilityCalculator.
func DivPow10(v *big.Int, decimals uint8) *big.Int {
	return new(big.Int).Div(v, Pow10(uint(decimals)))
}

// ErrOverflowsUint64 is returned by SafeUint64 when v does not fit in 64
// bits.
var ErrOverflowsUint64 = fmt.Errorf("amount overflows uint64")

// SafeUint64 converts v to a uint64, failing instead of silently wrapping.
// big.Int.Uint64 documents its result as undefined when the receiver
// doesn't fit in 64 bits, which a scaled raw mint amount can exceed even
// for a whole-token amount well inside SafeMaxAmount once multiplied by
// 10^decimals; callers that feed instruction data must use this instead.
func SafeUint64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 {
		return 0, ErrNegative
	}
	if v.BitLen() > 64 {
		return 0, ErrOverflowsUint64
	}
	return v.Uint64(), nil
}
