package api

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount input limits. A uint64 has at most 20 decimal digits, so any
// nonzero value scaled past 10^20 is out of range.
const (
	maxAmountLength   = 64
	maxAmountExponent = 20
)

// ParseAmount converts a human decimal string such as "1.5" into base units
// at the given precision. Negative values, excess fractional digits and
// values beyond uint64 are rejected. Exponents are bounded before any
// scaling, so "1e10000000" fails without expanding the number.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	if s == "" {
		return 0, badRequest("amount is required")
	}
	if len(s) > maxAmountLength {
		return 0, badRequest(fmt.Sprintf("amount longer than %d characters", maxAmountLength))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("invalid amount %q", s))
	}
	if d.IsNegative() {
		return 0, badRequest(fmt.Sprintf("negative amount %q", s))
	}
	exp := int64(d.Exponent())
	if exp+int64(decimals) > maxAmountExponent {
		return 0, badRequest(fmt.Sprintf("amount %q out of range", s))
	}
	if exp < -maxAmountLength {
		return 0, badRequest(fmt.Sprintf("amount %q has more than %d decimal places", s, decimals))
	}
	base := d.Shift(int32(decimals))
	if !base.Equal(base.Truncate(0)) {
		return 0, badRequest(fmt.Sprintf("amount %q has more than %d decimal places", s, decimals))
	}
	n := base.BigInt()
	if !n.IsUint64() {
		return 0, badRequest(fmt.Sprintf("amount %q out of range", s))
	}
	return n.Uint64(), nil
}

// FormatAmount renders base units as a fixed-point decimal string.
func FormatAmount(v uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -int32(decimals)).StringFixed(int32(decimals))
}
