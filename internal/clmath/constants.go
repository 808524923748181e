// Package clmath holds the fixed-point concentrated-liquidity math used to
// size positions and price mints: full-precision mulDiv, tick <-> sqrt price
// conversion, amount deltas and liquidity amounts.
package clmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// MinTick is the minimum tick that may be passed to GetSqrtRatioAtTick.
	MinTick int32 = -887272
	// MaxTick is the maximum tick that may be passed to GetSqrtRatioAtTick.
	MaxTick int32 = 887272
)

var (
	ErrNumericOverflow      = errors.New("numeric overflow")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrTickOutOfBounds      = errors.New("tick out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")
	ErrInvalidPrice         = errors.New("sqrt price must be positive")
)

var (
	// Q96 is 2^96, the scale of a Q64.96 square-root price.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

	// MaxUint128 bounds liquidity values.
	MaxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

	// MaxUint256 is 2^256 - 1.
	MaxUint256 = new(uint256.Int).Not(new(uint256.Int))

	// MinSqrtRatio is GetSqrtRatioAtTick(MinTick).
	MinSqrtRatio = uint256.NewInt(4295128739)

	// MaxSqrtRatio is GetSqrtRatioAtTick(MaxTick).
	MaxSqrtRatio = mustFromDecimal("1461446703485210103287273052203988822378723970342")

	one = uint256.NewInt(1)
)

func mustFromDecimal(s string) *uint256.Int {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("clmath: invalid decimal constant " + s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		panic("clmath: constant overflows 256 bits " + s)
	}
	return v
}

// ToUint128 returns v unchanged if it fits in 128 bits.
func ToUint128(v *uint256.Int) (*uint256.Int, error) {
	if v.Gt(MaxUint128) {
		return nil, ErrNumericOverflow
	}
	return v, nil
}

// ParseAmount parses a non-negative base-10 integer into a 256-bit value.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, errors.New("invalid amount: " + s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrNumericOverflow
	}
	return v, nil
}
