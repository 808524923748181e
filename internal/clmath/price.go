package clmath

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const priceDivisionPrecision = 40

// ScaleAmount renders a raw token amount in whole-token units.
func ScaleAmount(amount *uint256.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals))
}

// PriceFromSqrtX96 converts a Q64.96 sqrt price into the price of token0 in
// units of token1, adjusted for token decimals.
func PriceFromSqrtX96(sqrtPriceX96 *uint256.Int, decimals0, decimals1 uint8) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return decimal.Zero
	}
	ratio := decimal.NewFromBigInt(sqrtPriceX96.ToBig(), 0).
		DivRound(decimal.NewFromBigInt(Q96.ToBig(), 0), priceDivisionPrecision)
	return ratio.Mul(ratio).Shift(int32(decimals0) - int32(decimals1))
}

// UnscaleAmount parses a whole-token decimal string such as "1.5" into raw
// base units. Precision beyond decimals is rejected.
func UnscaleAmount(s string, decimals uint8) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: negative", s)
	}
	raw := d.Shift(int32(decimals))
	if !raw.Equal(raw.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimals", s, decimals)
	}
	v, overflow := uint256.FromBig(raw.BigInt())
	if overflow {
		return nil, ErrNumericOverflow
	}
	return v, nil
}
