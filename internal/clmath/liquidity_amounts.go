package clmath

import "github.com/holiman/uint256"

// GetLiquidityForAmount0 computes the liquidity received for amount0 over [sqrtA, sqrtB].
func GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *uint256.Int) (*uint256.Int, error) {
	sqrtA, sqrtB := sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	intermediate, err := MulDiv(sqrtA, sqrtB, Q96)
	if err != nil {
		return nil, err
	}
	liquidity, err := MulDiv(amount0, intermediate, new(uint256.Int).Sub(sqrtB, sqrtA))
	if err != nil {
		return nil, err
	}
	return ToUint128(liquidity)
}

// GetLiquidityForAmount1 computes the liquidity received for amount1 over [sqrtA, sqrtB].
func GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *uint256.Int) (*uint256.Int, error) {
	sqrtA, sqrtB := sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	liquidity, err := MulDiv(amount1, Q96, new(uint256.Int).Sub(sqrtB, sqrtA))
	if err != nil {
		return nil, err
	}
	return ToUint128(liquidity)
}

// GetLiquidityForAmounts computes the maximum liquidity that amount0 and
// amount1 can back over [sqrtA, sqrtB] at the current sqrt price.
//
// Below the range only token0 counts, above it only token1; inside the range
// the result is the smaller of the two single-sided liquidities.
func GetLiquidityForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *uint256.Int) (*uint256.Int, error) {
	sqrtA, sqrtB := sortRatios(sqrtRatioAX96, sqrtRatioBX96)

	switch {
	case !sqrtRatioX96.Gt(sqrtA):
		return GetLiquidityForAmount0(sqrtA, sqrtB, amount0)
	case sqrtRatioX96.Lt(sqrtB):
		liquidity0, err := GetLiquidityForAmount0(sqrtRatioX96, sqrtB, amount0)
		if err != nil {
			return nil, err
		}
		liquidity1, err := GetLiquidityForAmount1(sqrtA, sqrtRatioX96, amount1)
		if err != nil {
			return nil, err
		}
		if liquidity0.Lt(liquidity1) {
			return liquidity0, nil
		}
		return liquidity1, nil
	default:
		return GetLiquidityForAmount1(sqrtA, sqrtB, amount1)
	}
}

// GetAmount0ForLiquidity computes the token0 value of liquidity over [sqrtA, sqrtB], rounded down.
func GetAmount0ForLiquidity(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int) (*uint256.Int, error) {
	return GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, false)
}

// GetAmount1ForLiquidity computes the token1 value of liquidity over [sqrtA, sqrtB], rounded down.
func GetAmount1ForLiquidity(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int) (*uint256.Int, error) {
	return GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, false)
}

// GetAmountsForLiquidity computes the token0 and token1 value of liquidity
// at the current sqrt price, rounded down.
func GetAmountsForLiquidity(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	sqrtA, sqrtB := sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	amount0, amount1 := new(uint256.Int), new(uint256.Int)
	var err error

	switch {
	case !sqrtRatioX96.Gt(sqrtA):
		amount0, err = GetAmount0ForLiquidity(sqrtA, sqrtB, liquidity)
	case sqrtRatioX96.Lt(sqrtB):
		amount0, err = GetAmount0ForLiquidity(sqrtRatioX96, sqrtB, liquidity)
		if err == nil {
			amount1, err = GetAmount1ForLiquidity(sqrtA, sqrtRatioX96, liquidity)
		}
	default:
		amount1, err = GetAmount1ForLiquidity(sqrtA, sqrtB, liquidity)
	}
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}
