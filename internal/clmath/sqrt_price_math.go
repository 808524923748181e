package clmath

import "github.com/holiman/uint256"

func sortRatios(a, b *uint256.Int) (*uint256.Int, *uint256.Int) {
	if a.Gt(b) {
		return b, a
	}
	return a, b
}

// GetAmount0Delta returns the token0 amount between two sqrt prices for a
// liquidity value: L * 2^96 * (sqrtB - sqrtA) / sqrtB / sqrtA.
func GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sqrtA, sqrtB := sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	if sqrtA.IsZero() {
		return nil, ErrInvalidPrice
	}
	if _, err := ToUint128(liquidity); err != nil {
		return nil, err
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		v, err := MulDivRoundingUp(numerator1, numerator2, sqrtB)
		if err != nil {
			return nil, err
		}
		return DivRoundingUp(v, sqrtA)
	}
	v, err := MulDiv(numerator1, numerator2, sqrtB)
	if err != nil {
		return nil, err
	}
	return v.Div(v, sqrtA), nil
}

// GetAmount1Delta returns the token1 amount between two sqrt prices for a
// liquidity value: L * (sqrtB - sqrtA) / 2^96.
func GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sqrtA, sqrtB := sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	if _, err := ToUint128(liquidity); err != nil {
		return nil, err
	}
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return MulDivRoundingUp(liquidity, diff, Q96)
	}
	return MulDiv(liquidity, diff, Q96)
}

// GetMintAmounts returns the token amounts a pool charges, rounded up, for
// minting liquidity over [sqrtA, sqrtB) at the current sqrt price.
func GetMintAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	sqrtA, sqrtB := sortRatios(sqrtRatioAX96, sqrtRatioBX96)

	switch {
	case sqrtRatioX96.Lt(sqrtA):
		amount0, err := GetAmount0Delta(sqrtA, sqrtB, liquidity, true)
		if err != nil {
			return nil, nil, err
		}
		return amount0, new(uint256.Int), nil
	case sqrtRatioX96.Lt(sqrtB):
		amount0, err := GetAmount0Delta(sqrtRatioX96, sqrtB, liquidity, true)
		if err != nil {
			return nil, nil, err
		}
		amount1, err := GetAmount1Delta(sqrtA, sqrtRatioX96, liquidity, true)
		if err != nil {
			return nil, nil, err
		}
		return amount0, amount1, nil
	default:
		amount1, err := GetAmount1Delta(sqrtA, sqrtB, liquidity, true)
		if err != nil {
			return nil, nil, err
		}
		return new(uint256.Int), amount1, nil
	}
}
