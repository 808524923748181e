package clmath

import "github.com/holiman/uint256"

// MulDiv returns floor(a*b/denominator) computed with a 512-bit intermediate.
// It fails if denominator is zero or the quotient does not fit in 256 bits.
func MulDiv(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrNumericOverflow
	}
	return z, nil
}

// MulDivRoundingUp returns ceil(a*b/denominator).
func MulDivRoundingUp(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(a, b, denominator)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(a, b, denominator).IsZero() {
		if z.Eq(MaxUint256) {
			return nil, ErrNumericOverflow
		}
		z.Add(z, one)
	}
	return z, nil
}

// DivRoundingUp returns ceil(x/y).
func DivRoundingUp(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	z := new(uint256.Int).Div(x, y)
	if !new(uint256.Int).Mod(x, y).IsZero() {
		z.Add(z, one)
	}
	return z, nil
}
