package clmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPriceFromSqrtX96(t *testing.T) {
	price := PriceFromSqrtX96(Q96, 18, 18)
	require.True(t, price.Equal(decimal.NewFromInt(1)), "price %s", price)

	double := new(uint256.Int).Lsh(Q96, 1)
	price = PriceFromSqrtX96(double, 18, 18)
	require.True(t, price.Equal(decimal.NewFromInt(4)), "price %s", price)

	// token0 with 6 decimals, token1 with 18: raw ratio 1 means 1e-12 per whole unit.
	price = PriceFromSqrtX96(Q96, 6, 18)
	require.True(t, price.Equal(decimal.New(1, -12)), "price %s", price)

	require.True(t, PriceFromSqrtX96(new(uint256.Int), 18, 18).IsZero())
}

func TestScaleAmount(t *testing.T) {
	got := ScaleAmount(uint256.NewInt(1_500_000), 6)
	require.Equal(t, "1.5", got.String())
	require.True(t, ScaleAmount(nil, 6).IsZero())
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("1000000000000000000")
	require.NoError(t, err)
	require.Equal(t, uint64(1e18), got.Uint64())

	got, err = ParseAmount("")
	require.NoError(t, err)
	require.True(t, got.IsZero())

	_, err = ParseAmount("-1")
	require.Error(t, err)
	_, err = ParseAmount("abc")
	require.Error(t, err)
	_, err = ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	require.ErrorIs(t, err, ErrNumericOverflow)
}

func TestUnscaleAmount(t *testing.T) {
	got, err := UnscaleAmount("1.5", 6)
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000), got.Uint64())

	got, err = UnscaleAmount("2", 18)
	require.NoError(t, err)
	require.Equal(t, uint64(2e18), got.Uint64())

	got, err = UnscaleAmount("", 18)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	_, err = UnscaleAmount("0.0000001", 6)
	require.Error(t, err)
	_, err = UnscaleAmount("-3", 6)
	require.Error(t, err)
	_, err = UnscaleAmount("1e80", 0)
	require.ErrorIs(t, err, ErrNumericOverflow)
}
