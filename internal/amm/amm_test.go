package amm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
	"github.com/RevelationOfTuring/v3-periphery/internal/state"
	"github.com/RevelationOfTuring/v3-periphery/internal/token"
)

var (
	factoryAddr = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	owner       = common.HexToAddress("0x0e4e")
	tokenA      = common.HexToAddress("0x1")
	tokenB      = common.HexToAddress("0x2")
	minter      = common.HexToAddress("0xa11ce")
)

type fixture struct {
	db      *state.StateDB
	bank    *token.Bank
	factory *Factory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := state.New()
	bank := token.NewBank(db)
	factory, err := NewFactory(factoryAddr, owner, db, bank, nil)
	require.NoError(t, err)
	return &fixture{db: db, bank: bank, factory: factory}
}

func (fx *fixture) initializedPool(t *testing.T) common.Address {
	t.Helper()
	ctx := context.Background()
	pool, err := fx.factory.CreatePool(ctx, tokenB, tokenA, 3000)
	require.NoError(t, err)
	require.NoError(t, fx.factory.Initialize(ctx, pool, clmath.Q96))
	return pool
}

// payFrom returns a callback that transfers the owed amounts from payer.
func (fx *fixture) payFrom(payer common.Address) MintCallback {
	return func(_ context.Context, pool common.Address, amount0Owed, amount1Owed *uint256.Int, _ []byte) error {
		key, _, err := fx.factory.PoolKey(pool)
		if err != nil {
			return err
		}
		if !amount0Owed.IsZero() {
			if err := fx.bank.Transfer(key.Token0, payer, pool, amount0Owed); err != nil {
				return err
			}
		}
		if !amount1Owed.IsZero() {
			if err := fx.bank.Transfer(key.Token1, payer, pool, amount1Owed); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestCreatePool(t *testing.T) {
	require := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()

	pool, err := fx.factory.CreatePool(ctx, tokenB, tokenA, 3000)
	require.NoError(err)
	require.Equal(pooladdress.ComputeAddress(factoryAddr, pooladdress.GetPoolKey(tokenA, tokenB, 3000)), pool)

	got, err := fx.factory.GetPool(ctx, tokenA, tokenB, 3000)
	require.NoError(err)
	require.Equal(pool, got)
	got, err = fx.factory.GetPool(ctx, tokenB, tokenA, 3000)
	require.NoError(err)
	require.Equal(pool, got)

	key, spacing, err := fx.factory.PoolKey(pool)
	require.NoError(err)
	require.Equal(tokenA, key.Token0)
	require.Equal(tokenB, key.Token1)
	require.Equal(uint32(3000), key.Fee)
	require.Equal(int32(60), spacing)

	_, err = fx.factory.CreatePool(ctx, tokenA, tokenB, 3000)
	require.ErrorIs(err, ErrPoolExists)
	_, err = fx.factory.CreatePool(ctx, tokenA, tokenA, 3000)
	require.ErrorIs(err, ErrIdenticalTokens)
	_, err = fx.factory.CreatePool(ctx, common.Address{}, tokenA, 3000)
	require.ErrorIs(err, ErrZeroAddress)
	_, err = fx.factory.CreatePool(ctx, tokenA, tokenB, 100)
	require.ErrorIs(err, ErrFeeNotEnabled)

	none, err := fx.factory.GetPool(ctx, tokenA, tokenB, 500)
	require.NoError(err)
	require.Equal(common.Address{}, none)
}

func TestEnableFeeAmount(t *testing.T) {
	require := require.New(t)
	fx := newFixture(t)

	require.ErrorIs(fx.factory.EnableFeeAmount(minter, 100, 1), ErrNotOwner)
	require.ErrorIs(fx.factory.EnableFeeAmount(owner, 1_000_000, 1), ErrInvalidFee)
	require.ErrorIs(fx.factory.EnableFeeAmount(owner, 100, 0), ErrInvalidTickSpacing)
	require.ErrorIs(fx.factory.EnableFeeAmount(owner, 100, 16384), ErrInvalidTickSpacing)
	require.ErrorIs(fx.factory.EnableFeeAmount(owner, 3000, 60), ErrFeeAlreadyEnabled)

	require.NoError(fx.factory.EnableFeeAmount(owner, 100, 1))
	require.Equal(int32(1), fx.factory.FeeAmountTickSpacing(100))
}

func TestInitialize(t *testing.T) {
	require := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()

	pool, err := fx.factory.CreatePool(ctx, tokenA, tokenB, 500)
	require.NoError(err)

	price, tick, err := fx.factory.Slot0(ctx, pool)
	require.NoError(err)
	require.True(price.IsZero())
	require.Equal(int32(0), tick)

	require.ErrorIs(fx.factory.Initialize(ctx, pool, uint256.NewInt(1)), clmath.ErrSqrtPriceOutOfBounds)

	sqrtPrice, err := clmath.GetSqrtRatioAtTick(-600)
	require.NoError(err)
	require.NoError(fx.factory.Initialize(ctx, pool, sqrtPrice))

	price, tick, err = fx.factory.Slot0(ctx, pool)
	require.NoError(err)
	require.True(price.Eq(sqrtPrice))
	require.Equal(int32(-600), tick)

	require.ErrorIs(fx.factory.Initialize(ctx, pool, clmath.Q96), ErrAlreadyInitialized)

	_, _, err = fx.factory.Slot0(ctx, common.HexToAddress("0xdead"))
	require.ErrorIs(err, ErrPoolNotFound)
}

func TestMintCollectsOwedAmounts(t *testing.T) {
	require := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()
	pool := fx.initializedPool(t)

	fx.bank.Mint(tokenA, minter, uint256.NewInt(1_000_000))
	fx.bank.Mint(tokenB, minter, uint256.NewInt(1_000_000))

	liquidity := uint256.NewInt(200_000)
	amount0, amount1, err := fx.factory.Mint(ctx, pool, minter, minter, -100, 100, liquidity, nil, fx.payFrom(minter))
	require.NoError(err)
	require.False(amount0.IsZero())
	require.False(amount1.IsZero())

	require.True(fx.bank.BalanceOf(tokenA, pool).Eq(amount0))
	require.True(fx.bank.BalanceOf(tokenB, pool).Eq(amount1))

	inRange, err := fx.factory.Liquidity(ctx, pool)
	require.NoError(err)
	require.True(inRange.Eq(liquidity))

	position, err := fx.factory.Position(ctx, pool, minter, -100, 100)
	require.NoError(err)
	require.True(position.Eq(liquidity))

	// A range above the current tick is single-sided and out of range.
	amount0, amount1, err = fx.factory.Mint(ctx, pool, minter, minter, 60, 120, liquidity, nil, fx.payFrom(minter))
	require.NoError(err)
	require.False(amount0.IsZero())
	require.True(amount1.IsZero())
	inRange, err = fx.factory.Liquidity(ctx, pool)
	require.NoError(err)
	require.True(inRange.Eq(liquidity))
}

func TestMintRejectsUnderpayment(t *testing.T) {
	require := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()
	pool := fx.initializedPool(t)

	fx.bank.Mint(tokenB, minter, uint256.NewInt(1_000_000))

	payOnlyToken1 := func(_ context.Context, pool common.Address, _, amount1Owed *uint256.Int, _ []byte) error {
		return fx.bank.Transfer(tokenB, minter, pool, amount1Owed)
	}
	_, _, err := fx.factory.Mint(ctx, pool, minter, minter, -100, 100, uint256.NewInt(1000), nil, payOnlyToken1)
	require.ErrorIs(err, ErrM0)

	payNothing := func(context.Context, common.Address, *uint256.Int, *uint256.Int, []byte) error { return nil }
	_, _, err = fx.factory.Mint(ctx, pool, minter, minter, -200, -100, uint256.NewInt(1000), nil, payNothing)
	require.ErrorIs(err, ErrM1)
}

func TestMintGuards(t *testing.T) {
	require := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()
	noop := func(context.Context, common.Address, *uint256.Int, *uint256.Int, []byte) error { return nil }

	uninitialized, err := fx.factory.CreatePool(ctx, tokenA, tokenB, 500)
	require.NoError(err)
	_, _, err = fx.factory.Mint(ctx, uninitialized, minter, minter, -10, 10, uint256.NewInt(1), nil, noop)
	require.ErrorIs(err, ErrNotInitialized)

	pool := fx.initializedPool(t)
	_, _, err = fx.factory.Mint(ctx, pool, minter, minter, -10, 10, uint256.NewInt(0), nil, noop)
	require.ErrorIs(err, ErrZeroLiquidity)
	_, _, err = fx.factory.Mint(ctx, pool, minter, minter, 10, 10, uint256.NewInt(1), nil, noop)
	require.ErrorIs(err, ErrTickOrder)
	_, _, err = fx.factory.Mint(ctx, pool, minter, minter, clmath.MinTick-1, 10, uint256.NewInt(1), nil, noop)
	require.ErrorIs(err, ErrTickLowerTooLow)
	_, _, err = fx.factory.Mint(ctx, pool, minter, minter, -10, clmath.MaxTick+1, uint256.NewInt(1), nil, noop)
	require.ErrorIs(err, ErrTickUpperTooHigh)

	reenter := func(ctx context.Context, pool common.Address, _, _ *uint256.Int, _ []byte) error {
		_, _, err := fx.factory.Mint(ctx, pool, minter, minter, -10, 10, uint256.NewInt(1), nil, noop)
		return err
	}
	_, _, err = fx.factory.Mint(ctx, pool, minter, minter, -10, 10, uint256.NewInt(1), nil, reenter)
	require.ErrorIs(err, ErrLocked)

	// The lock is released after a failed mint.
	fx.bank.Mint(tokenA, minter, uint256.NewInt(1000))
	fx.bank.Mint(tokenB, minter, uint256.NewInt(1000))
	_, _, err = fx.factory.Mint(ctx, pool, minter, minter, -10, 10, uint256.NewInt(1), nil, fx.payFrom(minter))
	require.NoError(err)
}

func TestMintRevertsWithLedger(t *testing.T) {
	require := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()
	pool := fx.initializedPool(t)
	fx.bank.Mint(tokenA, minter, uint256.NewInt(1_000_000))
	fx.bank.Mint(tokenB, minter, uint256.NewInt(1_000_000))

	snap := fx.db.Snapshot()
	_, _, err := fx.factory.Mint(ctx, pool, minter, minter, -100, 100, uint256.NewInt(5000), nil, fx.payFrom(minter))
	require.NoError(err)
	fx.db.RevertToSnapshot(snap)

	liquidity, err := fx.factory.Liquidity(ctx, pool)
	require.NoError(err)
	require.True(liquidity.IsZero())
	require.True(fx.bank.BalanceOf(tokenA, pool).IsZero())
	require.Equal(uint64(1_000_000), fx.bank.BalanceOf(tokenA, minter).Uint64())
}
