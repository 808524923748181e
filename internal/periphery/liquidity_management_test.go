package periphery

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/RevelationOfTuring/v3-periphery/internal/amm"
	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/dex"
	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

func exampleParams() AddLiquidityParams {
	return AddLiquidityParams{
		Token0:         tokenA,
		Token1:         tokenB,
		Fee:            3000,
		Recipient:      alice,
		TickLower:      -100,
		TickUpper:      100,
		Amount0Desired: u(1000),
		Amount1Desired: u(2000),
		Amount0Min:     u(0),
		Amount1Min:     u(0),
	}
}

func TestAddLiquidityEndToEnd(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	pool := h.createPool(t, tokenA, tokenB, 3000, clmath.Q96)
	h.fund(alice, 10_000, tokenA, tokenB)

	result, err := h.mgr.AddLiquidity(ctx, Call{Caller: alice}, exampleParams())
	require.NoError(err)
	require.Equal(pool, result.Pool)

	// Token0 is the binding side at tick 0 for a symmetric range.
	sqrtUpper, err := clmath.GetSqrtRatioAtTick(100)
	require.NoError(err)
	want, err := clmath.GetLiquidityForAmount0(clmath.Q96, sqrtUpper, u(1000))
	require.NoError(err)
	require.True(result.Liquidity.Eq(want))
	require.True(result.Liquidity.Gt(u(200_000)) && result.Liquidity.Lt(u(201_000)), "liquidity %s", result.Liquidity.ToBig())

	require.False(result.Amount0.Gt(u(1000)))
	require.True(result.Amount0.Gt(u(995)))
	require.False(result.Amount1.Gt(u(2000)))
	require.True(result.Amount1.Gt(u(995)) && !result.Amount1.Gt(u(1001)), "amount1 %s", result.Amount1.ToBig())

	require.True(h.bank.BalanceOf(tokenA, pool).Eq(result.Amount0))
	require.True(h.bank.BalanceOf(tokenB, pool).Eq(result.Amount1))
	require.Equal(uint64(10_000)-result.Amount0.Uint64(), h.bank.BalanceOf(tokenA, alice).Uint64())

	position, err := h.factory.Position(ctx, pool, alice, -100, 100)
	require.NoError(err)
	require.True(position.Eq(result.Liquidity))

	quote, err := Quote(ctx, h.factory, factoryAddr, exampleParams())
	require.NoError(err)
	require.Equal(pool, quote.Pool)
	require.True(quote.Liquidity.Eq(result.Liquidity))
	require.True(quote.Amount0.Eq(result.Amount0))
	require.True(quote.Amount1.Eq(result.Amount1))
	require.True(quote.MeetsMinimums)
}

func TestAddLiquiditySlippageRevertsEverything(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	pool := h.createPool(t, tokenA, tokenB, 3000, clmath.Q96)
	h.fund(alice, 10_000, tokenA, tokenB)
	h.db.Finalise()

	balance0 := h.bank.BalanceOf(tokenA, alice)
	balance1 := h.bank.BalanceOf(tokenB, alice)
	logs := len(h.db.Logs())

	params := exampleParams()
	params.Amount0Min = u(1001)
	_, err := h.mgr.AddLiquidity(ctx, Call{Caller: alice}, params)
	require.ErrorIs(err, ErrSlippage)

	require.True(h.bank.BalanceOf(tokenA, alice).Eq(balance0))
	require.True(h.bank.BalanceOf(tokenB, alice).Eq(balance1))
	require.True(h.bank.BalanceOf(tokenA, pool).IsZero())
	require.True(h.bank.BalanceOf(tokenB, pool).IsZero())
	liquidity, err := h.factory.Liquidity(ctx, pool)
	require.NoError(err)
	require.True(liquidity.IsZero())
	position, err := h.factory.Position(ctx, pool, alice, -100, 100)
	require.NoError(err)
	require.True(position.IsZero())
	require.Len(h.db.Logs(), logs)

	quote, err := Quote(ctx, h.factory, factoryAddr, params)
	require.NoError(err)
	require.False(quote.MeetsMinimums)
}

func TestAddLiquidityValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(alice, 10_000, tokenA, tokenB)

	params := exampleParams()
	params.Token0, params.Token1 = tokenB, tokenA
	_, err := h.mgr.AddLiquidity(ctx, Call{Caller: alice}, params)
	require.ErrorIs(t, err, ErrTokenOrder)

	params = exampleParams()
	params.Token1 = tokenA
	_, err = h.mgr.AddLiquidity(ctx, Call{Caller: alice}, params)
	require.ErrorIs(t, err, ErrTokenOrder)

	// No pool deployed at the derived address.
	_, err = h.mgr.AddLiquidity(ctx, Call{Caller: alice}, exampleParams())
	require.ErrorIs(t, err, amm.ErrPoolNotFound)

	_, err = h.factory.CreatePool(ctx, tokenA, tokenB, 3000)
	require.NoError(t, err)
	_, err = h.mgr.AddLiquidity(ctx, Call{Caller: alice}, exampleParams())
	require.ErrorIs(t, err, ErrPoolNotInitialized)
}

func TestAddLiquidityOverflow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createPool(t, tokenA, tokenB, 3000, clmath.Q96)

	huge := new(uint256.Int).Lsh(u(1), 200)
	params := exampleParams()
	params.TickLower, params.TickUpper = 0, 1
	params.Amount0Desired, params.Amount1Desired = huge, huge
	_, err := h.mgr.AddLiquidity(ctx, Call{Caller: alice}, params)
	require.ErrorIs(t, err, ErrNumericOverflow)
}

func TestAddLiquidityInsufficientAllowance(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	pool := h.createPool(t, tokenA, tokenB, 3000, clmath.Q96)

	h.bank.Mint(tokenA, alice, u(10_000))
	h.bank.Mint(tokenB, alice, u(10_000))
	h.bank.Approve(tokenA, alice, managerAddr, u(10_000))
	h.bank.Approve(tokenB, alice, managerAddr, u(10))

	_, err := h.mgr.AddLiquidity(ctx, Call{Caller: alice}, exampleParams())
	require.ErrorIs(err, ErrInsufficientFunds)

	// Token0 had been paid before token1 failed; both are rolled back.
	require.Equal(uint64(10_000), h.bank.BalanceOf(tokenA, alice).Uint64())
	require.True(h.bank.BalanceOf(tokenA, pool).IsZero())
	require.Equal(uint64(10_000), h.bank.Allowance(tokenA, alice, managerAddr).Uint64())
}

func TestAddLiquidityDeadline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createPool(t, tokenA, tokenB, 3000, clmath.Q96)
	h.fund(alice, 10_000, tokenA, tokenB)

	_, err := h.mgr.AddLiquidity(ctx, Call{Caller: alice, Deadline: startTime - 1}, exampleParams())
	require.ErrorIs(t, err, ErrTransactionTooOld)

	_, err = h.mgr.AddLiquidity(ctx, Call{Caller: alice, Deadline: startTime}, exampleParams())
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = h.mgr.AddLiquidity(cancelled, Call{Caller: alice}, exampleParams())
	require.ErrorIs(t, err, context.Canceled)
}

// settle runs the mint callback as its own transaction, the way a pool
// reaches it during AddLiquidity.
func (h *harness) settle(ctx context.Context, payer, caller common.Address, amount0, amount1 *uint256.Int, data []byte) error {
	return h.mgr.Execute(ctx, Call{Caller: payer}, func(ctx context.Context, tx *Tx) error {
		return tx.mintCallback(ctx, caller, amount0, amount1, data)
	})
}

func TestMintCallbackRejectsForgedCaller(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	pool := h.createPool(t, tokenA, tokenB, 3000, clmath.Q96)
	h.fund(alice, 10_000, tokenA, tokenB)
	attacker := common.HexToAddress("0xbad")

	data, err := dex.EncodeMintCallbackData(dex.MintCallbackData{
		PoolKey: pooladdress.GetPoolKey(tokenA, tokenB, 3000),
		Payer:   alice,
	})
	require.NoError(err)

	err = h.settle(ctx, alice, attacker, u(500), u(500), data)
	require.ErrorIs(err, ErrUnauthorizedCallback)

	err = h.settle(ctx, alice, pool, u(500), u(500), []byte("not an encoded key"))
	require.ErrorIs(err, ErrUnauthorizedCallback)

	// A key for another fee tier does not authorize this pool.
	other, err := dex.EncodeMintCallbackData(dex.MintCallbackData{
		PoolKey: pooladdress.GetPoolKey(tokenA, tokenB, 500),
		Payer:   alice,
	})
	require.NoError(err)
	err = h.settle(ctx, alice, pool, u(500), u(500), other)
	require.ErrorIs(err, ErrUnauthorizedCallback)

	require.Equal(uint64(10_000), h.bank.BalanceOf(tokenA, alice).Uint64())
	require.Equal(uint64(10_000), h.bank.BalanceOf(tokenB, alice).Uint64())
	require.True(h.bank.BalanceOf(tokenA, attacker).IsZero())
	require.True(h.bank.BalanceOf(tokenA, pool).IsZero())
}

func TestMintCallbackPaysToken0First(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	pool := h.createPool(t, tokenA, tokenB, 3000, clmath.Q96)
	h.fund(alice, 10_000, tokenA, tokenB)

	data, err := dex.EncodeMintCallbackData(dex.MintCallbackData{
		PoolKey: pooladdress.GetPoolKey(tokenA, tokenB, 3000),
		Payer:   alice,
	})
	require.NoError(err)

	logsBefore := len(h.db.Logs())
	require.NoError(h.settle(ctx, alice, pool, u(3), u(4), data))

	logs := h.db.Logs()[logsBefore:]
	require.Len(logs, 2)
	require.Equal(tokenA, logs[0].Address)
	require.Equal(tokenB, logs[1].Address)

	// Nothing owed means nothing moves.
	require.NoError(h.settle(ctx, alice, pool, u(0), u(0), data))
	require.Len(h.db.Logs(), logsBefore+2)
}

func TestMintCallbackFailedToken1RollsBackToken0(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	pool := h.createPool(t, tokenA, tokenB, 3000, clmath.Q96)
	h.fund(alice, 100, tokenA)

	data, err := dex.EncodeMintCallbackData(dex.MintCallbackData{
		PoolKey: pooladdress.GetPoolKey(tokenA, tokenB, 3000),
		Payer:   alice,
	})
	require.NoError(err)

	logsBefore := len(h.db.Logs())
	err = h.settle(ctx, alice, pool, u(60), u(60), data)
	require.ErrorIs(err, ErrInsufficientFunds)

	require.Equal(uint64(100), h.bank.BalanceOf(tokenA, alice).Uint64())
	require.True(h.bank.BalanceOf(tokenA, pool).IsZero())
	require.Len(h.db.Logs(), logsBefore)
}
