package periphery

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/dex"
	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

// AddLiquidityParams describes a liquidity addition. Token0 must sort
// before Token1.
type AddLiquidityParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            uint32
	Recipient      common.Address
	TickLower      int32
	TickUpper      int32
	Amount0Desired *uint256.Int
	Amount1Desired *uint256.Int
	Amount0Min     *uint256.Int
	Amount1Min     *uint256.Int
}

func (p AddLiquidityParams) poolKey() (pooladdress.PoolKey, error) {
	key := pooladdress.PoolKey{Token0: p.Token0, Token1: p.Token1, Fee: p.Fee}
	if !key.Sorted() {
		return pooladdress.PoolKey{}, ErrTokenOrder
	}
	return key, nil
}

// AddLiquidityResult is what a liquidity addition minted and paid.
type AddLiquidityResult struct {
	Liquidity *uint256.Int
	Amount0   *uint256.Int
	Amount1   *uint256.Int
	Pool      common.Address
}

// AddLiquidity mints the largest position the desired amounts can back at
// the pool's current price. The caller pays through the mint callback.
func (tx *Tx) AddLiquidity(ctx context.Context, params AddLiquidityParams) (AddLiquidityResult, error) {
	m := tx.m
	key, err := params.poolKey()
	if err != nil {
		return AddLiquidityResult{}, err
	}
	pool := pooladdress.ComputeAddress(m.imm.Factory, key)

	sqrtPrice, _, err := m.pools.Slot0(ctx, pool)
	if err != nil {
		return AddLiquidityResult{}, fmt.Errorf("slot0: %w", err)
	}
	liquidity, _, err := sizeLiquidity(sqrtPrice, params)
	if err != nil {
		return AddLiquidityResult{}, err
	}

	data, err := dex.EncodeMintCallbackData(dex.MintCallbackData{PoolKey: key, Payer: tx.caller})
	if err != nil {
		return AddLiquidityResult{}, fmt.Errorf("encode callback data: %w", err)
	}

	amount0, amount1, err := m.pools.Mint(ctx, pool, m.imm.Self, params.Recipient, params.TickLower, params.TickUpper, liquidity, data, tx.mintCallback)
	if err != nil {
		return AddLiquidityResult{}, fmt.Errorf("mint: %w", err)
	}

	if belowMin(amount0, params.Amount0Min) || belowMin(amount1, params.Amount1Min) {
		return AddLiquidityResult{}, fmt.Errorf("%w: got (%s, %s)", ErrSlippage, amount0.ToBig().String(), amount1.ToBig().String())
	}

	m.logger.Info("liquidity added",
		zap.String("pool", pool.Hex()),
		zap.String("payer", tx.caller.Hex()),
		zap.String("recipient", params.Recipient.Hex()),
		zap.Int32("tick_lower", params.TickLower),
		zap.Int32("tick_upper", params.TickUpper),
		zap.String("liquidity", liquidity.ToBig().String()),
		zap.String("amount0", amount0.ToBig().String()),
		zap.String("amount1", amount1.ToBig().String()),
	)
	return AddLiquidityResult{
		Liquidity: liquidity,
		Amount0:   amount0,
		Amount1:   amount1,
		Pool:      pool,
	}, nil
}

// mintCallback settles what a pool is owed for a mint. The caller must be
// the pool derived from the key in data. It only runs inside Execute.
func (tx *Tx) mintCallback(ctx context.Context, caller common.Address, amount0Owed, amount1Owed *uint256.Int, data []byte) error {
	m := tx.m
	decoded, err := dex.DecodeMintCallbackData(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorizedCallback, err)
	}
	if pooladdress.ComputeAddress(m.imm.Factory, decoded.PoolKey) != caller {
		return ErrUnauthorizedCallback
	}

	if amount0Owed != nil && !amount0Owed.IsZero() {
		if err := m.pay(ctx, Payment{Token: decoded.PoolKey.Token0, Payer: decoded.Payer, Recipient: caller, Value: amount0Owed}); err != nil {
			return fmt.Errorf("pay token0: %w", err)
		}
	}
	if amount1Owed != nil && !amount1Owed.IsZero() {
		if err := m.pay(ctx, Payment{Token: decoded.PoolKey.Token1, Payer: decoded.Payer, Recipient: caller, Value: amount1Owed}); err != nil {
			return fmt.Errorf("pay token1: %w", err)
		}
	}
	return nil
}

// priceRange is a position's bounds as square-root prices.
type priceRange struct {
	lower *uint256.Int
	upper *uint256.Int
}

func sizeLiquidity(sqrtPrice *uint256.Int, params AddLiquidityParams) (*uint256.Int, priceRange, error) {
	if sqrtPrice == nil || sqrtPrice.IsZero() {
		return nil, priceRange{}, ErrPoolNotInitialized
	}
	sqrtLower, err := clmath.GetSqrtRatioAtTick(params.TickLower)
	if err != nil {
		return nil, priceRange{}, fmt.Errorf("tick lower: %w", err)
	}
	sqrtUpper, err := clmath.GetSqrtRatioAtTick(params.TickUpper)
	if err != nil {
		return nil, priceRange{}, fmt.Errorf("tick upper: %w", err)
	}
	liquidity, err := clmath.GetLiquidityForAmounts(sqrtPrice, sqrtLower, sqrtUpper, orZero(params.Amount0Desired), orZero(params.Amount1Desired))
	if err != nil {
		return nil, priceRange{}, fmt.Errorf("liquidity for amounts: %w", err)
	}
	return liquidity, priceRange{lower: sqrtLower, upper: sqrtUpper}, nil
}

func belowMin(amount, minimum *uint256.Int) bool {
	return minimum != nil && amount.Lt(minimum)
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
