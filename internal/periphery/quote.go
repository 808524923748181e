package periphery

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

// QuoteResult is what AddLiquidity would mint and charge at the current price.
type QuoteResult struct {
	Pool          common.Address
	SqrtPriceX96  *uint256.Int
	Tick          int32
	Liquidity     *uint256.Int
	Amount0       *uint256.Int
	Amount1       *uint256.Int
	MeetsMinimums bool
}

// Quote sizes a liquidity addition against reader without changing state.
func Quote(ctx context.Context, reader PoolReader, factory common.Address, params AddLiquidityParams) (QuoteResult, error) {
	if err := ctx.Err(); err != nil {
		return QuoteResult{}, err
	}
	key, err := params.poolKey()
	if err != nil {
		return QuoteResult{}, err
	}
	pool := pooladdress.ComputeAddress(factory, key)

	sqrtPrice, tick, err := reader.Slot0(ctx, pool)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("slot0: %w", err)
	}
	liquidity, bounds, err := sizeLiquidity(sqrtPrice, params)
	if err != nil {
		return QuoteResult{}, err
	}

	amount0, amount1, err := clmath.GetMintAmounts(sqrtPrice, bounds.lower, bounds.upper, liquidity)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("mint amounts: %w", err)
	}

	return QuoteResult{
		Pool:          pool,
		SqrtPriceX96:  sqrtPrice,
		Tick:          tick,
		Liquidity:     liquidity,
		Amount0:       amount0,
		Amount1:       amount1,
		MeetsMinimums: !belowMin(amount0, params.Amount0Min) && !belowMin(amount1, params.Amount1Min),
	}, nil
}
