package periphery

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

// CreateAndInitializePoolIfNecessary returns the pool for (token0, token1,
// fee), deploying it and setting its price to sqrtPriceX96 if needed. An
// already-initialized pool keeps its price; sqrtPriceX96 is then ignored.
func (tx *Tx) CreateAndInitializePoolIfNecessary(ctx context.Context, token0, token1 common.Address, fee uint32, sqrtPriceX96 *uint256.Int) (common.Address, error) {
	if !pooladdress.Less(token0, token1) {
		return common.Address{}, ErrTokenOrder
	}
	m := tx.m
	sqrtPriceX96 = orZero(sqrtPriceX96)

	pool, err := m.factory.GetPool(ctx, token0, token1, fee)
	if err != nil {
		return common.Address{}, fmt.Errorf("get pool: %w", err)
	}

	if pool == (common.Address{}) {
		pool, err = m.factory.CreatePool(ctx, token0, token1, fee)
		if err != nil {
			return common.Address{}, fmt.Errorf("create pool: %w", err)
		}
		if err := m.pools.Initialize(ctx, pool, sqrtPriceX96); err != nil {
			return common.Address{}, fmt.Errorf("initialize pool: %w", err)
		}
		m.logger.Info("pool created and initialized",
			zap.String("pool", pool.Hex()),
			zap.Uint32("fee", fee),
			zap.String("sqrt_price_x96", sqrtPriceX96.ToBig().String()),
		)
		return pool, nil
	}

	current, _, err := m.pools.Slot0(ctx, pool)
	if err != nil {
		return common.Address{}, fmt.Errorf("slot0: %w", err)
	}
	if current.IsZero() {
		if err := m.pools.Initialize(ctx, pool, sqrtPriceX96); err != nil {
			return common.Address{}, fmt.Errorf("initialize pool: %w", err)
		}
		m.logger.Info("pool initialized",
			zap.String("pool", pool.Hex()),
			zap.String("sqrt_price_x96", sqrtPriceX96.ToBig().String()),
		)
	}
	return pool, nil
}
