package amm

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
)

// MintCallback is invoked by Mint before it checks that the owed amounts
// arrived. pool is the address of the pool making the call.
type MintCallback = func(ctx context.Context, pool common.Address, amount0Owed, amount1Owed *uint256.Int, data []byte) error

// Slot0 returns the pool's sqrt price and tick. An uninitialized pool reports 0.
func (f *Factory) Slot0(_ context.Context, pool common.Address) (*uint256.Int, int32, error) {
	if !f.db.Exist(pool) {
		return nil, 0, fmt.Errorf("slot0 %s: %w", pool.Hex(), ErrPoolNotFound)
	}
	return hashToUint(f.db.GetState(pool, sqrtPriceKey)), hashToInt32(f.db.GetState(pool, tickKey)), nil
}

// Liquidity returns the pool's in-range liquidity.
func (f *Factory) Liquidity(_ context.Context, pool common.Address) (*uint256.Int, error) {
	if !f.db.Exist(pool) {
		return nil, fmt.Errorf("liquidity %s: %w", pool.Hex(), ErrPoolNotFound)
	}
	return hashToUint(f.db.GetState(pool, liquidityKey)), nil
}

// Position returns the liquidity owned by owner over [tickLower, tickUpper).
func (f *Factory) Position(_ context.Context, pool, owner common.Address, tickLower, tickUpper int32) (*uint256.Int, error) {
	if !f.db.Exist(pool) {
		return nil, fmt.Errorf("position %s: %w", pool.Hex(), ErrPoolNotFound)
	}
	return hashToUint(f.db.GetState(pool, positionSlot(owner, tickLower, tickUpper))), nil
}

// Initialize sets the starting price of a pool. It can only run once.
func (f *Factory) Initialize(_ context.Context, pool common.Address, sqrtPriceX96 *uint256.Int) error {
	if !f.db.Exist(pool) {
		return fmt.Errorf("initialize %s: %w", pool.Hex(), ErrPoolNotFound)
	}
	if !hashToUint(f.db.GetState(pool, sqrtPriceKey)).IsZero() {
		return ErrAlreadyInitialized
	}
	tick, err := clmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", pool.Hex(), err)
	}

	f.db.SetState(pool, sqrtPriceKey, uintToHash(sqrtPriceX96))
	f.db.SetState(pool, tickKey, int32ToHash(tick))
	f.db.SetState(pool, unlockedKey, boolToHash(true))

	log, err := f.codec.InitializeLog(pool, sqrtPriceX96, tick)
	if err != nil {
		return err
	}
	f.db.AddLog(log)

	f.logger.Info("pool initialized",
		zap.String("pool", pool.Hex()),
		zap.String("sqrt_price_x96", sqrtPriceX96.ToBig().String()),
		zap.Int32("tick", tick),
	)
	return nil
}

// Mint adds amount of liquidity for recipient over [tickLower, tickUpper)
// and returns the token amounts the pool required. The owed amounts are
// requested from sender through callback; Mint fails unless the pool's
// balances grew by at least those amounts when callback returns.
func (f *Factory) Mint(
	ctx context.Context,
	pool common.Address,
	sender common.Address,
	recipient common.Address,
	tickLower int32,
	tickUpper int32,
	amount *uint256.Int,
	data []byte,
	callback MintCallback,
) (*uint256.Int, *uint256.Int, error) {
	key, _, err := f.PoolKey(pool)
	if err != nil {
		return nil, nil, fmt.Errorf("mint: %w", err)
	}
	if amount == nil || amount.IsZero() {
		return nil, nil, ErrZeroLiquidity
	}
	if hashToUint(f.db.GetState(pool, sqrtPriceKey)).IsZero() {
		return nil, nil, ErrNotInitialized
	}
	if f.db.GetState(pool, unlockedKey) != boolToHash(true) {
		return nil, nil, ErrLocked
	}
	f.db.SetState(pool, unlockedKey, boolToHash(false))
	defer f.db.SetState(pool, unlockedKey, boolToHash(true))

	if tickLower >= tickUpper {
		return nil, nil, ErrTickOrder
	}
	if tickLower < clmath.MinTick {
		return nil, nil, ErrTickLowerTooLow
	}
	if tickUpper > clmath.MaxTick {
		return nil, nil, ErrTickUpperTooHigh
	}

	sqrtPrice := hashToUint(f.db.GetState(pool, sqrtPriceKey))
	tick := hashToInt32(f.db.GetState(pool, tickKey))
	sqrtLower, err := clmath.GetSqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := clmath.GetSqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	amount0, amount1, err := clmath.GetMintAmounts(sqrtPrice, sqrtLower, sqrtUpper, amount)
	if err != nil {
		return nil, nil, fmt.Errorf("mint amounts: %w", err)
	}

	if err := f.addLiquidity(pool, positionSlot(recipient, tickLower, tickUpper), amount); err != nil {
		return nil, nil, err
	}
	if tickLower <= tick && tick < tickUpper {
		if err := f.addLiquidity(pool, liquidityKey, amount); err != nil {
			return nil, nil, err
		}
	}

	var balance0Before, balance1Before *uint256.Int
	if !amount0.IsZero() {
		balance0Before = f.balances.BalanceOf(key.Token0, pool)
	}
	if !amount1.IsZero() {
		balance1Before = f.balances.BalanceOf(key.Token1, pool)
	}

	if err := callback(ctx, pool, amount0, amount1, data); err != nil {
		return nil, nil, err
	}

	if balance0Before != nil {
		want, overflow := new(uint256.Int).AddOverflow(balance0Before, amount0)
		if overflow || f.balances.BalanceOf(key.Token0, pool).Lt(want) {
			return nil, nil, ErrM0
		}
	}
	if balance1Before != nil {
		want, overflow := new(uint256.Int).AddOverflow(balance1Before, amount1)
		if overflow || f.balances.BalanceOf(key.Token1, pool).Lt(want) {
			return nil, nil, ErrM1
		}
	}

	log, err := f.codec.MintLog(pool, sender, recipient, tickLower, tickUpper, amount, amount0, amount1)
	if err != nil {
		return nil, nil, err
	}
	f.db.AddLog(log)

	f.logger.Debug("pool mint",
		zap.String("pool", pool.Hex()),
		zap.String("owner", recipient.Hex()),
		zap.Int32("tick_lower", tickLower),
		zap.Int32("tick_upper", tickUpper),
		zap.String("liquidity", amount.ToBig().String()),
		zap.String("amount0", amount0.ToBig().String()),
		zap.String("amount1", amount1.ToBig().String()),
	)
	return amount0, amount1, nil
}

func (f *Factory) addLiquidity(pool common.Address, slot common.Hash, delta *uint256.Int) error {
	next, overflow := new(uint256.Int).AddOverflow(hashToUint(f.db.GetState(pool, slot)), delta)
	if overflow || next.Gt(clmath.MaxUint128) {
		return ErrLiquidityOverflow
	}
	f.db.SetState(pool, slot, uintToHash(next))
	return nil
}

// positionSlot hashes keccak256(abi.encodePacked(owner, tickLower, tickUpper)).
func positionSlot(owner common.Address, tickLower, tickUpper int32) common.Hash {
	packed := make([]byte, 0, 26)
	packed = append(packed, owner.Bytes()...)
	packed = append(packed, int24Bytes(tickLower)...)
	packed = append(packed, int24Bytes(tickUpper)...)
	return makeStorageKey(positionPrefix, crypto.Keccak256(packed))
}

func int24Bytes(v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[1:]
}
