// Package amm is an in-memory concentrated-liquidity factory and pool that
// honour the on-chain mint contract: deterministic deployment, one-time
// initialization, and mint with a synchronous payment callback.
package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/RevelationOfTuring/v3-periphery/internal/dex"
	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

// FeeTier pairs a fee in hundredths of a bip with its tick spacing.
type FeeTier struct {
	Fee         uint32
	TickSpacing int32
}

// DefaultFeeTiers are enabled on every new factory.
var DefaultFeeTiers = []FeeTier{
	{Fee: 500, TickSpacing: 10},
	{Fee: 3000, TickSpacing: 60},
	{Fee: 10000, TickSpacing: 200},
}

// Factory deploys pools and serves their calls. Pool methods address a pool
// by its deployed address.
type Factory struct {
	address  common.Address
	owner    common.Address
	db       StateDB
	balances Balances
	codec    *dex.EventCodec
	logger   *zap.Logger
}

// NewFactory deploys a factory at address with the default fee tiers enabled.
func NewFactory(address, owner common.Address, db StateDB, balances Balances, logger *zap.Logger) (*Factory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	codec, err := dex.NewEventCodec()
	if err != nil {
		return nil, err
	}
	f := &Factory{
		address:  address,
		owner:    owner,
		db:       db,
		balances: balances,
		codec:    codec,
		logger:   logger.With(zap.String("factory", address.Hex())),
	}

	db.CreateAccount(address)
	for _, tier := range DefaultFeeTiers {
		if err := f.EnableFeeAmount(owner, tier.Fee, tier.TickSpacing); err != nil {
			return nil, fmt.Errorf("enable fee %d: %w", tier.Fee, err)
		}
	}
	return f, nil
}

// FeeAmountTickSpacing returns the tick spacing for fee, or 0 if disabled.
func (f *Factory) FeeAmountTickSpacing(fee uint32) int32 {
	return hashToInt32(f.db.GetState(f.address, makeStorageKey(feeTickSpacingPrefix, feeBytes(fee))))
}

// EnableFeeAmount registers a new fee tier.
func (f *Factory) EnableFeeAmount(caller common.Address, fee uint32, tickSpacing int32) error {
	if caller != f.owner {
		return ErrNotOwner
	}
	if fee >= 1_000_000 {
		return ErrInvalidFee
	}
	if tickSpacing <= 0 || tickSpacing >= 16384 {
		return ErrInvalidTickSpacing
	}
	if f.FeeAmountTickSpacing(fee) != 0 {
		return ErrFeeAlreadyEnabled
	}

	f.db.SetState(f.address, makeStorageKey(feeTickSpacingPrefix, feeBytes(fee)), int32ToHash(tickSpacing))
	log, err := f.codec.FeeAmountEnabledLog(f.address, fee, tickSpacing)
	if err != nil {
		return err
	}
	f.db.AddLog(log)
	return nil
}

// GetPool returns the pool for a pair and fee in either token order, or the
// zero address.
func (f *Factory) GetPool(_ context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	key := pooladdress.GetPoolKey(tokenA, tokenB, fee)
	return hashToAddress(f.db.GetState(f.address, poolSlot(key))), nil
}

// CreatePool deploys the pool for a pair and fee at its CREATE2 address.
func (f *Factory) CreatePool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	if tokenA == tokenB {
		return common.Address{}, ErrIdenticalTokens
	}
	key := pooladdress.GetPoolKey(tokenA, tokenB, fee)
	if key.Token0 == (common.Address{}) {
		return common.Address{}, ErrZeroAddress
	}
	tickSpacing := f.FeeAmountTickSpacing(fee)
	if tickSpacing == 0 {
		return common.Address{}, ErrFeeNotEnabled
	}
	existing, err := f.GetPool(ctx, key.Token0, key.Token1, fee)
	if err != nil {
		return common.Address{}, err
	}
	if existing != (common.Address{}) {
		return common.Address{}, ErrPoolExists
	}

	pool := pooladdress.ComputeAddress(f.address, key)
	f.db.CreateAccount(pool)
	f.db.SetState(pool, token0Key, addressToHash(key.Token0))
	f.db.SetState(pool, token1Key, addressToHash(key.Token1))
	f.db.SetState(pool, feeKey, int32ToHash(int32(fee)))
	f.db.SetState(pool, tickSpacingKey, int32ToHash(tickSpacing))
	f.db.SetState(f.address, poolSlot(key), addressToHash(pool))

	log, err := f.codec.PoolCreatedLog(f.address, key.Token0, key.Token1, fee, tickSpacing, pool)
	if err != nil {
		return common.Address{}, err
	}
	f.db.AddLog(log)

	f.logger.Info("pool created",
		zap.String("pool", pool.Hex()),
		zap.String("token0", key.Token0.Hex()),
		zap.String("token1", key.Token1.Hex()),
		zap.Uint32("fee", fee),
		zap.Int32("tick_spacing", tickSpacing),
	)
	return pool, nil
}

// PoolKey returns the key and tick spacing of a deployed pool.
func (f *Factory) PoolKey(pool common.Address) (pooladdress.PoolKey, int32, error) {
	if !f.db.Exist(pool) {
		return pooladdress.PoolKey{}, 0, ErrPoolNotFound
	}
	key := pooladdress.PoolKey{
		Token0: hashToAddress(f.db.GetState(pool, token0Key)),
		Token1: hashToAddress(f.db.GetState(pool, token1Key)),
		Fee:    uint32(hashToInt32(f.db.GetState(pool, feeKey))),
	}
	if key.Token0 == (common.Address{}) {
		return pooladdress.PoolKey{}, 0, ErrPoolNotFound
	}
	return key, hashToInt32(f.db.GetState(pool, tickSpacingKey)), nil
}

func poolSlot(key pooladdress.PoolKey) common.Hash {
	id := make([]byte, 0, 44)
	id = append(id, key.Token0.Bytes()...)
	id = append(id, key.Token1.Bytes()...)
	id = append(id, feeBytes(key.Fee)...)
	return makeStorageKey(poolPrefix, id)
}
