package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/RevelationOfTuring/v3-periphery/internal/chain"
	"github.com/RevelationOfTuring/v3-periphery/internal/model"
)

// ContractCaller performs eth_call. *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PoolMetaCache caches pool metadata by address.
type PoolMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolMeta
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: make(map[common.Address]model.PoolMeta)}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// ReaderConfig configures a Reader.
type ReaderConfig struct {
	Factory      common.Address
	MaxRetries   int
	RetryBackoff time.Duration
	// BlockNumber pins reads to a block; 0 reads latest.
	BlockNumber uint64
}

// Reader reads pool, factory and token state through eth_call.
type Reader struct {
	caller     ContractCaller
	cfg        ReaderConfig
	poolCache  *PoolMetaCache
	tokenCache *TokenMetaCache
	logger     *zap.Logger
}

// NewReader builds a Reader over caller.
func NewReader(caller ContractCaller, cfg ReaderConfig, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		caller:     caller,
		cfg:        cfg,
		poolCache:  NewPoolMetaCache(),
		tokenCache: NewTokenMetaCache(),
		logger:     logger,
	}
}

// GetPool returns the factory's pool for a pair and fee, or the zero address.
func (r *Reader) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := r.call(ctx, r.cfg.Factory, factoryABI, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// Slot0 returns the pool's current sqrt price and tick.
func (r *Reader) Slot0(ctx context.Context, pool common.Address) (*uint256.Int, int32, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, 0, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := r.call(ctx, pool, poolABI, "slot0")
	if err != nil {
		return nil, 0, err
	}
	if len(values) < 2 {
		return nil, 0, fmt.Errorf("unexpected slot0 values: %d", len(values))
	}
	sqrtBig, err := asBigInt(values[0])
	if err != nil {
		return nil, 0, fmt.Errorf("sqrt price: %w", err)
	}
	sqrtPrice, overflow := uint256.FromBig(sqrtBig)
	if overflow {
		return nil, 0, fmt.Errorf("sqrt price overflow: %s", sqrtBig.String())
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return nil, 0, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return nil, 0, fmt.Errorf("tick: %w", err)
	}
	return sqrtPrice, tick, nil
}

// Liquidity returns the pool's in-range liquidity.
func (r *Reader) Liquidity(ctx context.Context, pool common.Address) (*uint256.Int, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := r.call(ctx, pool, poolABI, "liquidity")
	if err != nil {
		return nil, err
	}
	return asUint256(values[0])
}

// PoolMeta loads immutable pool metadata, caching it and warming the token cache.
func (r *Reader) PoolMeta(ctx context.Context, pool common.Address) (model.PoolMeta, error) {
	if meta, ok := r.poolCache.Get(pool); ok {
		return meta, nil
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.call(ctx, pool, poolABI, "token0")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = r.call(ctx, pool, poolABI, "token1")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	values, err = r.call(ctx, pool, poolABI, "fee")
	if err != nil {
		return model.PoolMeta{}, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("fee: %w", err)
	}

	values, err = r.call(ctx, pool, poolABI, "tickSpacing")
	if err != nil {
		return model.PoolMeta{}, err
	}
	tickSpacingInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}

	meta := model.PoolMeta{
		Token0:      token0.Hex(),
		Token1:      token1.Hex(),
		Fee:         uint32(feeInt.Uint64()),
		TickSpacing: tickSpacing,
	}
	r.poolCache.Set(pool, meta)

	for _, token := range []common.Address{token0, token1} {
		if _, err := r.TokenMeta(ctx, token); err != nil {
			r.logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		}
	}
	return meta, nil
}

// TokenMeta loads ERC20 metadata, falling back to bytes32 symbol and name.
// A token whose decimals cannot be read is cached with what was found.
func (r *Reader) TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.tokenCache.Get(token); ok {
		return meta, nil
	}

	meta := model.TokenMeta{Address: token.Hex()}
	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := r.call(ctx, token, stringABI, "decimals")
	if err != nil {
		r.tokenCache.Set(token, meta)
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		r.tokenCache.Set(token, meta)
		return meta, err
	}
	meta.Decimals = decimals

	meta.Symbol = r.metadataString(ctx, token, "symbol", stringABI, bytes32ABI)
	meta.Name = r.metadataString(ctx, token, "name", stringABI, bytes32ABI)

	r.tokenCache.Set(token, meta)
	return meta, nil
}

func (r *Reader) metadataString(ctx context.Context, token common.Address, method string, stringABI, bytes32ABI abi.ABI) string {
	if values, err := r.call(ctx, token, stringABI, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := r.call(ctx, token, bytes32ABI, method)
	if err != nil {
		r.logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
		return ""
	}
	s, _ := bytes32ToString(values[0])
	return s
}

// BalanceOf returns holder's balance of token.
func (r *Reader) BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	erc20ABI, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	values, err := r.call(ctx, token, erc20ABI, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return asUint256(values[0])
}

// Allowance returns how much spender may pull from owner.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	erc20ABI, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	values, err := r.call(ctx, token, erc20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asUint256(values[0])
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var block *big.Int
	if r.cfg.BlockNumber > 0 {
		block = new(big.Int).SetUint64(r.cfg.BlockNumber)
	}

	var resp []byte
	err = chain.WithRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint256(value interface{}) (*uint256.Int, error) {
	b, err := asBigInt(value)
	if err != nil {
		return nil, err
	}
	if b.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", b.String())
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("value overflows 256 bits: %s", b.String())
	}
	return v, nil
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
