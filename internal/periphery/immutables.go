package periphery

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Immutables are fixed when the manager is constructed.
type Immutables struct {
	Factory common.Address
	WETH9   common.Address
	// Self is the manager's own account: it pays from and receives into it.
	Self common.Address
}

func (i Immutables) validate() error {
	switch {
	case i.Factory == (common.Address{}):
		return errors.New("factory address is required")
	case i.WETH9 == (common.Address{}):
		return errors.New("WETH9 address is required")
	case i.Self == (common.Address{}):
		return errors.New("manager address is required")
	}
	return nil
}

// MintCallbackFunc is the callback a pool invokes during mint.
type MintCallbackFunc = func(ctx context.Context, pool common.Address, amount0Owed, amount1Owed *uint256.Int, data []byte) error

// Factory locates and deploys pools.
type Factory interface {
	GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
	CreatePool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
}

// PoolReader reads a pool's current price.
type PoolReader interface {
	Slot0(ctx context.Context, pool common.Address) (*uint256.Int, int32, error)
}

// PoolBackend executes pool calls by pool address.
type PoolBackend interface {
	PoolReader
	Initialize(ctx context.Context, pool common.Address, sqrtPriceX96 *uint256.Int) error
	Mint(
		ctx context.Context,
		pool common.Address,
		sender common.Address,
		recipient common.Address,
		tickLower int32,
		tickUpper int32,
		amount *uint256.Int,
		data []byte,
		callback MintCallbackFunc,
	) (*uint256.Int, *uint256.Int, error)
}

// Ledger holds token and native balances.
type Ledger interface {
	BalanceOf(token, holder common.Address) *uint256.Int
	NativeBalance(holder common.Address) *uint256.Int
	Transfer(token, from, to common.Address, amount *uint256.Int) error
	TransferFrom(token, spender, from, to common.Address, amount *uint256.Int) error
	TransferNative(from, to common.Address, amount *uint256.Int) error
	CallValue(from, to common.Address, amount *uint256.Int) error
}

// WrappedNative is the WETH9 contract.
type WrappedNative interface {
	Deposit(account common.Address, amount *uint256.Int) error
	Withdraw(account common.Address, amount *uint256.Int) error
}

// Journal provides the all-or-nothing unit of work and the clock.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
	BlockTime() uint64
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Factory Factory
	Pools   PoolBackend
	Ledger  Ledger
	WETH9   WrappedNative
	Journal Journal
}

func (d Deps) validate() error {
	switch {
	case d.Factory == nil:
		return errors.New("factory is nil")
	case d.Pools == nil:
		return errors.New("pool backend is nil")
	case d.Ledger == nil:
		return errors.New("ledger is nil")
	case d.WETH9 == nil:
		return errors.New("WETH9 is nil")
	case d.Journal == nil:
		return errors.New("journal is nil")
	}
	return nil
}
