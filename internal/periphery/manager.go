// Package periphery provisions liquidity into concentrated-liquidity pools:
// it bootstraps pools, sizes positions from desired token amounts, mints
// them, and settles the pool's payment callback.
package periphery

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Call carries the per-call context of a transaction.
type Call struct {
	Caller common.Address
	// Value is native value sent with the call; it is credited to the
	// manager before any operation runs.
	Value *uint256.Int
	// Deadline is a unix timestamp; 0 disables the check.
	Deadline uint64
}

// Manager is the liquidity manager. Entry points are serialized; the mint
// callback runs inside the entry point that triggered it.
type Manager struct {
	imm     Immutables
	factory Factory
	pools   PoolBackend
	ledger  Ledger
	weth    WrappedNative
	journal Journal
	logger  *zap.Logger

	mu sync.Mutex
}

// NewManager builds a Manager.
func NewManager(imm Immutables, deps Deps, logger *zap.Logger) (*Manager, error) {
	if err := imm.validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		imm:     imm,
		factory: deps.Factory,
		pools:   deps.Pools,
		ledger:  deps.Ledger,
		weth:    deps.WETH9,
		journal: deps.Journal,
		logger:  logger.With(zap.String("manager", imm.Self.Hex())),
	}, nil
}

// Tx is one unit of work inside Execute. Its methods are the manager's
// operations; they may be called several times and in any order.
type Tx struct {
	m      *Manager
	caller common.Address
}

// Caller returns the account that started the transaction.
func (tx *Tx) Caller() common.Address {
	return tx.caller
}

// Execute runs fn as one atomic unit: if fn or any operation in it fails,
// every ledger, pool and log change made since the start is discarded.
func (m *Manager) Execute(ctx context.Context, call Call, fn func(ctx context.Context, tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if call.Deadline != 0 && m.journal.BlockTime() > call.Deadline {
		return ErrTransactionTooOld
	}

	snapshot := m.journal.Snapshot()
	err := m.run(ctx, call, fn)
	if err != nil {
		m.journal.RevertToSnapshot(snapshot)
		m.logger.Warn("transaction reverted",
			zap.String("caller", call.Caller.Hex()),
			zap.Error(err),
		)
	}
	return err
}

func (m *Manager) run(ctx context.Context, call Call, fn func(ctx context.Context, tx *Tx) error) error {
	if call.Value != nil && !call.Value.IsZero() {
		if err := m.ledger.CallValue(call.Caller, m.imm.Self, call.Value); err != nil {
			return fmt.Errorf("call value: %w", err)
		}
	}
	return fn(ctx, &Tx{m: m, caller: call.Caller})
}

// CreateAndInitializePoolIfNecessary runs the pool bootstrap as its own transaction.
func (m *Manager) CreateAndInitializePoolIfNecessary(ctx context.Context, call Call, token0, token1 common.Address, fee uint32, sqrtPriceX96 *uint256.Int) (common.Address, error) {
	var pool common.Address
	err := m.Execute(ctx, call, func(ctx context.Context, tx *Tx) error {
		var err error
		pool, err = tx.CreateAndInitializePoolIfNecessary(ctx, token0, token1, fee, sqrtPriceX96)
		return err
	})
	if err != nil {
		return common.Address{}, err
	}
	return pool, nil
}

// AddLiquidity runs a liquidity addition as its own transaction.
func (m *Manager) AddLiquidity(ctx context.Context, call Call, params AddLiquidityParams) (AddLiquidityResult, error) {
	var result AddLiquidityResult
	err := m.Execute(ctx, call, func(ctx context.Context, tx *Tx) error {
		var err error
		result, err = tx.AddLiquidity(ctx, params)
		return err
	})
	if err != nil {
		return AddLiquidityResult{}, err
	}
	return result, nil
}

// ReceiveNative accepts native value only when it comes from unwrapping WETH9.
func (m *Manager) ReceiveNative(from common.Address, _ *uint256.Int) error {
	if from != m.imm.WETH9 {
		return ErrNotWETH9
	}
	return nil
}
