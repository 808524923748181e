package periphery

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/RevelationOfTuring/v3-periphery/internal/amm"
	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/state"
	"github.com/RevelationOfTuring/v3-periphery/internal/token"
)

var (
	factoryAddr = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	wethAddr    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	managerAddr = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
	deployer    = common.HexToAddress("0xde9107e4")
	tokenA      = common.HexToAddress("0x1")
	tokenB      = common.HexToAddress("0x2")
	alice       = common.HexToAddress("0xa11ce")
	bob         = common.HexToAddress("0xb0b")
)

const startTime = 1_700_000_000

type harness struct {
	db      *state.StateDB
	bank    *token.Bank
	weth    *token.WETH9
	factory *amm.Factory
	mgr     *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := state.New()
	db.SetBlock(1, startTime)
	bank := token.NewBank(db)
	weth := token.NewWETH9(bank, wethAddr)
	factory, err := amm.NewFactory(factoryAddr, deployer, db, bank, nil)
	require.NoError(t, err)

	mgr, err := NewManager(
		Immutables{Factory: factoryAddr, WETH9: wethAddr, Self: managerAddr},
		Deps{Factory: factory, Pools: factory, Ledger: bank, WETH9: weth, Journal: db},
		nil,
	)
	require.NoError(t, err)
	bank.SetReceiver(managerAddr, mgr.ReceiveNative)
	db.Finalise()

	return &harness{db: db, bank: bank, weth: weth, factory: factory, mgr: mgr}
}

// fund mints amount of every token to holder and approves the manager.
func (h *harness) fund(holder common.Address, amount uint64, tokens ...common.Address) {
	for _, tkn := range tokens {
		h.bank.Mint(tkn, holder, uint256.NewInt(amount))
		h.bank.Approve(tkn, holder, managerAddr, clmath.MaxUint256)
	}
}

func (h *harness) createPool(t *testing.T, token0, token1 common.Address, fee uint32, sqrtPrice *uint256.Int) common.Address {
	t.Helper()
	pool, err := h.mgr.CreateAndInitializePoolIfNecessary(context.Background(), Call{Caller: alice}, token0, token1, fee, sqrtPrice)
	require.NoError(t, err)
	return pool
}

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
