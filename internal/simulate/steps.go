package simulate

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/config"
	"github.com/RevelationOfTuring/v3-periphery/internal/model"
	"github.com/RevelationOfTuring/v3-periphery/internal/periphery"
	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

// managerOp is one manager operation parsed from a step. run fills the
// result fields of receipt.
type managerOp struct {
	receipt model.MintReceipt
	run     func(ctx context.Context, tx *periphery.Tx, receipt *model.MintReceipt) error
}

func (r *Runner) runStep(ctx context.Context, index int, step config.Step) ([]model.MintReceipt, error) {
	caller, err := config.ParseAddress(step.Caller)
	if err != nil {
		return nil, fmt.Errorf("caller: %w", err)
	}
	base := model.MintReceipt{
		ChainID:     r.cfg.ChainID,
		BlockNumber: r.block,
		Timestamp:   r.clock,
		Step:        index,
		Action:      step.Kind(),
		Caller:      caller.Hex(),
	}

	switch step.Kind() {
	case config.ActionApprove, config.ActionTransferNative, config.ActionEnableFee:
		apply, err := r.directOp(caller, step)
		if err != nil {
			return nil, err
		}
		snapshot := r.db.Snapshot()
		if err := apply(); err != nil {
			r.db.RevertToSnapshot(snapshot)
			return []model.MintReceipt{reverted(base, err)}, nil
		}
		base.Status = model.ReceiptSuccess
		return []model.MintReceipt{base}, nil
	}

	calls := []config.Step{step}
	if step.Kind() == config.ActionMulticall {
		calls = step.Calls
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("multicall without calls")
	}
	ops := make([]managerOp, 0, len(calls))
	for i, call := range calls {
		op, err := r.managerOp(caller, call)
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", i, err)
		}
		op.receipt.ChainID = base.ChainID
		op.receipt.BlockNumber = base.BlockNumber
		op.receipt.Timestamp = base.Timestamp
		op.receipt.Step = base.Step
		op.receipt.Action = call.Kind()
		op.receipt.Caller = base.Caller
		ops = append(ops, op)
	}

	value, err := config.ParseRawAmount(step.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	deadline, err := config.ParseTimestamp(step.Deadline)
	if err != nil {
		return nil, fmt.Errorf("deadline: %w", err)
	}

	receipts := make([]model.MintReceipt, len(ops))
	for i := range ops {
		receipts[i] = ops[i].receipt
	}
	err = r.manager.Execute(ctx, periphery.Call{Caller: caller, Value: value, Deadline: deadline}, func(ctx context.Context, tx *periphery.Tx) error {
		for i := range ops {
			if err := ops[i].run(ctx, tx, &receipts[i]); err != nil {
				return err
			}
		}
		return nil
	})
	for i := range receipts {
		if err != nil {
			receipts[i] = reverted(ops[i].receipt, err)
			continue
		}
		receipts[i].Status = model.ReceiptSuccess
	}
	return receipts, nil
}

func (r *Runner) managerOp(caller common.Address, step config.Step) (managerOp, error) {
	switch step.Kind() {
	case config.ActionCreatePool:
		token0, token1, err := tokenPair(step)
		if err != nil {
			return managerOp{}, err
		}
		sqrtPrice, err := clmath.ParseAmount(step.SqrtPriceX96)
		if err != nil {
			return managerOp{}, fmt.Errorf("sqrt_price_x96: %w", err)
		}
		op := managerOp{receipt: r.poolReceipt(token0, token1, step.Fee)}
		op.receipt.SqrtPriceX96 = sqrtPrice.ToBig().String()
		op.run = func(ctx context.Context, tx *periphery.Tx, receipt *model.MintReceipt) error {
			pool, err := tx.CreateAndInitializePoolIfNecessary(ctx, token0, token1, step.Fee, sqrtPrice)
			if err != nil {
				return err
			}
			current, _, err := r.factory.Slot0(ctx, pool)
			if err != nil {
				return err
			}
			receipt.SqrtPriceX96 = current.ToBig().String()
			return nil
		}
		return op, nil

	case config.ActionAddLiquidity:
		token0, token1, err := tokenPair(step)
		if err != nil {
			return managerOp{}, err
		}
		recipient, err := config.ParseOptionalAddress(step.Recipient, caller)
		if err != nil {
			return managerOp{}, fmt.Errorf("recipient: %w", err)
		}
		params := periphery.AddLiquidityParams{
			Token0:    token0,
			Token1:    token1,
			Fee:       step.Fee,
			Recipient: recipient,
			TickLower: step.TickLower,
			TickUpper: step.TickUpper,
		}
		amounts := []struct {
			name string
			raw  string
			dst  **uint256.Int
		}{
			{"amount0_desired", step.Amount0Desired, &params.Amount0Desired},
			{"amount1_desired", step.Amount1Desired, &params.Amount1Desired},
			{"amount0_min", step.Amount0Min, &params.Amount0Min},
			{"amount1_min", step.Amount1Min, &params.Amount1Min},
		}
		for _, a := range amounts {
			v, err := config.ParseRawAmount(a.raw)
			if err != nil {
				return managerOp{}, fmt.Errorf("%s: %w", a.name, err)
			}
			*a.dst = v
		}

		op := managerOp{receipt: r.poolReceipt(token0, token1, step.Fee)}
		op.receipt.TickLower = step.TickLower
		op.receipt.TickUpper = step.TickUpper
		op.run = func(ctx context.Context, tx *periphery.Tx, receipt *model.MintReceipt) error {
			result, err := tx.AddLiquidity(ctx, params)
			if err != nil {
				return err
			}
			receipt.Liquidity = result.Liquidity.ToBig().String()
			receipt.Amount0 = result.Amount0.ToBig().String()
			receipt.Amount1 = result.Amount1.ToBig().String()
			return nil
		}
		return op, nil

	case config.ActionRefundETH:
		return managerOp{run: func(ctx context.Context, tx *periphery.Tx, _ *model.MintReceipt) error {
			return tx.RefundETH(ctx)
		}}, nil

	case config.ActionUnwrapWETH9:
		minimum, recipient, err := sweepArgs(caller, step)
		if err != nil {
			return managerOp{}, err
		}
		op := managerOp{receipt: model.MintReceipt{Token0: r.cfg.WETH9.Hex()}}
		op.run = func(ctx context.Context, tx *periphery.Tx, _ *model.MintReceipt) error {
			return tx.UnwrapWETH9(ctx, minimum, recipient)
		}
		return op, nil

	case config.ActionSweepToken:
		tkn, err := config.ParseAddress(step.Token)
		if err != nil {
			return managerOp{}, fmt.Errorf("token: %w", err)
		}
		minimum, recipient, err := sweepArgs(caller, step)
		if err != nil {
			return managerOp{}, err
		}
		op := managerOp{receipt: model.MintReceipt{Token0: tkn.Hex()}}
		op.run = func(ctx context.Context, tx *periphery.Tx, _ *model.MintReceipt) error {
			return tx.SweepToken(ctx, tkn, minimum, recipient)
		}
		return op, nil
	}
	return managerOp{}, fmt.Errorf("unsupported action %q", step.Action)
}

func (r *Runner) directOp(caller common.Address, step config.Step) (func() error, error) {
	switch step.Kind() {
	case config.ActionApprove:
		tkn, err := config.ParseAddress(step.Token)
		if err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		spender, err := config.ParseOptionalAddress(step.Spender, r.cfg.Manager)
		if err != nil {
			return nil, fmt.Errorf("spender: %w", err)
		}
		amount := clmath.MaxUint256
		if step.Amount != "" {
			if amount, err = clmath.ParseAmount(step.Amount); err != nil {
				return nil, fmt.Errorf("amount: %w", err)
			}
		}
		return func() error {
			r.bank.Approve(tkn, caller, spender, amount)
			return nil
		}, nil

	case config.ActionTransferNative:
		recipient, err := config.ParseAddress(step.Recipient)
		if err != nil {
			return nil, fmt.Errorf("recipient: %w", err)
		}
		amount, err := clmath.ParseAmount(step.Amount)
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		return func() error {
			return r.bank.TransferNative(caller, recipient, amount)
		}, nil

	case config.ActionEnableFee:
		return func() error {
			return r.factory.EnableFeeAmount(caller, step.Fee, step.TickSpacing)
		}, nil
	}
	return nil, fmt.Errorf("unsupported action %q", step.Action)
}

func (r *Runner) poolReceipt(token0, token1 common.Address, fee uint32) model.MintReceipt {
	receipt := model.MintReceipt{Token0: token0.Hex(), Token1: token1.Hex(), Fee: fee}
	key := pooladdress.PoolKey{Token0: token0, Token1: token1, Fee: fee}
	if key.Sorted() {
		receipt.Pool = pooladdress.ComputeAddress(r.cfg.Factory, key).Hex()
	}
	return receipt
}

func tokenPair(step config.Step) (common.Address, common.Address, error) {
	token0, err := config.ParseAddress(step.Token0)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := config.ParseAddress(step.Token1)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token1: %w", err)
	}
	return token0, token1, nil
}

func sweepArgs(caller common.Address, step config.Step) (*uint256.Int, common.Address, error) {
	minimum, err := config.ParseRawAmount(step.Amount)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("amount: %w", err)
	}
	recipient, err := config.ParseOptionalAddress(step.Recipient, caller)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("recipient: %w", err)
	}
	return minimum, recipient, nil
}

func reverted(receipt model.MintReceipt, err error) model.MintReceipt {
	receipt.Status = model.ReceiptReverted
	receipt.Error = err.Error()
	return receipt
}
