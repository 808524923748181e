package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RevelationOfTuring/v3-periphery/internal/chain"
	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/config"
	"github.com/RevelationOfTuring/v3-periphery/internal/dex"
	"github.com/RevelationOfTuring/v3-periphery/internal/periphery"
	"github.com/RevelationOfTuring/v3-periphery/internal/pooladdress"
)

type quoteOutput struct {
	ChainID       uint64          `json:"chain_id"`
	BlockNumber   uint64          `json:"block_number"`
	Timestamp     uint64          `json:"timestamp"`
	Pool          string          `json:"pool"`
	Token0        string          `json:"token0"`
	Token1        string          `json:"token1"`
	Symbol0       string          `json:"symbol0,omitempty"`
	Symbol1       string          `json:"symbol1,omitempty"`
	Fee           uint32          `json:"fee"`
	TickSpacing   int32           `json:"tick_spacing"`
	Tick          int32           `json:"tick"`
	SqrtPriceX96  string          `json:"sqrt_price_x96"`
	Price         decimal.Decimal `json:"price"`
	PoolLiquidity string          `json:"pool_liquidity"`
	Liquidity     string          `json:"liquidity"`
	Amount0       string          `json:"amount0"`
	Amount1       string          `json:"amount1"`
	Amount0Scaled decimal.Decimal `json:"amount0_scaled"`
	Amount1Scaled decimal.Decimal `json:"amount1_scaled"`
	MeetsMinimums bool            `json:"meets_minimums"`
	// Payable is set when an owner is given.
	Payable       *bool           `json:"payable,omitempty"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	factory, err := config.ParseAddress(cfg.Factory)
	if err != nil {
		return fmt.Errorf("factory: %w", err)
	}
	tokenA, err := config.ParseAddress(cfg.Token0)
	if err != nil {
		return fmt.Errorf("token0: %w", err)
	}
	tokenB, err := config.ParseAddress(cfg.Token1)
	if err != nil {
		return fmt.Errorf("token1: %w", err)
	}
	if tokenA == tokenB {
		return fmt.Errorf("token0 and token1 must differ")
	}
	manager, err := config.ParseAddress(cfg.Manager)
	if err != nil {
		return fmt.Errorf("manager: %w", err)
	}
	var owner common.Address
	if cfg.Owner != "" {
		if owner, err = config.ParseAddress(cfg.Owner); err != nil {
			return fmt.Errorf("owner: %w", err)
		}
	}
	fees, err := config.ParseFees(cfg.Fees)
	if err != nil {
		return err
	}
	if len(fees) == 0 {
		return fmt.Errorf("at least one fee tier is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	// Every fee tier is read at the same block.
	block := cfg.BlockNumber
	if block == 0 {
		if block, err = chainClient.LatestBlockNumber(ctx); err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
	}
	blockTime, err := chainClient.BlockTimestamp(ctx, block)
	if err != nil {
		return fmt.Errorf("block timestamp %d: %w", block, err)
	}

	reader := dex.NewReader(chainClient, dex.ReaderConfig{
		Factory:      factory,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		BlockNumber:  block,
	}, logger)

	metaA, err := reader.TokenMeta(ctx, tokenA)
	if err != nil {
		return fmt.Errorf("token %s metadata: %w", tokenA.Hex(), err)
	}
	metaB, err := reader.TokenMeta(ctx, tokenB)
	if err != nil {
		return fmt.Errorf("token %s metadata: %w", tokenB.Hex(), err)
	}

	amountsA, err := quoteAmounts(cfg.Raw, metaA.Decimals, cfg.Amount0, cfg.Amount0Min)
	if err != nil {
		return fmt.Errorf("token0 amounts: %w", err)
	}
	amountsB, err := quoteAmounts(cfg.Raw, metaB.Decimals, cfg.Amount1, cfg.Amount1Min)
	if err != nil {
		return fmt.Errorf("token1 amounts: %w", err)
	}

	// Pools order their tokens; the amounts travel with their token.
	meta0, meta1 := metaA, metaB
	token0, token1 := tokenA, tokenB
	if !pooladdress.Less(tokenA, tokenB) {
		meta0, meta1 = metaB, metaA
		token0, token1 = tokenB, tokenA
		amountsA, amountsB = amountsB, amountsA
	}

	encoder := json.NewEncoder(os.Stdout)
	for _, fee := range fees {
		params := periphery.AddLiquidityParams{
			Token0:         token0,
			Token1:         token1,
			Fee:            fee,
			TickLower:      cfg.TickLower,
			TickUpper:      cfg.TickUpper,
			Amount0Desired: amountsA[0],
			Amount1Desired: amountsB[0],
			Amount0Min:     amountsA[1],
			Amount1Min:     amountsB[1],
		}

		deployed, err := reader.GetPool(ctx, token0, token1, fee)
		if err != nil {
			return fmt.Errorf("get pool fee %d: %w", fee, err)
		}
		if deployed == (common.Address{}) {
			logger.Warn("pool not deployed", zap.Uint32("fee", fee))
			continue
		}
		if expected := pooladdress.ComputeAddress(factory, pooladdress.GetPoolKey(token0, token1, fee)); expected != deployed {
			logger.Warn("factory pool does not match derived address",
				zap.Uint32("fee", fee),
				zap.String("factory_pool", deployed.Hex()),
				zap.String("derived_pool", expected.Hex()),
			)
			continue
		}

		meta, err := reader.PoolMeta(ctx, deployed)
		if err != nil {
			return fmt.Errorf("pool %s metadata: %w", deployed.Hex(), err)
		}
		if meta.TickSpacing > 0 && (cfg.TickLower%meta.TickSpacing != 0 || cfg.TickUpper%meta.TickSpacing != 0) {
			logger.Warn("ticks are not multiples of the pool's tick spacing",
				zap.Uint32("fee", fee),
				zap.Int32("tick_spacing", meta.TickSpacing),
			)
		}

		quote, err := periphery.Quote(ctx, reader, factory, params)
		if err != nil {
			return fmt.Errorf("quote fee %d: %w", fee, err)
		}

		poolLiquidity, err := reader.Liquidity(ctx, deployed)
		if err != nil {
			return fmt.Errorf("pool %s liquidity: %w", deployed.Hex(), err)
		}

		out := quoteOutput{
			ChainID:       chainID.Uint64(),
			BlockNumber:   block,
			Timestamp:     blockTime,
			Pool:          quote.Pool.Hex(),
			Token0:        token0.Hex(),
			Token1:        token1.Hex(),
			Symbol0:       meta0.Symbol,
			Symbol1:       meta1.Symbol,
			Fee:           fee,
			TickSpacing:   meta.TickSpacing,
			Tick:          quote.Tick,
			SqrtPriceX96:  quote.SqrtPriceX96.ToBig().String(),
			Price:         clmath.PriceFromSqrtX96(quote.SqrtPriceX96, meta0.Decimals, meta1.Decimals),
			PoolLiquidity: poolLiquidity.ToBig().String(),
			Liquidity:     quote.Liquidity.ToBig().String(),
			Amount0:       quote.Amount0.ToBig().String(),
			Amount1:       quote.Amount1.ToBig().String(),
			Amount0Scaled: clmath.ScaleAmount(quote.Amount0, meta0.Decimals),
			Amount1Scaled: clmath.ScaleAmount(quote.Amount1, meta1.Decimals),
			MeetsMinimums: quote.MeetsMinimums,
		}
		if owner != (common.Address{}) {
			payable, err := canPay(ctx, reader, owner, manager, []common.Address{token0, token1}, []*uint256.Int{quote.Amount0, quote.Amount1})
			if err != nil {
				return err
			}
			out.Payable = &payable
		}
		if err := encoder.Encode(out); err != nil {
			return fmt.Errorf("write quote: %w", err)
		}

		logger.Info("quote",
			zap.String("pool", out.Pool),
			zap.Uint32("fee", fee),
			zap.Int32("tick", out.Tick),
			zap.String("liquidity", out.Liquidity),
			zap.Bool("meets_minimums", out.MeetsMinimums),
		)
	}
	return nil
}

// canPay reports whether owner holds and has approved the manager for
// every amount.
func canPay(ctx context.Context, reader *dex.Reader, owner, manager common.Address, tokens []common.Address, amounts []*uint256.Int) (bool, error) {
	for i, tkn := range tokens {
		if amounts[i].IsZero() {
			continue
		}
		balance, err := reader.BalanceOf(ctx, tkn, owner)
		if err != nil {
			return false, fmt.Errorf("balance of %s: %w", tkn.Hex(), err)
		}
		allowance, err := reader.Allowance(ctx, tkn, owner, manager)
		if err != nil {
			return false, fmt.Errorf("allowance of %s: %w", tkn.Hex(), err)
		}
		if balance.Lt(amounts[i]) || allowance.Lt(amounts[i]) {
			return false, nil
		}
	}
	return true, nil
}

// quoteAmounts returns the desired and minimum amounts in base units.
func quoteAmounts(raw bool, decimals uint8, desired, minimum string) ([2]*uint256.Int, error) {
	var out [2]*uint256.Int
	for i, input := range []string{desired, minimum} {
		var (
			v   *uint256.Int
			err error
		)
		if raw {
			v, err = clmath.ParseAmount(input)
		} else {
			v, err = clmath.UnscaleAmount(input, decimals)
		}
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
