// Package simulate replays a scripted scenario against the in-memory ledger,
// the reference pools and the liquidity manager, and records what happened.
package simulate

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/RevelationOfTuring/v3-periphery/internal/amm"
	"github.com/RevelationOfTuring/v3-periphery/internal/clmath"
	"github.com/RevelationOfTuring/v3-periphery/internal/config"
	"github.com/RevelationOfTuring/v3-periphery/internal/dex"
	"github.com/RevelationOfTuring/v3-periphery/internal/model"
	"github.com/RevelationOfTuring/v3-periphery/internal/periphery"
	"github.com/RevelationOfTuring/v3-periphery/internal/state"
	"github.com/RevelationOfTuring/v3-periphery/internal/storage"
	"github.com/RevelationOfTuring/v3-periphery/internal/token"
)

// RunConfig holds the deployment a scenario runs against.
type RunConfig struct {
	ChainID uint64
	Factory common.Address
	WETH9   common.Address
	Manager common.Address
}

// Recorder persists pools and receipts. *postgres.Store satisfies it.
type Recorder interface {
	UpsertPools(ctx context.Context, pools []model.Pool) error
	InsertMintReceipts(ctx context.Context, receipts []model.MintReceipt) error
}

// Summary counts what a run produced.
type Summary struct {
	Steps    int
	Receipts int
	Reverted int
	Logs     int
	Pools    int
}

// Runner executes scenarios. A Runner holds one chain; running a second
// scenario continues from the state the first left behind.
type Runner struct {
	cfg      RunConfig
	db       *state.StateDB
	bank     *token.Bank
	weth     *token.WETH9
	factory  *amm.Factory
	manager  *periphery.Manager
	codec    *dex.EventCodec
	storage  storage.Storage
	recorder Recorder
	logger   *zap.Logger

	owner  common.Address
	block  uint64
	clock  uint64
	txSeen uint64
}

// NewRunner deploys the factory, WETH9 and the manager into a fresh ledger.
// recorder may be nil.
func NewRunner(cfg RunConfig, owner common.Address, storageSink storage.Storage, recorder Recorder, logger *zap.Logger) (*Runner, error) {
	if storageSink == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	codec, err := dex.NewEventCodec()
	if err != nil {
		return nil, err
	}

	db := state.New()
	bank := token.NewBank(db)
	weth := token.NewWETH9(bank, cfg.WETH9)
	factory, err := amm.NewFactory(cfg.Factory, owner, db, bank, logger)
	if err != nil {
		return nil, fmt.Errorf("deploy factory: %w", err)
	}
	manager, err := periphery.NewManager(
		periphery.Immutables{Factory: cfg.Factory, WETH9: cfg.WETH9, Self: cfg.Manager},
		periphery.Deps{Factory: factory, Pools: factory, Ledger: bank, WETH9: weth, Journal: db},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("deploy manager: %w", err)
	}
	bank.SetReceiver(cfg.Manager, manager.ReceiveNative)

	return &Runner{
		cfg:      cfg,
		db:       db,
		bank:     bank,
		weth:     weth,
		factory:  factory,
		manager:  manager,
		codec:    codec,
		storage:  storageSink,
		recorder: recorder,
		logger:   logger,
		owner:    owner,
	}, nil
}

// Run seeds the scenario's accounts and executes its steps in order, one
// block per step. A reverted step is recorded and the run continues; a
// malformed step or a storage failure stops it.
func (r *Runner) Run(ctx context.Context, scenario config.Scenario) (Summary, error) {
	var summary Summary

	start, err := config.ParseTimestamp(scenario.StartTime)
	if err != nil {
		return summary, fmt.Errorf("start time: %w", err)
	}
	if start == 0 {
		start = uint64(time.Now().Unix())
	}
	if start > r.clock {
		r.clock = start
	}
	blockTime := scenario.BlockTime
	if blockTime == 0 {
		blockTime = config.DefaultBlockTime
	}

	r.logger.Info("simulation start",
		zap.Uint64("chain_id", r.cfg.ChainID),
		zap.String("factory", r.cfg.Factory.Hex()),
		zap.String("manager", r.cfg.Manager.Hex()),
		zap.Int("accounts", len(scenario.Accounts)),
		zap.Int("steps", len(scenario.Steps)),
	)

	if len(scenario.Accounts) > 0 {
		r.nextBlock(0)
		if err := r.seed(scenario.Accounts); err != nil {
			return summary, err
		}
		if err := r.flush(ctx, nil, &summary); err != nil {
			return summary, err
		}
	}

	for i, step := range scenario.Steps {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		r.nextBlock(blockTime)
		receipts, err := r.runStep(ctx, i, step)
		if err != nil {
			return summary, fmt.Errorf("step %d: %w", i, err)
		}
		if err := r.flush(ctx, receipts, &summary); err != nil {
			return summary, err
		}
		summary.Steps++

		r.logger.Info("step complete",
			zap.Int("step", i),
			zap.String("action", step.Kind()),
			zap.Uint64("block", r.block),
			zap.String("status", receipts[0].Status),
		)
	}

	r.logger.Info("simulation complete",
		zap.Int("steps", summary.Steps),
		zap.Int("reverted", summary.Reverted),
		zap.Int("logs", summary.Logs),
		zap.Int("pools", summary.Pools),
	)
	return summary, nil
}

// Bank returns the simulated token ledger.
func (r *Runner) Bank() *token.Bank {
	return r.bank
}

func (r *Runner) nextBlock(blockTime uint64) {
	r.block++
	r.clock += blockTime
	r.db.SetBlock(r.block, r.clock)

	var buf [24]byte
	binary.BigEndian.PutUint64(buf[:8], r.cfg.ChainID)
	binary.BigEndian.PutUint64(buf[8:16], r.block)
	binary.BigEndian.PutUint64(buf[16:], r.txSeen)
	r.txSeen++
	r.db.SetTxContext(crypto.Keccak256Hash(buf[:]), 0)
}

func (r *Runner) seed(accounts []config.Account) error {
	for _, account := range accounts {
		holder, err := config.ParseAddress(account.Address)
		if err != nil {
			return err
		}
		if account.Native != "" {
			native, err := clmath.ParseAmount(account.Native)
			if err != nil {
				return fmt.Errorf("seed %s native: %w", holder.Hex(), err)
			}
			r.bank.SetNative(holder, native)
		}
		for tokenAddr, balance := range account.Tokens {
			tkn, err := config.ParseAddress(tokenAddr)
			if err != nil {
				return fmt.Errorf("seed %s: %w", holder.Hex(), err)
			}
			amount, err := clmath.ParseAmount(balance)
			if err != nil {
				return fmt.Errorf("seed %s %s: %w", holder.Hex(), tkn.Hex(), err)
			}
			r.bank.Mint(tkn, holder, amount)
		}
		for _, tokenAddr := range account.Approve {
			tkn, err := config.ParseAddress(tokenAddr)
			if err != nil {
				return fmt.Errorf("seed %s approve: %w", holder.Hex(), err)
			}
			r.bank.Approve(tkn, holder, r.cfg.Manager, clmath.MaxUint256)
		}
	}
	return nil
}

// flush writes the current block's logs, new pools and receipts, then
// finalises the block, which clears its logs from the ledger.
func (r *Runner) flush(ctx context.Context, receipts []model.MintReceipt, summary *Summary) error {
	ingestedAt := time.Now().UTC()
	var (
		records []model.LogRecord
		pools   []model.Pool
	)
	for _, log := range r.db.Logs() {
		record := model.NewLogRecord(r.cfg.ChainID, *log, r.clock, ingestedAt)
		records = append(records, record)

		if len(log.Topics) == 0 {
			continue
		}
		name, ok := r.codec.EventName(log.Topics[0].Hex())
		if !ok {
			continue
		}
		switch {
		case name == dex.EventPoolCreated && log.Address == r.cfg.Factory:
			pool, err := r.codec.DecodePoolCreated(record)
			if err != nil {
				return fmt.Errorf("decode pool created: %w", err)
			}
			pools = append(pools, pool)
		case name == dex.EventInitialize:
			event, err := r.codec.DecodeInitialize(record)
			if err != nil {
				return fmt.Errorf("decode initialize: %w", err)
			}
			r.logger.Debug("initialize event",
				zap.String("pool", record.Address),
				zap.String("sqrt_price_x96", event.SqrtPriceX96),
				zap.Int32("tick", event.Tick),
			)
		case name == dex.EventMint:
			event, err := r.codec.DecodeMint(record)
			if err != nil {
				return fmt.Errorf("decode mint: %w", err)
			}
			r.logger.Debug("mint event",
				zap.String("pool", record.Address),
				zap.String("owner", event.Owner),
				zap.String("liquidity", event.Amount),
				zap.String("amount0", event.Amount0),
				zap.String("amount1", event.Amount1),
			)
		}
	}

	if err := r.storage.PutLogBatch(records); err != nil {
		return fmt.Errorf("store logs: %w", err)
	}
	if err := r.storage.PutMintReceiptBatch(receipts); err != nil {
		return fmt.Errorf("store receipts: %w", err)
	}
	if r.recorder != nil {
		if err := r.recorder.UpsertPools(ctx, pools); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
		if err := r.recorder.InsertMintReceipts(ctx, receipts); err != nil {
			return fmt.Errorf("insert receipts: %w", err)
		}
	}
	r.db.Finalise()

	summary.Logs += len(records)
	summary.Pools += len(pools)
	summary.Receipts += len(receipts)
	for _, receipt := range receipts {
		if receipt.Status == model.ReceiptReverted {
			summary.Reverted++
		}
	}
	return nil
}
